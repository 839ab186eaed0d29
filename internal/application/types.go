package application

import "time"

type Config struct {
	ServiceName string
	// SystemAccountID authors automated reactions and notes.
	SystemAccountID int64

	SpamSuspendThreshold int

	FeatureMoreRigorousUserProfileSpamChecking bool

	RingMinReactions        int
	RingMinSize             int
	RingConcentration       float64
	RingSelfReactionCeiling float64

	DomainBlockGuardTTL time.Duration
	EventDedupTTL       time.Duration
}

// SpamVerdict is the outcome of a content spam check.
type SpamVerdict string

const (
	VerdictNotSpam SpamVerdict = "not_spam"
	VerdictSpam    SpamVerdict = "spam"
)

func (v SpamVerdict) IsSpam() bool { return v == VerdictSpam }

// Fixed parameters of the domain abuse heuristic.
const (
	domainNewWindow         = 14 * 24 * time.Hour
	domainAbuseMinFlagged   = 3
	ringLookbackMonths      = 3
	ringMinSharedAuthors    = 2
	ringDiverseOutsideCount = 2
)

type SpamCheckResponse struct {
	Subject string `json:"subject"`
	ID      int64  `json:"id"`
	Verdict string `json:"verdict"`
}

type DomainCheckResponse struct {
	UserID  int64  `json:"user_id"`
	Domain  string `json:"domain,omitempty"`
	Flagged bool   `json:"flagged"`
}

type RingDetectionResponse struct {
	UserID   int64 `json:"user_id"`
	Detected bool  `json:"detected"`
}

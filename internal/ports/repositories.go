package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	ListByIDs(ctx context.Context, userIDs []int64) ([]domain.User, error)
	ListByEmailDomain(ctx context.Context, emailDomain string) ([]domain.User, error)
	// ExistsByEmailDomainRegisteredBefore reports whether any user on the
	// domain has registered_at strictly before cutoff.
	ExistsByEmailDomainRegisteredBefore(ctx context.Context, emailDomain string, cutoff time.Time) (bool, error)
	// CountByEmailDomainWithRolesRegisteredSince counts distinct users on the
	// domain with registered_at >= cutoff holding any of roles.
	CountByEmailDomainWithRolesRegisteredSince(ctx context.Context, emailDomain string, roles []domain.Role, cutoff time.Time) (int64, error)
}

type ContentRepository interface {
	GetArticle(ctx context.Context, articleID int64) (domain.Article, error)
	GetComment(ctx context.Context, commentID int64) (domain.Comment, error)
}

type CreateReactionParams struct {
	UserID    int64
	Reactable domain.EntityRef
	Category  domain.ReactionCategory
	CreatedAt time.Time
}

type ReactionRepository interface {
	// CreateIfAbsent inserts the reaction unless the same user already left
	// the same category on the reactable. created is false in that case.
	CreateIfAbsent(ctx context.Context, params CreateReactionParams) (reaction domain.Reaction, created bool, err error)
	// CountByReactorOnOwnedContent counts reactions of category left by
	// reactorID on content of kind owned by ownerID.
	CountByReactorOnOwnedContent(ctx context.Context, ownerID int64, kind domain.EntityKind, reactorID int64, category domain.ReactionCategory) (int64, error)
	ArticleReactionFootprints(ctx context.Context, userIDs []int64, categories []domain.ReactionCategory, since time.Time) (map[int64]domain.ReactionFootprint, error)
	// UsersReactingToAuthors returns users other than excludeUserID who
	// reacted to articles of at least minAuthors distinct authors in authorIDs.
	UsersReactingToAuthors(ctx context.Context, authorIDs []int64, categories []domain.ReactionCategory, since time.Time, excludeUserID int64, minAuthors int) ([]int64, error)
}

type SocialGraphRepository interface {
	MutuallyFollow(ctx context.Context, userID, otherID int64) (bool, error)
	ShareOrganization(ctx context.Context, userID, otherID int64) (bool, error)
}

type SuspendUserParams struct {
	UserID   int64
	AuthorID int64
	Reason   domain.NoteReason
	Content  string
	At       time.Time
	// Event, when set, is written to the outbox in the same transaction.
	Event *OutboxEvent
}

type ReputationPenaltyParams struct {
	UserIDs  []int64
	AuthorID int64
	Reason   domain.NoteReason
	Adjust   func(current float64) float64
	Content  func(updated float64) string
	At       time.Time
	// Event, when set, is written to the outbox in the same transaction.
	Event *OutboxEvent
}

type ReputationPenaltyResult struct {
	UserID   int64
	Previous float64
	Updated  float64
}

// ModerationRepository owns the multi-row writes that must commit together.
type ModerationRepository interface {
	// SuspendUser adds the suspended role (no-op when already present) and
	// writes one note, together with the optional outbox event, in a single
	// transaction.
	SuspendUser(ctx context.Context, params SuspendUserParams) (domain.Note, error)
	// ApplyReputationPenalty locks every user row, applies Adjust and writes
	// one note per user. Either all users are penalised or none are.
	ApplyReputationPenalty(ctx context.Context, params ReputationPenaltyParams) ([]ReputationPenaltyResult, error)
	BlockEmailDomain(ctx context.Context, emailDomain string, at time.Time) (created bool, err error)
}

type OutboxEvent struct {
	EventID          uuid.UUID
	EventType        string
	PartitionKey     string
	PartitionKeyPath string
	Payload          []byte
	OccurredAt       time.Time
	SchemaVersion    string
	TraceID          string
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	LastErrorAt  *time.Time
	FirstSeenAt  time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

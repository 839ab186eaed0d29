package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type ArticlePayload struct {
	ArticleID int64 `json:"article_id"`
	UserID    int64 `json:"user_id"`
}

type CommentPayload struct {
	CommentID int64 `json:"comment_id"`
	UserID    int64 `json:"user_id"`
}

type UserPayload struct {
	UserID int64 `json:"user_id"`
}

type RingAnalysisRequestedPayload struct {
	UserID      int64  `json:"user_id"`
	RequestedBy string `json:"requested_by,omitempty"`
}

type DomainBlockRequestedPayload struct {
	Domain        string `json:"domain"`
	TriggerUserID int64  `json:"trigger_user_id"`
	DetectedAt    string `json:"detected_at"`
}

type UserSuspendedPayload struct {
	UserID      int64  `json:"user_id"`
	Reason      string `json:"reason"`
	SuspendedAt string `json:"suspended_at"`
}

type ReactionRingDetectedPayload struct {
	TriggerUserID int64   `json:"trigger_user_id"`
	MemberIDs     []int64 `json:"member_ids"`
	DetectedAt    string  `json:"detected_at"`
}

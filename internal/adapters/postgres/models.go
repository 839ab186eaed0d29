package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	ID                 int64     `gorm:"column:id;primaryKey"`
	Email              string    `gorm:"column:email"`
	Username           string    `gorm:"column:username"`
	Name               string    `gorm:"column:name"`
	TwitterUsername    string    `gorm:"column:twitter_username"`
	GithubUsername     string    `gorm:"column:github_username"`
	Summary            string    `gorm:"column:summary"`
	WebsiteURL         string    `gorm:"column:website_url"`
	Location           string    `gorm:"column:location"`
	EmployerName       string    `gorm:"column:employer_name"`
	RegisteredAt       time.Time `gorm:"column:registered_at"`
	ReputationModifier float64   `gorm:"column:reputation_modifier"`
}

func (userModel) TableName() string { return "users" }

type userRoleModel struct {
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	Role      string    `gorm:"column:role;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (userRoleModel) TableName() string { return "user_roles" }

type articleModel struct {
	ID                int64  `gorm:"column:id;primaryKey"`
	UserID            int64  `gorm:"column:user_id"`
	Title             string `gorm:"column:title"`
	BodyMarkdown      string `gorm:"column:body_markdown"`
	PublishedFromFeed bool   `gorm:"column:published_from_feed"`
}

func (articleModel) TableName() string { return "articles" }

type commentModel struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	UserID       int64  `gorm:"column:user_id"`
	BodyMarkdown string `gorm:"column:body_markdown"`
}

func (commentModel) TableName() string { return "comments" }

type reactionModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	UserID        int64     `gorm:"column:user_id"`
	ReactableType string    `gorm:"column:reactable_type"`
	ReactableID   int64     `gorm:"column:reactable_id"`
	Category      string    `gorm:"column:category"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (reactionModel) TableName() string { return "reactions" }

type noteModel struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	AuthorID     int64     `gorm:"column:author_id"`
	NoteableType string    `gorm:"column:noteable_type"`
	NoteableID   int64     `gorm:"column:noteable_id"`
	Reason       string    `gorm:"column:reason"`
	Content      string    `gorm:"column:content"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (noteModel) TableName() string { return "notes" }

type followModel struct {
	ID             int64  `gorm:"column:id;primaryKey"`
	FollowerID     int64  `gorm:"column:follower_id"`
	FollowableType string `gorm:"column:followable_type"`
	FollowableID   int64  `gorm:"column:followable_id"`
}

func (followModel) TableName() string { return "follows" }

type organizationMembershipModel struct {
	ID             int64 `gorm:"column:id;primaryKey"`
	UserID         int64 `gorm:"column:user_id"`
	OrganizationID int64 `gorm:"column:organization_id"`
}

func (organizationMembershipModel) TableName() string { return "organization_memberships" }

type blockedEmailDomainModel struct {
	Domain    string    `gorm:"column:domain;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (blockedEmailDomainModel) TableName() string { return "blocked_email_domains" }

type abuseOutboxModel struct {
	OutboxID         uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType        string     `gorm:"column:event_type"`
	PartitionKey     string     `gorm:"column:partition_key"`
	PartitionKeyPath string     `gorm:"column:partition_key_path"`
	Payload          string     `gorm:"column:payload"`
	SchemaVersion    string     `gorm:"column:schema_version"`
	TraceID          string     `gorm:"column:trace_id"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	FirstSeenAt      time.Time  `gorm:"column:first_seen_at"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	RetryCount       int        `gorm:"column:retry_count"`
	LastError        *string    `gorm:"column:last_error"`
	LastErrorAt      *time.Time `gorm:"column:last_error_at"`
}

func (abuseOutboxModel) TableName() string { return "abuse_outbox" }

type abuseEventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (abuseEventDedupModel) TableName() string { return "abuse_event_dedup" }

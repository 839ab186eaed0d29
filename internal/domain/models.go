package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleSuperAdmin     Role = "super_admin"
	RoleTechAdmin      Role = "tech_admin"
	RoleSuperModerator Role = "super_moderator"
	RoleModerator      Role = "moderator"
	RoleSuspended      Role = "suspended"
	RoleSpam           Role = "spam"
	RoleTrusted        Role = "trusted"
	RoleWarned         Role = "warned"
)

// EntityKind tags the concrete type behind a polymorphic reference.
type EntityKind string

const (
	EntityArticle EntityKind = "Article"
	EntityComment EntityKind = "Comment"
	EntityUser    EntityKind = "User"
)

// EntityRef points at an article, comment or user. Reactions use it as
// their reactable and notes as their noteable.
type EntityRef struct {
	Kind EntityKind
	ID   int64
}

func ArticleRef(id int64) EntityRef { return EntityRef{Kind: EntityArticle, ID: id} }
func CommentRef(id int64) EntityRef { return EntityRef{Kind: EntityComment, ID: id} }
func UserRef(id int64) EntityRef    { return EntityRef{Kind: EntityUser, ID: id} }

func (k EntityKind) Valid() bool {
	switch k {
	case EntityArticle, EntityComment, EntityUser:
		return true
	default:
		return false
	}
}

type ReactionCategory string

const (
	ReactionLike          ReactionCategory = "like"
	ReactionUnicorn       ReactionCategory = "unicorn"
	ReactionExplodingHead ReactionCategory = "exploding_head"
	ReactionRaisedHands   ReactionCategory = "raised_hands"
	ReactionFire          ReactionCategory = "fire"
	ReactionReadingList   ReactionCategory = "readinglist"
	ReactionVomit         ReactionCategory = "vomit"
)

// PublicReactionCategories are the organic, visible categories counted by
// reaction ring analysis.
var PublicReactionCategories = []ReactionCategory{
	ReactionLike,
	ReactionUnicorn,
	ReactionExplodingHead,
	ReactionRaisedHands,
	ReactionFire,
}

type NoteReason string

const (
	NoteReasonAutomaticSuspend      NoteReason = "automatic_suspend"
	NoteReasonReactionRingDetection NoteReason = "reaction_ring_detection"
	NoteReasonDomainBlock           NoteReason = "domain_block"
)

type User struct {
	ID                 int64
	Email              string
	Username           string
	Name               string
	TwitterUsername    string
	GithubUsername     string
	Summary            string
	WebsiteURL         string
	Location           string
	EmployerName       string
	RegisteredAt       time.Time
	ReputationModifier float64
	Roles              []Role
}

func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleSuperAdmin) || u.HasRole(RoleTechAdmin)
}

func (u User) IsSuperModerator() bool { return u.HasRole(RoleSuperModerator) }
func (u User) IsTrusted() bool        { return u.HasRole(RoleTrusted) }
func (u User) IsSuspended() bool      { return u.HasRole(RoleSuspended) }
func (u User) IsSpamOrSuspended() bool {
	return u.HasRole(RoleSpam) || u.HasRole(RoleSuspended)
}

// EmailDomain returns the lowercase part after the last "@", or "" when the
// email has none.
func (u User) EmailDomain() string {
	return EmailDomain(u.Email)
}

type Article struct {
	ID                int64
	UserID            int64
	Title             string
	BodyMarkdown      string
	PublishedFromFeed bool
}

type Comment struct {
	ID           int64
	UserID       int64
	BodyMarkdown string
}

type Reaction struct {
	ID        int64
	UserID    int64
	Reactable EntityRef
	Category  ReactionCategory
	CreatedAt time.Time
}

type Note struct {
	ID        int64
	AuthorID  int64
	Noteable  EntityRef
	Reason    NoteReason
	Content   string
	CreatedAt time.Time
}

type BlockedEmailDomain struct {
	Domain    string
	CreatedAt time.Time
}

func EmailDomain(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

package postgres

import (
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Users      ports.UserRepository
	Content    ports.ContentRepository
	Reactions  ports.ReactionRepository
	Graph      ports.SocialGraphRepository
	Moderation ports.ModerationRepository
	Outbox     ports.OutboxRepository
	EventDedup ports.EventDedupRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:      &userRepository{db: db},
		Content:    &contentRepository{db: db},
		Reactions:  &reactionRepository{db: db},
		Graph:      &socialGraphRepository{db: db},
		Moderation: &moderationRepository{db: db},
		Outbox:     &outboxRepository{db: db},
		EventDedup: &eventDedupRepository{db: db},
	}
}

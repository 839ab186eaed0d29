package application

import (
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

type Service struct {
	cfg        Config
	users      ports.UserRepository
	content    ports.ContentRepository
	reactions  ports.ReactionRepository
	graph      ports.SocialGraphRepository
	moderation ports.ModerationRepository
	outbox     ports.OutboxRepository
	eventDedup ports.EventDedupRepository
	heuristics ports.SpamHeuristics
	cache      ports.Cache
	tokens     ports.TokenVerifier
	nowFn      func() time.Time
}

type Dependencies struct {
	Config     Config
	Users      ports.UserRepository
	Content    ports.ContentRepository
	Reactions  ports.ReactionRepository
	Graph      ports.SocialGraphRepository
	Moderation ports.ModerationRepository
	Outbox     ports.OutboxRepository
	EventDedup ports.EventDedupRepository
	Heuristics ports.SpamHeuristics
	Cache      ports.Cache
	Tokens     ports.TokenVerifier
	Clock      func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M99-Abuse-Detection-Service"
	}
	if cfg.SystemAccountID <= 0 {
		cfg.SystemAccountID = 1
	}
	if cfg.SpamSuspendThreshold <= 0 {
		cfg.SpamSuspendThreshold = 2
	}
	if cfg.RingMinReactions <= 0 {
		cfg.RingMinReactions = 50
	}
	if cfg.RingMinSize <= 0 {
		cfg.RingMinSize = 3
	}
	if cfg.RingConcentration <= 0 {
		cfg.RingConcentration = 0.8
	}
	if cfg.RingSelfReactionCeiling <= 0 {
		cfg.RingSelfReactionCeiling = 0.3
	}
	if cfg.DomainBlockGuardTTL <= 0 {
		cfg.DomainBlockGuardTTL = 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		cfg:        cfg,
		users:      deps.Users,
		content:    deps.Content,
		reactions:  deps.Reactions,
		graph:      deps.Graph,
		moderation: deps.Moderation,
		outbox:     deps.Outbox,
		eventDedup: deps.EventDedup,
		heuristics: deps.Heuristics,
		cache:      deps.Cache,
		tokens:     deps.Tokens,
		nowFn:      nowFn,
	}
}

func (s *Service) Config() Config { return s.cfg }

package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL        string
	RedisURL           string
	KafkaBrokers       []string
	KafkaConsumerGroup string
	MaxDBConns         int32

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	ConsumerPollInterval time.Duration
	ConsumerBatchSize    int

	AdminJWTSecret string

	SystemAccountID      int64
	SpamSuspendThreshold int
	SpamTriggerTerms     []string
	SpamScoreThreshold   int

	UserConsideredNewDays int

	FeatureMoreRigorousUserProfileSpamChecking bool

	RingMinReactions        int
	RingMinSize             int
	RingConcentration       float64
	RingSelfReactionCeiling float64

	DomainBlockGuardTTL time.Duration
	EventDedupTTL       time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL        string   `yaml:"postgres_url"`
		RedisURL           string   `yaml:"redis_url"`
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`
	} `yaml:"dependencies"`
	Detection struct {
		SystemAccountID       int64    `yaml:"system_account_id"`
		SpamSuspendThreshold  int      `yaml:"spam_suspend_threshold"`
		SpamTriggerTerms      []string `yaml:"spam_trigger_terms"`
		SpamScoreThreshold    int      `yaml:"spam_score_threshold"`
		UserConsideredNewDays int      `yaml:"user_considered_new_days"`
		Ring                  struct {
			MinReactions        int     `yaml:"min_reactions"`
			MinSize             int     `yaml:"min_size"`
			Concentration       float64 `yaml:"concentration"`
			SelfReactionCeiling float64 `yaml:"self_reaction_ceiling"`
		} `yaml:"reaction_ring"`
	} `yaml:"detection"`
	Features struct {
		MoreRigorousUserProfileSpamChecking bool `yaml:"more_rigorous_user_profile_spam_checking"`
	} `yaml:"features"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:               "M99-Abuse-Detection-Service",
		HTTPPort:                8080,
		GRPCPort:                9090,
		MaxDBConns:              20,
		KafkaConsumerGroup:      "m99-abuse-detection-service",
		OutboxPollInterval:      2 * time.Second,
		OutboxBatchSize:         100,
		ConsumerPollInterval:    2 * time.Second,
		ConsumerBatchSize:       50,
		SystemAccountID:         1,
		SpamSuspendThreshold:    2,
		SpamScoreThreshold:      1,
		UserConsideredNewDays:   3,
		RingMinReactions:        50,
		RingMinSize:             3,
		RingConcentration:       0.8,
		RingSelfReactionCeiling: 0.3,
		DomainBlockGuardTTL:     24 * time.Hour,
		EventDedupTTL:           7 * 24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.AdminJWTSecret = envOrDefault("ADMIN_JWT_SECRET", cfg.AdminJWTSecret)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.ConsumerBatchSize = envInt("CONSUMER_BATCH_SIZE", cfg.ConsumerBatchSize)
	cfg.SystemAccountID = int64(envInt("SYSTEM_ACCOUNT_ID", int(cfg.SystemAccountID)))
	cfg.SpamSuspendThreshold = envInt("SPAM_SUSPEND_THRESHOLD", cfg.SpamSuspendThreshold)
	cfg.SpamTriggerTerms = envCSV("SPAM_TRIGGER_TERMS", cfg.SpamTriggerTerms)
	cfg.SpamScoreThreshold = envInt("SPAM_SCORE_THRESHOLD", cfg.SpamScoreThreshold)
	cfg.UserConsideredNewDays = envInt("USER_CONSIDERED_NEW_DAYS", cfg.UserConsideredNewDays)
	cfg.FeatureMoreRigorousUserProfileSpamChecking = envBool("FEATURE_MORE_RIGOROUS_USER_PROFILE_SPAM_CHECKING", cfg.FeatureMoreRigorousUserProfileSpamChecking)
	cfg.RingMinReactions = envInt("RING_MIN_REACTIONS", cfg.RingMinReactions)
	cfg.RingMinSize = envInt("RING_MIN_SIZE", cfg.RingMinSize)
	cfg.RingConcentration = envFloat("RING_CONCENTRATION", cfg.RingConcentration)
	cfg.RingSelfReactionCeiling = envFloat("RING_SELF_REACTION_CEILING", cfg.RingSelfReactionCeiling)
	cfg.DomainBlockGuardTTL = time.Duration(envInt("DOMAIN_BLOCK_GUARD_HOURS", int(cfg.DomainBlockGuardTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.SystemAccountID <= 0 {
		return Config{}, fmt.Errorf("SYSTEM_ACCOUNT_ID must be positive")
	}
	if cfg.RingConcentration <= 0 || cfg.RingConcentration > 1 {
		return Config{}, fmt.Errorf("RING_CONCENTRATION must be in (0, 1]")
	}
	if cfg.RingSelfReactionCeiling < 0 || cfg.RingSelfReactionCeiling > 1 {
		return Config{}, fmt.Errorf("RING_SELF_REACTION_CEILING must be in [0, 1]")
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
	}
	d := f.Detection
	if d.SystemAccountID > 0 {
		cfg.SystemAccountID = d.SystemAccountID
	}
	if d.SpamSuspendThreshold > 0 {
		cfg.SpamSuspendThreshold = d.SpamSuspendThreshold
	}
	if len(d.SpamTriggerTerms) > 0 {
		cfg.SpamTriggerTerms = trimNonEmpty(d.SpamTriggerTerms)
	}
	if d.SpamScoreThreshold > 0 {
		cfg.SpamScoreThreshold = d.SpamScoreThreshold
	}
	if d.UserConsideredNewDays > 0 {
		cfg.UserConsideredNewDays = d.UserConsideredNewDays
	}
	if d.Ring.MinReactions > 0 {
		cfg.RingMinReactions = d.Ring.MinReactions
	}
	if d.Ring.MinSize > 0 {
		cfg.RingMinSize = d.Ring.MinSize
	}
	if d.Ring.Concentration > 0 {
		cfg.RingConcentration = d.Ring.Concentration
	}
	if d.Ring.SelfReactionCeiling > 0 {
		cfg.RingSelfReactionCeiling = d.Ring.SelfReactionCeiling
	}
	cfg.FeatureMoreRigorousUserProfileSpamChecking = f.Features.MoreRigorousUserProfileSpamChecking
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

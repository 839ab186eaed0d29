package ports

import (
	"context"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
)

// SpamHeuristics is the pluggable rate-limit engine consulted before any
// spam reaction is issued.
type SpamHeuristics interface {
	TriggerSpamFor(ctx context.Context, text string) (bool, error)
	UserConsideredNew(ctx context.Context, user domain.User) (bool, error)
}

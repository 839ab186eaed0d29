package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/contracts"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

// Suspend adds the suspended role and records one automatic_suspend note.
// The role add is idempotent; every call writes its own note.
func (s *Service) Suspend(ctx context.Context, userID int64, content string) error {
	return s.suspend(ctx, userID, domain.NoteReasonAutomaticSuspend, content)
}

func (s *Service) suspend(ctx context.Context, userID int64, reason domain.NoteReason, content string) error {
	now := s.nowFn()
	event, err := s.newOutboxEvent(domain.EventUserSuspended, "data.user_id", strconv.FormatInt(userID, 10), contracts.UserSuspendedPayload{
		UserID:      userID,
		Reason:      string(reason),
		SuspendedAt: now.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if _, err := s.moderation.SuspendUser(ctx, ports.SuspendUserParams{
		UserID:   userID,
		AuthorID: s.cfg.SystemAccountID,
		Reason:   reason,
		Content:  content,
		At:       now,
		Event:    &event,
	}); err != nil {
		return fmt.Errorf("suspend user %d: %w", userID, err)
	}
	slog.Default().InfoContext(ctx, "user suspended",
		"module", "application.escalation",
		"layer", "application",
		"operation", "suspend",
		"outcome", "success",
		"user_id", userID,
		"reason", string(reason),
	)
	return nil
}

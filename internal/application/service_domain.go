package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/contracts"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
)

const domainBlockGuardPrefix = "abuse:domain_block:"

// CheckAndBlockDomain flags an email domain whose registrants are all
// recent and already include several spam or suspended accounts. The block
// itself is deferred to the domain block job.
func (s *Service) CheckAndBlockDomain(ctx context.Context, user domain.User) (bool, error) {
	emailDomain := user.EmailDomain()
	if emailDomain == "" {
		return false, nil
	}
	if domain.IsPopularEmailDomain(emailDomain) {
		return false, nil
	}

	// The two queries split users at cutoff with < and >= so each user
	// lands in exactly one bucket.
	cutoff := s.nowFn().Add(-domainNewWindow)
	established, err := s.users.ExistsByEmailDomainRegisteredBefore(ctx, emailDomain, cutoff)
	if err != nil {
		return false, fmt.Errorf("check established domain: %w", err)
	}
	if established {
		return false, nil
	}
	flagged, err := s.users.CountByEmailDomainWithRolesRegisteredSince(ctx, emailDomain, []domain.Role{domain.RoleSpam, domain.RoleSuspended}, cutoff)
	if err != nil {
		return false, fmt.Errorf("count flagged domain users: %w", err)
	}
	if flagged < domainAbuseMinFlagged {
		return false, nil
	}

	slog.Default().InfoContext(ctx, "abusive email domain detected",
		"module", "application.domain",
		"layer", "application",
		"operation", "check_and_block_domain",
		"outcome", "flagged",
		"domain", emailDomain,
		"user_id", user.ID,
		"flagged_users", flagged,
	)
	if err := s.enqueueDomainBlock(ctx, emailDomain, user.ID); err != nil {
		return false, err
	}
	return true, nil
}

// enqueueDomainBlock dispatches at most one block request per domain per
// guard TTL. The guard is released when the enqueue fails so a retried
// registration event can dispatch again.
func (s *Service) enqueueDomainBlock(ctx context.Context, emailDomain string, triggerUserID int64) error {
	guardKey := domainBlockGuardPrefix + emailDomain
	guarded := false
	if s.cache != nil {
		fresh, err := s.cache.SetIfAbsent(ctx, guardKey, "1", s.cfg.DomainBlockGuardTTL)
		guarded = err == nil && fresh
		switch {
		case err != nil:
			slog.Default().WarnContext(ctx, "domain block guard unavailable",
				"module", "application.domain",
				"layer", "application",
				"operation", "enqueue_domain_block",
				"outcome", "degraded",
				"domain", emailDomain,
				"error", err,
			)
		case !fresh:
			return nil
		}
	}
	err := s.enqueueEvent(ctx, domain.EventDomainBlockRequested, "data.domain", emailDomain, contracts.DomainBlockRequestedPayload{
		Domain:        emailDomain,
		TriggerUserID: triggerUserID,
		DetectedAt:    s.nowFn().Format(time.RFC3339),
	})
	if err != nil && guarded {
		if delErr := s.cache.Delete(ctx, guardKey); delErr != nil {
			slog.Default().WarnContext(ctx, "failed to release domain block guard",
				"module", "application.domain",
				"layer", "application",
				"operation", "enqueue_domain_block",
				"outcome", "failure",
				"domain", emailDomain,
				"error", delErr,
			)
		}
	}
	if err != nil {
		return fmt.Errorf("enqueue domain block: %w", err)
	}
	return nil
}

// BlockAndSuspendDomain records the domain as blocked and suspends every
// user on it that is not suspended yet. It returns the number of users
// suspended by this call.
func (s *Service) BlockAndSuspendDomain(ctx context.Context, emailDomain string) (int, error) {
	if emailDomain == "" {
		return 0, fmt.Errorf("%w: domain is required", domain.ErrInvalidInput)
	}
	if domain.IsPopularEmailDomain(emailDomain) {
		return 0, fmt.Errorf("%w: refusing to block shared provider %s", domain.ErrInvalidInput, emailDomain)
	}
	if _, err := s.moderation.BlockEmailDomain(ctx, emailDomain, s.nowFn()); err != nil {
		return 0, fmt.Errorf("block email domain: %w", err)
	}
	users, err := s.users.ListByEmailDomain(ctx, emailDomain)
	if err != nil {
		return 0, fmt.Errorf("list domain users: %w", err)
	}
	suspended := 0
	for _, u := range users {
		if u.IsSuspended() {
			continue
		}
		content := fmt.Sprintf("Suspended because the email domain %s was blocked for abuse.", emailDomain)
		if err := s.suspend(ctx, u.ID, domain.NoteReasonDomainBlock, content); err != nil {
			return suspended, err
		}
		suspended++
	}
	slog.Default().InfoContext(ctx, "email domain blocked",
		"module", "application.domain",
		"layer", "application",
		"operation", "block_and_suspend_domain",
		"outcome", "success",
		"domain", emailDomain,
		"suspended_users", suspended,
	)
	return suspended, nil
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/contracts"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

// DetectRing looks for a group of accounts whose public article reactions
// concentrate on the same authors the user reacts to. When a ring is
// confirmed, every member and the user lose half their reputation modifier.
func (s *Service) DetectRing(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.IsAdmin() || user.IsSuperModerator() || user.IsTrusted() {
		return false, nil
	}

	since := s.nowFn().AddDate(0, -ringLookbackMonths, 0)
	categories := domain.PublicReactionCategories
	own, err := s.footprint(ctx, user.ID, categories, since)
	if err != nil {
		return false, err
	}
	if own.Total() < s.cfg.RingMinReactions {
		return false, nil
	}

	shared := own.DistinctAuthors(true)
	if len(shared) < ringMinSharedAuthors {
		return false, nil
	}
	candidateIDs, err := s.reactions.UsersReactingToAuthors(ctx, sortedIDs(shared), categories, since, user.ID, ringMinSharedAuthors)
	if err != nil {
		return false, fmt.Errorf("find ring candidates: %w", err)
	}
	if len(candidateIDs) == 0 {
		return false, nil
	}

	members, err := s.qualifyRingMembers(ctx, candidateIDs, shared, categories, since)
	if err != nil {
		return false, err
	}
	if len(members) < s.cfg.RingMinSize {
		return false, nil
	}

	legitimate, err := s.looksLikeCommunity(ctx, user.ID, members, shared)
	if err != nil {
		return false, err
	}
	if legitimate {
		slog.Default().InfoContext(ctx, "reaction ring dismissed as community",
			"module", "application.ring",
			"layer", "application",
			"operation", "detect_ring",
			"outcome", "dismissed",
			"user_id", user.ID,
			"ring_size", len(members),
		)
		return false, nil
	}

	if err := s.penalizeRing(ctx, user.ID, members); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) footprint(ctx context.Context, userID int64, categories []domain.ReactionCategory, since time.Time) (domain.ReactionFootprint, error) {
	footprints, err := s.reactions.ArticleReactionFootprints(ctx, []int64{userID}, categories, since)
	if err != nil {
		return domain.ReactionFootprint{}, fmt.Errorf("load reaction footprint: %w", err)
	}
	fp := footprints[userID]
	fp.UserID = userID
	return fp, nil
}

func (s *Service) qualifyRingMembers(ctx context.Context, candidateIDs []int64, shared map[int64]struct{}, categories []domain.ReactionCategory, since time.Time) ([]domain.ReactionFootprint, error) {
	candidates, err := s.users.ListByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("load ring candidates: %w", err)
	}
	footprints, err := s.reactions.ArticleReactionFootprints(ctx, candidateIDs, categories, since)
	if err != nil {
		return nil, fmt.Errorf("load candidate footprints: %w", err)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	members := make([]domain.ReactionFootprint, 0, len(candidates))
	for _, c := range candidates {
		if c.IsAdmin() || c.IsTrusted() {
			continue
		}
		fp := footprints[c.ID]
		fp.UserID = c.ID
		if fp.Total() < s.cfg.RingMinReactions {
			continue
		}
		if fp.Concentration(shared) < s.cfg.RingConcentration {
			continue
		}
		if fp.SelfReactionRatio() > s.cfg.RingSelfReactionCeiling {
			continue
		}
		members = append(members, fp)
	}
	return members, nil
}

// looksLikeCommunity reports whether the group is better explained by an
// organic community. Members that never leave the shared authors are
// suspicious on their own; otherwise at least half the members need a
// follow or organization tie to the user.
func (s *Service) looksLikeCommunity(ctx context.Context, userID int64, members []domain.ReactionFootprint, shared map[int64]struct{}) (bool, error) {
	diverse := false
	for _, m := range members {
		if m.OutsideAuthors(shared) > ringDiverseOutsideCount {
			diverse = true
			break
		}
	}
	if !diverse {
		return false, nil
	}

	connected := 0
	for _, m := range members {
		mutual, err := s.graph.MutuallyFollow(ctx, userID, m.UserID)
		if err != nil {
			return false, fmt.Errorf("check mutual follow: %w", err)
		}
		if mutual {
			connected++
			continue
		}
		sameOrg, err := s.graph.ShareOrganization(ctx, userID, m.UserID)
		if err != nil {
			return false, fmt.Errorf("check shared organization: %w", err)
		}
		if sameOrg {
			connected++
		}
	}
	return connected*2 >= len(members), nil
}

func (s *Service) penalizeRing(ctx context.Context, userID int64, members []domain.ReactionFootprint) error {
	ids := make([]int64, 0, len(members)+1)
	ids = append(ids, userID)
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	now := s.nowFn()
	event, err := s.newOutboxEvent(domain.EventReactionRingDetected, "data.trigger_user_id", strconv.FormatInt(userID, 10), contracts.ReactionRingDetectedPayload{
		TriggerUserID: userID,
		MemberIDs:     ids[1:],
		DetectedAt:    now.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	results, err := s.moderation.ApplyReputationPenalty(ctx, ports.ReputationPenaltyParams{
		UserIDs:  ids,
		AuthorID: s.cfg.SystemAccountID,
		Reason:   domain.NoteReasonReactionRingDetection,
		Adjust:   domain.HalveReputation,
		Content: func(updated float64) string {
			return fmt.Sprintf("Reaction ring detected. Reputation modifier reduced to %.2f.", updated)
		},
		At:    now,
		Event: &event,
	})
	if err != nil {
		return fmt.Errorf("apply ring penalty: %w", err)
	}
	slog.Default().InfoContext(ctx, "reaction ring detected",
		"module", "application.ring",
		"layer", "application",
		"operation", "detect_ring",
		"outcome", "penalized",
		"user_id", userID,
		"ring_size", len(members),
		"penalized_users", len(results),
	)
	return nil
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

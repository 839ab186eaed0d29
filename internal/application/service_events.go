package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/contracts"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
)

// HandleCanonicalEvent validates an inbound envelope, drops replays and
// routes the event to the matching detector.
func (s *Service) HandleCanonicalEvent(ctx context.Context, envelope contracts.EventEnvelope) error {
	if err := validateEnvelope(envelope); err != nil {
		return err
	}
	if !domain.IsInboundEvent(envelope.EventType) {
		return domain.ErrUnsupportedEventType
	}
	if err := validatePartitionKeyInvariant(envelope, domain.CanonicalPartitionKeyPath(envelope.EventType)); err != nil {
		return err
	}
	now := s.nowFn()
	if s.eventDedup != nil {
		dup, err := s.eventDedup.IsDuplicate(ctx, envelope.EventID, now)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
	}
	if err := s.applyInboundEvent(ctx, envelope); err != nil {
		return err
	}
	if s.eventDedup == nil {
		return nil
	}
	return s.eventDedup.MarkProcessed(ctx, envelope.EventID, envelope.EventType, now.Add(s.cfg.EventDedupTTL))
}

func (s *Service) applyInboundEvent(ctx context.Context, envelope contracts.EventEnvelope) error {
	switch envelope.EventType {
	case domain.EventArticlePublished, domain.EventArticleUpdated:
		var p contracts.ArticlePayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil || p.ArticleID <= 0 {
			return domain.ErrInvalidEnvelope
		}
		article, err := s.content.GetArticle(ctx, p.ArticleID)
		if err != nil {
			return err
		}
		_, err = s.HandleArticleSpam(ctx, article)
		return err
	case domain.EventCommentCreated, domain.EventCommentUpdated:
		var p contracts.CommentPayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil || p.CommentID <= 0 {
			return domain.ErrInvalidEnvelope
		}
		comment, err := s.content.GetComment(ctx, p.CommentID)
		if err != nil {
			return err
		}
		_, err = s.HandleCommentSpam(ctx, comment)
		return err
	case domain.EventUserRegistered:
		user, err := s.userFromPayload(ctx, envelope)
		if err != nil {
			return err
		}
		if _, err := s.CheckAndBlockDomain(ctx, user); err != nil {
			return err
		}
		_, err = s.HandleUserSpam(ctx, user, s.cfg.FeatureMoreRigorousUserProfileSpamChecking)
		return err
	case domain.EventUserProfileUpdated:
		user, err := s.userFromPayload(ctx, envelope)
		if err != nil {
			return err
		}
		_, err = s.HandleUserSpam(ctx, user, s.cfg.FeatureMoreRigorousUserProfileSpamChecking)
		return err
	case domain.EventRingAnalysisRequested:
		var p contracts.RingAnalysisRequestedPayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil || p.UserID <= 0 {
			return domain.ErrInvalidEnvelope
		}
		_, err := s.DetectRing(ctx, p.UserID)
		return err
	case domain.EventDomainBlockRequested:
		var p contracts.DomainBlockRequestedPayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil || strings.TrimSpace(p.Domain) == "" {
			return domain.ErrInvalidEnvelope
		}
		_, err := s.BlockAndSuspendDomain(ctx, strings.ToLower(strings.TrimSpace(p.Domain)))
		return err
	default:
		return domain.ErrUnsupportedEventType
	}
}

func (s *Service) userFromPayload(ctx context.Context, envelope contracts.EventEnvelope) (domain.User, error) {
	var p contracts.UserPayload
	if err := json.Unmarshal(envelope.Data, &p); err != nil || p.UserID <= 0 {
		return domain.User{}, domain.ErrInvalidEnvelope
	}
	return s.users.GetByID(ctx, p.UserID)
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" || event.OccurredAt.IsZero() {
		return domain.ErrInvalidEnvelope
	}
	if strings.TrimSpace(event.SourceService) == "" || strings.TrimSpace(event.SchemaVersion) == "" {
		return domain.ErrInvalidEnvelope
	}
	if len(event.Data) == 0 {
		return domain.ErrInvalidEnvelope
	}
	return nil
}

func validatePartitionKeyInvariant(event contracts.EventEnvelope, expectedPath string) error {
	if expectedPath == "" || event.PartitionKeyPath != expectedPath {
		return domain.ErrInvalidEnvelope
	}
	field := strings.TrimPrefix(expectedPath, "data.")
	dec := json.NewDecoder(bytes.NewReader(event.Data))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return domain.ErrInvalidEnvelope
	}
	v, ok := payload[field]
	if !ok || fmt.Sprint(v) != event.PartitionKey {
		return domain.ErrInvalidEnvelope
	}
	return nil
}

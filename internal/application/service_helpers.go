package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKeyPath, partitionKey string, data any) error {
	if s.outbox == nil {
		return fmt.Errorf("%w: no outbox for %s", domain.ErrDependencyUnavailable, eventType)
	}
	event, err := s.newOutboxEvent(eventType, partitionKeyPath, partitionKey, data)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, event)
}

func (s *Service) newOutboxEvent(eventType, partitionKeyPath, partitionKey string, data any) (ports.OutboxEvent, error) {
	occurredAt := s.nowFn()
	eventID := uuid.New()
	payloadEnvelope := map[string]any{
		"event_id":           eventID.String(),
		"event_type":         eventType,
		"occurred_at":        occurredAt.Format(time.RFC3339),
		"source_service":     s.cfg.ServiceName,
		"trace_id":           eventID.String(),
		"schema_version":     "1.0",
		"partition_key_path": partitionKeyPath,
		"partition_key":      partitionKey,
		"data":               data,
	}
	payload, err := json.Marshal(payloadEnvelope)
	if err != nil {
		return ports.OutboxEvent{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return ports.OutboxEvent{
		EventID:          eventID,
		EventType:        eventType,
		PartitionKey:     partitionKey,
		PartitionKeyPath: partitionKeyPath,
		Payload:          payload,
		OccurredAt:       occurredAt,
		SchemaVersion:    "1.0",
		TraceID:          eventID.String(),
	}, nil
}

func (s *Service) ValidateToken(_ context.Context, token string) (ports.AuthClaims, error) {
	if s.tokens == nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	claims, err := s.tokens.ParseAndValidate(token)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return claims, nil
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/contracts"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
)

type Message struct {
	Topic   string
	Key     []byte
	Payload []byte

	raw kafka.Message
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs ...Message) error
}

// EventHandler is implemented by application.Service.
type EventHandler interface {
	HandleCanonicalEvent(ctx context.Context, envelope contracts.EventEnvelope) error
}

// ConsumerWorker commits each message only once it is settled: handled, or
// rejected for good. A transient failure stops the batch and the unsettled
// tail is retried on the next iteration before anything new is polled.
type ConsumerWorker struct {
	logger    *slog.Logger
	consumer  Consumer
	handler   EventHandler
	interval  time.Duration
	batchSize int

	pending []Message
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler EventHandler, interval time.Duration, batchSize int) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, handler: handler, interval: interval, batchSize: batchSize,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"pending", len(w.pending),
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce settles one batch and returns how many messages the handler
// accepted. It is not safe for concurrent use.
func (w *ConsumerWorker) ProcessOnce(ctx context.Context) (int, error) {
	msgs := w.pending
	w.pending = nil
	if len(msgs) == 0 {
		polled, err := w.consumer.Poll(ctx, w.batchSize)
		if err != nil {
			return 0, err
		}
		msgs = polled
	}

	handled := 0
	for i, msg := range msgs {
		ok, err := w.handle(ctx, msg)
		if err != nil {
			w.pending = msgs[i:]
			return handled, fmt.Errorf("handle %s: %w", msg.Topic, err)
		}
		if err := w.consumer.Commit(ctx, msg); err != nil {
			w.pending = msgs[i:]
			return handled, err
		}
		if ok {
			handled++
		}
	}
	return handled, nil
}

// handle reports whether the handler accepted the message. A nil error with
// false means the message was dropped as unprocessable and can be committed.
func (w *ConsumerWorker) handle(ctx context.Context, msg Message) (bool, error) {
	if !domain.IsInboundEvent(msg.Topic) {
		return false, nil
	}
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		w.logger.WarnContext(ctx, "dropping undecodable event",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "decode",
			"outcome", "dropped",
			"topic", msg.Topic,
			"error", err,
		)
		return false, nil
	}
	err := w.handler.HandleCanonicalEvent(ctx, envelope)
	switch {
	case err == nil:
		return true, nil
	case isPermanentRejection(err):
		w.logger.WarnContext(ctx, "dropping rejected "+msg.Topic,
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "handle_event",
			"outcome", "dropped",
			"event_id", envelope.EventID,
			"error", err,
		)
		return false, nil
	default:
		w.logger.WarnContext(ctx, "failed to handle "+msg.Topic+", will retry",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "handle_event",
			"outcome", "retry",
			"event_id", envelope.EventID,
			"error", err,
		)
		return false, err
	}
}

// isPermanentRejection reports errors that redelivery cannot fix. Retrying
// them would stall the partition behind a poison message.
func isPermanentRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidEnvelope) ||
		errors.Is(err, domain.ErrUnsupportedEventType) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound)
}

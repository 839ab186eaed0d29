package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/contracts"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

type stubConsumer struct {
	msgs      []Message
	polls     int
	committed []string
	commitErr error
}

func (s *stubConsumer) Poll(_ context.Context, max int) ([]Message, error) {
	s.polls++
	if len(s.msgs) < max {
		max = len(s.msgs)
	}
	out := s.msgs[:max]
	s.msgs = s.msgs[max:]
	return out, nil
}

func (s *stubConsumer) Commit(_ context.Context, msgs ...Message) error {
	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return err
	}
	for _, m := range msgs {
		s.committed = append(s.committed, string(m.Key))
	}
	return nil
}

// recordingHandler fails an event once for every error queued under its id.
type recordingHandler struct {
	seen  []contracts.EventEnvelope
	fails map[string][]error
}

func (h *recordingHandler) HandleCanonicalEvent(_ context.Context, envelope contracts.EventEnvelope) error {
	if queued := h.fails[envelope.EventID]; len(queued) > 0 {
		h.fails[envelope.EventID] = queued[1:]
		return queued[0]
	}
	h.seen = append(h.seen, envelope)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventMessage(topic, eventID string) Message {
	return Message{
		Topic:   topic,
		Key:     []byte(eventID),
		Payload: []byte(`{"event_id":"` + eventID + `","event_type":"` + topic + `"}`),
	}
}

func TestConsumerWorkerDispatchesInboundTopics(t *testing.T) {
	t.Parallel()

	consumer := &stubConsumer{msgs: []Message{
		eventMessage("article.published", "e1"),
		{Topic: "billing.invoice_paid", Key: []byte("e2"), Payload: []byte(`{"event_id":"e2"}`)},
		{Topic: "comment.created", Key: []byte("bad"), Payload: []byte(`not json`)},
		eventMessage("user.registered", "e3"),
		eventMessage("user.profile_updated", "e4"),
	}}
	handler := &recordingHandler{fails: map[string][]error{"e4": {domain.ErrInvalidEnvelope}}}
	w := NewConsumerWorker(quietLogger(), consumer, handler, time.Second, 10)

	handled, err := w.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("process once: %v", err)
	}
	if handled != 2 {
		t.Fatalf("expected 2 handled events, got %d", handled)
	}
	if len(handler.seen) != 2 || handler.seen[0].EventID != "e1" || handler.seen[1].EventID != "e3" {
		t.Fatalf("unexpected dispatch order: %+v", handler.seen)
	}
	want := []string{"e1", "e2", "bad", "e3", "e4"}
	if !slices.Equal(consumer.committed, want) {
		t.Fatalf("settled messages must all be committed, got %v", consumer.committed)
	}
}

func TestConsumerWorkerRedeliversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	consumer := &stubConsumer{msgs: []Message{
		eventMessage("article.published", "e1"),
		eventMessage("comment.created", "e2"),
		eventMessage("user.registered", "e3"),
	}}
	handler := &recordingHandler{fails: map[string][]error{"e2": {domain.ErrDependencyUnavailable}}}
	w := NewConsumerWorker(quietLogger(), consumer, handler, time.Second, 10)
	ctx := context.Background()

	handled, err := w.ProcessOnce(ctx)
	if !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("expected transient failure to surface, got %v", err)
	}
	if handled != 1 || !slices.Equal(consumer.committed, []string{"e1"}) {
		t.Fatalf("offset must stop before the failed event: handled=%d committed=%v", handled, consumer.committed)
	}

	handled, err = w.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if handled != 2 || consumer.polls != 1 {
		t.Fatalf("retry must replay the pending tail without polling: handled=%d polls=%d", handled, consumer.polls)
	}
	if !slices.Equal(consumer.committed, []string{"e1", "e2", "e3"}) {
		t.Fatalf("unexpected commits: %v", consumer.committed)
	}
	if len(handler.seen) != 3 || handler.seen[1].EventID != "e2" {
		t.Fatalf("failed event was not redelivered: %+v", handler.seen)
	}
}

func TestConsumerWorkerRetriesWhenCommitFails(t *testing.T) {
	t.Parallel()

	consumer := &stubConsumer{
		msgs:      []Message{eventMessage("article.published", "e1")},
		commitErr: errors.New("coordinator not available"),
	}
	handler := &recordingHandler{fails: map[string][]error{}}
	w := NewConsumerWorker(quietLogger(), consumer, handler, time.Second, 10)
	ctx := context.Background()

	if _, err := w.ProcessOnce(ctx); err == nil {
		t.Fatal("expected commit failure")
	}
	if _, err := w.ProcessOnce(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !slices.Equal(consumer.committed, []string{"e1"}) {
		t.Fatalf("expected e1 committed on retry, got %v", consumer.committed)
	}
}

func TestNoopConsumerIsEmpty(t *testing.T) {
	t.Parallel()

	c := NewNoopConsumer()
	msgs, err := c.Poll(context.Background(), 10)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("noop poll: msgs=%v err=%v", msgs, err)
	}
	if err := c.Commit(context.Background(), eventMessage("article.published", "e1")); err != nil {
		t.Fatalf("noop commit: %v", err)
	}
}

type memoryOutbox struct {
	records   []ports.OutboxRecord
	published map[uuid.UUID]bool
	failed    map[uuid.UUID]string
}

func (m *memoryOutbox) Enqueue(context.Context, ports.OutboxEvent) error { return nil }

func (m *memoryOutbox) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	out := make([]ports.OutboxRecord, 0, limit)
	for _, r := range m.records {
		if m.published[r.OutboxID] {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryOutbox) MarkPublished(_ context.Context, id uuid.UUID, _ time.Time) error {
	m.published[id] = true
	return nil
}

func (m *memoryOutbox) MarkFailed(_ context.Context, id uuid.UUID, msg string, _ time.Time) error {
	m.failed[id] = msg
	return nil
}

type flakyPublisher struct {
	failType string
	sent     []string
}

func (p *flakyPublisher) Publish(_ context.Context, eventType string, _ []byte, partitionKey string) error {
	if eventType == p.failType {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, eventType+"/"+partitionKey)
	return nil
}

func TestOutboxWorkerMarksPublishedAndFailed(t *testing.T) {
	t.Parallel()

	ok := uuid.New()
	bad := uuid.New()
	outbox := &memoryOutbox{
		records: []ports.OutboxRecord{
			{OutboxID: ok, EventType: "moderation.user_suspended", PartitionKey: "42", Payload: []byte("{}")},
			{OutboxID: bad, EventType: "moderation.reaction_ring_detected", PartitionKey: "7", Payload: []byte("{}")},
		},
		published: map[uuid.UUID]bool{},
		failed:    map[uuid.UUID]string{},
	}
	pub := &flakyPublisher{failType: "moderation.reaction_ring_detected"}
	w := NewOutboxWorker(quietLogger(), outbox, pub, time.Second, 10)

	n, err := w.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("process once: %v", err)
	}
	if n != 1 || !outbox.published[ok] {
		t.Fatalf("expected one published record, got n=%d published=%v", n, outbox.published)
	}
	if outbox.failed[bad] != "broker unavailable" {
		t.Fatalf("expected failure recorded for ring event, got %q", outbox.failed[bad])
	}
	if len(pub.sent) != 1 || pub.sent[0] != "moderation.user_suspended/42" {
		t.Fatalf("unexpected sends: %v", pub.sent)
	}
}

package ports

import "context"

// EventPublisher delivers an outbox payload to the broker. partitionKey
// keeps events about one user or domain ordered.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

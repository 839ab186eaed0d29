package events

import "context"

// NoopConsumer stands in for Kafka when no brokers are configured. Event
// intake is then limited to the admin HTTP routes.
type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (NoopConsumer) Poll(context.Context, int) ([]Message, error) { return nil, nil }

func (NoopConsumer) Commit(context.Context, ...Message) error { return nil }

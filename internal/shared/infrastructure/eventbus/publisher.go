// Package eventbus publishes task lifecycle events. With RabbitMQ configured
// events go to a topic exchange; otherwise an in-process bus dispatches them
// synchronously to local subscribers.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher defines the interface for publishing events.
type Publisher interface {
	// Publish sends a message to the event bus.
	Publish(ctx context.Context, routingKey string, payload []byte) error

	// Close closes the publisher connection.
	Close() error
}

// PublishJSON marshals the event and publishes it under the routing key.
func PublishJSON(ctx context.Context, p Publisher, routingKey string, event any) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", routingKey, err)
	}
	return p.Publish(ctx, routingKey, payload)
}

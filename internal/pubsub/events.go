// Package pubsub provides a generic publish/subscribe event broker used to
// fan domain events out to the UI and other interested subscribers.
package pubsub

import (
	"context"
	"time"
)

// Event wraps a published payload with the time it was published.
// The payload type carries its own meaning; the broker does not classify
// events beyond stamping them.
type Event[T any] struct {
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher publishes typed payloads to subscribers.
type Publisher[T any] interface {
	Publish(payload T)
}

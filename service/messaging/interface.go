package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned by Publish after the queue was closed, and by
// Consume once a closed queue has been drained.
var ErrClosed = errors.New("queue closed")

// Queue represents an abstract ordered queue for any payload type. It is
// multi-producer, single-consumer: messages published by one producer are
// delivered in publish order; no ordering is defined across producers
// beyond arrival at the queue.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue. It never
	// blocks on queue capacity and fails only with ErrClosed (or a done
	// context).
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message, blocking until one is
	// available, ctx is done, or the queue is closed and drained.
	Consume(ctx context.Context) (Message[T], error)

	// Close stops admission. Already published messages remain
	// consumable; once drained, Consume returns ErrClosed.
	Close() error
}

// Message represents a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges successful processing of this message.
	Ack() error

	// Nack indicates failure in processing this message.
	Nack(err error) error
}

// QueueConfig defines standard configuration options for queue
// implementations.
type QueueConfig struct {
	// MaxRetries specifies how many times a message can be retried.
	MaxRetries int

	// RetryDelay specifies the time to wait before retrying a failed
	// message, in milliseconds.
	RetryDelay int

	// AdditionalConfig allows implementation-specific configurations.
	AdditionalConfig map[string]interface{}
}

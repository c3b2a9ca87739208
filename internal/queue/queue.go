// Package queue publishes monitor output (alerts) to the configured broker.
package queue

import "context"

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes multiple messages and waits for all to complete.
	// Returns the number of successfully published messages.
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	// Close closes the connection
	Close() error
}

// BatchMessage represents a message for batch publishing
type BatchMessage struct {
	Subject string
	Data    []byte
}

// StreamProvisioner is implemented by publishers whose broker only retains
// messages on subjects bound to a stream (NATS JetStream).
type StreamProvisioner interface {
	EnsureStream(name string, subjects ...string) error
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes through NATS JetStream
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	ownsNC bool
}

// NewNATSPublisher connects to url and creates a JetStream context
func NewNATSPublisher(url, username, password string) (*NATSPublisher, error) {
	opts := []nats.Option{nats.Name("tsinsight-publisher")}
	if username != "" {
		opts = append(opts, nats.UserInfo(username, password))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p, err := NewNATSPublisherWithConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.ownsNC = true
	return p, nil
}

// NewNATSPublisherWithConn wraps an existing connection. Close leaves the
// connection open.
func NewNATSPublisherWithConn(conn *nats.Conn) (*NATSPublisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSPublisher{conn: conn, js: js}, nil
}

// EnsureStream creates a file-backed stream for subjects unless one exists
func (p *NATSPublisher) EnsureStream(name string, subjects ...string) error {
	name = sanitizeName(name)
	if _, err := p.js.StreamInfo(name); err == nil {
		return nil
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	return nil
}

// Publish publishes a message and waits for the JetStream ack
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch queues all messages asynchronously, then waits for the acks
func (p *NATSPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		future, err := p.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-p.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case <-future.Err():
		}
	}

	return successCount, nil
}

// Close drains nothing; it only closes a connection this publisher opened
func (p *NATSPublisher) Close() error {
	if p.ownsNC {
		p.conn.Close()
	}
	return nil
}

// sanitizeName replaces characters NATS rejects in stream and consumer names.
// Only A-Z, a-z, 0-9, dash and underscore are kept.
func sanitizeName(s string) string {
	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}

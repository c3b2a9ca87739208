package subscriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/soltixdb/tsinsight/internal/logging"
)

var natsLog = logging.Global().With("component", "subscriber.nats")

// NATSSubscriber implements Subscriber for NATS JetStream
type NATSSubscriber struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	nodeID        string
	consumerGroup string
	ownsConn      bool
	subscriptions map[string]*nats.Subscription
	mu            sync.RWMutex
}

// NewNATSSubscriber creates a new NATS subscriber
func NewNATSSubscriber(url, nodeID, consumerGroup string) (*NATSSubscriber, error) {
	opts := []nats.Option{
		nats.Name(fmt.Sprintf("tsinsight-subscriber-%s", nodeID)),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				natsLog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			natsLog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	s, err := NewNATSSubscriberWithConn(conn, nodeID, consumerGroup)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.ownsConn = true
	return s, nil
}

// NewNATSSubscriberWithConn wraps an existing connection. Close leaves the
// connection open.
func NewNATSSubscriberWithConn(conn *nats.Conn, nodeID, consumerGroup string) (*NATSSubscriber, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if consumerGroup == "" {
		consumerGroup = DefaultConfig().ConsumerGroup
	}

	return &NATSSubscriber{
		conn:          conn,
		js:            js,
		nodeID:        nodeID,
		consumerGroup: consumerGroup,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// Subscribe creates a durable JetStream consumer on subject. Messages are
// acked when the handler succeeds and nak'ed for redelivery otherwise.
func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	if err := s.ensureStream(subject); err != nil {
		return err
	}

	durableName := s.durableName(subject)

	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			_ = msg.Nak()
			return
		}

		if err := handler(ctx, msg.Subject, msg.Data); err != nil {
			natsLog.Error("Failed to handle message",
				"subject", msg.Subject,
				"error", err,
				"bytes", len(msg.Data))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.MaxAckPending(100),      // Flow control - max pending messages
		nats.AckWait(30*time.Second), // Timeout before redeliver
		nats.MaxDeliver(3),           // Max redelivery attempts
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.subscriptions[subject] = sub
	natsLog.Info("Subscribed to subject", "subject", subject, "durable", durableName)
	return nil
}

// ensureStream ensures a stream captures the subject
func (s *NATSSubscriber) ensureStream(subject string) error {
	if name, err := s.js.StreamNameBySubject(subject); err == nil && name != "" {
		return nil
	}

	streamName := s.getStreamName(subject)
	if _, err := s.js.StreamInfo(streamName); err == nil {
		return nil
	}

	_, err := s.js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
		Replicas:  1,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		natsLog.Error("Failed to create stream", "stream", streamName, "error", err)
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	return nil
}

// getStreamName returns the stream name for a subject
func (s *NATSSubscriber) getStreamName(subject string) string {
	return "STREAM_" + sanitizeName(subject)
}

func (s *NATSSubscriber) durableName(subject string) string {
	return sanitizeName(fmt.Sprintf("%s-%s-%s", s.consumerGroup, s.nodeID, subject))
}

// Unsubscribe unsubscribes from a subject
func (s *NATSSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", subject, err)
	}

	delete(s.subscriptions, subject)
	natsLog.Info("Unsubscribed from subject", "subject", subject)
	return nil
}

// Close closes all subscriptions and, if owned, the connection
func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, sub := range s.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			natsLog.Warn("Failed to unsubscribe", "subject", subject, "error", err)
		}
	}
	s.subscriptions = make(map[string]*nats.Subscription)

	if s.ownsConn {
		s.conn.Close()
	}
	return nil
}

// sanitizeName maps wildcards to readable tokens and replaces every other
// character NATS rejects in stream and consumer names with an underscore.
func sanitizeName(s string) string {
	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			result = append(result, c)
		case c == '*':
			result = append(result, "any"...)
		case c == '>':
			result = append(result, "all"...)
		default:
			result = append(result, '_')
		}
	}
	return string(result)
}

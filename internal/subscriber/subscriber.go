// Package subscriber consumes observation messages from the configured broker.
package subscriber

import (
	"context"
	"strings"

	"github.com/soltixdb/tsinsight/internal/utils"
)

// MessageHandler is a function that processes incoming messages.
// subject is the concrete subject the message arrived on.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber defines the interface for message subscription
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with the given handler
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the subscriber and releases resources
	Close() error
}

// Config holds common subscriber configuration
type Config struct {
	// NodeID is the unique identifier for this subscriber node
	NodeID string

	// ConsumerGroup is the consumer group name for group-based consumption
	ConsumerGroup string

	// BatchSize is the number of messages to fetch in a batch (where applicable)
	BatchSize int
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		ConsumerGroup: "tsinsight-monitor",
		BatchSize:     100,
	}
}

// SupportsWildcards reports whether the queue type routes NATS-style
// wildcard subjects. Redis streams and Kafka topics are matched literally.
func SupportsWildcards(queueType utils.QueueType) bool {
	switch queueType {
	case utils.QueueTypeNATS, utils.QueueTypeMemory, "":
		return true
	default:
		return false
	}
}

// MatchSubject matches a subject against a NATS-style pattern where "*"
// matches one token and a trailing ">" matches one or more tokens.
func MatchSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}

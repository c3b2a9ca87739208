package utils

import (
	"strings"
	"time"
)

// Request timeouts
const (
	// ProfileStoreTimeout bounds a profile store round trip
	ProfileStoreTimeout = 5 * time.Second

	// PublishTimeout bounds publishing one batch of alerts
	PublishTimeout = 5 * time.Second
)

// gRPC limits
const (
	// GRPCMaxMessageSize is the largest request or response accepted
	GRPCMaxMessageSize = 16 * 1024 * 1024
)

// History query limits
const (
	// DefaultHistoryLimit is used when a history request sets no limit
	DefaultHistoryLimit = 100

	// MaxHistoryLimit caps the records returned by one history request
	MaxHistoryLimit = 10000
)

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// Redis stream entry fields written by the publisher and read by the subscriber
const (
	RedisFieldData    = "data"
	RedisFieldSubject = "subject"
)

var kafkaTopicReplacer = strings.NewReplacer("*", "_", ">", "_")

// KafkaTopic maps a subject to a Kafka topic name.
// Wildcard characters are not valid in topic names and are replaced.
func KafkaTopic(subject string) string {
	return kafkaTopicReplacer.Replace(subject)
}

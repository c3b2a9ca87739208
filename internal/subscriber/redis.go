package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/utils"
)

var redisLog = logging.Global().With("component", "subscriber.redis")

// Stream read positions: ">" asks for entries never delivered to the group,
// "0" for entries delivered to this consumer but not yet acknowledged.
const (
	redisNewEntries     = ">"
	redisPendingEntries = "0"
)

// redisRetryDelay spaces out re-reads of entries whose handler failed
var redisRetryDelay = time.Second

// RedisSubscriber reads observation streams through a consumer group.
// Entries whose handler fails stay pending and are delivered again.
type RedisSubscriber struct {
	client        *redis.Client
	streamPrefix  string // Stream prefix shared with the publisher
	consumerGroup string
	consumerID    string
	subscriptions map[string]context.CancelFunc
	mu            sync.RWMutex
}

// NewRedisSubscriber connects to Redis and verifies the connection
func NewRedisSubscriber(addr, password string, db int, streamPrefix, consumerGroup, consumerID string) (*RedisSubscriber, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if streamPrefix == "" {
		streamPrefix = "tsinsight"
	}
	if consumerGroup == "" {
		consumerGroup = DefaultConfig().ConsumerGroup
	}
	if consumerID == "" {
		consumerID = "consumer-1"
	}

	return &RedisSubscriber{
		client:        client,
		streamPrefix:  streamPrefix,
		consumerGroup: consumerGroup,
		consumerID:    consumerID,
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe creates the consumer group if needed and starts reading the
// stream for subject. Entries left pending by an earlier run are handled first.
func (s *RedisSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streamName(subject)
	if _, exists := s.subscriptions[stream]; exists {
		return fmt.Errorf("already subscribed to stream: %s", stream)
	}

	err := s.client.XGroupCreateMkStream(ctx, stream, s.consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.subscriptions[stream] = cancel

	go s.consume(subCtx, stream, subject, handler)

	redisLog.Info("Subscribed to Redis stream", "stream", stream, "group", s.consumerGroup, "consumer", s.consumerID)
	return nil
}

func (s *RedisSubscriber) consume(ctx context.Context, stream, subject string, handler MessageHandler) {
	log := redisLog.With("stream", stream)
	position := redisPendingEntries

	for ctx.Err() == nil {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.consumerGroup,
			Consumer: s.consumerID,
			Streams:  []string{stream, position},
			Count:    int64(DefaultConfig().BatchSize),
			Block:    time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			log.Error("Failed to read from stream", "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		var entries []redis.XMessage
		for _, st := range streams {
			entries = append(entries, st.Messages...)
		}

		// The pending backlog is drained once it reads empty
		if position == redisPendingEntries && len(entries) == 0 {
			position = redisNewEntries
			continue
		}

		if failed := s.handleEntries(ctx, stream, subject, entries, handler); failed > 0 {
			log.Warn("Entries left pending for redelivery", "failed", failed)
			position = redisPendingEntries
			sleepCtx(ctx, redisRetryDelay)
		}
	}
}

// handleEntries runs handler on each entry and acknowledges the ones it
// accepted. It returns the number of entries left pending.
func (s *RedisSubscriber) handleEntries(ctx context.Context, stream, subject string, entries []redis.XMessage, handler MessageHandler) int {
	failed := 0
	for _, entry := range entries {
		msgSubject, data, ok := decodeStreamEntry(entry.Values, subject)
		if !ok {
			redisLog.Warn("Acknowledging malformed entry", "stream", stream, "id", entry.ID)
			s.ack(ctx, stream, entry.ID)
			continue
		}

		if err := handler(ctx, msgSubject, data); err != nil {
			redisLog.Error("Failed to handle entry", "stream", stream, "id", entry.ID, "error", err)
			failed++
			continue
		}
		s.ack(ctx, stream, entry.ID)
	}
	return failed
}

func (s *RedisSubscriber) ack(ctx context.Context, stream, id string) {
	if err := s.client.XAck(ctx, stream, s.consumerGroup, id).Err(); err != nil {
		redisLog.Error("Failed to ACK entry", "stream", stream, "id", id, "error", err)
	}
}

// decodeStreamEntry extracts the payload and the subject it was published on.
// Entries without a subject field fall back to the subscribed subject.
func decodeStreamEntry(values map[string]interface{}, subject string) (string, []byte, bool) {
	var data []byte
	switch v := values[utils.RedisFieldData].(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return "", nil, false
	}

	if s, ok := values[utils.RedisFieldSubject].(string); ok && s != "" {
		subject = s
	}
	return subject, data, true
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// streamName converts a subject to a Redis stream name: {prefix}:{subject}
func (s *RedisSubscriber) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", s.streamPrefix, subject)
}

// Unsubscribe stops reading the stream for subject
func (s *RedisSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streamName(subject)
	cancel, exists := s.subscriptions[stream]
	if !exists {
		return fmt.Errorf("not subscribed to stream: %s", stream)
	}

	cancel()
	delete(s.subscriptions, stream)
	return nil
}

// Close stops all subscriptions and closes the connection
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range s.subscriptions {
		cancel()
	}
	s.subscriptions = make(map[string]context.CancelFunc)

	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	return nil
}

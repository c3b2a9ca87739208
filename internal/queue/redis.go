package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/tsinsight/internal/utils"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379) or host:port
	Password string // Optional password
	DB       int    // Database number (default: 0)
	Stream   string // Stream prefix (default: "tsinsight")
	MaxLen   int64  // Approximate stream cap (default: 100000)
}

// RedisPublisher appends messages to Redis Streams named <prefix>:<subject>
type RedisPublisher struct {
	client *redis.Client
	config RedisConfig
}

// NewRedisPublisher connects to Redis and verifies the connection
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "tsinsight"
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = 100000
	}

	return &RedisPublisher{client: client, config: cfg}, nil
}

// StreamName converts a subject to a Redis stream name
func (p *RedisPublisher) StreamName(subject string) string {
	return fmt.Sprintf("%s:%s", p.config.Stream, subject)
}

func (p *RedisPublisher) addArgs(subject string, data []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: p.StreamName(subject),
		MaxLen: p.config.MaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			utils.RedisFieldData:    data,
			utils.RedisFieldSubject: subject,
		},
	}
}

// Publish publishes a message to a Redis stream
func (p *RedisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.client.XAdd(ctx, p.addArgs(subject, data)).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", p.StreamName(subject), err)
	}
	return nil
}

// PublishBatch publishes multiple messages in one pipeline
func (p *RedisPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	pipe := p.client.Pipeline()
	for _, msg := range messages {
		pipe.XAdd(ctx, p.addArgs(msg.Subject, msg.Data))
	}

	cmds, err := pipe.Exec(ctx)
	successCount := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			successCount++
		}
	}
	if err != nil && successCount == 0 {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}

	return successCount, nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/utils"
)

var kafkaLog = logging.Global().With("component", "subscriber.kafka")

// KafkaSubscriber reads one topic per subscribed subject through a consumer group
type KafkaSubscriber struct {
	brokers       []string
	consumerGroup string
	readers       map[string]*kafka.Reader
	cancels       map[string]context.CancelFunc
	mu            sync.RWMutex
}

// NewKafkaSubscriber creates a new Kafka subscriber
func NewKafkaSubscriber(brokers []string, consumerGroup string) (*KafkaSubscriber, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if consumerGroup == "" {
		consumerGroup = DefaultConfig().ConsumerGroup
	}

	return &KafkaSubscriber{
		brokers:       brokers,
		consumerGroup: consumerGroup,
		readers:       make(map[string]*kafka.Reader),
		cancels:       make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe subscribes to the topic for subject with the given handler
func (s *KafkaSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic := utils.KafkaTopic(subject)

	if _, exists := s.readers[topic]; exists {
		return fmt.Errorf("already subscribed to topic: %s", topic)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               s.brokers,
		GroupID:               s.consumerGroup,
		Topic:                 topic,
		MinBytes:              1,
		MaxBytes:              10e6, // 10MB
		MaxWait:               time.Second,
		CommitInterval:        time.Second,
		StartOffset:           kafka.LastOffset,
		HeartbeatInterval:     3 * time.Second,
		SessionTimeout:        30 * time.Second,
		RebalanceTimeout:      60 * time.Second,
		WatchPartitionChanges: true,
		ErrorLogger:           kafka.LoggerFunc(func(msg string, args ...interface{}) { kafkaLog.Debug(fmt.Sprintf(msg, args...)) }),
	})

	s.readers[topic] = reader

	subCtx, cancel := context.WithCancel(ctx)
	s.cancels[topic] = cancel

	go s.consume(subCtx, reader, subject, handler)

	kafkaLog.Info("Subscribed to Kafka topic", "topic", topic, "group", s.consumerGroup)
	return nil
}

// A failed handler is retried in place before the message is skipped
var (
	kafkaHandlerAttempts = 3
	kafkaRetryDelay      = 500 * time.Millisecond
)

// consume fetches, handles and commits messages until ctx is done
func (s *KafkaSubscriber) consume(ctx context.Context, reader *kafka.Reader, subject string, handler MessageHandler) {
	log := kafkaLog.With("topic", reader.Config().Topic)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to fetch message", "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		if err := handleWithRetry(ctx, messageSubject(msg, subject), msg.Value, handler); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Skipping message after failed attempts",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"attempts", kafkaHandlerAttempts,
				"error", err)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("Failed to commit message", "offset", msg.Offset, "error", err)
		}
	}
}

// handleWithRetry calls handler up to kafkaHandlerAttempts times
func handleWithRetry(ctx context.Context, subject string, data []byte, handler MessageHandler) error {
	var err error
	for attempt := 1; attempt <= kafkaHandlerAttempts; attempt++ {
		if err = handler(ctx, subject, data); err == nil {
			return nil
		}
		if attempt < kafkaHandlerAttempts {
			sleepCtx(ctx, kafkaRetryDelay)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	return err
}

// messageSubject returns the subject a message was published on. The
// publisher keys every message by its subject; unkeyed messages get the
// subscribed one.
func messageSubject(msg kafka.Message, subject string) string {
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	return subject
}

// Unsubscribe unsubscribes from a topic
func (s *KafkaSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic := utils.KafkaTopic(subject)

	cancel, exists := s.cancels[topic]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", topic)
	}

	cancel()
	delete(s.cancels, topic)

	if reader, ok := s.readers[topic]; ok {
		if err := reader.Close(); err != nil {
			kafkaLog.Warn("Failed to close reader", "topic", topic, "error", err)
		}
		delete(s.readers, topic)
	}

	return nil
}

// Close closes all readers and subscriptions
func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = make(map[string]context.CancelFunc)

	var lastErr error
	for topic, reader := range s.readers {
		if err := reader.Close(); err != nil {
			kafkaLog.Warn("Failed to close reader", "topic", topic, "error", err)
			lastErr = err
		}
	}
	s.readers = make(map[string]*kafka.Reader)

	return lastErr
}

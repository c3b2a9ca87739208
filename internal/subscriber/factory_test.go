package subscriber

import (
	"testing"

	"github.com/soltixdb/tsinsight/internal/config"
)

func TestNewSubscriber_Memory(t *testing.T) {
	sub, err := NewSubscriber(config.QueueConfig{Type: "memory"}, DefaultConfig())
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	defer func() { _ = sub.Close() }()

	if _, ok := sub.(*MemorySubscriber); !ok {
		t.Errorf("expected *MemorySubscriber, got %T", sub)
	}
}

func TestNewSubscriber_KafkaGroupFallback(t *testing.T) {
	sub, err := NewSubscriber(config.QueueConfig{Type: "Kafka", KafkaBrokers: []string{"localhost:9092"}}, Config{ConsumerGroup: "fallback"})
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	defer func() { _ = sub.Close() }()

	ks, ok := sub.(*KafkaSubscriber)
	if !ok {
		t.Fatalf("expected *KafkaSubscriber, got %T", sub)
	}
	if ks.consumerGroup != "fallback" {
		t.Errorf("expected fallback group, got %s", ks.consumerGroup)
	}
}

func TestNewSubscriber_Unsupported(t *testing.T) {
	if _, err := NewSubscriber(config.QueueConfig{Type: "sqs"}, DefaultConfig()); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

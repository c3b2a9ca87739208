package queue

import (
	"testing"

	"github.com/soltixdb/tsinsight/internal/config"
)

func TestNewPublisher_Memory(t *testing.T) {
	p, err := NewPublisher(config.QueueConfig{Type: "MEMORY"})
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	defer func() { _ = p.Close() }()

	if _, ok := p.(*MemoryPublisher); !ok {
		t.Errorf("expected *MemoryPublisher, got %T", p)
	}
}

func TestNewPublisher_Kafka(t *testing.T) {
	p, err := NewPublisher(config.QueueConfig{Type: "kafka", KafkaBrokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	defer func() { _ = p.Close() }()

	if _, ok := p.(*KafkaPublisher); !ok {
		t.Errorf("expected *KafkaPublisher, got %T", p)
	}
}

func TestNewPublisher_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.QueueConfig
	}{
		{"unsupported type", config.QueueConfig{Type: "rabbitmq"}},
		{"kafka without brokers", config.QueueConfig{Type: "kafka"}},
		{"nats unreachable", config.QueueConfig{Type: "", URL: "nats://127.0.0.1:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPublisher(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNATSPublisher_ImplementsStreamProvisioner(t *testing.T) {
	var _ StreamProvisioner = (*NATSPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
	var _ Publisher = (*RedisPublisher)(nil)
	var _ Publisher = (*KafkaPublisher)(nil)
	var _ Publisher = (*MemoryPublisher)(nil)
}

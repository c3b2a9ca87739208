package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/soltixdb/tsinsight/internal/subscriber"
)

// MemoryPublisher delivers messages to in-process memory subscribers and
// keeps a copy of everything it published.
type MemoryPublisher struct {
	mu       sync.RWMutex
	messages map[string][][]byte
	closed   bool
}

// NewMemoryPublisher creates a new in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		messages: make(map[string][][]byte),
	}
}

// Publish records the message and hands it to memory subscribers
func (p *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Copy to decouple from the caller's buffer
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("publisher closed")
	}
	p.messages[subject] = append(p.messages[subject], dataCopy)
	p.mu.Unlock()

	subscriber.PublishToMemory(subject, dataCopy)
	return nil
}

// PublishBatch publishes multiple messages
func (p *MemoryPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	for _, msg := range messages {
		if err := p.Publish(ctx, msg.Subject, msg.Data); err != nil {
			continue
		}
		successCount++
	}
	return successCount, nil
}

// Messages returns the messages published to subject, oldest first
func (p *MemoryPublisher) Messages(subject string) [][]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([][]byte, len(p.messages[subject]))
	copy(out, p.messages[subject])
	return out
}

// Subjects returns every subject that received at least one message
func (p *MemoryPublisher) Subjects() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	subjects := make([]string, 0, len(p.messages))
	for s := range p.messages {
		subjects = append(subjects, s)
	}
	return subjects
}

// Close rejects further publishes
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

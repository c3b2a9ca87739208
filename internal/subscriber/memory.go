package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/soltixdb/tsinsight/internal/logging"
)

var memoryLog = logging.Global().With("component", "subscriber.memory")

// memorySubscription represents an active subscription
type memorySubscription struct {
	pattern string
	handler MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
	ch      chan memoryMessage
}

type memoryMessage struct {
	subject string
	data    []byte
}

// MemorySubscriber implements Subscriber for the in-process broker
type MemorySubscriber struct {
	subscriptions map[string]*memorySubscription
	mu            sync.RWMutex
}

// memoryBroker routes messages published in-process to matching subscriptions
var (
	memBroker     *memoryBroker
	memBrokerOnce sync.Once
)

type memoryBroker struct {
	subscribers []*memorySubscription
	mu          sync.RWMutex
}

func getMemoryBroker() *memoryBroker {
	memBrokerOnce.Do(func() {
		memBroker = &memoryBroker{}
	})
	return memBroker
}

func (b *memoryBroker) add(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

func (b *memoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subscribers {
		if s == sub {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// PublishToMemory delivers a message to every memory subscription whose
// pattern matches subject. Returns the number of deliveries.
func PublishToMemory(subject string, data []byte) int {
	b := getMemoryBroker()
	b.mu.RLock()
	var targets []*memorySubscription
	for _, sub := range b.subscribers {
		if MatchSubject(sub.pattern, subject) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		select {
		case sub.ch <- memoryMessage{subject: subject, data: data}:
			delivered++
		default:
			memoryLog.Warn("Subscriber channel full, dropping message", "subject", subject)
		}
	}
	return delivered
}

// NewMemorySubscriber creates a new in-memory subscriber
func NewMemorySubscriber() (*MemorySubscriber, error) {
	return &MemorySubscriber{
		subscriptions: make(map[string]*memorySubscription),
	}, nil
}

// Subscribe subscribes to a subject pattern with the given handler
func (s *MemorySubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{
		pattern: subject,
		handler: handler,
		ctx:     subCtx,
		cancel:  cancel,
		ch:      make(chan memoryMessage, 1000),
	}

	s.subscriptions[subject] = sub
	getMemoryBroker().add(sub)

	go s.consume(sub)

	memoryLog.Debug("Subscribed to in-memory subject", "subject", subject)
	return nil
}

// consume reads messages and processes them
func (s *MemorySubscriber) consume(sub *memorySubscription) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case msg := <-sub.ch:
			if err := sub.handler(sub.ctx, msg.subject, msg.data); err != nil {
				memoryLog.Error("Failed to handle message", "subject", msg.subject, "error", err)
			}
		}
	}
}

// Unsubscribe unsubscribes from a subject
func (s *MemorySubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	sub.cancel()
	delete(s.subscriptions, subject)
	getMemoryBroker().remove(sub)

	return nil
}

// Close closes all subscriptions
func (s *MemorySubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := getMemoryBroker()
	for _, sub := range s.subscriptions {
		sub.cancel()
		b.remove(sub)
	}
	s.subscriptions = make(map[string]*memorySubscription)

	return nil
}

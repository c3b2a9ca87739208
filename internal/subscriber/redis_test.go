package subscriber

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisAddr() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return strings.TrimPrefix(url, "redis://")
	}
	return "localhost:6379"
}

// Test helper: check if Redis is available
func isRedisAvailable() bool {
	client := redis.NewClient(&redis.Options{Addr: getRedisAddr()})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return client.Ping(ctx).Err() == nil
}

func TestNewRedisSubscriber_Unavailable(t *testing.T) {
	if _, err := NewRedisSubscriber("127.0.0.1:1", "", 0, "", "", ""); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestRedisSubscriber_Consume(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	sub, err := NewRedisSubscriber(getRedisAddr(), "", 0, "test-tsinsight", "test-group", "c1")
	if err != nil {
		t.Fatalf("NewRedisSubscriber failed: %v", err)
	}
	defer func() { _ = sub.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := sub.streamName("insight.observations")
	sub.client.Del(ctx, stream)
	defer sub.client.Del(context.Background(), stream)

	received := make(chan string, 1)
	err = sub.Subscribe(ctx, "insight.observations", func(ctx context.Context, subject string, data []byte) error {
		received <- subject + "=" + string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := sub.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": []byte("7")},
	}).Err(); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-received:
		if msg != "insight.observations=7" {
			t.Errorf("unexpected message %q", msg)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestDecodeStreamEntry(t *testing.T) {
	tests := []struct {
		name        string
		values      map[string]interface{}
		wantSubject string
		wantData    string
		wantOK      bool
	}{
		{"subject field", map[string]interface{}{"data": "x", "subject": "insight.observations.cpu"}, "insight.observations.cpu", "x", true},
		{"fallback subject", map[string]interface{}{"data": "x"}, "insight.observations", "x", true},
		{"empty subject field", map[string]interface{}{"data": "x", "subject": ""}, "insight.observations", "x", true},
		{"bytes payload", map[string]interface{}{"data": []byte("y")}, "insight.observations", "y", true},
		{"missing data", map[string]interface{}{"subject": "a"}, "", "", false},
		{"wrong type", map[string]interface{}{"data": 42}, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, data, ok := decodeStreamEntry(tt.values, "insight.observations")
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			if string(data) != tt.wantData {
				t.Errorf("data = %q, want %q", data, tt.wantData)
			}
		})
	}
}

func TestRedisSubscriber_RedeliversFailedEntries(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	oldDelay := redisRetryDelay
	redisRetryDelay = 50 * time.Millisecond
	defer func() { redisRetryDelay = oldDelay }()

	sub, err := NewRedisSubscriber(getRedisAddr(), "", 0, "test-tsinsight", "test-retry-group", "c1")
	if err != nil {
		t.Fatalf("NewRedisSubscriber failed: %v", err)
	}
	defer func() { _ = sub.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := sub.streamName("insight.retry")
	sub.client.Del(ctx, stream)
	defer sub.client.Del(context.Background(), stream)

	attempts := make(chan string, 4)
	calls := 0
	err = sub.Subscribe(ctx, "insight.retry", func(ctx context.Context, subject string, data []byte) error {
		calls++
		attempts <- subject
		if calls == 1 {
			return errors.New("publish failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := sub.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": []byte("7"), "subject": "insight.retry.cpu"},
	}).Err(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		select {
		case subject := <-attempts:
			if subject != "insight.retry.cpu" {
				t.Errorf("attempt %d: subject = %q", i, subject)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out waiting for attempt %d", i)
		}
	}

	pending, err := sub.client.XPending(ctx, stream, "test-retry-group").Result()
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for pending.Count != 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		pending, _ = sub.client.XPending(ctx, stream, "test-retry-group").Result()
	}
	if pending.Count != 0 {
		t.Errorf("expected no pending entries, got %d", pending.Count)
	}
}

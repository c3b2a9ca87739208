package queue

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// setupTestNATS creates an embedded NATS server for testing
func setupTestNATS(t *testing.T) (string, func()) {
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // Random port
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	return ns.ClientURL(), func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}
}

func TestNATSPublisher_New_InvalidURL(t *testing.T) {
	if _, err := NewNATSPublisher("nats://127.0.0.1:1", "", ""); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestNATSPublisher_PublishRequiresStream(t *testing.T) {
	url, cleanup := setupTestNATS(t)
	defer cleanup()

	p, err := NewNATSPublisher(url, "", "")
	if err != nil {
		t.Fatalf("NewNATSPublisher failed: %v", err)
	}
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.Publish(ctx, "alerts-test.cpu", []byte("x")); err == nil {
		t.Error("expected error publishing to a subject without a stream")
	}
}

func TestNATSPublisher_PublishAndBatch(t *testing.T) {
	url, cleanup := setupTestNATS(t)
	defer cleanup()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	p, err := NewNATSPublisherWithConn(nc)
	if err != nil {
		t.Fatalf("NewNATSPublisherWithConn failed: %v", err)
	}

	if err := p.EnsureStream("insight.alerts", "insight.alerts.>"); err != nil {
		t.Fatalf("EnsureStream failed: %v", err)
	}
	// Idempotent
	if err := p.EnsureStream("insight.alerts", "insight.alerts.>"); err != nil {
		t.Fatalf("EnsureStream second call failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Publish(ctx, "insight.alerts.cpu", []byte("a1")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	n, err := p.PublishBatch(ctx, []BatchMessage{
		{Subject: "insight.alerts.cpu", Data: []byte("a2")},
		{Subject: "insight.alerts.mem", Data: []byte("a3")},
	})
	if err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 acked, got %d", n)
	}

	js, _ := nc.JetStream()
	info, err := js.StreamInfo("insight_alerts")
	if err != nil {
		t.Fatalf("StreamInfo failed: %v", err)
	}
	if info.State.Msgs != 3 {
		t.Errorf("expected 3 stored messages, got %d", info.State.Msgs)
	}

	// Publisher did not open the connection, so Close leaves it usable
	_ = p.Close()
	if nc.IsClosed() {
		t.Error("shared connection should stay open")
	}
}

func TestNATSPublisher_EmptyBatch(t *testing.T) {
	url, cleanup := setupTestNATS(t)
	defer cleanup()

	p, err := NewNATSPublisher(url, "", "")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = p.Close() }()

	n, err := p.PublishBatch(context.Background(), nil)
	if n != 0 || err != nil {
		t.Errorf("expected 0, nil; got %d, %v", n, err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"insight.alerts":  "insight_alerts",
		"a-b_c":           "a-b_c",
		"x>y*":            "x_y_",
		"UPPER.lower.123": "UPPER_lower_123",
	}
	for in, want := range tests {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

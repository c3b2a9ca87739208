package profiles

import (
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/server/v3/embed"

	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/logging"
)

// setupTestEtcd creates an embedded etcd server for testing
func setupTestEtcd(t *testing.T) ([]string, func()) {
	tmpDir, err := os.MkdirTemp("", "etcd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	cfg := embed.NewConfig()
	cfg.Dir = tmpDir

	clientURL, _ := url.Parse("http://127.0.0.1:0")
	peerURL, _ := url.Parse("http://127.0.0.1:0")
	cfg.ListenClientUrls = []url.URL{*clientURL}
	cfg.ListenPeerUrls = []url.URL{*peerURL}

	cfg.LogLevel = "error"
	cfg.Logger = "zap"

	e, err := embed.StartEtcd(cfg)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to start etcd: %v", err)
	}

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(5 * time.Second):
		e.Close()
		_ = os.RemoveAll(tmpDir)
		t.Fatal("Etcd server took too long to start")
	}

	endpoints := []string{e.Clients[0].Addr().String()}

	return endpoints, func() {
		e.Close()
		_ = os.RemoveAll(tmpDir)
	}
}

func newTestEtcdStore(t *testing.T) *EtcdStore {
	endpoints, cleanup := setupTestEtcd(t)
	t.Cleanup(cleanup)

	store, err := NewEtcdStore(config.EtcdConfig{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	}, "/tsinsight-test/profiles", time.Minute, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEtcdStore_CRUD(t *testing.T) {
	store := newTestEtcdStore(t)
	ctx := context.Background()

	assert.Equal(t, "/tsinsight-test/profiles/", store.prefix)

	_, err := store.Get(ctx, "strict")
	assert.ErrorIs(t, err, ErrNotFound)

	p := &Profile{
		Name:        "strict",
		Description: "tight z threshold",
		Anomaly:     anomaly.Config{ZThreshold: 2},
	}
	require.NoError(t, store.Put(ctx, p))

	// Bypass the cache to prove the value reached etcd
	store.cache.Delete("strict")
	got, err := store.Get(ctx, "strict")
	require.NoError(t, err)
	assert.Equal(t, "tight z threshold", got.Description)
	assert.Equal(t, 2.0, got.Anomaly.ZThreshold)

	require.NoError(t, store.Put(ctx, &Profile{Name: "loose"}))
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "loose", list[0].Name)

	require.NoError(t, store.Delete(ctx, "strict"))
	_, err = store.Get(ctx, "strict")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "strict"), ErrNotFound)
}

func TestEtcdStore_ListSkipsGarbage(t *testing.T) {
	store := newTestEtcdStore(t)
	ctx := context.Background()

	_, err := store.client.Put(ctx, store.key("broken"), "{not json")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, &Profile{Name: "good"}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "good", list[0].Name)
}

func TestNewStore(t *testing.T) {
	cfg := config.DefaultConfig()
	store, err := NewStore(cfg, logging.NewNop())
	require.NoError(t, err)
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)

	cfg.Profiles.Backend = "postgres"
	_, err = NewStore(cfg, logging.NewNop())
	assert.Error(t, err)
}

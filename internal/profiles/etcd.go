package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/logging"
)

// EtcdStore keeps profiles in etcd as JSON under a key prefix
type EtcdStore struct {
	client *clientv3.Client
	prefix string
	cache  *Cache
	logger *logging.Logger
}

// NewEtcdStore connects to etcd. prefix must end with "/".
func NewEtcdStore(etcdCfg config.EtcdConfig, prefix string, cacheTTL time.Duration, logger *logging.Logger) (*EtcdStore, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   etcdCfg.Endpoints,
		DialTimeout: etcdCfg.DialTimeout,
		Username:    etcdCfg.Username,
		Password:    etcdCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &EtcdStore{
		client: client,
		prefix: prefix,
		cache:  NewCache(cacheTTL),
		logger: logger,
	}, nil
}

// key maps a profile name to its etcd key
func (s *EtcdStore) key(name string) string {
	return s.prefix + name
}

// Get returns the named profile, serving from the cache when it holds a
// live copy. Returns ErrNotFound when no key exists.
func (s *EtcdStore) Get(ctx context.Context, name string) (*Profile, error) {
	if p, ok := s.cache.Get(name); ok {
		return p, nil
	}

	resp, err := s.client.Get(ctx, s.key(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile from etcd: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}

	var p Profile
	if err := json.Unmarshal(resp.Kvs[0].Value, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile %s: %w", name, err)
	}

	s.cache.Set(&p)
	return &p, nil
}

// Put validates and stores profile, stamping UpdatedAt when unset, and
// refreshes the cached copy.
func (s *EtcdStore) Put(ctx context.Context, profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if _, err := s.client.Put(ctx, s.key(profile.Name), string(data)); err != nil {
		return fmt.Errorf("failed to store profile in etcd: %w", err)
	}

	s.cache.Set(profile)
	return nil
}

// Delete removes the named profile and its cached copy.
// Returns ErrNotFound when nothing was deleted.
func (s *EtcdStore) Delete(ctx context.Context, name string) error {
	resp, err := s.client.Delete(ctx, s.key(name))
	if err != nil {
		return fmt.Errorf("failed to delete profile from etcd: %w", err)
	}

	s.cache.Delete(name)
	if resp.Deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every profile under the prefix, sorted by name.
// Entries that fail to decode are skipped.
func (s *EtcdStore) List(ctx context.Context) ([]*Profile, error) {
	resp, err := s.client.Get(ctx, s.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles from etcd: %w", err)
	}

	list := make([]*Profile, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var p Profile
		if err := json.Unmarshal(kv.Value, &p); err != nil {
			s.logger.Warn("Skipping undecodable profile", "key", string(kv.Key), "error", err)
			continue
		}
		list = append(list, &p)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Close stops the cache and closes the etcd client
func (s *EtcdStore) Close() error {
	s.cache.Stop()
	return s.client.Close()
}

// NewStore builds the store selected by cfg.Profiles.Backend
func NewStore(cfg *config.Config, logger *logging.Logger) (Store, error) {
	switch cfg.Profiles.Backend {
	case "etcd":
		return NewEtcdStore(cfg.Etcd, cfg.Profiles.Prefix, cfg.Profiles.CacheTTL, logger)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported profile backend: %s", cfg.Profiles.Backend)
	}
}

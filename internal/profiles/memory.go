package profiles

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps profiles in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Get returns a copy of the named profile or ErrNotFound
func (s *MemoryStore) Get(ctx context.Context, name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// Put validates and stores a copy of profile, stamping UpdatedAt when unset
func (s *MemoryStore) Put(ctx context.Context, profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Name] = *profile
	return nil
}

// Delete removes the named profile or returns ErrNotFound
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[name]; !ok {
		return ErrNotFound
	}
	delete(s.profiles, name)
	return nil
}

// List returns profiles sorted by name
func (s *MemoryStore) List(ctx context.Context) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		p := p
		list = append(list, &p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/analytics/trend"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/models"
	"github.com/soltixdb/tsinsight/internal/profiles"
)

// MockProfileStore is a profiles.Store that can be told to fail
type MockProfileStore struct {
	mu          sync.Mutex
	profiles    map[string]*profiles.Profile
	shouldError bool
	errorMsg    string
}

func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{profiles: make(map[string]*profiles.Profile)}
}

func (m *MockProfileStore) Get(ctx context.Context, name string) (*profiles.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldError {
		return nil, errors.New(m.errorMsg)
	}
	p, ok := m.profiles[name]
	if !ok {
		return nil, profiles.ErrNotFound
	}
	return p, nil
}

func (m *MockProfileStore) Put(ctx context.Context, p *profiles.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldError {
		return errors.New(m.errorMsg)
	}
	m.profiles[p.Name] = p
	return nil
}

func (m *MockProfileStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldError {
		return errors.New(m.errorMsg)
	}
	if _, ok := m.profiles[name]; !ok {
		return profiles.ErrNotFound
	}
	delete(m.profiles, name)
	return nil
}

func (m *MockProfileStore) List(ctx context.Context) ([]*profiles.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldError {
		return nil, errors.New(m.errorMsg)
	}
	out := make([]*profiles.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (m *MockProfileStore) Close() error { return nil }

func TestProfileService_Lifecycle(t *testing.T) {
	svc := NewProfileService(logging.NewNop(), profiles.NewMemoryStore())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	p, err := svc.Put(ctx, "cpu-strict", &models.ProfileRequest{
		Description: "tight thresholds",
		Anomaly:     anomaly.Config{ZThreshold: 2.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "cpu-strict", p.Name)
	assert.Equal(t, fixed, p.UpdatedAt)

	got, err := svc.Get(ctx, "cpu-strict")
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.Anomaly.ZThreshold)
	assert.Equal(t, "tight thresholds", got.Description)

	_, err = svc.Put(ctx, "alpha", &models.ProfileRequest{})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "alpha", list.Profiles[0].Name)

	require.NoError(t, svc.Delete(ctx, "cpu-strict"))
	_, err = svc.Get(ctx, "cpu-strict")
	assert.Equal(t, CodeProfileNotFound, serviceErrorCode(t, err))

	err = svc.Delete(ctx, "cpu-strict")
	assert.Equal(t, CodeProfileNotFound, serviceErrorCode(t, err))
}

func TestProfileService_Validation(t *testing.T) {
	svc := NewProfileService(logging.NewNop(), profiles.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name    string
		profile string
		req     *models.ProfileRequest
	}{
		{"bad name", "has space", &models.ProfileRequest{}},
		{"negative threshold", "neg", &models.ProfileRequest{Anomaly: anomaly.Config{ZThreshold: -1}}},
		{"inverted trend thresholds", "inv", &models.ProfileRequest{Trend: trend.Config{IncreasingThreshold: -1, DecreasingThreshold: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Put(ctx, tt.profile, tt.req)
			assert.Equal(t, CodeInvalidProfile, serviceErrorCode(t, err))
		})
	}

	_, err := svc.Get(ctx, "")
	assert.Equal(t, CodeInvalidProfile, serviceErrorCode(t, err))
	err = svc.Delete(ctx, "../etc")
	assert.Equal(t, CodeInvalidProfile, serviceErrorCode(t, err))
}

func TestProfileService_StoreErrors(t *testing.T) {
	store := NewMockProfileStore()
	store.shouldError = true
	store.errorMsg = "etcd unavailable"
	svc := NewProfileService(logging.NewNop(), store)
	ctx := context.Background()

	_, err := svc.Get(ctx, "cpu")
	assert.Equal(t, CodeProfileStore, serviceErrorCode(t, err))

	_, err = svc.Put(ctx, "cpu", &models.ProfileRequest{})
	assert.Equal(t, CodeProfileStore, serviceErrorCode(t, err))

	err = svc.Delete(ctx, "cpu")
	assert.Equal(t, CodeProfileStore, serviceErrorCode(t, err))

	_, err = svc.List(ctx)
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, CodeProfileStore, svcErr.Code)
	assert.Equal(t, "etcd unavailable", svcErr.Details["error"])
}

func TestAnalyticsService_ProfileStoreFailure(t *testing.T) {
	store := NewMockProfileStore()
	store.shouldError = true
	store.errorMsg = "timeout"
	svc := NewAnalyticsService(logging.NewNop(), testAnalyticsConfig(), store, nil)

	_, err := svc.Detect(context.Background(), &models.DetectRequest{
		SeriesInput: models.SeriesInput{Values: values(1, 2, 3)},
		Profile:     "cpu",
	})
	assert.Equal(t, CodeProfileStore, serviceErrorCode(t, err))
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/metrics"
	"github.com/soltixdb/tsinsight/internal/models"
	"github.com/soltixdb/tsinsight/internal/profiles"
	"github.com/soltixdb/tsinsight/internal/utils"
)

// ProfileService manages analysis profiles
type ProfileService struct {
	logger *logging.Logger
	store  profiles.Store
	now    func() time.Time
}

// NewProfileService creates a new ProfileService
func NewProfileService(logger *logging.Logger, store profiles.Store) *ProfileService {
	return &ProfileService{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

// Get returns the named profile
func (s *ProfileService) Get(ctx context.Context, name string) (*profiles.Profile, error) {
	start := time.Now()
	if err := profiles.ValidateName(name); err != nil {
		metrics.ObserveOperation(metrics.OpProfile, "", start)
		return nil, NewServiceError(CodeInvalidProfile, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, utils.ProfileStoreTimeout)
	defer cancel()

	p, err := s.store.Get(ctx, name)
	if err != nil {
		metrics.ObserveOperation(metrics.OpProfile, "", start)
		return nil, s.storeError("get", name, err)
	}
	metrics.ObserveOperation(metrics.OpProfile, "ok", start)
	return p, nil
}

// Put creates or replaces the named profile
func (s *ProfileService) Put(ctx context.Context, name string, req *models.ProfileRequest) (*profiles.Profile, error) {
	start := time.Now()

	p := &profiles.Profile{
		Name:        name,
		Description: req.Description,
		Anomaly:     req.Anomaly,
		Trend:       req.Trend,
		Forecast:    req.Forecast,
		UpdatedAt:   s.now().UTC(),
	}
	if err := p.Validate(); err != nil {
		metrics.ObserveOperation(metrics.OpProfile, "", start)
		return nil, NewServiceError(CodeInvalidProfile, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, utils.ProfileStoreTimeout)
	defer cancel()

	if err := s.store.Put(ctx, p); err != nil {
		metrics.ObserveOperation(metrics.OpProfile, "", start)
		return nil, s.storeError("put", name, err)
	}

	metrics.ObserveOperation(metrics.OpProfile, "ok", start)
	s.logger.Info("Profile stored", "profile", name)
	return p, nil
}

// Delete removes the named profile
func (s *ProfileService) Delete(ctx context.Context, name string) error {
	start := time.Now()
	if err := profiles.ValidateName(name); err != nil {
		metrics.ObserveOperation(metrics.OpProfile, "", start)
		return NewServiceError(CodeInvalidProfile, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, utils.ProfileStoreTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, name); err != nil {
		metrics.ObserveOperation(metrics.OpProfile, "", start)
		return s.storeError("delete", name, err)
	}

	metrics.ObserveOperation(metrics.OpProfile, "ok", start)
	s.logger.Info("Profile deleted", "profile", name)
	return nil
}

// List returns every profile sorted by name
func (s *ProfileService) List(ctx context.Context) (*models.ProfileListResponse, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, utils.ProfileStoreTimeout)
	defer cancel()

	list, err := s.store.List(ctx)
	if err != nil {
		metrics.ObserveOperation(metrics.OpProfile, "", start)
		return nil, s.storeError("list", "", err)
	}

	metrics.ObserveOperation(metrics.OpProfile, "ok", start)
	return &models.ProfileListResponse{Profiles: list, Count: len(list)}, nil
}

func (s *ProfileService) storeError(op, name string, err error) *ServiceError {
	if errors.Is(err, profiles.ErrNotFound) {
		return NewServiceError(CodeProfileNotFound, fmt.Sprintf("profile %s not found", name))
	}
	s.logger.Error("Profile store failed", "op", op, "profile", name, "error", err)
	return NewServiceErrorWithDetails(CodeProfileStore, fmt.Sprintf("failed to %s profile", op), map[string]interface{}{
		"error": err.Error(),
	})
}

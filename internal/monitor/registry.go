package monitor

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/metrics"
)

// ErrSeriesLimit is returned when a new series would exceed MaxSeries
var ErrSeriesLimit = errors.New("series limit reached")

var seriesPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,127}$`)

// ValidateSeries checks a series name is usable as a subject suffix
func ValidateSeries(series string) error {
	if !seriesPattern.MatchString(series) {
		return fmt.Errorf("invalid series name %q", series)
	}
	return nil
}

// Registry owns one anomaly detector per series plus a default detector
// for requests that name no series. Detectors are created lazily.
type Registry struct {
	config    anomaly.Config
	maxSeries int

	mu        sync.RWMutex
	detectors map[string]*anomaly.Detector
	fallback  *anomaly.Detector
}

// NewRegistry creates a registry. maxSeries <= 0 means unbounded.
func NewRegistry(config anomaly.Config, maxSeries int) *Registry {
	return &Registry{
		config:    config,
		maxSeries: maxSeries,
		detectors: make(map[string]*anomaly.Detector),
		fallback:  anomaly.NewDetector(config),
	}
}

// Config returns the configuration new detectors are built with
func (r *Registry) Config() anomaly.Config {
	return r.config
}

// Default returns the detector shared by requests without a series
func (r *Registry) Default() *anomaly.Detector {
	return r.fallback
}

// Lookup returns the detector for series without creating it.
// The empty series resolves to the default detector.
func (r *Registry) Lookup(series string) (*anomaly.Detector, bool) {
	if series == "" {
		return r.fallback, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[series]
	return d, ok
}

// Get returns the detector for series, creating it on first use
func (r *Registry) Get(series string) (*anomaly.Detector, error) {
	if d, ok := r.Lookup(series); ok {
		return d, nil
	}
	if err := ValidateSeries(series); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if d, ok := r.detectors[series]; ok {
		return d, nil
	}
	if r.maxSeries > 0 && len(r.detectors) >= r.maxSeries {
		return nil, fmt.Errorf("%w (%d)", ErrSeriesLimit, r.maxSeries)
	}

	d := anomaly.NewDetector(r.config)
	r.detectors[series] = d
	metrics.MonitorSeries.Set(float64(len(r.detectors)))
	return d, nil
}

// Remove drops the detector for series and its history
func (r *Registry) Remove(series string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.detectors[series]; !ok {
		return false
	}
	delete(r.detectors, series)
	metrics.MonitorSeries.Set(float64(len(r.detectors)))
	return true
}

// Series returns the tracked series names, sorted
func (r *Registry) Series() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of tracked series
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.detectors)
}

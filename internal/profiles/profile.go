// Package profiles stores named analysis profiles: threshold sets that
// requests can reference instead of passing every knob inline.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/analytics/forecast"
	"github.com/soltixdb/tsinsight/internal/analytics/trend"
)

// ErrNotFound is returned when a profile does not exist
var ErrNotFound = errors.New("profile not found")

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,63}$`)

// Profile is a named set of analytics thresholds
type Profile struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Anomaly     anomaly.Config  `json:"anomaly" yaml:"anomaly"`
	Trend       trend.Config    `json:"trend" yaml:"trend"`
	Forecast    forecast.Config `json:"forecast" yaml:"forecast"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"updated_at"`
}

// Store persists profiles
type Store interface {
	Get(ctx context.Context, name string) (*Profile, error)
	Put(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*Profile, error)
	Close() error
}

// ValidateName checks a profile name is usable as a key segment
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid profile name %q: must match %s", name, namePattern.String())
	}
	return nil
}

// Validate checks the profile before it is stored
func (p *Profile) Validate() error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if p.Anomaly.ZThreshold < 0 || p.Anomaly.IQRMultiplier < 0 {
		return fmt.Errorf("anomaly thresholds cannot be negative")
	}
	if p.Anomaly.LowerPercentile != 0 && p.Anomaly.UpperPercentile != 0 &&
		p.Anomaly.LowerPercentile >= p.Anomaly.UpperPercentile {
		return fmt.Errorf("anomaly.lower_percentile must be below anomaly.upper_percentile")
	}
	if p.Trend.DecreasingThreshold > p.Trend.IncreasingThreshold {
		return fmt.Errorf("trend.decreasing_threshold cannot exceed trend.increasing_threshold")
	}
	if p.Forecast.Alpha < 0 || p.Forecast.Alpha > 1 {
		return fmt.Errorf("forecast.alpha must be in [0, 1]")
	}
	return nil
}

// Package trend fits linear trends and detects weekly seasonality and
// repeating cycles in evenly spaced series.
package trend

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/tsinsight/internal/analytics"
)

// Direction of a fitted trend
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// Config holds the trend analyzer thresholds
type Config struct {
	// Slope above which a trend is increasing
	IncreasingThreshold float64 `json:"increasing_threshold" yaml:"increasing_threshold"`
	// Slope below which a trend is decreasing
	DecreasingThreshold float64 `json:"decreasing_threshold" yaml:"decreasing_threshold"`
	// Bucket count for seasonal grouping (index % SeasonalPeriod)
	SeasonalPeriod int `json:"seasonal_period" yaml:"seasonal_period"`
	// Largest lag considered by cycle detection
	MaxLag int `json:"max_lag" yaml:"max_lag"`
	// Minimum autocorrelation for a cycle to be reported
	MinCycleStrength float64 `json:"min_cycle_strength" yaml:"min_cycle_strength"`
}

// DefaultConfig returns default trend configuration
func DefaultConfig() Config {
	return Config{
		IncreasingThreshold: 0.1,
		DecreasingThreshold: -0.1,
		SeasonalPeriod:      7,
		MaxLag:              50,
		MinCycleStrength:    0.3,
	}
}

// Result is the outcome of a linear trend fit
type Result struct {
	Direction Direction        `json:"direction,omitempty" yaml:"direction,omitempty"`
	Slope     float64          `json:"slope" yaml:"slope"`
	Intercept float64          `json:"intercept" yaml:"intercept"`
	Strength  float64          `json:"strength" yaml:"strength"`
	Points    int              `json:"points" yaml:"points"`
	Status    analytics.Status `json:"status" yaml:"status"`
}

// Analyzer fits trends using a fixed configuration
type Analyzer struct {
	config Config
}

// NewAnalyzer creates an analyzer. Zero-valued fields fall back to defaults.
func NewAnalyzer(config Config) *Analyzer {
	defaults := DefaultConfig()
	if config.IncreasingThreshold == 0 && config.DecreasingThreshold == 0 {
		config.IncreasingThreshold = defaults.IncreasingThreshold
		config.DecreasingThreshold = defaults.DecreasingThreshold
	}
	if config.SeasonalPeriod <= 1 {
		config.SeasonalPeriod = defaults.SeasonalPeriod
	}
	if config.MaxLag <= 1 {
		config.MaxLag = defaults.MaxLag
	}
	if config.MinCycleStrength <= 0 {
		config.MinCycleStrength = defaults.MinCycleStrength
	}
	return &Analyzer{config: config}
}

// Config returns the effective configuration
func (a *Analyzer) Config() Config {
	return a.config
}

// FitLinearTrend runs ordinary least squares with x = 0..n-1.
// Strength is R² clamped to [0,1]; a series with no variance has strength 0.
func (a *Analyzer) FitLinearTrend(values []float64) Result {
	if len(values) < 2 {
		return Result{Points: len(values), Status: analytics.StatusInsufficientData}
	}

	xs := indexAxis(len(values))
	intercept, slope := stat.LinearRegression(xs, values, nil, false)
	r2 := stat.RSquared(xs, values, nil, intercept, slope)

	return Result{
		Direction: a.classify(slope),
		Slope:     slope,
		Intercept: intercept,
		Strength:  clampUnit(r2),
		Points:    len(values),
		Status:    analytics.StatusOK,
	}
}

func (a *Analyzer) classify(slope float64) Direction {
	switch {
	case slope > a.config.IncreasingThreshold:
		return DirectionIncreasing
	case slope < a.config.DecreasingThreshold:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

// FitLinearTrend fits a trend with the default configuration
func FitLinearTrend(values []float64) Result {
	return NewAnalyzer(DefaultConfig()).FitLinearTrend(values)
}

// Line returns the OLS intercept, slope and R² for values against their index.
// ok is false when fewer than two values are given.
func Line(values []float64) (intercept, slope, r2 float64, ok bool) {
	if len(values) < 2 {
		return 0, 0, 0, false
	}
	xs := indexAxis(len(values))
	intercept, slope = stat.LinearRegression(xs, values, nil, false)
	r2 = clampUnit(stat.RSquared(xs, values, nil, intercept, slope))
	return intercept, slope, r2, true
}

func indexAxis(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

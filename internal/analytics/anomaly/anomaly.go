// Package anomaly flags outliers in a series using z-score, percentile band
// or IQR fences, and keeps a bounded history of what it found.
package anomaly

import (
	"fmt"
	"sort"
)

// AnomalyType represents the direction of an anomaly
type AnomalyType string

const (
	AnomalyTypeSpike AnomalyType = "spike" // Above the expected range
	AnomalyTypeDrop  AnomalyType = "drop"  // Below the expected range
)

// Severity grades how far a point lies outside the expected range
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Method names accepted by Detect
const (
	MethodStatistical = "statistical"
	MethodZScore      = "zscore"
	MethodPercentile  = "percentile"
	MethodIQR         = "iqr"
	MethodRealTime    = "realtime"
)

// Anomaly represents a flagged observation
type Anomaly struct {
	Index     int         `json:"index" yaml:"index"`
	Value     float64     `json:"value" yaml:"value"`
	Timestamp int64       `json:"timestamp" yaml:"timestamp"`
	Score     float64     `json:"score" yaml:"score"` // How anomalous (higher = more abnormal)
	Severity  Severity    `json:"severity" yaml:"severity"`
	Type      AnomalyType `json:"type" yaml:"type"`
	Expected  *Range      `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// Range represents expected value range
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Config holds configuration for anomaly detection
type Config struct {
	// |z| above which a point is flagged by the z-score methods
	ZThreshold float64 `json:"z_threshold" yaml:"z_threshold"`
	// |z| above which a z-score anomaly is critical
	CriticalZ float64 `json:"critical_z" yaml:"critical_z"`
	// |z| above which a z-score anomaly is high
	HighZ float64 `json:"high_z" yaml:"high_z"`

	// Percentile band for the percentile method
	LowerPercentile float64 `json:"lower_percentile" yaml:"lower_percentile"`
	UpperPercentile float64 `json:"upper_percentile" yaml:"upper_percentile"`

	// Tukey fence multiplier for the iqr method
	IQRMultiplier float64 `json:"iqr_multiplier" yaml:"iqr_multiplier"`

	// MinDataPoints minimum number of points required for detection
	MinDataPoints int `json:"min_data_points" yaml:"min_data_points"`

	// Detection records retained, oldest evicted first
	HistoryCapacity int `json:"history_capacity" yaml:"history_capacity"`
	// Number of most recent records sampled by DetectRealTime
	RealTimeWindow int `json:"realtime_window" yaml:"realtime_window"`
	// Minimum sampled values before DetectRealTime flags anything
	RealTimeMinHistory int `json:"realtime_min_history" yaml:"realtime_min_history"`

	// Cap on reported scores when the reference spread is zero
	MaxScore float64 `json:"max_score" yaml:"max_score"`
}

// DefaultConfig returns default detector configuration
func DefaultConfig() Config {
	return Config{
		ZThreshold:         3.0,
		CriticalZ:          4.0,
		HighZ:              3.0,
		LowerPercentile:    0.05,
		UpperPercentile:    0.95,
		IQRMultiplier:      1.5,
		MinDataPoints:      3,
		HistoryCapacity:    10000,
		RealTimeWindow:     100,
		RealTimeMinHistory: 10,
		MaxScore:           1000,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ZThreshold <= 0 {
		c.ZThreshold = d.ZThreshold
	}
	if c.CriticalZ <= 0 {
		c.CriticalZ = d.CriticalZ
	}
	if c.HighZ <= 0 {
		c.HighZ = d.HighZ
	}
	if c.LowerPercentile <= 0 || c.LowerPercentile >= 1 {
		c.LowerPercentile = d.LowerPercentile
	}
	if c.UpperPercentile <= 0 || c.UpperPercentile >= 1 || c.UpperPercentile <= c.LowerPercentile {
		c.UpperPercentile = d.UpperPercentile
	}
	if c.IQRMultiplier <= 0 {
		c.IQRMultiplier = d.IQRMultiplier
	}
	if c.MinDataPoints <= 0 {
		c.MinDataPoints = d.MinDataPoints
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	if c.RealTimeWindow <= 0 {
		c.RealTimeWindow = d.RealTimeWindow
	}
	if c.RealTimeMinHistory <= 0 {
		c.RealTimeMinHistory = d.RealTimeMinHistory
	}
	if c.MaxScore <= 0 {
		c.MaxScore = d.MaxScore
	}
	return c
}

// Finding is a method's verdict on a single point
type Finding struct {
	Index    int
	Score    float64
	Severity Severity
	Type     AnomalyType
	Expected *Range
}

// Method is a single detection algorithm over raw values.
// Implementations may assume len(values) >= MinDataPoints and non-zero spread.
type Method interface {
	// Name returns the algorithm name
	Name() string
	// Detect returns the findings in index order
	Detect(values []float64, config Config) []Finding
}

// MinPointser is implemented by methods that need more points than the
// configured MinDataPoints to score anything meaningful.
type MinPointser interface {
	MinPoints() int
}

// minPointsFor returns the effective minimum input length for m
func minPointsFor(m Method, config Config) int {
	n := config.MinDataPoints
	if mp, ok := m.(MinPointser); ok && mp.MinPoints() > n {
		n = mp.MinPoints()
	}
	return n
}

// Registry holds available detection methods
var methodRegistry = make(map[string]Method)

// RegisterMethod adds a method to the registry
func RegisterMethod(name string, method Method) {
	methodRegistry[name] = method
}

// GetMethod returns a method by name
func GetMethod(name string) (Method, error) {
	if method, ok := methodRegistry[name]; ok {
		return method, nil
	}
	return nil, fmt.Errorf("unknown anomaly detection method: %s", name)
}

// ListMethods returns the sorted list of available method names
func ListMethods() []string {
	names := make([]string, 0, len(methodRegistry))
	for name := range methodRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// boundSeverity grades a point by its distance beyond a bound, measured in
// units of the reference spread.
func boundSeverity(score float64) Severity {
	switch {
	case score > 3:
		return SeverityCritical
	case score > 1.5:
		return SeverityHigh
	case score > 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// boundFinding scores a value against [lower, upper]. ok is false when
// the value is inside the range.
func boundFinding(index int, value, lower, upper, spread float64, config Config) (Finding, bool) {
	var distance float64
	var anomalyType AnomalyType
	switch {
	case value > upper:
		distance = value - upper
		anomalyType = AnomalyTypeSpike
	case value < lower:
		distance = lower - value
		anomalyType = AnomalyTypeDrop
	default:
		return Finding{}, false
	}

	score := config.MaxScore
	if spread > 0 && distance/spread < config.MaxScore {
		score = distance / spread
	}

	return Finding{
		Index:    index,
		Score:    score,
		Severity: boundSeverity(score),
		Type:     anomalyType,
		Expected: &Range{Min: lower, Max: upper},
	}, true
}

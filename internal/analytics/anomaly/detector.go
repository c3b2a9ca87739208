package anomaly

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/analytics/stats"
)

// Result is the outcome of a detection call. Status distinguishes an empty
// anomaly list from a call that could not compute one.
type Result struct {
	Anomalies []Anomaly        `json:"anomalies" yaml:"anomalies"`
	Method    string           `json:"method" yaml:"method"`
	Count     int              `json:"count" yaml:"count"`
	Status    analytics.Status `json:"status" yaml:"status"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Detector runs detection methods and owns a bounded history of the
// detection records it produced. It is safe for concurrent use.
type Detector struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	history *recordRing
}

// NewDetector creates a detector. Zero-valued config fields fall back to
// DefaultConfig.
func NewDetector(config Config) *Detector {
	config = config.withDefaults()
	return &Detector{
		config:  config,
		now:     time.Now,
		history: newRecordRing(config.HistoryCapacity),
	}
}

// Config returns the effective configuration
func (d *Detector) Config() Config {
	return d.config
}

// Detect flags anomalies in obs with the named method.
//
// Empty or too-short input yields Method "insufficient_data"; input with no
// spread yields Method "no_variance". Unknown methods, non-finite values and
// panics inside a method are reported through Status "error".
// A record is appended to the history whenever anything is flagged.
func (d *Detector) Detect(obs []analytics.Observation, method string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(method, fmt.Errorf("detection failed: %v", r))
		}
	}()

	if len(obs) == 0 {
		return marker(analytics.StatusInsufficientData)
	}

	m, err := GetMethod(method)
	if err != nil {
		return errorResult(method, err)
	}

	values := analytics.Series(obs).Values()
	if err := checkFinite(values); err != nil {
		return errorResult(method, err)
	}
	if len(values) < minPointsFor(m, d.config) {
		return marker(analytics.StatusInsufficientData)
	}
	if !hasSpread(values) {
		return marker(analytics.StatusNoVariance)
	}

	anomalies := toAnomalies(obs, m.Detect(values, d.config))
	d.record(method, anomalies)

	return Result{
		Anomalies: anomalies,
		Method:    method,
		Count:     len(anomalies),
		Status:    analytics.StatusOK,
	}
}

// DetectRealTime scores obs against a rolling sample made of the anomaly
// values recorded in the last RealTimeWindow detection records. Nothing is
// flagged until the sample holds RealTimeMinHistory values.
func (d *Detector) DetectRealTime(obs []analytics.Observation) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(MethodRealTime, fmt.Errorf("detection failed: %v", r))
		}
	}()

	if len(obs) == 0 {
		return Result{Anomalies: []Anomaly{}, Method: MethodRealTime, Status: analytics.StatusInsufficientData}
	}

	values := analytics.Series(obs).Values()
	if err := checkFinite(values); err != nil {
		return errorResult(MethodRealTime, err)
	}

	sample := d.rollingSample()
	if len(sample) < d.config.RealTimeMinHistory {
		return Result{Anomalies: []Anomaly{}, Method: MethodRealTime, Status: analytics.StatusInsufficientHistory}
	}

	mean, std := stats.MeanStdDev(sample)
	if !hasSpread(sample) {
		return Result{Anomalies: []Anomaly{}, Method: MethodRealTime, Status: analytics.StatusNoVariance}
	}

	expected := &Range{
		Min: mean - d.config.ZThreshold*std,
		Max: mean + d.config.ZThreshold*std,
	}

	var findings []Finding
	for i, v := range values {
		score := zScore(v, mean, std, d.config.MaxScore)
		if score <= d.config.ZThreshold {
			continue
		}
		anomalyType := AnomalyTypeSpike
		if v < mean {
			anomalyType = AnomalyTypeDrop
		}
		findings = append(findings, Finding{
			Index:    i,
			Score:    score,
			Severity: zSeverity(score, d.config),
			Type:     anomalyType,
			Expected: expected,
		})
	}

	anomalies := toAnomalies(obs, findings)
	d.record(MethodRealTime, anomalies)

	return Result{
		Anomalies: anomalies,
		Method:    MethodRealTime,
		Count:     len(anomalies),
		Status:    analytics.StatusOK,
	}
}

// Seed appends a record without running detection. Used to warm the
// real-time sample from anomalies found elsewhere.
func (d *Detector) Seed(method string, anomalies []Anomaly) {
	d.record(method, anomalies)
}

// History returns up to limit most recent records, oldest first.
// limit <= 0 returns everything retained.
func (d *Detector) History(limit int) []DetectionRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.last(limit)
}

// HistoryLen returns the number of retained records
func (d *Detector) HistoryLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.len()
}

// ClearHistory drops every retained record
func (d *Detector) ClearHistory() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history.reset()
}

func (d *Detector) record(method string, anomalies []Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	rec := DetectionRecord{
		ID:         uuid.New().String(),
		Method:     method,
		Anomalies:  anomalies,
		Count:      len(anomalies),
		DetectedAt: d.now().UTC(),
	}

	d.mu.Lock()
	d.history.push(rec)
	d.mu.Unlock()
}

func (d *Detector) rollingSample() []float64 {
	d.mu.Lock()
	records := d.history.last(d.config.RealTimeWindow)
	d.mu.Unlock()

	var sample []float64
	for _, rec := range records {
		for _, a := range rec.Anomalies {
			sample = append(sample, a.Value)
		}
	}
	return sample
}

func toAnomalies(obs []analytics.Observation, findings []Finding) []Anomaly {
	anomalies := make([]Anomaly, 0, len(findings))
	for _, f := range findings {
		anomalies = append(anomalies, Anomaly{
			Index:     f.Index,
			Value:     obs[f.Index].Value,
			Timestamp: obs[f.Index].Timestamp,
			Score:     f.Score,
			Severity:  f.Severity,
			Type:      f.Type,
			Expected:  f.Expected,
		})
	}
	return anomalies
}

func hasSpread(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return true
		}
	}
	return false
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value at index %d", i)
		}
	}
	return nil
}

// marker builds the result for input that cannot be analyzed. The method
// field carries the status name.
func marker(status analytics.Status) Result {
	return Result{
		Anomalies: []Anomaly{},
		Method:    string(status),
		Status:    status,
	}
}

func errorResult(method string, err error) Result {
	return Result{
		Anomalies: []Anomaly{},
		Method:    method,
		Status:    analytics.StatusError,
		Error:     err.Error(),
	}
}

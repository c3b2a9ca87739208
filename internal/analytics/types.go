// Package analytics provides common types and utilities for time-series analytics
// including trend analysis, forecasting and anomaly detection.
package analytics

import (
	"time"
)

// Observation is a single time-stamped numeric sample.
// Timestamp is expressed in Unix milliseconds.
type Observation struct {
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

// Time returns the observation timestamp as time.Time
func (o Observation) Time() time.Time {
	return time.UnixMilli(o.Timestamp).UTC()
}

// Series is an ordered collection of observations
type Series []Observation

// Values extracts just the values from the series
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, o := range s {
		values[i] = o.Value
	}
	return values
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s)
}

// FromValues builds a series from raw values, stamping each one
// step milliseconds after start.
func FromValues(values []float64, start, step int64) Series {
	series := make(Series, len(values))
	for i, v := range values {
		series[i] = Observation{Value: v, Timestamp: start + int64(i)*step}
	}
	return series
}

// Status tags the outcome of an analytics operation so callers can tell
// "nothing found" apart from "could not compute".
type Status string

const (
	StatusOK                  Status = "ok"
	StatusInsufficientData    Status = "insufficient_data"
	StatusNoVariance          Status = "no_variance"
	StatusInsufficientHistory Status = "insufficient_history"
	StatusError               Status = "error"
)

// OK reports whether the status represents a computed result
func (s Status) OK() bool {
	return s == StatusOK
}

package models

import (
	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/analytics/forecast"
	"github.com/soltixdb/tsinsight/internal/analytics/stats"
	"github.com/soltixdb/tsinsight/internal/analytics/trend"
	"github.com/soltixdb/tsinsight/internal/profiles"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// StatsResponse wraps a distribution summary. Summary is nil unless
// Status is ok.
type StatsResponse struct {
	Status  analytics.Status `json:"status"`
	Summary *stats.Summary   `json:"summary,omitempty"`
}

// TrendResponse combines the trend fit with seasonality and cycle detection
type TrendResponse struct {
	Trend       trend.Result      `json:"trend"`
	Seasonality trend.Seasonality `json:"seasonality"`
	Cycle       trend.Cycle       `json:"cycle"`
	Profile     string            `json:"profile,omitempty"`
}

// ForecastResponse wraps a forecast result
type ForecastResponse struct {
	forecast.Result
	Profile string `json:"profile,omitempty"`
}

// DetectResponse wraps a detection result
type DetectResponse struct {
	anomaly.Result
	Series  string `json:"series,omitempty"`
	Profile string `json:"profile,omitempty"`
}

// HistoryResponse lists detection records, oldest first
type HistoryResponse struct {
	Series  string                    `json:"series,omitempty"`
	Records []anomaly.DetectionRecord `json:"records"`
	Count   int                       `json:"count"`
	Total   int                       `json:"total"` // Records retained by the detector
}

// SeriesListResponse lists the series with a detector
type SeriesListResponse struct {
	Series []string `json:"series"`
	Count  int      `json:"count"`
}

// MethodsResponse lists the registered analysis methods
type MethodsResponse struct {
	Anomaly  []string `json:"anomaly"`
	Forecast []string `json:"forecast"`
}

// ProfileListResponse represents list profiles response
type ProfileListResponse struct {
	Profiles []*profiles.Profile `json:"profiles"`
	Count    int                 `json:"count"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

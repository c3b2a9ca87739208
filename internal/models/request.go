package models

import (
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/analytics/forecast"
	"github.com/soltixdb/tsinsight/internal/analytics/trend"
	"github.com/soltixdb/tsinsight/internal/utils"
)

// SeriesInput carries the series under analysis, either as bare values or
// as timestamped observations. Observations win when both are set.
type SeriesInput struct {
	Values       []interface{}           `json:"values,omitempty"` // Numbers or numeric strings
	Observations []analytics.Observation `json:"observations,omitempty"`
}

// Resolve returns the input as a series. Bare values are stamped with
// their index as timestamp. maxObservations <= 0 disables the size check.
func (in *SeriesInput) Resolve(maxObservations int) (analytics.Series, error) {
	var series analytics.Series

	if len(in.Observations) > 0 {
		series = in.Observations
		for i, o := range series {
			if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
				return nil, &fiber.Error{
					Code:    fiber.StatusBadRequest,
					Message: fmt.Sprintf("observations[%d].value is not a finite number", i),
				}
			}
		}
	} else {
		values, err := utils.ToFloat64Slice(in.Values)
		if err != nil {
			return nil, &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: fmt.Sprintf("invalid values: %v", err),
			}
		}
		series = analytics.FromValues(values, 0, 1)
	}

	if maxObservations > 0 && len(series) > maxObservations {
		return nil, &fiber.Error{
			Code:    fiber.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("too many observations: %d (limit %d)", len(series), maxObservations),
		}
	}
	return series, nil
}

// StatsRequest asks for a distribution summary
type StatsRequest struct {
	SeriesInput
}

// TrendRequest asks for a linear trend fit plus seasonality and cycle detection
type TrendRequest struct {
	SeriesInput
	Profile string `json:"profile,omitempty"` // Named profile supplying trend thresholds
}

// ForecastRequest asks for future values
type ForecastRequest struct {
	SeriesInput
	Periods int    `json:"periods"` // Number of periods to forecast (default: 7)
	Method  string `json:"method"`  // trend, moving_average, exponential_smoothing (default: trend)
	Profile string `json:"profile,omitempty"`
}

// DetectRequest asks for batch anomaly detection. When Series is set the
// anomalies are recorded in that series' detector history.
type DetectRequest struct {
	SeriesInput
	Method  string `json:"method"` // statistical, zscore, percentile, iqr (default: statistical)
	Profile string `json:"profile,omitempty"`
	Series  string `json:"series,omitempty"`
}

// RealTimeRequest scores observations against a series' detection history
type RealTimeRequest struct {
	SeriesInput
}

// ProfileRequest is the body of PUT /v1/profiles/:name
type ProfileRequest struct {
	Description string          `json:"description,omitempty"`
	Anomaly     anomaly.Config  `json:"anomaly"`
	Trend       trend.Config    `json:"trend"`
	Forecast    forecast.Config `json:"forecast"`
}

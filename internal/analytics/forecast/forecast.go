// Package forecast projects future values of a series using simple
// first-pass heuristics: linear trend extrapolation, moving average and
// single exponential smoothing.
package forecast

import (
	"fmt"
	"math"
	"sort"

	"github.com/soltixdb/tsinsight/internal/analytics"
)

const (
	MethodTrend                = "trend"
	MethodMovingAverage        = "moving_average"
	MethodExponentialSmoothing = "exponential_smoothing"
)

// Point is a single forecast prediction. Period is 1-based.
type Point struct {
	Period     int     `json:"period" yaml:"period"`
	Value      float64 `json:"value" yaml:"value"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ModelInfo contains metadata about the forecast model
type ModelInfo struct {
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	MAPE       float64                `json:"mape" yaml:"mape"` // Mean Absolute Percentage Error
	MAE        float64                `json:"mae" yaml:"mae"`   // Mean Absolute Error
	RMSE       float64                `json:"rmse" yaml:"rmse"` // Root Mean Squared Error
	DataPoints int                    `json:"data_points" yaml:"data_points"`
}

// Result contains the forecast points and model information
type Result struct {
	Method    string           `json:"method" yaml:"method"`
	Points    []Point          `json:"points" yaml:"points"`
	Status    analytics.Status `json:"status" yaml:"status"`
	ModelInfo *ModelInfo       `json:"model_info,omitempty" yaml:"model_info,omitempty"`
}

// Config holds configuration for forecasting
type Config struct {
	// Window for the moving average method
	Window int `json:"window" yaml:"window"`
	// Smoothing factor for exponential smoothing (0-1]
	Alpha float64 `json:"alpha" yaml:"alpha"`
	// Fixed confidence for trend forecasts. Zero means use the R² of the fit.
	TrendConfidence float64 `json:"trend_confidence" yaml:"trend_confidence"`
	// Fixed confidence for moving average forecasts
	MovingAverageConfidence float64 `json:"moving_average_confidence" yaml:"moving_average_confidence"`
	// Fixed confidence for exponential smoothing forecasts
	ExponentialSmoothingConfidence float64 `json:"exponential_smoothing_confidence" yaml:"exponential_smoothing_confidence"`
	// Upper bound on requested periods
	MaxPeriods int `json:"max_periods" yaml:"max_periods"`
}

// DefaultConfig returns default forecast configuration
func DefaultConfig() Config {
	return Config{
		Window:                         7,
		Alpha:                          0.3,
		TrendConfidence:                0,
		MovingAverageConfidence:        0.7,
		ExponentialSmoothingConfidence: 0.75,
		MaxPeriods:                     1000,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = d.Alpha
	}
	if c.MovingAverageConfidence <= 0 {
		c.MovingAverageConfidence = d.MovingAverageConfidence
	}
	if c.ExponentialSmoothingConfidence <= 0 {
		c.ExponentialSmoothingConfidence = d.ExponentialSmoothingConfidence
	}
	if c.MaxPeriods <= 0 {
		c.MaxPeriods = d.MaxPeriods
	}
	return c
}

// Forecaster interface for all forecasting methods
type Forecaster interface {
	// Name returns the method name
	Name() string
	// Forecast projects periods future values from a non-empty history
	Forecast(values []float64, periods int, config Config) Result
}

// Registry holds available forecasters
var forecasterRegistry = make(map[string]Forecaster)

// RegisterForecaster adds a forecaster to the registry
func RegisterForecaster(name string, forecaster Forecaster) {
	forecasterRegistry[name] = forecaster
}

// GetForecaster returns a forecaster by name
func GetForecaster(name string) (Forecaster, error) {
	if forecaster, ok := forecasterRegistry[name]; ok {
		return forecaster, nil
	}
	return nil, fmt.Errorf("unknown forecast method: %s", name)
}

// ListForecasters returns the sorted list of available method names
func ListForecasters() []string {
	names := make([]string, 0, len(forecasterRegistry))
	for name := range forecasterRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Forecast projects periods future values of values using method.
// An empty history is not an error: it yields an insufficient_data result.
func Forecast(values []float64, periods int, method string, config Config) (Result, error) {
	forecaster, err := GetForecaster(method)
	if err != nil {
		return Result{Method: method, Status: analytics.StatusError}, err
	}

	config = config.withDefaults()
	if periods <= 0 {
		return Result{Method: method, Status: analytics.StatusError}, fmt.Errorf("periods must be positive, got %d", periods)
	}
	if periods > config.MaxPeriods {
		return Result{Method: method, Status: analytics.StatusError}, fmt.Errorf("periods %d exceeds limit %d", periods, config.MaxPeriods)
	}

	if len(values) == 0 {
		return Result{Method: method, Points: []Point{}, Status: analytics.StatusInsufficientData}, nil
	}

	return forecaster.Forecast(values, periods, config), nil
}

// flat repeats value for every period
func flat(value, confidence float64, periods int) []Point {
	points := make([]Point, periods)
	for i := range points {
		points[i] = Point{Period: i + 1, Value: value, Confidence: confidence}
	}
	return points
}

// fitInfo computes in-sample error metrics
func fitInfo(actual, fitted []float64, params map[string]interface{}, n int) *ModelInfo {
	return &ModelInfo{
		Parameters: params,
		MAPE:       CalculateMAPE(actual, fitted),
		MAE:        CalculateMAE(actual, fitted),
		RMSE:       CalculateRMSE(actual, fitted),
		DataPoints: n,
	}
}

// CalculateMAPE calculates Mean Absolute Percentage Error
func CalculateMAPE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	count := 0
	for i := range actual {
		if actual[i] != 0 {
			sum += math.Abs((actual[i] - predicted[i]) / actual[i])
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return (sum / float64(count)) * 100
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

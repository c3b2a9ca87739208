package forecast

import (
	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/analytics/stats"
)

// MovingAverageForecaster repeats the mean of the last window values
type MovingAverageForecaster struct{}

// NewMovingAverageForecaster creates a new moving average forecaster
func NewMovingAverageForecaster() *MovingAverageForecaster {
	return &MovingAverageForecaster{}
}

func init() {
	RegisterForecaster(MethodMovingAverage, NewMovingAverageForecaster())
}

// Name returns the method name
func (f *MovingAverageForecaster) Name() string {
	return MethodMovingAverage
}

// Forecast averages the trailing window (all values when shorter) and
// repeats it flat.
func (f *MovingAverageForecaster) Forecast(values []float64, periods int, config Config) Result {
	window := config.Window
	if window > len(values) {
		window = len(values)
	}

	value := stats.Mean(values[len(values)-window:])

	// One-step-ahead fit: each point predicted by the mean of the
	// window before it.
	var actual, fitted []float64
	for i := 1; i < len(values); i++ {
		start := i - window
		if start < 0 {
			start = 0
		}
		actual = append(actual, values[i])
		fitted = append(fitted, stats.Mean(values[start:i]))
	}

	return Result{
		Method:    MethodMovingAverage,
		Points:    flat(value, config.MovingAverageConfidence, periods),
		Status:    analytics.StatusOK,
		ModelInfo: fitInfo(actual, fitted, map[string]interface{}{"window": window}, len(values)),
	}
}

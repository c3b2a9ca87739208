package forecast

import (
	"github.com/soltixdb/tsinsight/internal/analytics"
)

// ExponentialSmoothingForecaster implements single exponential smoothing
type ExponentialSmoothingForecaster struct{}

// NewExponentialSmoothingForecaster creates a new exponential smoothing forecaster
func NewExponentialSmoothingForecaster() *ExponentialSmoothingForecaster {
	return &ExponentialSmoothingForecaster{}
}

func init() {
	RegisterForecaster(MethodExponentialSmoothing, NewExponentialSmoothingForecaster())
}

// Name returns the method name
func (f *ExponentialSmoothingForecaster) Name() string {
	return MethodExponentialSmoothing
}

// Forecast smooths the history in a single pass starting from s0 = x0 and
// repeats the final level flat.
func (f *ExponentialSmoothingForecaster) Forecast(values []float64, periods int, config Config) Result {
	alpha := config.Alpha
	smoothed := Smooth(values, alpha)
	level := smoothed[len(smoothed)-1]

	// Each observation is predicted by the level before it.
	actual := values[1:]
	fitted := smoothed[:len(smoothed)-1]

	return Result{
		Method:    MethodExponentialSmoothing,
		Points:    flat(level, config.ExponentialSmoothingConfidence, periods),
		Status:    analytics.StatusOK,
		ModelInfo: fitInfo(actual, fitted, map[string]interface{}{"alpha": alpha}, len(values)),
	}
}

// Smooth returns the smoothed level after every observation
func Smooth(values []float64, alpha float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	smoothed := make([]float64, len(values))
	smoothed[0] = values[0]
	for i := 1; i < len(values); i++ {
		smoothed[i] = alpha*values[i] + (1-alpha)*smoothed[i-1]
	}
	return smoothed
}

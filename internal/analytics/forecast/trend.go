package forecast

import (
	"math"

	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/analytics/trend"
)

// TrendForecaster extrapolates the least squares line fitted over the
// history index. Projected values are floored at zero.
type TrendForecaster struct{}

// NewTrendForecaster creates a new trend forecaster
func NewTrendForecaster() *TrendForecaster {
	return &TrendForecaster{}
}

func init() {
	RegisterForecaster(MethodTrend, NewTrendForecaster())
}

// Name returns the method name
func (f *TrendForecaster) Name() string {
	return MethodTrend
}

// Forecast projects indices n..n+periods-1 on the fitted line
func (f *TrendForecaster) Forecast(values []float64, periods int, config Config) Result {
	intercept, slope, r2, ok := trend.Line(values)
	if !ok {
		return Result{Method: MethodTrend, Points: []Point{}, Status: analytics.StatusInsufficientData}
	}

	confidence := r2
	if config.TrendConfidence > 0 {
		confidence = config.TrendConfidence
	}

	n := len(values)
	points := make([]Point, periods)
	for i := 0; i < periods; i++ {
		x := float64(n + i)
		points[i] = Point{
			Period:     i + 1,
			Value:      math.Max(0, intercept+slope*x),
			Confidence: confidence,
		}
	}

	fitted := make([]float64, n)
	for i := range values {
		fitted[i] = intercept + slope*float64(i)
	}

	return Result{
		Method: MethodTrend,
		Points: points,
		Status: analytics.StatusOK,
		ModelInfo: fitInfo(values, fitted, map[string]interface{}{
			"slope":     slope,
			"intercept": intercept,
			"r_squared": r2,
		}, n),
	}
}

package anomaly

import (
	"github.com/soltixdb/tsinsight/internal/analytics/stats"
)

// IQRDetector detects anomalies using Interquartile Range (IQR) method
// IQR is robust to outliers compared to Z-Score
// Anomalies are points outside [Q1 - k*IQR, Q3 + k*IQR] where k is typically 1.5
type IQRDetector struct{}

func init() {
	RegisterMethod(MethodIQR, &IQRDetector{})
}

// Name returns the algorithm name
func (d *IQRDetector) Name() string {
	return MethodIQR
}

// Detect finds anomalies using IQR fences
func (d *IQRDetector) Detect(values []float64, config Config) []Finding {
	lower, upper := stats.OutlierBounds(values, config.IQRMultiplier)
	spread := stats.IQR(values)

	var results []Finding
	for i, v := range values {
		if f, ok := boundFinding(i, v, lower, upper, spread, config); ok {
			results = append(results, f)
		}
	}
	return results
}

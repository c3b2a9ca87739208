package anomaly

import (
	"github.com/soltixdb/tsinsight/internal/analytics/stats"
)

// PercentileDetector flags values outside the [lower, upper] percentile band
type PercentileDetector struct{}

func init() {
	RegisterMethod(MethodPercentile, &PercentileDetector{})
}

// Name returns the algorithm name
func (d *PercentileDetector) Name() string {
	return MethodPercentile
}

// Detect finds anomalies outside the percentile band. Percentile ranks are
// clamped so short inputs always index a valid element.
func (d *PercentileDetector) Detect(values []float64, config Config) []Finding {
	sorted := stats.Sorted(values)
	lower := stats.PercentileSorted(sorted, config.LowerPercentile)
	upper := stats.PercentileSorted(sorted, config.UpperPercentile)
	spread := upper - lower

	var results []Finding
	for i, v := range values {
		if f, ok := boundFinding(i, v, lower, upper, spread, config); ok {
			results = append(results, f)
		}
	}
	return results
}

package trend

import (
	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/analytics/stats"
)

// Seasonality describes the weekly pattern found by bucketing values by
// index modulo the seasonal period.
type Seasonality struct {
	Detected   bool             `json:"detected" yaml:"detected"`
	PeakDay    int              `json:"peak_day" yaml:"peak_day"`
	LowDay     int              `json:"low_day" yaml:"low_day"`
	Amplitude  float64          `json:"amplitude" yaml:"amplitude"`
	BucketMean []float64        `json:"bucket_mean,omitempty" yaml:"bucket_mean,omitempty"`
	Status     analytics.Status `json:"status" yaml:"status"`
}

// DetectWeeklySeasonality groups values by index % period and reports the
// peak and low buckets. Nothing is reported unless every bucket has data.
func (a *Analyzer) DetectWeeklySeasonality(values []float64) Seasonality {
	period := a.config.SeasonalPeriod
	if len(values) < period {
		return Seasonality{Status: analytics.StatusInsufficientData}
	}

	buckets := make([][]float64, period)
	for i, v := range values {
		buckets[i%period] = append(buckets[i%period], v)
	}

	means := make([]float64, period)
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			return Seasonality{Status: analytics.StatusInsufficientData}
		}
		means[i] = stats.Mean(bucket)
	}

	peak, low := 0, 0
	for i := 1; i < period; i++ {
		if means[i] > means[peak] {
			peak = i
		}
		if means[i] < means[low] {
			low = i
		}
	}

	return Seasonality{
		Detected:   true,
		PeakDay:    peak,
		LowDay:     low,
		Amplitude:  means[peak] - means[low],
		BucketMean: means,
		Status:     analytics.StatusOK,
	}
}

// Cycle is a repeating pattern found by autocorrelation
type Cycle struct {
	Detected bool             `json:"detected" yaml:"detected"`
	Period   int              `json:"period,omitempty" yaml:"period,omitempty"`
	Strength float64          `json:"strength,omitempty" yaml:"strength,omitempty"`
	Status   analytics.Status `json:"status" yaml:"status"`
}

// DetectCycle scans lags 2..min(n/2, MaxLag) and reports the lag with the
// highest autocorrelation, provided it reaches MinCycleStrength.
func (a *Analyzer) DetectCycle(values []float64) Cycle {
	n := len(values)
	if n < 4 {
		return Cycle{Status: analytics.StatusInsufficientData}
	}

	maxLag := n / 2
	if maxLag > a.config.MaxLag {
		maxLag = a.config.MaxLag
	}

	mean := stats.Mean(values)
	denominator := 0.0
	for _, v := range values {
		d := v - mean
		denominator += d * d
	}
	if denominator == 0 {
		return Cycle{Status: analytics.StatusNoVariance}
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := 2; lag <= maxLag; lag++ {
		numerator := 0.0
		for i := lag; i < n; i++ {
			numerator += (values[i] - mean) * (values[i-lag] - mean)
		}
		corr := numerator / denominator
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 || bestCorr < a.config.MinCycleStrength {
		return Cycle{Status: analytics.StatusOK}
	}

	return Cycle{
		Detected: true,
		Period:   bestLag,
		Strength: bestCorr,
		Status:   analytics.StatusOK,
	}
}

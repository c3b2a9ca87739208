package services

import (
	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/analytics/forecast"
	"github.com/soltixdb/tsinsight/internal/analytics/trend"
	"github.com/soltixdb/tsinsight/internal/config"
)

// AnomalyConfig converts the configured thresholds to a detector config
func AnomalyConfig(c config.AnomalyAnalyticConfig) anomaly.Config {
	return anomaly.Config{
		ZThreshold:         c.ZThreshold,
		CriticalZ:          c.CriticalZ,
		HighZ:              c.HighZ,
		LowerPercentile:    c.LowerPercentile,
		UpperPercentile:    c.UpperPercentile,
		IQRMultiplier:      c.IQRMultiplier,
		MinDataPoints:      c.MinDataPoints,
		HistoryCapacity:    c.HistoryCapacity,
		RealTimeWindow:     c.RealTimeWindow,
		RealTimeMinHistory: c.RealTimeMinHistory,
		MaxScore:           c.MaxScore,
	}
}

// TrendConfig converts the configured thresholds to an analyzer config
func TrendConfig(c config.TrendAnalyticConfig) trend.Config {
	return trend.Config{
		IncreasingThreshold: c.IncreasingThreshold,
		DecreasingThreshold: c.DecreasingThreshold,
		SeasonalPeriod:      c.SeasonalPeriod,
		MaxLag:              c.MaxLag,
		MinCycleStrength:    c.MinCycleStrength,
	}
}

// ForecastConfig converts the configured settings to a forecaster config
func ForecastConfig(c config.ForecastAnalyticConfig) forecast.Config {
	return forecast.Config{
		Window:                         c.Window,
		Alpha:                          c.Alpha,
		TrendConfidence:                c.TrendConfidence,
		MovingAverageConfidence:        c.MovingAverageConfidence,
		ExponentialSmoothingConfidence: c.ExponentialSmoothingConfidence,
		MaxPeriods:                     c.MaxPeriods,
	}
}

// mergeAnomaly overlays the non-zero fields of override on base
func mergeAnomaly(base, override anomaly.Config) anomaly.Config {
	if override.ZThreshold > 0 {
		base.ZThreshold = override.ZThreshold
	}
	if override.CriticalZ > 0 {
		base.CriticalZ = override.CriticalZ
	}
	if override.HighZ > 0 {
		base.HighZ = override.HighZ
	}
	if override.LowerPercentile > 0 {
		base.LowerPercentile = override.LowerPercentile
	}
	if override.UpperPercentile > 0 {
		base.UpperPercentile = override.UpperPercentile
	}
	if override.IQRMultiplier > 0 {
		base.IQRMultiplier = override.IQRMultiplier
	}
	if override.MinDataPoints > 0 {
		base.MinDataPoints = override.MinDataPoints
	}
	if override.RealTimeWindow > 0 {
		base.RealTimeWindow = override.RealTimeWindow
	}
	if override.RealTimeMinHistory > 0 {
		base.RealTimeMinHistory = override.RealTimeMinHistory
	}
	if override.MaxScore > 0 {
		base.MaxScore = override.MaxScore
	}
	return base
}

// mergeTrend overlays the non-zero fields of override on base. The two
// direction thresholds are taken as a pair.
func mergeTrend(base, override trend.Config) trend.Config {
	if override.IncreasingThreshold != 0 || override.DecreasingThreshold != 0 {
		base.IncreasingThreshold = override.IncreasingThreshold
		base.DecreasingThreshold = override.DecreasingThreshold
	}
	if override.SeasonalPeriod > 1 {
		base.SeasonalPeriod = override.SeasonalPeriod
	}
	if override.MaxLag > 1 {
		base.MaxLag = override.MaxLag
	}
	if override.MinCycleStrength > 0 {
		base.MinCycleStrength = override.MinCycleStrength
	}
	return base
}

// mergeForecast overlays the non-zero fields of override on base
func mergeForecast(base, override forecast.Config) forecast.Config {
	if override.Window > 0 {
		base.Window = override.Window
	}
	if override.Alpha > 0 {
		base.Alpha = override.Alpha
	}
	if override.TrendConfidence > 0 {
		base.TrendConfidence = override.TrendConfidence
	}
	if override.MovingAverageConfidence > 0 {
		base.MovingAverageConfidence = override.MovingAverageConfidence
	}
	if override.ExponentialSmoothingConfidence > 0 {
		base.ExponentialSmoothingConfidence = override.ExponentialSmoothingConfidence
	}
	if override.MaxPeriods > 0 {
		base.MaxPeriods = override.MaxPeriods
	}
	return base
}

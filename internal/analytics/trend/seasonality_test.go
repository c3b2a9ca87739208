package trend

import (
	"math"
	"testing"

	"github.com/soltixdb/tsinsight/internal/analytics"
)

func weeklyPattern(weeks int) []float64 {
	pattern := []float64{10, 12, 14, 30, 14, 12, 5}
	values := make([]float64, 0, weeks*len(pattern))
	for w := 0; w < weeks; w++ {
		values = append(values, pattern...)
	}
	return values
}

func TestDetectWeeklySeasonality(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	result := analyzer.DetectWeeklySeasonality(weeklyPattern(4))
	if !result.Detected {
		t.Fatalf("expected seasonality to be detected, got %+v", result)
	}
	if result.PeakDay != 3 {
		t.Errorf("expected peak day 3, got %d", result.PeakDay)
	}
	if result.LowDay != 6 {
		t.Errorf("expected low day 6, got %d", result.LowDay)
	}
	if math.Abs(result.Amplitude-25) > 1e-9 {
		t.Errorf("expected amplitude 25, got %v", result.Amplitude)
	}
	if len(result.BucketMean) != 7 {
		t.Errorf("expected 7 bucket means, got %d", len(result.BucketMean))
	}
}

func TestDetectWeeklySeasonality_RequiresAllBuckets(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	result := analyzer.DetectWeeklySeasonality([]float64{1, 2, 3, 4, 5, 6})
	if result.Detected {
		t.Error("six values cannot populate seven buckets")
	}
	if result.Status != analytics.StatusInsufficientData {
		t.Errorf("expected insufficient_data, got %s", result.Status)
	}

	result = analyzer.DetectWeeklySeasonality([]float64{1, 2, 3, 4, 5, 6, 7})
	if !result.Detected {
		t.Error("seven values populate every bucket")
	}
}

func TestDetectCycle(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	values := make([]float64, 48)
	for i := range values {
		values[i] = 100 + 10*math.Sin(2*math.Pi*float64(i)/6)
	}

	cycle := analyzer.DetectCycle(values)
	if !cycle.Detected {
		t.Fatalf("expected a cycle, got %+v", cycle)
	}
	if cycle.Period != 6 {
		t.Errorf("expected period 6, got %d", cycle.Period)
	}
	if cycle.Strength < 0.3 || cycle.Strength > 1 {
		t.Errorf("unexpected strength %v", cycle.Strength)
	}
}

func TestDetectCycle_EdgeCases(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	if c := analyzer.DetectCycle([]float64{1, 2}); c.Status != analytics.StatusInsufficientData {
		t.Errorf("expected insufficient_data, got %s", c.Status)
	}
	if c := analyzer.DetectCycle([]float64{3, 3, 3, 3, 3, 3}); c.Status != analytics.StatusNoVariance {
		t.Errorf("expected no_variance, got %s", c.Status)
	}
	if c := analyzer.DetectCycle([]float64{1, 2, 3, 4, 5, 6, 7, 8}); c.Detected {
		t.Errorf("a straight line has no cycle above threshold at lag >= 2, got %+v", c)
	}
}

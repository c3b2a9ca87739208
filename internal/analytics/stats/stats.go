// Package stats implements the statistics core shared by the trend,
// forecast and anomaly packages: mean, population standard deviation,
// rank percentiles and IQR outlier bounds.
//
// All functions are pure. Empty input never panics; scalar functions
// return NaN and callers are expected to guard on length.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultIQRMultiplier is the Tukey fence multiplier used when callers
// do not supply one.
const DefaultIQRMultiplier = 1.5

// Mean returns the arithmetic mean, or NaN for empty input
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// StdDev returns the population standard deviation, or NaN for empty input
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	_, std := stat.PopMeanStdDev(xs, nil)
	return std
}

// MeanStdDev returns mean and population standard deviation in one pass.
// Both are NaN for empty input.
func MeanStdDev(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	if len(xs) == 1 {
		return xs[0], 0
	}
	return stat.PopMeanStdDev(xs, nil)
}

// ZScore returns how many standard deviations x lies from mean.
// Zero spread yields 0.
func ZScore(x, mean, std float64) float64 {
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (x - mean) / std
}

// Sorted returns an ascending copy of xs
func Sorted(xs []float64) []float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return sorted
}

// Percentile returns the element at rank floor(len*p) of the sorted input.
// There is no interpolation between ranks. The rank is clamped to the
// valid range so p=1 returns the maximum.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return PercentileSorted(Sorted(xs), p)
}

// PercentileSorted is Percentile for input that is already sorted ascending
func PercentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	return sorted[rank(len(sorted), p)]
}

func rank(n int, p float64) int {
	idx := int(math.Floor(float64(n) * p))
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

// Quartiles returns Q1 and Q3 using the percentile ranking rule
func Quartiles(xs []float64) (q1, q3 float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := Sorted(xs)
	return PercentileSorted(sorted, 0.25), PercentileSorted(sorted, 0.75)
}

// IQR returns the interquartile range Q3 - Q1
func IQR(xs []float64) float64 {
	q1, q3 := Quartiles(xs)
	return q3 - q1
}

// OutlierBounds returns the Tukey fences [Q1 - k*IQR, Q3 + k*IQR].
// A non-positive k falls back to DefaultIQRMultiplier.
func OutlierBounds(xs []float64, k float64) (lower, upper float64) {
	if k <= 0 {
		k = DefaultIQRMultiplier
	}
	q1, q3 := Quartiles(xs)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// Summary describes the distribution of a sample
type Summary struct {
	Count  int     `json:"count" yaml:"count"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	P5     float64 `json:"p5" yaml:"p5"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95" yaml:"p95"`
	Q1     float64 `json:"q1" yaml:"q1"`
	Q3     float64 `json:"q3" yaml:"q3"`
	IQR    float64 `json:"iqr" yaml:"iqr"`
}

// Summarize computes a Summary. ok is false for empty input, in which
// case the zero Summary is returned.
func Summarize(xs []float64) (Summary, bool) {
	if len(xs) == 0 {
		return Summary{}, false
	}

	sorted := Sorted(xs)
	mean, std := MeanStdDev(xs)
	q1 := PercentileSorted(sorted, 0.25)
	q3 := PercentileSorted(sorted, 0.75)

	return Summary{
		Count:  len(xs),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		StdDev: std,
		P5:     PercentileSorted(sorted, 0.05),
		Median: PercentileSorted(sorted, 0.5),
		P95:    PercentileSorted(sorted, 0.95),
		Q1:     q1,
		Q3:     q3,
		IQR:    q3 - q1,
	}, true
}

package anomaly

import (
	"math"
)

const roundingTolerance = 1e-9

// minZScorePoints leaves at least two reference points with possible spread
const minZScorePoints = 3

// ZScoreDetector flags points whose |z| exceeds the threshold.
//
// Each point is scored against the mean and population standard deviation
// of the remaining points. With the point included, a lone outlier in n
// samples can never score above sqrt(n-1) and would hide in short series.
type ZScoreDetector struct {
	name string
}

func init() {
	RegisterMethod(MethodStatistical, &ZScoreDetector{name: MethodStatistical})
	RegisterMethod(MethodZScore, &ZScoreDetector{name: MethodZScore})
}

// Name returns the algorithm name
func (z *ZScoreDetector) Name() string {
	return z.name
}

// MinPoints returns the shortest input leave-one-out scoring accepts
func (z *ZScoreDetector) MinPoints() int {
	return minZScorePoints
}

// Detect finds anomalies using leave-one-out z-scores
func (z *ZScoreDetector) Detect(values []float64, config Config) []Finding {
	n := float64(len(values))
	if len(values) < minZScorePoints {
		return nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	var results []Finding
	for i, v := range values {
		// Remove v from the running moments
		restMean := (sum - v) / (n - 1)
		diff := v - mean
		restSumSq := sumSq - diff*diff*n/(n-1)
		if restSumSq < 0 {
			restSumSq = 0
		}
		restStd := math.Sqrt(restSumSq / (n - 1))

		score := zScore(v, restMean, restStd, config.MaxScore)
		if score <= config.ZThreshold {
			continue
		}

		anomalyType := AnomalyTypeSpike
		if v < restMean {
			anomalyType = AnomalyTypeDrop
		}

		results = append(results, Finding{
			Index:    i,
			Score:    score,
			Severity: zSeverity(score, config),
			Type:     anomalyType,
			Expected: &Range{
				Min: restMean - config.ZThreshold*restStd,
				Max: restMean + config.ZThreshold*restStd,
			},
		})
	}

	return results
}

// zScore returns |v-mean|/std capped at maxScore. Any deviation from a
// zero-spread reference scores maxScore. Deviations within rounding error
// of the mean score zero.
func zScore(v, mean, std, maxScore float64) float64 {
	deviation := math.Abs(v - mean)
	if deviation <= roundingTolerance*math.Max(1, math.Abs(mean)) {
		return 0
	}
	if std == 0 || deviation/std > maxScore {
		return maxScore
	}
	return deviation / std
}

// zSeverity maps |z| to severity: above CriticalZ is critical, above HighZ
// is high, anything else that was flagged is medium.
func zSeverity(score float64, config Config) Severity {
	switch {
	case score > config.CriticalZ:
		return SeverityCritical
	case score > config.HighZ:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

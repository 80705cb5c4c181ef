package motion

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	ScoredFreeFallConfidence = 0.8
	ScoredImpactConfidence   = 0.9
	SuddenMovementConfidence = 0.7

	// FallProbabilityThreshold must be exceeded by the combined
	// probability before a scored fall is emitted.
	FallProbabilityThreshold = 0.95
)

// HistoryStats are the aggregates the threshold scorer works from.
type HistoryStats struct {
	AvgAcc float64
	VarAcc float64
	AvgGyr float64
	VarGyr float64
}

// Summarize computes the mean and population variance of both signals.
func Summarize(acc, gyr []float64) HistoryStats {
	var st HistoryStats
	if len(acc) > 0 {
		st.AvgAcc, st.VarAcc = stat.PopMeanVariance(acc, nil)
	}
	if len(gyr) > 0 {
		st.AvgGyr, st.VarGyr = stat.PopMeanVariance(gyr, nil)
	}
	return st
}

// ThresholdResult is the outcome of one threshold scorer evaluation. Every
// rule is evaluated independently.
type ThresholdResult struct {
	Stats HistoryStats

	FreeFall       bool
	Impact         bool
	SuddenMovement bool
	Probability    float64
}

// ScoreThresholds evaluates the free-fall, impact, sudden movement and
// combined probability rules over st.
func ScoreThresholds(st HistoryStats) ThresholdResult {
	return ThresholdResult{
		Stats:          st,
		FreeFall:       st.AvgAcc < 1.0 && st.VarAcc < 0.5,
		Impact:         st.AvgAcc > 40.0 && st.VarAcc > 25.0,
		SuddenMovement: st.AvgGyr > 40.0 || st.VarGyr > 120.0,
		Probability:    FallProbability(st),
	}
}

// FallProbability is the weighted rule sum, clamped to at most 1. The
// avgAcc terms are mutually exclusive, so the sum never exceeds 0.7.
func FallProbability(st HistoryStats) float64 {
	pts := 0
	if st.AvgAcc < 1.5 {
		pts += 3
	}
	if st.AvgAcc > 40.0 {
		pts += 4
	}
	if st.AvgGyr > 25.0 {
		pts += 2
	}
	if st.VarAcc > 15.0 && st.VarGyr > 50.0 {
		pts += 1
	}
	return math.Min(float64(pts)/10, 1.0)
}

// Events lists the emissions for r, in rule order.
func (r ThresholdResult) Events(at time.Time) []Event {
	var out []Event
	if r.FreeFall {
		out = append(out, Event{Type: EventScoredFall, Confidence: ScoredFreeFallConfidence, At: at})
	}
	if r.Impact {
		out = append(out, Event{Type: EventScoredFall, Confidence: ScoredImpactConfidence, At: at})
	}
	if r.SuddenMovement {
		out = append(out, Event{Type: EventMotionClassified, Kind: KindSuddenMovement, Confidence: SuddenMovementConfidence, At: at})
	}
	if r.Probability > FallProbabilityThreshold {
		out = append(out, Event{Type: EventScoredFall, Confidence: r.Probability, At: at})
	}
	return out
}

package motion

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PatternWindowSize is the number of records the pattern classifier looks at.
const PatternWindowSize = 20

// MotionRecord pairs an acceleration reading with the most recent gyroscope
// reading at the time it arrived.
type MotionRecord struct {
	Accel Vector3
	Gyro  Vector3
	Time  time.Time
}

type FeatureVector struct {
	AvgAcceleration      float64
	MaxAcceleration      float64
	AccelerationVariance float64
	AccelerationJerk     float64

	AvgGyroscope      float64
	MaxGyroscope      float64
	GyroscopeVariance float64

	// Duration is in seconds.
	Duration float64
	// Frequency is records per second, or 0 when Duration is 0.
	Frequency float64

	DirectionChange   float64
	RotationIntensity float64
}

// ExtractFeatures computes the feature vector over records, oldest first.
func ExtractFeatures(records []MotionRecord) FeatureVector {
	var f FeatureVector
	n := len(records)
	if n == 0 {
		return f
	}

	acc := make([]float64, n)
	gyr := make([]float64, n)
	for i, r := range records {
		acc[i] = r.Accel.Magnitude()
		gyr[i] = r.Gyro.Magnitude()
	}

	f.AvgAcceleration, f.AccelerationVariance = stat.PopMeanVariance(acc, nil)
	f.MaxAcceleration = floats.Max(acc)
	f.AccelerationJerk = meanAbsDiff(acc)

	f.AvgGyroscope, f.GyroscopeVariance = stat.PopMeanVariance(gyr, nil)
	f.MaxGyroscope = floats.Max(gyr)

	if n >= 2 {
		f.Duration = records[n-1].Time.Sub(records[0].Time).Seconds()
	}
	if f.Duration != 0 {
		f.Frequency = float64(n) / f.Duration
	}

	f.DirectionChange = directionChangeRatio(acc)
	f.RotationIntensity = f.AvgGyroscope
	return f
}

func meanAbsDiff(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(x); i++ {
		sum += math.Abs(x[i] - x[i-1])
	}
	return sum / float64(len(x)-1)
}

// directionChangeRatio is the share of interior points that are strict
// local extrema.
func directionChangeRatio(x []float64) float64 {
	if len(x) < 3 {
		return 0
	}
	changes := 0
	for i := 2; i < len(x); i++ {
		a, b, c := x[i-2], x[i-1], x[i]
		if (b > a && b > c) || (b < a && b < c) {
			changes++
		}
	}
	return float64(changes) / float64(len(x)-2)
}

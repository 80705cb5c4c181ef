package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func alternatingWindow(n int) []MotionRecord {
	out := make([]MotionRecord, n)
	for i := range out {
		z := 10.0
		if i%2 == 1 {
			z = 20
		}
		out[i] = MotionRecord{
			Accel: Vector3{Z: z},
			Gyro:  Vector3{X: 3},
			Time:  at(i * 50),
		}
	}
	return out
}

func TestExtractFeatures(t *testing.T) {
	f := ExtractFeatures(alternatingWindow(20))

	assert.InDelta(t, 15.0, f.AvgAcceleration, 1e-9)
	assert.InDelta(t, 20.0, f.MaxAcceleration, 1e-9)
	assert.InDelta(t, 25.0, f.AccelerationVariance, 1e-9)
	assert.InDelta(t, 10.0, f.AccelerationJerk, 1e-9)

	assert.InDelta(t, 3.0, f.AvgGyroscope, 1e-9)
	assert.InDelta(t, 3.0, f.MaxGyroscope, 1e-9)
	assert.InDelta(t, 0.0, f.GyroscopeVariance, 1e-9)

	assert.InDelta(t, 0.95, f.Duration, 1e-9)
	assert.InDelta(t, 20/0.95, f.Frequency, 1e-9)
	assert.InDelta(t, 1.0, f.DirectionChange, 1e-9)
	assert.Equal(t, f.AvgGyroscope, f.RotationIntensity)
}

func TestExtractFeaturesDirectionChangeNeedsStrictExtrema(t *testing.T) {
	recs := make([]MotionRecord, 5)
	for i, z := range []float64{1, 2, 2, 1, 3} {
		recs[i] = MotionRecord{Accel: Vector3{Z: z}, Time: at(i * 50)}
	}
	// Only index 3 (value 1 between 2 and 3) is a strict extremum.
	f := ExtractFeatures(recs)
	assert.InDelta(t, 1.0/3.0, f.DirectionChange, 1e-9)
}

func TestExtractFeaturesZeroDuration(t *testing.T) {
	recs := alternatingWindow(20)
	for i := range recs {
		recs[i].Time = t0
	}
	f := ExtractFeatures(recs)
	assert.Zero(t, f.Duration)
	assert.Zero(t, f.Frequency)
}

func TestExtractFeaturesEmptyAndShort(t *testing.T) {
	assert.Equal(t, FeatureVector{}, ExtractFeatures(nil))

	f := ExtractFeatures([]MotionRecord{{Accel: Vector3{Z: 9}, Time: t0}})
	assert.InDelta(t, 9.0, f.AvgAcceleration, 1e-12)
	assert.Zero(t, f.AccelerationJerk)
	assert.Zero(t, f.DirectionChange)
	assert.Zero(t, f.Frequency)
}

func TestExtractFeaturesDurationIsSeconds(t *testing.T) {
	recs := []MotionRecord{{Time: t0}, {Time: t0.Add(2500 * time.Millisecond)}}
	f := ExtractFeatures(recs)
	assert.InDelta(t, 2.5, f.Duration, 1e-12)
	assert.InDelta(t, 0.8, f.Frequency, 1e-12)
}

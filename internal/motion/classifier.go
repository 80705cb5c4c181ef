package motion

import "math"

type PatternKind int

const (
	PatternNormal PatternKind = iota
	PatternFall
	PatternShake
)

func (k PatternKind) String() string {
	switch k {
	case PatternFall:
		return "fall"
	case PatternShake:
		return "shake"
	default:
		return "normal"
	}
}

// FallPatternThreshold is the fall confidence above which a dedicated
// fall-pattern event is raised.
const FallPatternThreshold = 0.75

type Classification struct {
	Kind       PatternKind
	Confidence float64
}

// PatternScores holds the three competing hypothesis scores, each in [0,1].
type PatternScores struct {
	Fall   float64
	Shake  float64
	Normal float64
}

// ScorePatterns adds rule weights as integer tenths so equal sums compare
// equal.
func ScorePatterns(f FeatureVector) PatternScores {
	var fall, shake, normal int

	if f.AvgAcceleration < 3.0 {
		fall += 3
	}
	if f.MaxAcceleration > 20.0 {
		fall += 4
	}
	if f.AccelerationVariance > 5.0 {
		fall += 2
	}
	if f.Duration < 2.0 {
		fall += 1
	}

	if f.Frequency > 10.0 {
		shake += 3
	}
	if f.DirectionChange > 0.3 {
		shake += 3
	}
	if f.RotationIntensity > 5.0 {
		shake += 4
	}

	if f.AvgAcceleration >= 8.0 && f.AvgAcceleration <= 12.0 {
		normal += 4
	}
	if f.AccelerationVariance < 2.0 {
		normal += 3
	}
	if f.RotationIntensity < 2.0 {
		normal += 3
	}

	return PatternScores{
		Fall:   tenths(fall),
		Shake:  tenths(shake),
		Normal: tenths(normal),
	}
}

func tenths(n int) float64 { return clampConfidence(float64(n) / 10) }

// Classify picks fall only when it strictly beats both other scores, then
// shake when it strictly beats normal. Ties go to normal.
func Classify(f FeatureVector) Classification {
	s := ScorePatterns(f)
	switch {
	case s.Fall > s.Shake && s.Fall > s.Normal:
		return Classification{Kind: PatternFall, Confidence: s.Fall}
	case s.Shake > s.Normal:
		return Classification{Kind: PatternShake, Confidence: s.Shake}
	default:
		return Classification{Kind: PatternNormal, Confidence: s.Normal}
	}
}

func clampConfidence(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

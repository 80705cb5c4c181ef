package motion

import (
	"math"
	"time"
)

// Vector3 is a single three-axis reading. Acceleration is in m/s², angular
// velocity in rad/s.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

type SampleKind int

const (
	Acceleration SampleKind = iota
	AngularVelocity
)

func (k SampleKind) String() string {
	switch k {
	case Acceleration:
		return "accel"
	case AngularVelocity:
		return "gyro"
	default:
		return "unknown"
	}
}

// ParseSampleKind accepts the names produced by SampleKind.String.
func ParseSampleKind(s string) (SampleKind, bool) {
	switch s {
	case "accel", "a":
		return Acceleration, true
	case "gyro", "g":
		return AngularVelocity, true
	default:
		return 0, false
	}
}

// Sample is one raw sensor reading. Time should come from a monotonic
// source; only differences between sample times are used.
type Sample struct {
	Vector Vector3
	Time   time.Time
	Kind   SampleKind
}

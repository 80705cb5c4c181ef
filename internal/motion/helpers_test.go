package motion

import "time"

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func accel(ms int, x, y, z float64) Sample {
	return Sample{Kind: Acceleration, Time: at(ms), Vector: Vector3{X: x, Y: y, Z: z}}
}

func gyro(ms int, x, y, z float64) Sample {
	return Sample{Kind: AngularVelocity, Time: at(ms), Vector: Vector3{X: x, Y: y, Z: z}}
}

type recorder struct {
	events []Event
}

func (r *recorder) Emit(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) count(t EventType) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) kinds(t EventType) []string {
	var out []string
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev.Kind)
		}
	}
	return out
}

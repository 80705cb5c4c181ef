package motion

import "time"

const (
	ShakeThreshold = 35.0 // m/s², linear
	ShakeWindow    = 1200 * time.Millisecond
	MinShakeCount  = 4
)

// ShakeWindowDetector counts high-magnitude samples that arrive within
// ShakeWindow of each other and fires once MinShakeCount is reached.
// It is not safe for concurrent use.
type ShakeWindowDetector struct {
	sink    Sink
	gravity GravityFilter

	lastShake time.Time
	count     int
}

func NewShakeWindowDetector(sink Sink) *ShakeWindowDetector {
	return &ShakeWindowDetector{sink: sink}
}

func (d *ShakeWindowDetector) Process(s Sample) bool {
	if s.Kind != Acceleration {
		return false
	}
	m := d.gravity.Update(s.Vector).Magnitude()
	return d.Observe(s.Time, m)
}

// Observe feeds an already computed linear acceleration magnitude.
func (d *ShakeWindowDetector) Observe(now time.Time, m float64) bool {
	since := now.Sub(d.lastShake)
	if m > ShakeThreshold {
		if since < ShakeWindow {
			d.count++
		} else {
			d.count = 1
		}
		d.lastShake = now
		if d.count >= MinShakeCount {
			d.count = 0
			emit(d.sink, Event{Type: EventShake, Confidence: 1, At: now})
			return true
		}
		return false
	}
	if since > ShakeWindow {
		d.count = 0
	}
	return false
}

func (d *ShakeWindowDetector) Count() int { return d.count }

func (d *ShakeWindowDetector) Reset() {
	d.lastShake = time.Time{}
	d.count = 0
}

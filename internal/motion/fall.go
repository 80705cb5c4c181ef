package motion

import "time"

const (
	FreeFallThreshold = 1.0  // m/s², linear
	ImpactThreshold   = 45.0 // m/s², linear

	MinFreeFallDuration = 500 * time.Millisecond
	MaxFreeFallDuration = 1500 * time.Millisecond
)

// FallImpactDetector fires when a free-fall episode is closed by an impact
// between MinFreeFallDuration and MaxFreeFallDuration after it began.
// It is not safe for concurrent use.
type FallImpactDetector struct {
	sink    Sink
	gravity GravityFilter

	inFreeFall    bool
	freeFallStart time.Time
}

func NewFallImpactDetector(sink Sink) *FallImpactDetector {
	return &FallImpactDetector{sink: sink}
}

// Process runs one acceleration sample through the detector's own gravity
// filter. Other sample kinds are ignored.
func (d *FallImpactDetector) Process(s Sample) bool {
	if s.Kind != Acceleration {
		return false
	}
	m := d.gravity.Update(s.Vector).Magnitude()
	return d.Observe(s.Time, m)
}

// Observe advances the state machine with an already computed linear
// acceleration magnitude.
func (d *FallImpactDetector) Observe(now time.Time, m float64) bool {
	if m < FreeFallThreshold {
		if !d.inFreeFall {
			d.inFreeFall = true
			d.freeFallStart = now
		}
		return false
	}
	if !d.inFreeFall {
		return false
	}
	// Any non free-fall sample closes the episode.
	d.inFreeFall = false
	if !(m > ImpactThreshold) {
		return false
	}
	elapsed := now.Sub(d.freeFallStart)
	if elapsed < MinFreeFallDuration || elapsed > MaxFreeFallDuration {
		return false
	}
	emit(d.sink, Event{Type: EventFall, Confidence: 1, At: now})
	return true
}

func (d *FallImpactDetector) InFreeFall() bool { return d.inFreeFall }

// Reset forces the detector idle. The gravity estimate is kept.
func (d *FallImpactDetector) Reset() {
	d.inFreeFall = false
	d.freeFallStart = time.Time{}
}

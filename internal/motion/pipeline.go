package motion

import (
	"log"
	"time"
)

// DefaultMinInterval is the minimum spacing between accepted samples.
const DefaultMinInterval = 50 * time.Millisecond

type Options struct {
	// MinInterval <= 0 selects DefaultMinInterval.
	MinInterval time.Duration

	// Logf receives debug lines for scorer and classifier decisions. Nil
	// disables them.
	Logf func(format string, args ...any)
}

type PipelineStats struct {
	Accepted uint64
	Dropped  uint64
	// ClockResets counts samples stamped before the previously accepted
	// one. Each restarts the rate limiter.
	ClockResets uint64
}

// Pipeline routes raw samples through every detector and emits events to a
// single sink. Feed, Reset and the accessors must be called from one
// goroutine at a time.
type Pipeline struct {
	sink Sink
	opts Options

	fall    *FallImpactDetector
	shake   *ShakeWindowDetector
	history *MotionHistoryBuffer
	window  *Ring[MotionRecord]
	records []MotionRecord

	lastGyro     Vector3
	lastAccepted time.Time

	last    Classification
	hasLast bool
	stats   PipelineStats
}

func NewPipeline(sink Sink, opts Options) *Pipeline {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	return &Pipeline{
		sink:    sink,
		opts:    opts,
		fall:    NewFallImpactDetector(sink),
		shake:   NewShakeWindowDetector(sink),
		history: NewMotionHistoryBuffer(HistorySize),
		window:  NewRing[MotionRecord](PatternWindowSize),
		records: make([]MotionRecord, 0, PatternWindowSize),
	}
}

// Feed is the single ingestion point. A sample of either kind arriving
// sooner than MinInterval after the previously accepted sample is dropped
// before it reaches any detector. A sample stamped earlier than the
// previously accepted one starts a new stream.
func (p *Pipeline) Feed(s Sample) {
	if s.Kind != Acceleration && s.Kind != AngularVelocity {
		p.stats.Dropped++
		return
	}
	if last := p.lastAccepted; !last.IsZero() {
		d := s.Time.Sub(last)
		switch {
		case d < 0:
			p.stats.ClockResets++
			p.logf("motion: sample clock went back %s, restarting rate limiter", -d)
		case d < p.opts.MinInterval:
			p.stats.Dropped++
			return
		}
	}
	p.lastAccepted = s.Time
	p.stats.Accepted++

	switch s.Kind {
	case Acceleration:
		p.fall.Process(s)
		p.shake.Process(s)
		p.history.Push(s)
		p.window.Push(MotionRecord{Accel: s.Vector, Gyro: p.lastGyro, Time: s.Time})
		if p.window.Full() {
			p.classify(s.Time)
		}
	case AngularVelocity:
		p.lastGyro = s.Vector
		p.history.Push(s)
	}

	if p.history.Full() {
		p.score(s.Time)
	}
}

func (p *Pipeline) score(at time.Time) {
	res := ScoreThresholds(Summarize(p.history.Acceleration(), p.history.AngularVelocity()))
	for _, ev := range res.Events(at) {
		p.logf("motion: threshold %s kind=%s confidence=%.2f", ev.Type, ev.Kind, ev.Confidence)
		emit(p.sink, ev)
	}
}

func (p *Pipeline) classify(at time.Time) {
	p.records = p.window.AppendTo(p.records[:0])
	c := Classify(ExtractFeatures(p.records))
	p.last = c
	p.hasLast = true
	if c.Kind == PatternNormal {
		return
	}
	p.logf("motion: pattern kind=%s confidence=%.2f", c.Kind, c.Confidence)
	emit(p.sink, Event{Type: EventMotionClassified, Kind: c.Kind.String(), Confidence: c.Confidence, At: at})
	if c.Kind == PatternFall && c.Confidence > FallPatternThreshold {
		emit(p.sink, Event{Type: EventFallPattern, Kind: c.Kind.String(), Confidence: c.Confidence, At: at})
	}
}

// LastClassification returns the most recent pattern classification, if
// the record window has filled at least once since the last reset.
func (p *Pipeline) LastClassification() (Classification, bool) {
	return p.last, p.hasLast
}

func (p *Pipeline) Stats() PipelineStats { return p.stats }

// Reset clears every detector, buffer and the rate limiter. The sink and
// options are kept.
func (p *Pipeline) Reset() {
	p.fall.Reset()
	p.shake.Reset()
	p.fall.gravity.Reset()
	p.shake.gravity.Reset()
	p.history.Reset()
	p.window.Reset()
	p.lastGyro = Vector3{}
	p.lastAccepted = time.Time{}
	p.last = Classification{}
	p.hasLast = false
	p.stats = PipelineStats{}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.opts.Logf != nil {
		p.opts.Logf(format, args...)
	}
}

// StdLogf adapts the standard logger for Options.Logf.
func StdLogf(format string, args ...any) { log.Printf(format, args...) }

package motion

import "time"

type EventType int

const (
	// EventFall comes from the free-fall/impact state machine.
	EventFall EventType = iota + 1
	EventShake
	// EventScoredFall comes from the threshold scorer (confidence 0.8, 0.9 or >0.95).
	EventScoredFall
	// EventMotionClassified carries a non-normal classification kind such as
	// "sudden_movement", "fall" or "shake".
	EventMotionClassified
	// EventFallPattern is raised when the pattern classifier picks fall with
	// confidence above FallPatternThreshold.
	EventFallPattern
)

func (t EventType) String() string {
	switch t {
	case EventFall:
		return "fall"
	case EventShake:
		return "shake"
	case EventScoredFall:
		return "scored_fall"
	case EventMotionClassified:
		return "motion_classified"
	case EventFallPattern:
		return "fall_pattern"
	default:
		return "unknown"
	}
}

// Emergency reports whether the event should raise an alarm.
func (t EventType) Emergency() bool {
	switch t {
	case EventFall, EventShake, EventScoredFall:
		return true
	default:
		return false
	}
}

// KindSuddenMovement is the classification kind emitted by the threshold
// scorer's rotation rule.
const KindSuddenMovement = "sudden_movement"

type Event struct {
	Type       EventType
	Kind       string
	Confidence float64
	At         time.Time
}

// Sink receives events synchronously on the sample delivery path. Emit must
// not block for long.
type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Sinks fans an event out to every non-nil sink in order.
type Sinks []Sink

func (s Sinks) Emit(ev Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ev)
		}
	}
}

// Callbacks adapts per-occurrence callbacks to a Sink. Nil fields are skipped.
type Callbacks struct {
	OnFallDetected       func()
	OnShakeDetected      func()
	OnScoredFallDetected func(confidence float64)
	OnMotionClassified   func(kind string, confidence float64)
	OnFallPattern        func(confidence float64)
}

func (c Callbacks) Emit(ev Event) {
	switch ev.Type {
	case EventFall:
		if c.OnFallDetected != nil {
			c.OnFallDetected()
		}
	case EventShake:
		if c.OnShakeDetected != nil {
			c.OnShakeDetected()
		}
	case EventScoredFall:
		if c.OnScoredFallDetected != nil {
			c.OnScoredFallDetected(ev.Confidence)
		}
	case EventMotionClassified:
		if c.OnMotionClassified != nil {
			c.OnMotionClassified(ev.Kind, ev.Confidence)
		}
	case EventFallPattern:
		if c.OnFallPattern != nil {
			c.OnFallPattern(ev.Confidence)
		}
	}
}

func emit(s Sink, ev Event) {
	if s != nil {
		s.Emit(ev)
	}
}

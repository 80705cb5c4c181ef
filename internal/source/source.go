// Package source adapts sensors, serial links, sample logs and scripted
// scenarios into a stream of motion samples.
package source

import (
	"context"
	"fmt"
	"log"
	"time"

	"fallwatch/internal/config"
	"fallwatch/internal/motion"
	"fallwatch/internal/replay"
	"fallwatch/internal/sim"
)

// Logf is the package logger. Tests may replace it.
var Logf = log.Printf

var now = time.Now

// Source produces samples until ctx is done or its input ends. Run returns
// nil when the input ends normally and ctx.Err() when canceled.
type Source interface {
	Name() string
	Run(ctx context.Context, emit func(motion.Sample)) error
}

// FromConfig builds the source selected by cfg.Kind.
func FromConfig(cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourceIMU:
		return NewIMU(cfg.IMU), nil
	case config.SourceSerial:
		return NewSerial(cfg.Serial), nil
	case config.SourceReplay:
		return NewReplay(cfg.Replay)
	case config.SourceSim:
		sc, err := LoadScenario(cfg.Sim.Scenario)
		if err != nil {
			return nil, err
		}
		return NewSim(sc, cfg.Sim.Interval, cfg.Sim.Loop), nil
	default:
		return nil, fmt.Errorf("source: unknown kind %q", cfg.Kind)
	}
}

// LoadScenario resolves name as a built-in scenario, or else as a path to a
// YAML scenario script. Empty selects the built-in fall.
func LoadScenario(name string) (*sim.Scenario, error) {
	if name == "" {
		name = "fall"
	}
	script, err := sim.Builtin(name)
	if err != nil {
		script, err = sim.LoadScenarioScript(name)
		if err != nil {
			return nil, fmt.Errorf("source: scenario %q: %w", name, err)
		}
	}
	sc, err := sim.NewScenario(script)
	if err != nil {
		return nil, fmt.Errorf("source: scenario %q: %w", name, err)
	}
	return sc, nil
}

// Sim renders a scenario in real time. Ticks come every half interval and
// alternate between accel and gyro, so each kind arrives once per interval
// and the two streams never share a timestamp.
type Sim struct {
	sc       *sim.Scenario
	interval time.Duration
	loop     bool
}

func NewSim(sc *sim.Scenario, interval time.Duration, loop bool) *Sim {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &Sim{sc: sc, interval: interval, loop: loop}
}

func (s *Sim) Name() string { return "sim:" + s.sc.Name() }

func (s *Sim) Run(ctx context.Context, emit func(motion.Sample)) error {
	start := now()
	step := s.interval / 2
	if step <= 0 {
		step = s.interval
	}
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		t := now()
		elapsed := t.Sub(start)
		if !s.loop && elapsed > s.sc.Duration() {
			return nil
		}
		st := s.sc.StateAt(elapsed, s.loop)
		if tick%2 == 0 {
			emit(motion.Sample{Kind: motion.Acceleration, Time: t, Vector: st.Accel})
		} else {
			emit(motion.Sample{Kind: motion.AngularVelocity, Time: t, Vector: st.Gyro})
		}
	}
}

// Replay plays a recorded sample log, re-stamping samples relative to the
// moment Run starts.
type Replay struct {
	path    string
	records []replay.Record
	speed   float64
	loop    bool
	sleeper replay.Sleeper
}

func NewReplay(cfg config.ReplayConfig) (*Replay, error) {
	recs, err := replay.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("source: replay %s: %w", cfg.Path, err)
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1
	}
	return &Replay{path: cfg.Path, records: recs, speed: speed, loop: cfg.Loop}, nil
}

func (r *Replay) Name() string { return "replay:" + r.path }

func (r *Replay) Run(ctx context.Context, emit func(motion.Sample)) error {
	base := now()
	return replay.Play(ctx, r.records, r.speed, r.loop, r.sleeper, func(off time.Duration, rec replay.Record) error {
		emit(motion.Sample{Kind: rec.Kind, Time: base.Add(off), Vector: rec.Vector})
		return nil
	})
}

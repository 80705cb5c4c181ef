// Package monitor hosts the motion pipeline: it owns the sample source,
// persists the monitoring-active flag and raises emergencies.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fallwatch/internal/alert"
	"fallwatch/internal/motion"
	"fallwatch/internal/source"
	"fallwatch/internal/state"
)

var (
	ErrAlreadyRunning = errors.New("monitor: already running")
	ErrClosed         = errors.New("monitor: closed")
)

const (
	dispatchQueue   = 64
	deliveryTimeout = 10 * time.Second
	// dispatchWait bounds how long an emergency or journaled event waits
	// for room in a full dispatch queue.
	dispatchWait = 250 * time.Millisecond
)

type Config struct {
	MinInterval time.Duration
	// Cooldown suppresses a repeat emergency of the same type within this
	// period of event time. Zero disables suppression.
	Cooldown time.Duration
	Device   string
	// Debug logs every scorer and classifier decision.
	Debug bool
}

type Options struct {
	// Alerts receives emergencies that pass the cooldown. Optional.
	Alerts alert.Notifier
	// Publish receives every event. Optional; called from the dispatch
	// goroutine.
	Publish func(state.EventRecord)
	// Tap receives every raw sample before rate limiting. Optional; called
	// from the source goroutine.
	Tap func(motion.Sample)
	// Logf defaults to log.Printf.
	Logf func(format string, args ...any)
}

type Classification struct {
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

type Snapshot struct {
	Running      bool   `json:"running"`
	Source       string `json:"source"`
	StartedAtUTC string `json:"started_at_utc,omitempty"`

	Accepted    uint64 `json:"samples_accepted"`
	Dropped     uint64 `json:"samples_dropped"`
	ClockResets uint64 `json:"clock_resets"`

	Events         map[string]uint64  `json:"events"`
	Classification *Classification    `json:"classification,omitempty"`
	LastEvent      *state.EventRecord `json:"last_event,omitempty"`
	LastEmergency  *state.EventRecord `json:"last_emergency,omitempty"`

	AlertsSent       uint64 `json:"alerts_sent"`
	AlertsSuppressed uint64 `json:"alerts_suppressed"`
	AlertErrors      uint64 `json:"alert_errors"`
	DispatchDropped  uint64 `json:"dispatch_dropped"`

	LastError string `json:"last_error,omitempty"`
}

type dispatch struct {
	rec     state.EventRecord
	journal bool
	alert   bool
}

type Service struct {
	cfg   Config
	src   source.Source
	store state.Store
	opts  Options

	// pipeMu serializes sample delivery against Reset.
	pipeMu sync.Mutex
	pipe   *motion.Pipeline

	mu        sync.RWMutex
	snap      Snapshot
	lastAlert map[motion.EventType]time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool

	dispatchCh   chan dispatch
	dispatchWait time.Duration
	stopOnce     sync.Once
	stopCh       chan struct{}
	dispatchDone chan struct{}
}

func New(cfg Config, src source.Source, store state.Store, opts Options) *Service {
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	s := &Service{
		cfg:          cfg,
		src:          src,
		store:        store,
		opts:         opts,
		lastAlert:    make(map[motion.EventType]time.Time),
		dispatchCh:   make(chan dispatch, dispatchQueue),
		dispatchWait: dispatchWait,
		stopCh:       make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
	s.snap.Source = src.Name()
	s.snap.Events = make(map[string]uint64)

	po := motion.Options{MinInterval: cfg.MinInterval}
	if cfg.Debug {
		po.Logf = opts.Logf
	}
	s.pipe = motion.NewPipeline(motion.SinkFunc(s.handle), po)

	go s.dispatchLoop()
	return s
}

// Start subscribes to the source and records monitoring as active. ctx
// bounds only the flag write; monitoring continues until Stop or Close.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.done != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.snap.Running = true
	s.snap.StartedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)
	s.snap.LastError = ""
	s.mu.Unlock()

	s.setActive(ctx, true)
	s.opts.Logf("monitor: started source=%s", s.src.Name())
	go s.run(runCtx, done)
	return nil
}

// Stop unsubscribes from the source and records monitoring as inactive.
// Detector state is kept. Stopping an idle monitor only clears the flag.
func (s *Service) Stop(ctx context.Context) error {
	if s.halt() {
		s.opts.Logf("monitor: stopped")
	}
	s.setActive(ctx, false)
	return nil
}

// halt cancels the run loop and waits for it. It reports whether a run was
// active.
func (s *Service) halt() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if done == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// Resume starts monitoring when the persisted flag is set, or always when
// force is true. It reports whether monitoring was started.
func (s *Service) Resume(ctx context.Context, force bool) (bool, error) {
	active, err := s.store.GetBool(ctx, state.KeyMonitoringActive)
	if err != nil {
		return false, fmt.Errorf("monitor: read %s: %w", state.KeyMonitoringActive, err)
	}
	if !active && !force {
		s.opts.Logf("monitor: not resuming (%s=false)", state.KeyMonitoringActive)
		return false, nil
	}
	if err := s.Start(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reset clears every detector, buffer and the alert cooldown. Event
// counters are kept.
func (s *Service) Reset() {
	s.pipeMu.Lock()
	s.pipe.Reset()
	s.pipeMu.Unlock()

	s.mu.Lock()
	clear(s.lastAlert)
	s.snap.Accepted = 0
	s.snap.Dropped = 0
	s.snap.ClockResets = 0
	s.snap.Classification = nil
	s.mu.Unlock()
	s.opts.Logf("monitor: reset")
}

func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Running
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Events = make(map[string]uint64, len(s.snap.Events))
	for k, v := range s.snap.Events {
		out.Events[k] = v
	}
	return out
}

// Close stops delivery and drains pending alerts. The persisted flag is
// left as is so the next process resumes monitoring.
func (s *Service) Close() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.halt()
		close(s.stopCh)
		<-s.dispatchDone
	})
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	err := s.src.Run(ctx, s.feed)

	s.mu.Lock()
	s.snap.Running = false
	if s.done == done {
		s.done = nil
		s.cancel = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.snap.LastError = err.Error()
	}
	s.mu.Unlock()

	switch {
	case err == nil:
		s.opts.Logf("monitor: source %s ended", s.src.Name())
	case !errors.Is(err, context.Canceled):
		s.opts.Logf("monitor: source %s failed: %v", s.src.Name(), err)
	}
}

func (s *Service) feed(smp motion.Sample) {
	if s.opts.Tap != nil {
		s.opts.Tap(smp)
	}

	s.pipeMu.Lock()
	s.pipe.Feed(smp)
	stats := s.pipe.Stats()
	c, ok := s.pipe.LastClassification()
	s.pipeMu.Unlock()

	s.mu.Lock()
	reset := stats.ClockResets > s.snap.ClockResets
	s.snap.Accepted = stats.Accepted
	s.snap.Dropped = stats.Dropped
	s.snap.ClockResets = stats.ClockResets
	if ok {
		s.snap.Classification = &Classification{Kind: c.Kind.String(), Confidence: c.Confidence}
	}
	s.mu.Unlock()

	if reset {
		s.opts.Logf("monitor: source %s clock went back at %s, rate limiter restarted", s.src.Name(), smp.Time.Format(time.RFC3339Nano))
	}
}

// handle runs inline with sample delivery; anything slow goes to the
// dispatch goroutine.
func (s *Service) handle(ev motion.Event) {
	rec := state.NewEventRecord(ev)
	d := dispatch{rec: rec}

	s.mu.Lock()
	s.snap.Events[rec.Type]++
	s.snap.LastEvent = &rec
	switch {
	case ev.Type.Emergency():
		last, seen := s.lastAlert[ev.Type]
		if seen && s.cfg.Cooldown > 0 && ev.At.Sub(last) < s.cfg.Cooldown {
			s.snap.AlertsSuppressed++
			break
		}
		s.lastAlert[ev.Type] = ev.At
		s.snap.LastEmergency = &rec
		d.journal = true
		d.alert = true
	case ev.Type == motion.EventFallPattern:
		d.journal = true
	}
	s.mu.Unlock()

	if d.alert {
		s.opts.Logf("monitor: EMERGENCY type=%s confidence=%.2f id=%s", rec.Type, rec.Confidence, rec.ID)
	} else if d.journal {
		s.opts.Logf("monitor: warning type=%s kind=%s confidence=%.2f", rec.Type, rec.Kind, rec.Confidence)
	}

	select {
	case s.dispatchCh <- d:
		return
	default:
	}
	if d.journal || d.alert {
		t := time.NewTimer(s.dispatchWait)
		defer t.Stop()
		select {
		case s.dispatchCh <- d:
			return
		case <-t.C:
		}
		s.opts.Logf("monitor: dispatch queue full, dropped type=%s id=%s", rec.Type, rec.ID)
	}
	s.mu.Lock()
	s.snap.DispatchDropped++
	s.mu.Unlock()
}

func (s *Service) dispatchLoop() {
	defer close(s.dispatchDone)
	for {
		select {
		case d := <-s.dispatchCh:
			s.deliver(d)
		case <-s.stopCh:
			for {
				select {
				case d := <-s.dispatchCh:
					s.deliver(d)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) deliver(d dispatch) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if d.journal {
		if err := s.store.AppendEvent(ctx, d.rec); err != nil {
			s.opts.Logf("monitor: journal event id=%s: %v", d.rec.ID, err)
		}
	}
	if d.alert && s.opts.Alerts != nil {
		err := s.opts.Alerts.Notify(ctx, alert.Alert{
			ID:         d.rec.ID,
			Type:       d.rec.Type,
			Kind:       d.rec.Kind,
			Confidence: d.rec.Confidence,
			At:         d.rec.At,
			Device:     s.cfg.Device,
		})
		s.mu.Lock()
		if err != nil {
			s.snap.AlertErrors++
		} else {
			s.snap.AlertsSent++
		}
		s.mu.Unlock()
		if err != nil {
			s.opts.Logf("monitor: alert id=%s: %v", d.rec.ID, err)
		}
	}
	if s.opts.Publish != nil {
		s.opts.Publish(d.rec)
	}
}

func (s *Service) setActive(ctx context.Context, v bool) {
	if err := s.store.SetBool(ctx, state.KeyMonitoringActive, v); err != nil {
		s.opts.Logf("monitor: persist %s=%v: %v", state.KeyMonitoringActive, v, err)
	}
}

package alert

import (
	"context"
	"sync"
	"time"
)

// outputLine is a digital output.
type outputLine interface {
	SetValue(v int) error
	Close() error
}

// GPIOLine drives an output (buzzer, LED, relay) high for Pulse after each
// alert. A new alert during a pulse extends it.
type GPIOLine struct {
	line  outputLine
	pulse time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func newGPIOLine(line outputLine, pulse time.Duration) *GPIOLine {
	if pulse <= 0 {
		pulse = 2 * time.Second
	}
	return &GPIOLine{line: line, pulse: pulse}
}

func (g *GPIOLine) Notify(_ context.Context, _ Alert) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.line.SetValue(1); err != nil {
		return err
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(g.pulse, g.release)
	return nil
}

func (g *GPIOLine) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.line.SetValue(0); err != nil {
		Logf("alert: gpio release failed: %v", err)
	}
}

func (g *GPIOLine) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	_ = g.line.SetValue(0)
	return g.line.Close()
}

// Package alert delivers emergencies raised by the monitor to the outside
// world.
package alert

import (
	"context"
	"errors"
	"log"
	"time"
)

// Logf is the package logger. Tests may replace it.
var Logf = log.Printf

type Alert struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Kind       string    `json:"kind,omitempty"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
	Device     string    `json:"device,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
	Close() error
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, n := range f {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes one warning line per alert.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, a Alert) error {
	Logf("alert: EMERGENCY type=%s kind=%s confidence=%.2f id=%s", a.Type, a.Kind, a.Confidence, a.ID)
	return nil
}

func (LogNotifier) Close() error { return nil }

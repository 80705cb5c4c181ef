// Package state persists the monitoring-active flag across restarts and
// journals detection events.
package state

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fallwatch/internal/motion"
)

// KeyMonitoringActive is read at startup to decide whether to resume
// monitoring and written whenever monitoring starts or stops.
const KeyMonitoringActive = "monitoring_active"

type EventRecord struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Kind       string    `json:"kind,omitempty"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
	Emergency  bool      `json:"emergency"`
}

// NewEventRecord assigns a fresh id to ev.
func NewEventRecord(ev motion.Event) EventRecord {
	return EventRecord{
		ID:         uuid.NewString(),
		Type:       ev.Type.String(),
		Kind:       ev.Kind,
		Confidence: ev.Confidence,
		At:         ev.At,
		Emergency:  ev.Type.Emergency(),
	}
}

type Store interface {
	// GetBool returns false for keys that were never set.
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, v bool) error

	AppendEvent(ctx context.Context, rec EventRecord) error
	// RecentEvents returns up to limit records, newest first.
	RecentEvents(ctx context.Context, limit int) ([]EventRecord, error)

	Close() error
}

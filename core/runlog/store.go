package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/vbattery/core/battery"
)

// Record captures one simulation run and its outcome.
type Record struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Seed      battery.State   `json:"seed"`
	Defaulted []battery.Field `json:"defaulted,omitempty"`
	Final     battery.State   `json:"final"`
	Hours     int             `json:"hours"`
	DryRun    bool            `json:"dry_run"`
	// Published maps each statistic id to the success of its write-back.
	Published map[string]bool `json:"published,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// NewRecord returns a record with a fresh identifier.
func NewRecord(now time.Time) Record {
	return Record{ID: uuid.NewString(), Timestamp: now}
}

// Failed reports whether the run ended with an error.
func (r Record) Failed() bool { return r.Error != "" }

// Query defines filters for retrieving records. Bounds apply to the run
// timestamp and are inclusive.
type Query struct {
	Start      time.Time
	End        time.Time
	FailedOnly bool
}

// Match reports whether r satisfies the query.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.FailedOnly && !r.Failed() {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

package metrics

import (
	"time"

	"github.com/kilianp07/vbattery/core/battery"
)

// RunEvent describes a completed simulation run.
type RunEvent struct {
	RunID    string
	Start    time.Time
	End      time.Time
	Records  []battery.DerivedRecord
	Final    battery.State
	Summary  battery.Summary
	DryRun   bool
	Failed   bool
	Duration time.Duration
	Time     time.Time
}

// RunSink records run outcomes for observability purposes.
type RunSink interface {
	RecordRun(ev RunEvent) error
}

// PublishEvent captures the write-back of one series.
type PublishEvent struct {
	RunID       string
	StatisticID string
	Points      int
	OK          bool
	StatusCode  int
	Time        time.Time
}

// PublishRecorder records series write-backs.
type PublishRecorder interface {
	RecordPublish(ev PublishEvent) error
}

// NopSink implements RunSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error         { return nil }
func (NopSink) RecordPublish(PublishEvent) error { return nil }

// Close releases s if it holds a connection, such as an InfluxDB client.
func Close(s RunSink) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}

// Package stats defines the contract with the long-term statistics store the
// meter curves are read from and the derived series are written back to.
package stats

import (
	"context"
	"time"

	"github.com/kilianp07/vbattery/core/battery"
)

// Point is a point-in-time statistic. State carries gauge readings, Sum
// cumulative ones; either may be nil when the store has no value.
type Point struct {
	State *float64 `json:"state"`
	Sum   *float64 `json:"sum"`
}

// Entry is one hourly record of a cumulative statistic.
type Entry struct {
	Start time.Time
	Sum   float64
}

// Source reads statistics. Point returns (nil, nil) when no prior data exists;
// Range returns an empty slice in the same situation.
type Source interface {
	Point(ctx context.Context, sensorID string, at time.Time) (*Point, error)
	Range(ctx context.Context, sensorID string, start, end time.Time) ([]Entry, error)
}

// Kind tells whether a series is a gauge or a cumulative sum.
type Kind int

const (
	KindSum Kind = iota
	KindGauge
)

func (k Kind) String() string {
	if k == KindGauge {
		return "gauge"
	}
	return "sum"
}

// Import is a full series submitted to the store.
type Import struct {
	StatisticID string
	Name        string
	Unit        string
	Kind        Kind
	HasMean     bool
	Points      []battery.Point
}

// Sink writes statistics series.
type Sink interface {
	Import(ctx context.Context, imp Import) error
}

// Samples converts store entries into simulator samples.
func Samples(entries []Entry) []battery.Sample {
	out := make([]battery.Sample, len(entries))
	for i, e := range entries {
		out[i] = battery.Sample{Start: e.Start, Sum: e.Sum}
	}
	return out
}

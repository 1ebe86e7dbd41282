// Package ledger aggregates simulated hours into daily energy records.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/vbattery/core/battery"
)

// DayLayout is the calendar key of a record.
const DayLayout = "2006-01-02"

// Record holds the energy flows of one local day.
type Record struct {
	Day          time.Time `json:"day"`
	InjectedWh   float64   `json:"injected_wh"`
	ConsumedWh   float64   `json:"consumed_wh"`
	DischargedWh float64   `json:"discharged_wh"`
	GridWh       float64   `json:"grid_wh"`
}

// SelfSufficiency returns the share of consumption served by the battery.
func (r Record) SelfSufficiency() float64 {
	if r.ConsumedWh == 0 {
		return 0
	}
	return r.DischargedWh / r.ConsumedWh
}

// Key returns the calendar day of the record.
func (r Record) Key() string { return r.Day.Format(DayLayout) }

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Aggregate sums the hourly records per local day, ordered by day. A record
// is stamped with the end of its hour, so the midnight record closes the
// previous day.
func Aggregate(recs []battery.DerivedRecord, loc *time.Location) []Record {
	byDay := make(map[string]*Record)
	var order []string
	for _, d := range recs {
		day := Day(d.Start.Add(-time.Hour), loc)
		key := day.Format(DayLayout)
		r, ok := byDay[key]
		if !ok {
			r = &Record{Day: day}
			byDay[key] = r
			order = append(order, key)
		}
		r.InjectedWh += d.Injected
		r.ConsumedWh += d.Consumed
		r.DischargedWh += d.Discharged
		r.GridWh += d.FromGrid
	}
	sort.Strings(order)
	out := make([]Record, len(order))
	for i, k := range order {
		out[i] = *byDay[k]
	}
	return out
}

// Store persists daily records. Put replaces any record of the same day so
// re-running a range does not double count.
type Store interface {
	Put(ctx context.Context, recs []Record) error
	Query(ctx context.Context, start, end time.Time) ([]Record, error)
	Close() error
}

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func (m *MemoryStore) Put(_ context.Context, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.recs[r.Key()] = r
	}
	return nil
}

// Query returns the records whose day lies in [start,end], compared by
// calendar day.
func (m *MemoryStore) Query(_ context.Context, start, end time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, to := start.Format(DayLayout), end.Format(DayLayout)
	var res []Record
	for k, r := range m.recs {
		if k >= from && k <= to {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key() < res[j].Key() })
	return res, nil
}

func (m *MemoryStore) Close() error { return nil }

// Total sums a set of daily records.
func Total(recs []Record) Record {
	var t Record
	for _, r := range recs {
		t.InjectedWh += r.InjectedWh
		t.ConsumedWh += r.ConsumedWh
		t.DischargedWh += r.DischargedWh
		t.GridWh += r.GridWh
	}
	return t
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Put(context.Context, []Record) error                           { return nil }
func (NopStore) Query(context.Context, time.Time, time.Time) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                                  { return nil }

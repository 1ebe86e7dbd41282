// Package period selects the date range a run covers.
package period

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the accepted format of command line dates.
const DateLayout = "2006-01-02"

// ErrPartialRange is returned when only one bound is given.
var ErrPartialRange = errors.New("start and end date must be given together")

// Range is a half-open interval of local days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Yesterday returns the previous calendar day in loc, 00:00 to 24:00.
func Yesterday(now time.Time, loc *time.Location) Range {
	n := now.In(loc)
	start := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	return Range{Start: start, End: start.AddDate(0, 0, 1)}
}

// Parse builds a range from two dates. Both empty selects Yesterday.
func Parse(start, end string, now time.Time, loc *time.Location) (Range, error) {
	if start == "" && end == "" {
		return Yesterday(now, loc), nil
	}
	if start == "" || end == "" {
		return Range{}, ErrPartialRange
	}
	s, err := time.ParseInLocation(DateLayout, start, loc)
	if err != nil {
		return Range{}, fmt.Errorf("parse start date: %w", err)
	}
	e, err := time.ParseInLocation(DateLayout, end, loc)
	if err != nil {
		return Range{}, fmt.Errorf("parse end date: %w", err)
	}
	if e.Before(s) {
		return Range{}, fmt.Errorf("end date %s before start date %s", end, start)
	}
	return Range{Start: s, End: e}, nil
}

// Hours returns the number of hourly slots in the range.
func (r Range) Hours() int { return int(r.End.Sub(r.Start) / time.Hour) }

func (r Range) String() string {
	return fmt.Sprintf("%s -> %s", r.Start.Format(time.DateTime), r.End.Format(time.DateTime))
}

// ParseOffset converts "+03:00" style offsets into a fixed zone.
func ParseOffset(offset string) (*time.Location, error) {
	t, err := time.Parse("-07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("invalid utc offset %q: %w", offset, err)
	}
	_, secs := t.Zone()
	return time.FixedZone(offset, secs), nil
}

package battery

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoSamples is returned when a meter curve has no hourly data.
	ErrNoSamples = errors.New("no hourly samples")
	// ErrLengthMismatch is returned when both curves differ in length.
	ErrLengthMismatch = errors.New("injection and consumption curves differ in length")
	// ErrTimestampMismatch is wrapped by TimestampMismatchError.
	ErrTimestampMismatch = errors.New("injection and consumption date does not match")
)

// Sample is one hourly reading of a cumulative meter index.
type Sample struct {
	Start time.Time
	Sum   float64
}

// HourlySample pairs the injection and consumption indexes of one hour.
type HourlySample struct {
	Start            time.Time
	InjectionIndex   float64
	ConsumptionIndex float64
}

// TimestampMismatchError reports the first pair whose timestamps differ.
type TimestampMismatchError struct {
	Index       int
	Injection   time.Time
	Consumption time.Time
}

func (e *TimestampMismatchError) Error() string {
	return fmt.Sprintf("sample %d: injection at %s, consumption at %s",
		e.Index, e.Injection.Format(time.RFC3339), e.Consumption.Format(time.RFC3339))
}

func (e *TimestampMismatchError) Unwrap() error { return ErrTimestampMismatch }

// Pair matches both curves hour by hour. Curves must be non-empty, of equal
// length and carry identical timestamps at every position.
func Pair(injection, consumption []Sample) ([]HourlySample, error) {
	if len(injection) == 0 {
		return nil, fmt.Errorf("injection: %w", ErrNoSamples)
	}
	if len(consumption) == 0 {
		return nil, fmt.Errorf("consumption: %w", ErrNoSamples)
	}
	if len(injection) != len(consumption) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(injection), len(consumption))
	}
	out := make([]HourlySample, len(injection))
	for i := range injection {
		inj, cons := injection[i], consumption[i]
		if !inj.Start.Equal(cons.Start) {
			return nil, &TimestampMismatchError{Index: i, Injection: inj.Start, Consumption: cons.Start}
		}
		out[i] = HourlySample{
			Start:            inj.Start,
			InjectionIndex:   inj.Sum,
			ConsumptionIndex: cons.Sum,
		}
	}
	return out, nil
}

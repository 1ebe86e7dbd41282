package app

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingRange is returned when a meter curve has no data in the period.
var ErrMissingRange = errors.New("no statistics found in range")

// SeriesError records the failed write-back of one series.
type SeriesError struct {
	StatisticID string
	Err         error
}

func (e SeriesError) Error() string {
	return fmt.Sprintf("%s: %v", e.StatisticID, e.Err)
}

func (e SeriesError) Unwrap() error { return e.Err }

// PublishError is returned after every series has been attempted when at
// least one write-back failed.
type PublishError struct {
	Failed []SeriesError
}

func (e *PublishError) Error() string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = f.StatisticID
	}
	return fmt.Sprintf("publish failed for %s", strings.Join(ids, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *PublishError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}

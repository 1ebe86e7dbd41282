package battery

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zone = time.FixedZone("+03:00", 3*3600)

func hour(h int) time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, zone).Add(time.Duration(h) * time.Hour)
}

func TestPair(t *testing.T) {
	inj := []Sample{{Start: hour(1), Sum: 10}, {Start: hour(2), Sum: 20}}
	cons := []Sample{{Start: hour(1), Sum: 5}, {Start: hour(2), Sum: 7}}
	hours, err := Pair(inj, cons)
	require.NoError(t, err)
	assert.Equal(t, []HourlySample{
		{Start: hour(1), InjectionIndex: 10, ConsumptionIndex: 5},
		{Start: hour(2), InjectionIndex: 20, ConsumptionIndex: 7},
	}, hours)
}

func TestPair_SameInstantDifferentZone(t *testing.T) {
	inj := []Sample{{Start: hour(1), Sum: 1}}
	cons := []Sample{{Start: hour(1).UTC(), Sum: 1}}
	_, err := Pair(inj, cons)
	assert.NoError(t, err)
}

func TestPair_Errors(t *testing.T) {
	one := []Sample{{Start: hour(1), Sum: 1}}
	two := []Sample{{Start: hour(1), Sum: 1}, {Start: hour(2), Sum: 2}}
	cases := []struct {
		name string
		inj  []Sample
		cons []Sample
		want error
	}{
		{"no injection", nil, one, ErrNoSamples},
		{"no consumption", one, nil, ErrNoSamples},
		{"length", one, two, ErrLengthMismatch},
		{"timestamp", two, []Sample{{Start: hour(1)}, {Start: hour(3)}}, ErrTimestampMismatch},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			hours, err := Pair(c.inj, c.cons)
			assert.ErrorIs(t, err, c.want)
			assert.Nil(t, hours)
		})
	}
}

func TestTimestampMismatchError(t *testing.T) {
	_, err := Pair([]Sample{{Start: hour(1)}}, []Sample{{Start: hour(2)}})
	var tm *TimestampMismatchError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, 0, tm.Index)
	assert.Equal(t, hour(1), tm.Injection)
	assert.Equal(t, hour(2), tm.Consumption)
	assert.Contains(t, err.Error(), "sample 0")
}

package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	inj := []Sample{{Start: hour(1), Sum: 2000}, {Start: hour(2), Sum: 2000}, {Start: hour(3), Sum: 2000}}
	cons := []Sample{{Start: hour(1), Sum: 3000}, {Start: hour(2), Sum: 4000}, {Start: hour(3), Sum: 9000}}
	res, err := Simulate(State{Stock: 5000}, inj, cons)
	require.NoError(t, err)

	s := res.Summarize()
	assert.Equal(t, 3, s.Hours)
	assert.Equal(t, 2000.0, s.InjectedWh)
	assert.Equal(t, 9000.0, s.ConsumedWh)
	assert.Equal(t, 7000.0, s.DischargedWh)
	assert.Equal(t, 2000.0, s.FromGridWh)
	assert.Equal(t, 3000.0, s.MeanConsumedWh)
	assert.Equal(t, 4000.0, s.PeakStockWh)
	assert.InDelta(t, 7.0/9.0, s.SelfSufficiency(), 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	s := Result{}.Summarize()
	assert.Zero(t, s.Hours)
	assert.Zero(t, s.SelfSufficiency())
}

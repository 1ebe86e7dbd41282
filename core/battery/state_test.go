package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestSeedResolve_MissingStock(t *testing.T) {
	_, _, err := Seed{Discharge: ptr(10), GridDraw: ptr(20)}.Resolve()
	assert.ErrorIs(t, err, ErrMissingStock)
}

func TestSeedResolve_DefaultsCounters(t *testing.T) {
	st, defaulted, err := Seed{Stock: ptr(1000)}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, State{Stock: 1000}, st)
	assert.Equal(t, []Field{FieldDischarge, FieldGridDraw, FieldInjectionIndex, FieldConsumptionIndex}, defaulted)
}

func TestSeedResolve_ZeroStockIsKnown(t *testing.T) {
	st, _, err := Seed{Stock: ptr(0)}.Resolve()
	require.NoError(t, err)
	assert.Zero(t, st.Stock)
}

func TestSeedResolve_AllPresent(t *testing.T) {
	st, defaulted, err := Seed{
		Stock:            ptr(1),
		Discharge:        ptr(2),
		GridDraw:         ptr(3),
		InjectionIndex:   ptr(4),
		ConsumptionIndex: ptr(5),
	}.Resolve()
	require.NoError(t, err)
	assert.Empty(t, defaulted)
	assert.Equal(t, State{Stock: 1, Discharge: 2, GridDraw: 3, InjectionIndex: 4, ConsumptionIndex: 5}, st)
}

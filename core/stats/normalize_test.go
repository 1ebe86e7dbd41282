package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestGauge(t *testing.T) {
	assert.Nil(t, Gauge(nil, 1000))
	assert.Nil(t, Gauge(&Point{Sum: f(3)}, 1000))
	v := Gauge(&Point{State: f(4.25)}, 1000)
	require.NotNil(t, v)
	assert.Equal(t, 4250.0, *v)
	zero := Gauge(&Point{State: f(0)}, 1000)
	require.NotNil(t, zero)
	assert.Zero(t, *zero)
}

func TestCumulative(t *testing.T) {
	assert.Nil(t, Cumulative(nil))
	assert.Nil(t, Cumulative(&Point{State: f(1)}))
	v := Cumulative(&Point{Sum: f(12)})
	require.NotNil(t, v)
	assert.Equal(t, 12.0, *v)
}

func TestSamples(t *testing.T) {
	now := time.Unix(1717200000, 0)
	s := Samples([]Entry{{Start: now, Sum: 5}})
	require.Len(t, s, 1)
	assert.Equal(t, now, s[0].Start)
	assert.Equal(t, 5.0, s[0].Sum)
	assert.Empty(t, Samples(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "sum", KindSum.String())
	assert.Equal(t, "gauge", KindGauge.String())
}

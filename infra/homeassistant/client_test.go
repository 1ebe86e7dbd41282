package homeassistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vbattery/auth"
	"github.com/kilianp07/vbattery/core/battery"
	"github.com/kilianp07/vbattery/core/stats"
	"github.com/kilianp07/vbattery/infra/logger"
	"github.com/kilianp07/vbattery/test/util"
)

var plus3 = time.FixedZone("+03:00", 3*3600)

func f(v float64) *float64 { return &v }

func newClient(t *testing.T, stub *util.HomeAssistantStub) *Client {
	t.Helper()
	var hc *http.Client
	if stub.Token != "" {
		hc = mustHTTP(t, stub.Token)
	}
	return NewClient(stub.URL()+"/", hc, plus3, WithLogger(logger.NopLogger{}))
}

func TestClient_Point(t *testing.T) {
	stub := util.NewHomeAssistantStub("tok")
	defer stub.Close()
	stub.SetPoint("sensor.stock", util.StubPoint{State: f(4.2)})
	c := newClient(t, stub)

	at := time.Date(2024, 6, 1, 0, 0, 0, 0, plus3)
	p, err := c.Point(context.Background(), "sensor.stock", at)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.State)
	assert.Equal(t, 4.2, *p.State)
	assert.Nil(t, p.Sum)

	q := stub.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, "sensor.stock", q[0].EntityID)
	assert.Equal(t, "2024-06-01 00:00:00+03:00", q[0].DateTime)
	assert.Empty(t, q[0].EndDateTime)
}

func TestClient_PointAbsent(t *testing.T) {
	stub := util.NewHomeAssistantStub("tok")
	defer stub.Close()
	c := newClient(t, stub)
	p, err := c.Point(context.Background(), "sensor.unknown", time.Now())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestClient_PointNullMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": null}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, nil, plus3, WithLogger(logger.NopLogger{}))
	p, err := c.Point(context.Background(), "sensor.x", time.Now())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestClient_Unauthorized(t *testing.T) {
	stub := util.NewHomeAssistantStub("tok")
	defer stub.Close()
	stub.SetPoint("sensor.stock", util.StubPoint{State: f(1)})
	c := NewClient(stub.URL(), nil, plus3, WithLogger(logger.NopLogger{}))
	p, err := c.Point(context.Background(), "sensor.stock", time.Now())
	require.NoError(t, err)
	assert.Nil(t, p, "a rejected query reads as missing data")
}

func TestClient_Range(t *testing.T) {
	stub := util.NewHomeAssistantStub("tok")
	defer stub.Close()
	first := time.Date(2024, 6, 1, 1, 0, 0, 0, plus3)
	stub.SetHourlyRange("sensor.inj", first, 100, 250, 250)
	c := newClient(t, stub)

	entries, err := c.Range(context.Background(), "sensor.inj", first, first.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, first, entries[0].Start)
	assert.Equal(t, first.Add(2*time.Hour), entries[2].Start)
	assert.Equal(t, 250.0, entries[2].Sum)
	assert.Equal(t, plus3, entries[0].Start.Location())

	q := stub.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, "2024-06-01 01:00:00+03:00", q[0].DateTime)
	assert.Equal(t, "2024-06-02 01:00:00+03:00", q[0].EndDateTime)
}

func TestClient_RangeAbsent(t *testing.T) {
	stub := util.NewHomeAssistantStub("")
	defer stub.Close()
	c := newClient(t, stub)
	entries, err := c.Range(context.Background(), "sensor.none", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_RangeNullSum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": [{"start_ts": 1717192800.0, "sum": null}]}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, nil, plus3, WithLogger(logger.NopLogger{}))
	_, err := c.Range(context.Background(), "sensor.x", time.Now(), time.Now())
	assert.ErrorContains(t, err, "has no sum")
}

func TestClient_RangeFractionalEpoch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": [{"start_ts": 1717192800.5, "sum": 3}]}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, nil, plus3, WithLogger(logger.NopLogger{}))
	entries, err := c.Range(context.Background(), "sensor.x", time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1717192800), entries[0].Start.Unix())
	assert.Equal(t, 500*time.Millisecond, time.Duration(entries[0].Start.Nanosecond()))
}

func TestClient_ImportSum(t *testing.T) {
	stub := util.NewHomeAssistantStub("tok")
	defer stub.Close()
	c := newClient(t, stub)

	start := time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)
	err := c.Import(context.Background(), stats.Import{
		StatisticID: "sensor.urbansolar_battery_out",
		Name:        "Urbansolar Battery Out",
		Unit:        "Wh",
		Kind:        stats.KindSum,
		Points:      []battery.Point{{Start: start, Value: 3000}, {Start: start.Add(time.Hour), Value: 0}},
	})
	require.NoError(t, err)

	imps := stub.Imports()
	require.Len(t, imps, 1)
	imp := imps[0]
	assert.True(t, imp.HasSum)
	assert.False(t, imp.HasMean)
	assert.Equal(t, "recorder", imp.Source)
	assert.Equal(t, "Urbansolar Battery Out", imp.Name)
	assert.Equal(t, "Wh", imp.Unit)
	require.Len(t, imp.Stats, 2)
	assert.Equal(t, "2024-06-01 04:00:00+03:00", imp.Stats[0]["start"])
	assert.Equal(t, 3000.0, imp.Stats[0]["sum"])
	assert.NotContains(t, imp.Stats[0], "state")
	assert.Equal(t, 0.0, imp.Stats[1]["sum"])
}

func TestClient_ImportGauge(t *testing.T) {
	stub := util.NewHomeAssistantStub("tok")
	defer stub.Close()
	c := NewClient(stub.URL(), mustHTTP(t, stub.Token), plus3, WithLogger(logger.NopLogger{}), WithSource("vbattery"))

	err := c.Import(context.Background(), stats.Import{
		StatisticID: "sensor.urbansolar_battery_stock",
		Unit:        "kWh",
		Kind:        stats.KindGauge,
		Points:      []battery.Point{{Start: time.Date(2024, 6, 1, 1, 0, 0, 0, plus3), Value: 4000}},
	})
	require.NoError(t, err)
	imp := stub.Imports()[0]
	assert.False(t, imp.HasSum)
	assert.Equal(t, "vbattery", imp.Source)
	assert.Equal(t, 4000.0, imp.Stats[0]["state"])
	assert.NotContains(t, imp.Stats[0], "sum")
}

func TestClient_ImportFailure(t *testing.T) {
	stub := util.NewHomeAssistantStub("tok")
	defer stub.Close()
	stub.FailImport("sensor.x", http.StatusBadRequest)
	c := newClient(t, stub)

	err := c.Import(context.Background(), stats.Import{StatisticID: "sensor.x", Kind: stats.KindSum})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "import rejected")
}

func TestClient_ImportCreated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, nil, plus3, WithLogger(logger.NopLogger{}))
	assert.NoError(t, c.Import(context.Background(), stats.Import{StatisticID: "s"}))
}

func TestClient_ContextCancelled(t *testing.T) {
	stub := util.NewHomeAssistantStub("")
	defer stub.Close()
	c := newClient(t, stub)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Point(ctx, "sensor.stock", time.Now())
	assert.Error(t, err)
}

func mustHTTP(t *testing.T, token string) *http.Client {
	t.Helper()
	hc, err := auth.NewHTTPClient(context.Background(), auth.Conf{Token: token}, time.Second)
	require.NoError(t, err)
	return hc
}

package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vbattery/core/battery"
	coremetrics "github.com/kilianp07/vbattery/core/metrics"
	"github.com/kilianp07/vbattery/test/util"
)

func captureServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(data))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestInfluxSink_RecordRun(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "tok", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := runEvent()
	ev.Records = []battery.DerivedRecord{
		{Start: start, Stock: 1000, Discharge: 0, GridDraw: 0, Injected: 1000},
		{Start: start.Add(time.Hour), Stock: 800, Discharge: 200, Consumed: 200, Discharged: 200},
	}
	require.NoError(t, sink.RecordRun(ev))
	require.Len(t, *bodies, 1, "hours and summary are written in one batch")

	lines := strings.Split(strings.TrimSpace((*bodies)[0]), "\n")
	require.Len(t, lines, 3)

	first := write.NewPointWithMeasurement("virtual_battery").
		AddTag("run_id", "run-1").
		AddField("stock_wh", 1000.0).
		AddField("discharge_wh", 0.0).
		AddField("grid_draw_wh", 0.0).
		AddField("injected_wh", 1000.0).
		AddField("consumed_wh", 0.0).
		AddField("discharged_wh", 0.0).
		AddField("from_grid_wh", 0.0).
		SetTime(start)
	assert.Equal(t, strings.TrimSpace(write.PointToLineProtocol(first, time.Nanosecond)), lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "virtual_battery_run,"))
	assert.Contains(t, lines[2], "run_id=run-1")
	assert.Contains(t, lines[2], "dry_run=false")
	assert.Contains(t, lines[2], "hours=24i")
	assert.Contains(t, lines[2], "self_sufficiency=0.75")
}

func TestInfluxSink_RecordPublish(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Unix(1700000000, 0)
	require.NoError(t, sink.RecordPublish(coremetrics.PublishEvent{
		RunID: "run-1", StatisticID: "sensor.stock", Points: 24, OK: false, StatusCode: 500, Time: now,
	}))
	p := write.NewPointWithMeasurement("statistic_publish").
		AddTag("run_id", "run-1").
		AddTag("statistic_id", "sensor.stock").
		AddTag("ok", "false").
		AddField("points", 24).
		AddField("status_code", 500).
		SetTime(now)
	require.Len(t, *bodies, 1)
	assert.Equal(t, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)), strings.TrimSpace((*bodies)[0]))
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	_, ok := sink.(coremetrics.NopSink)
	assert.True(t, ok, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}

func TestInfluxSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	url, cleanup, err := util.StartInfluxDB(ctx)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	defer cleanup()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: url, Token: util.InfluxToken, Org: util.InfluxOrg, Bucket: util.InfluxBucket})
	require.IsType(t, &InfluxSink{}, sink)
	defer sink.(*InfluxSink).Close()

	start := time.Now().Add(-2 * time.Hour).Truncate(time.Hour)
	ev := runEvent()
	ev.Time = time.Now()
	ev.Records = []battery.DerivedRecord{
		{Start: start, Stock: 500, Injected: 500},
		{Start: start.Add(time.Hour), Stock: 300, Discharge: 200, Consumed: 200, Discharged: 200},
	}
	require.NoError(t, sink.RecordRun(ev))

	client := influxdb2.NewClient(url, util.InfluxToken)
	defer client.Close()
	query := `from(bucket:"` + util.InfluxBucket + `") |> range(start: -1d)
		|> filter(fn: (r) => r._measurement == "virtual_battery" and r._field == "stock_wh")`
	res, err := client.QueryAPI(util.InfluxOrg).Query(ctx, query)
	require.NoError(t, err)
	var values []float64
	for res.Next() {
		values = append(values, res.Record().Value().(float64))
	}
	require.NoError(t, res.Err())
	assert.Equal(t, []float64{500, 300}, values)
}

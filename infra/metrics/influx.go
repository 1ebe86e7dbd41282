package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/vbattery/core/metrics"
	"github.com/kilianp07/vbattery/infra/logger"
)

// InfluxSink writes simulated hours and run outcomes to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.RunSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one virtual_battery point per simulated hour followed by
// a virtual_battery_run summary point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(ev.Records)+1)
	for _, r := range ev.Records {
		points = append(points, write.NewPointWithMeasurement("virtual_battery").
			AddTag("run_id", ev.RunID).
			AddField("stock_wh", round3(r.Stock)).
			AddField("discharge_wh", round3(r.Discharge)).
			AddField("grid_draw_wh", round3(r.GridDraw)).
			AddField("injected_wh", round3(r.Injected)).
			AddField("consumed_wh", round3(r.Consumed)).
			AddField("discharged_wh", round3(r.Discharged)).
			AddField("from_grid_wh", round3(r.FromGrid)).
			SetTime(r.Start))
	}
	points = append(points, write.NewPointWithMeasurement("virtual_battery_run").
		AddTag("run_id", ev.RunID).
		AddTag("dry_run", boolTag(ev.DryRun)).
		AddTag("failed", boolTag(ev.Failed)).
		AddField("hours", ev.Summary.Hours).
		AddField("injected_wh", round3(ev.Summary.InjectedWh)).
		AddField("consumed_wh", round3(ev.Summary.ConsumedWh)).
		AddField("self_sufficiency", round3(ev.Summary.SelfSufficiency())).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordPublish records a statistic write-back.
func (s *InfluxSink) RecordPublish(ev coremetrics.PublishEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("statistic_publish").
		AddTag("run_id", ev.RunID).
		AddTag("statistic_id", ev.StatisticID).
		AddTag("ok", boolTag(ev.OK)).
		AddField("points", ev.Points).
		AddField("status_code", ev.StatusCode).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

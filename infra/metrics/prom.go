package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/vbattery/core/metrics"
	"github.com/kilianp07/vbattery/infra/logger"
)

// PromSink records run outcomes in Prometheus metrics. A one-shot run has no
// scrape window, so the gauges are pushed to a Pushgateway when one is set.
type PromSink struct {
	reg       *prometheus.Registry
	stock     prometheus.Gauge
	discharge prometheus.Gauge
	gridDraw  prometheus.Gauge
	injected  prometheus.Gauge
	consumed  prometheus.Gauge
	selfSuff  prometheus.Gauge
	hours     prometheus.Gauge
	lastRun   prometheus.Gauge
	duration  prometheus.Gauge
	runs      *prometheus.CounterVec
	publishes *prometheus.CounterVec
	pusher    *push.Pusher
	log       logger.Logger
}

// PromConfig configures the Prometheus sink.
type PromConfig struct {
	PushgatewayURL string `json:"pushgateway_url"`
	Job            string `json:"job"`
}

// NewPromSink registers run metrics on a private registry.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.NewRegistry())
}

// NewPromSinkWithRegistry registers metrics on the provided registry.
func NewPromSinkWithRegistry(cfg PromConfig, reg *prometheus.Registry) (*PromSink, error) {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "vbattery", Name: name, Help: help})
	}
	s := &PromSink{
		reg:       reg,
		stock:     gauge("stock_wh", "Virtual battery stock at the end of the last run"),
		discharge: gauge("discharge_wh", "Cumulative discharge at the end of the last run"),
		gridDraw:  gauge("grid_draw_wh", "Cumulative grid draw at the end of the last run"),
		injected:  gauge("run_injected_wh", "Energy injected during the last run"),
		consumed:  gauge("run_consumed_wh", "Energy consumed during the last run"),
		selfSuff:  gauge("run_self_sufficiency_ratio", "Share of consumption served by the virtual battery"),
		hours:     gauge("run_hours", "Hours simulated by the last run"),
		lastRun:   gauge("last_run_timestamp_seconds", "Unix time of the last completed run"),
		duration:  gauge("last_run_duration_seconds", "Wall time of the last run"),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vbattery",
			Name:      "runs_total",
			Help:      "Simulation runs by outcome",
		}, []string{"outcome"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vbattery",
			Name:      "publish_total",
			Help:      "Statistic write-backs by series and result",
		}, []string{"statistic_id", "result"}),
		log: logger.New("prom-sink"),
	}
	for _, c := range []prometheus.Collector{
		s.stock, s.discharge, s.gridDraw, s.injected, s.consumed,
		s.selfSuff, s.hours, s.lastRun, s.duration, s.runs, s.publishes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if cfg.PushgatewayURL != "" {
		job := cfg.Job
		if job == "" {
			job = "vbattery"
		}
		s.pusher = push.New(cfg.PushgatewayURL, job).Gatherer(reg)
	}
	return s, nil
}

// Registry exposes the registry holding the sink's collectors.
func (s *PromSink) Registry() *prometheus.Registry { return s.reg }

// RecordRun updates the run gauges and pushes them if a gateway is set.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	outcome := "ok"
	switch {
	case ev.Failed:
		outcome = "failed"
	case ev.DryRun:
		outcome = "dry_run"
	}
	s.runs.WithLabelValues(outcome).Inc()
	s.stock.Set(ev.Final.Stock)
	s.discharge.Set(ev.Final.Discharge)
	s.gridDraw.Set(ev.Final.GridDraw)
	s.injected.Set(ev.Summary.InjectedWh)
	s.consumed.Set(ev.Summary.ConsumedWh)
	s.selfSuff.Set(ev.Summary.SelfSufficiency())
	s.hours.Set(float64(ev.Summary.Hours))
	s.lastRun.Set(float64(ev.Time.Unix()))
	s.duration.Set(ev.Duration.Seconds())
	return s.push()
}

// RecordPublish counts one series write-back.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	result := "ok"
	if !ev.OK {
		result = "error"
	}
	s.publishes.WithLabelValues(ev.StatisticID, result).Inc()
	return nil
}

func (s *PromSink) push() error {
	if s.pusher == nil {
		return nil
	}
	if err := s.pusher.Push(); err != nil {
		s.log.Errorf("pushgateway push failed: %v", err)
		return err
	}
	return nil
}

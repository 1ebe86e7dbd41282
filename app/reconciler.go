package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/vbattery/config"
	"github.com/kilianp07/vbattery/core/battery"
	"github.com/kilianp07/vbattery/core/ledger"
	coremetrics "github.com/kilianp07/vbattery/core/metrics"
	coremon "github.com/kilianp07/vbattery/core/monitoring"
	"github.com/kilianp07/vbattery/core/period"
	"github.com/kilianp07/vbattery/core/runlog"
	"github.com/kilianp07/vbattery/core/stats"
	"github.com/kilianp07/vbattery/infra/homeassistant"
	"github.com/kilianp07/vbattery/infra/logger"
	"github.com/kilianp07/vbattery/infra/mqtt"
	"github.com/kilianp07/vbattery/pkg/export"
)

// StatePublisher announces the final battery state of a run.
type StatePublisher interface {
	Publish(ctx context.Context, msg mqtt.StateMessage) error
}

// Reconciler performs simulation runs against a statistics store.
type Reconciler struct {
	cfg     config.HomeAssistantConfig
	loc     *time.Location
	source  stats.Source
	sink    stats.Sink
	log     logger.Logger
	metrics coremetrics.RunSink
	runs    runlog.Store
	ledger  ledger.Store
	state   StatePublisher
	now     func() time.Time
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for progress messages.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// WithMetrics sets the sink receiving run and publish events.
func WithMetrics(s coremetrics.RunSink) Option {
	return func(r *Reconciler) { r.metrics = s }
}

// WithRunLog sets the store keeping the run history.
func WithRunLog(s runlog.Store) Option {
	return func(r *Reconciler) { r.runs = s }
}

// WithLedger sets the store keeping daily energy records.
func WithLedger(s ledger.Store) Option {
	return func(r *Reconciler) { r.ledger = s }
}

// WithStatePublisher sets the publisher of the final state.
func WithStatePublisher(p StatePublisher) Option {
	return func(r *Reconciler) { r.state = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New builds a Reconciler. Source and sink are usually the same Home
// Assistant client.
func New(cfg config.HomeAssistantConfig, source stats.Source, sink stats.Sink, opts ...Option) *Reconciler {
	r := &Reconciler{
		cfg:     cfg,
		loc:     cfg.Location(),
		source:  source,
		sink:    sink,
		log:     logger.New("reconciler"),
		metrics: coremetrics.NopSink{},
		runs:    runlog.NopStore{},
		ledger:  ledger.NopStore{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOptions controls the side effects of a run.
type RunOptions struct {
	// DryRun simulates without writing back to the statistics store.
	DryRun bool
	// ExportPath receives the hourly records as .csv, .json or .html.
	ExportPath string
	// ChartPath receives an HTML chart of the run.
	ChartPath string
}

// Report describes a run.
type Report struct {
	RunID     string
	Range     period.Range
	Initial   battery.State
	Defaulted []battery.Field
	Result    battery.Result
	Summary   battery.Summary
	Published map[string]bool
}

// Run processes the period. Fatal read or simulation errors abort before any
// write. Write-backs are attempted for all three series; failures are
// collected into a *PublishError.
func (r *Reconciler) Run(ctx context.Context, rng period.Range, opts RunOptions) (rep *Report, err error) {
	started := r.now()
	rec := runlog.NewRecord(started)
	rec.Start, rec.End, rec.DryRun = rng.Start, rng.End, opts.DryRun
	rep = &Report{RunID: rec.ID, Range: rng}
	defer func() { r.finish(ctx, rep, rec, started, opts.DryRun, err) }()

	r.log.Infow("processing period", map[string]any{"run_id": rep.RunID, "start": rng.Start, "end": rng.End})

	seed, err := r.readSeed(ctx, rng.Start)
	if err != nil {
		return rep, err
	}
	injection, err := r.readRange(ctx, r.cfg.Sensors.Injection.ID, rng)
	if err != nil {
		return rep, err
	}
	consumption, err := r.readRange(ctx, r.cfg.Sensors.Consumption.ID, rng)
	if err != nil {
		return rep, err
	}

	initial, defaulted, err := seed.Resolve()
	if err != nil {
		return rep, err
	}
	rep.Initial, rep.Defaulted = initial, defaulted
	for _, f := range defaulted {
		r.log.Warnf("%s not found, starting from 0", f)
	}

	r.log.Infof("starting from battery stock %v Wh", initial.Stock)
	res, err := battery.Simulate(initial, stats.Samples(injection), stats.Samples(consumption))
	if err != nil {
		return rep, fmt.Errorf("simulate: %w", err)
	}
	rep.Result = res
	rep.Summary = res.Summarize()
	for _, d := range res.Records {
		r.log.Debugw("hour processed", map[string]any{
			"start":      d.Start.Format(homeassistant.TimeLayout),
			"injected":   d.Injected,
			"consumed":   d.Consumed,
			"discharged": d.Discharged,
			"from_grid":  d.FromGrid,
			"stock":      d.Stock,
		})
	}

	var errs []error
	if opts.DryRun {
		r.log.Infof("dry run, %d hours not sent to Home Assistant", len(res.Records))
	} else {
		rep.Published, err = r.publish(ctx, rep.RunID, res)
		if err != nil {
			errs = append(errs, err)
		}
	}

	r.recordLedger(ctx, res.Records)
	r.publishState(ctx, rep)

	if opts.ExportPath != "" {
		if xerr := export.WriteFile(opts.ExportPath, res.Records); xerr != nil {
			errs = append(errs, fmt.Errorf("export %s: %w", opts.ExportPath, xerr))
		} else {
			r.log.Infof("exported %d hours to %s", len(res.Records), opts.ExportPath)
		}
	}
	if opts.ChartPath != "" {
		if xerr := writeChart(opts.ChartPath, rng, res.Records); xerr != nil {
			errs = append(errs, fmt.Errorf("chart %s: %w", opts.ChartPath, xerr))
		}
	}

	s := rep.Summary
	r.log.Infow("run summary", map[string]any{
		"run_id":           rep.RunID,
		"hours":            s.Hours,
		"injected_wh":      s.InjectedWh,
		"consumed_wh":      s.ConsumedWh,
		"discharged_wh":    s.DischargedWh,
		"from_grid_wh":     s.FromGridWh,
		"mean_consumed_wh": s.MeanConsumedWh,
		"peak_stock_wh":    s.PeakStockWh,
		"self_sufficiency": s.SelfSufficiency(),
		"final_stock_wh":   res.Final.Stock,
	})
	return rep, errors.Join(errs...)
}

// readSeed reads the last known values at the start of the period. A missing
// stock aborts immediately.
func (r *Reconciler) readSeed(ctx context.Context, at time.Time) (battery.Seed, error) {
	var seed battery.Seed
	sensors := r.cfg.Sensors

	p, err := r.source.Point(ctx, sensors.Stock.ID, at)
	if err != nil {
		return seed, fmt.Errorf("read %s: %w", sensors.Stock.ID, err)
	}
	seed.Stock = stats.Gauge(p, r.cfg.StockReadScale)
	if seed.Stock == nil {
		return seed, fmt.Errorf("%s: %w", sensors.Stock.ID, battery.ErrMissingStock)
	}
	r.log.Infof("found battery stock of %v Wh", *seed.Stock)

	counters := []struct {
		id  string
		dst **float64
	}{
		{sensors.Discharge.ID, &seed.Discharge},
		{sensors.GridDraw.ID, &seed.GridDraw},
		{sensors.Injection.ID, &seed.InjectionIndex},
		{sensors.Consumption.ID, &seed.ConsumptionIndex},
	}
	for _, c := range counters {
		p, err := r.source.Point(ctx, c.id, at)
		if err != nil {
			return seed, fmt.Errorf("read %s: %w", c.id, err)
		}
		*c.dst = stats.Cumulative(p)
		if *c.dst != nil {
			r.log.Infof("found %s index %v Wh", c.id, **c.dst)
		}
	}
	return seed, nil
}

// readRange reads one hourly curve. The store labels an hour by its end, so
// the window is shifted by one hour.
func (r *Reconciler) readRange(ctx context.Context, sensorID string, rng period.Range) ([]stats.Entry, error) {
	entries, err := r.source.Range(ctx, sensorID, rng.Start.Add(time.Hour), rng.End.Add(time.Hour))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sensorID, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", sensorID, ErrMissingRange)
	}
	r.log.Infof("found %d hours for %s", len(entries), sensorID)
	return entries, nil
}

func (r *Reconciler) imports(res battery.Result) []stats.Import {
	sensors := r.cfg.Sensors
	return []stats.Import{
		{StatisticID: sensors.Discharge.ID, Name: sensors.Discharge.Name, Unit: "Wh", Kind: stats.KindSum, Points: res.DischargeSeries()},
		{StatisticID: sensors.GridDraw.ID, Name: sensors.GridDraw.Name, Unit: "Wh", Kind: stats.KindSum, Points: res.GridDrawSeries()},
		// The stock is stored in Wh under a kWh label; readers scale it back.
		{StatisticID: sensors.Stock.ID, Name: sensors.Stock.Name, Unit: "kWh", Kind: stats.KindGauge, Points: res.StockSeries()},
	}
}

// publish writes the three series. Every series is attempted regardless of
// earlier failures and nothing is retried.
func (r *Reconciler) publish(ctx context.Context, runID string, res battery.Result) (map[string]bool, error) {
	published := make(map[string]bool, 3)
	var failed []SeriesError
	for _, imp := range r.imports(res) {
		err := r.sink.Import(ctx, imp)
		published[imp.StatisticID] = err == nil
		ev := coremetrics.PublishEvent{RunID: runID, StatisticID: imp.StatisticID, Points: len(imp.Points), OK: err == nil, Time: r.now()}
		if err != nil {
			var se *homeassistant.StatusError
			if errors.As(err, &se) {
				ev.StatusCode = se.StatusCode
				r.log.Errorf("error while sending %s to Home Assistant: %d - %s", imp.StatisticID, se.StatusCode, se.Body)
			} else {
				r.log.Errorf("error while sending %s to Home Assistant: %v", imp.StatisticID, err)
			}
			failed = append(failed, SeriesError{StatisticID: imp.StatisticID, Err: err})
		} else {
			r.log.Infof("data sent to Home Assistant (%s)", imp.StatisticID)
		}
		if rec, ok := r.metrics.(coremetrics.PublishRecorder); ok {
			if merr := rec.RecordPublish(ev); merr != nil {
				r.log.Warnf("record publish metrics: %v", merr)
			}
		}
	}
	if len(failed) > 0 {
		return published, &PublishError{Failed: failed}
	}
	return published, nil
}

func (r *Reconciler) recordLedger(ctx context.Context, recs []battery.DerivedRecord) {
	days := ledger.Aggregate(recs, r.loc)
	if err := r.ledger.Put(ctx, days); err != nil {
		r.log.Warnf("ledger update failed: %v", err)
	}
}

func (r *Reconciler) publishState(ctx context.Context, rep *Report) {
	if r.state == nil {
		return
	}
	msg := mqtt.NewStateMessage(rep.RunID, rep.Result.Final, rep.Range.Start, rep.Range.End)
	if err := r.state.Publish(ctx, msg); err != nil {
		r.log.Warnf("state publish failed: %v", err)
	}
}

// finish stores the run outcome and reports failures.
func (r *Reconciler) finish(ctx context.Context, rep *Report, rec runlog.Record, started time.Time, dryRun bool, err error) {
	rec.Seed = rep.Initial
	rec.Defaulted = rep.Defaulted
	rec.Final = rep.Result.Final
	rec.Hours = len(rep.Result.Records)
	rec.Published = rep.Published
	if err != nil {
		rec.Error = err.Error()
		r.log.Errorf("run %s failed: %v", rep.RunID, err)
		coremon.CaptureException(err, map[string]string{"module": "app", "run_id": rep.RunID})
	}
	if aerr := r.runs.Append(ctx, rec); aerr != nil {
		r.log.Warnf("run log append failed: %v", aerr)
	}
	end := r.now()
	ev := coremetrics.RunEvent{
		RunID:    rep.RunID,
		Start:    rep.Range.Start,
		End:      rep.Range.End,
		Records:  rep.Result.Records,
		Final:    rep.Result.Final,
		Summary:  rep.Summary,
		DryRun:   dryRun,
		Failed:   err != nil,
		Duration: end.Sub(started),
		Time:     end,
	}
	if merr := r.metrics.RecordRun(ev); merr != nil {
		r.log.Warnf("record run metrics: %v", merr)
	}
}

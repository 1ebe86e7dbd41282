package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vbattery/app"
	"github.com/kilianp07/vbattery/auth"
	"github.com/kilianp07/vbattery/config"
	coremetrics "github.com/kilianp07/vbattery/core/metrics"
	coremon "github.com/kilianp07/vbattery/core/monitoring"
	"github.com/kilianp07/vbattery/core/period"
	"github.com/kilianp07/vbattery/infra/homeassistant"
	"github.com/kilianp07/vbattery/infra/logger"
	_ "github.com/kilianp07/vbattery/infra/metrics"
	"github.com/kilianp07/vbattery/infra/monitoring"
	"github.com/kilianp07/vbattery/infra/mqtt"
)

var (
	cfgPath    string
	startDate  string
	endDate    string
	dryRun     bool
	exportPath string
	chartPath  string
)

var rootCmd = &cobra.Command{
	Use:   "vbattery",
	Short: "Replay Home Assistant meter statistics through a virtual battery",
	Long: `Reads the hourly injection and consumption statistics of a period from
Home Assistant, simulates a virtual battery over them and writes the battery
stock, discharge and grid draw statistics back. Without dates the previous
day is processed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().StringVar(&startDate, "start-date", "", "first day to process (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&endDate, "end-date", "", "day the period ends on (YYYY-MM-DD)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate without writing to Home Assistant")
	rootCmd.Flags().StringVar(&exportPath, "export", "", "write hourly records to a .csv, .json or .html file")
	rootCmd.Flags().StringVar(&chartPath, "chart", "", "write an HTML chart of the run")
	rootCmd.MarkFlagsRequiredTogether("start-date", "end-date")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	log := logger.New("main")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		log.Warnf("sentry disabled: %v", err)
	} else {
		coremon.Init(mon)
	}
	defer coremon.Flush(2 * time.Second)
	defer coremon.Recover()

	ha := cfg.HomeAssistant
	loc := ha.Location()
	rng, err := period.Parse(startDate, endDate, time.Now(), loc)
	if err != nil {
		return err
	}
	if startDate == "" {
		log.Infof("no date given, processing data from yesterday")
	}

	rec, cleanup, err := newReconciler(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = rec.Run(ctx, rng, app.RunOptions{DryRun: dryRun, ExportPath: exportPath, ChartPath: chartPath})
	return err
}

func newReconciler(ctx context.Context, cfg *config.Config) (*app.Reconciler, func(), error) {
	log := logger.New("main")
	ha := cfg.HomeAssistant
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	httpClient, err := auth.NewHTTPClient(ctx, auth.Conf{
		Token:        ha.Token,
		ClientID:     ha.ClientID,
		ClientSecret: ha.ClientSecret,
		TokenURL:     ha.TokenURL,
	}, ha.Timeout())
	if err != nil {
		return nil, nil, fmt.Errorf("home assistant auth: %w", err)
	}
	client := homeassistant.NewClient(ha.URL, httpClient, ha.Location(), homeassistant.WithSource(ha.Source))

	sink, err := coremetrics.NewRunSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics sink: %w", err)
	}
	closers = append(closers, func() { coremetrics.Close(sink) })

	runs, err := openRunLog(cfg.RunLog)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("run log: %w", err)
	}
	closers = append(closers, func() { _ = runs.Close() })

	days, err := openLedger(cfg.Ledger, ha.Location())
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("ledger: %w", err)
	}
	closers = append(closers, func() { _ = days.Close() })

	opts := []app.Option{
		app.WithMetrics(sink),
		app.WithRunLog(runs),
		app.WithLedger(days),
	}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewStatePublisher(cfg.MQTT)
		if err != nil {
			log.Warnf("mqtt state publishing disabled: %v", err)
		} else {
			closers = append(closers, pub.Close)
			opts = append(opts, app.WithStatePublisher(pub))
		}
	}
	return app.New(ha, client, client, opts...), cleanup, nil
}

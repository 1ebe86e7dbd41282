package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vbattery/config"
	"github.com/kilianp07/vbattery/core/ledger"
)

var (
	ledgerFrom string
	ledgerTo   string
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show daily energy flows of the virtual battery",
	RunE:  showLedger,
}

func init() {
	ledgerCmd.Flags().StringVar(&ledgerFrom, "from", "", "first day (YYYY-MM-DD), defaults to 30 days ago")
	ledgerCmd.Flags().StringVar(&ledgerTo, "to", "", "last day (YYYY-MM-DD), defaults to today")
	rootCmd.AddCommand(ledgerCmd)
}

func showLedger(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc := cfg.HomeAssistant.Location()
	to, err := parseDay(ledgerTo, loc)
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = ledger.Day(time.Now(), loc)
	}
	from, err := parseDay(ledgerFrom, loc)
	if err != nil {
		return err
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if to.Before(from) {
		return errors.New("--to is before --from")
	}

	store, err := openLedger(cfg.Ledger, loc)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	days, err := store.Query(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "DAY\tINJECTED_WH\tCONSUMED_WH\tDISCHARGED_WH\tGRID_WH\tSELF_SUFFICIENCY\t")
	row := func(label string, r ledger.Record) {
		fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%.0f\t%.1f%%\t\n",
			label, r.InjectedWh, r.ConsumedWh, r.DischargedWh, r.GridWh, r.SelfSufficiency()*100)
	}
	for _, d := range days {
		row(d.Key(), d)
	}
	if len(days) > 1 {
		row("total", ledger.Total(days))
	}
	return w.Flush()
}

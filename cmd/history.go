package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vbattery/config"
	"github.com/kilianp07/vbattery/core/period"
	"github.com/kilianp07/vbattery/core/runlog"
)

var (
	historyFrom   string
	historyTo     string
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs from the run log",
	RunE:  history,
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "first day of run time (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "last day of run time (YYYY-MM-DD)")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show failed runs")
	rootCmd.AddCommand(historyCmd)
}

func history(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc := cfg.HomeAssistant.Location()
	q := runlog.Query{FailedOnly: historyFailed}
	if q.Start, err = parseDay(historyFrom, loc); err != nil {
		return err
	}
	if historyTo != "" {
		end, err := parseDay(historyTo, loc)
		if err != nil {
			return err
		}
		q.End = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	store, err := openRunLog(cfg.RunLog)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tAT\tPERIOD\tHOURS\tSTOCK_WH\tDISCHARGE_WH\tGRID_DRAW_WH\tSTATUS")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f\t%.0f\t%.0f\t%s\n",
			r.ID[:8],
			r.Timestamp.In(loc).Format(time.DateTime),
			period.Range{Start: r.Start.In(loc), End: r.End.In(loc)}.String(),
			r.Hours, r.Final.Stock, r.Final.Discharge, r.Final.GridDraw,
			status(r))
	}
	return w.Flush()
}

func status(r runlog.Record) string {
	switch {
	case r.Failed():
		return "failed: " + r.Error
	case r.DryRun:
		return "dry-run"
	}
	var failed []string
	for id, ok := range r.Published {
		if !ok {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return "partial: " + strings.Join(failed, ",")
	}
	return "ok"
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(period.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

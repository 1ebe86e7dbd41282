package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/vbattery/core/battery"
)

var csvHeader = []string{
	"start", "stock_wh", "discharge_wh", "grid_draw_wh",
	"injected_wh", "consumed_wh", "discharged_wh", "from_grid_wh",
}

type jsonRecord struct {
	Start        time.Time `json:"start"`
	StockWh      float64   `json:"stock_wh"`
	DischargeWh  float64   `json:"discharge_wh"`
	GridDrawWh   float64   `json:"grid_draw_wh"`
	InjectedWh   float64   `json:"injected_wh"`
	ConsumedWh   float64   `json:"consumed_wh"`
	DischargedWh float64   `json:"discharged_wh"`
	FromGridWh   float64   `json:"from_grid_wh"`
}

// WriteJSON writes the hourly records to w as a JSON array.
func WriteJSON(w io.Writer, recs []battery.DerivedRecord) error {
	out := make([]jsonRecord, len(recs))
	for i, r := range recs {
		out[i] = jsonRecord{
			Start:        r.Start,
			StockWh:      r.Stock,
			DischargeWh:  r.Discharge,
			GridDrawWh:   r.GridDraw,
			InjectedWh:   r.Injected,
			ConsumedWh:   r.Consumed,
			DischargedWh: r.Discharged,
			FromGridWh:   r.FromGrid,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV writes the hourly records to w in CSV format with a header row.
func WriteCSV(w io.Writer, recs []battery.DerivedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Start.Format(time.RFC3339),
			formatFloat(r.Stock),
			formatFloat(r.Discharge),
			formatFloat(r.GridDraw),
			formatFloat(r.Injected),
			formatFloat(r.Consumed),
			formatFloat(r.Discharged),
			formatFloat(r.FromGrid),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the records to path in the format given by its
// extension: .csv, .json or .html.
func WriteFile(path string, recs []battery.DerivedRecord) (err error) {
	var write func(io.Writer, []battery.DerivedRecord) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteCSV
	case ".json":
		write = WriteJSON
	case ".html", ".htm":
		write = func(w io.Writer, r []battery.DerivedRecord) error {
			return WriteChart(w, "Virtual battery", r)
		}
	default:
		return fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f, recs)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package battery

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the hourly records of a run.
type Summary struct {
	Hours          int     `json:"hours"`
	InjectedWh     float64 `json:"injected_wh"`
	ConsumedWh     float64 `json:"consumed_wh"`
	DischargedWh   float64 `json:"discharged_wh"`
	FromGridWh     float64 `json:"from_grid_wh"`
	MeanConsumedWh float64 `json:"mean_consumed_wh"`
	PeakStockWh    float64 `json:"peak_stock_wh"`
}

// SelfSufficiency returns the share of consumption served by the battery.
func (s Summary) SelfSufficiency() float64 {
	if s.ConsumedWh == 0 {
		return 0
	}
	return s.DischargedWh / s.ConsumedWh
}

// Summarize computes run totals from the records.
func (r Result) Summarize() Summary {
	n := len(r.Records)
	if n == 0 {
		return Summary{}
	}
	injected := make([]float64, n)
	consumed := make([]float64, n)
	discharged := make([]float64, n)
	fromGrid := make([]float64, n)
	stock := make([]float64, n)
	for i, d := range r.Records {
		injected[i] = d.Injected
		consumed[i] = d.Consumed
		discharged[i] = d.Discharged
		fromGrid[i] = d.FromGrid
		stock[i] = d.Stock
	}
	return Summary{
		Hours:          n,
		InjectedWh:     floats.Sum(injected),
		ConsumedWh:     floats.Sum(consumed),
		DischargedWh:   floats.Sum(discharged),
		FromGridWh:     floats.Sum(fromGrid),
		MeanConsumedWh: stat.Mean(consumed, nil),
		PeakStockWh:    floats.Max(stock),
	}
}

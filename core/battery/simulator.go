package battery

import "time"

// DerivedRecord is the outcome of one simulated hour.
type DerivedRecord struct {
	Start time.Time `json:"start"`
	// Snapshots published to the statistics store.
	Stock     float64 `json:"stock_wh"`
	Discharge float64 `json:"discharge_wh"`
	GridDraw  float64 `json:"grid_draw_wh"`
	// Deltas of the hour.
	Injected   float64 `json:"injected_wh"`
	Consumed   float64 `json:"consumed_wh"`
	Discharged float64 `json:"discharged_wh"`
	FromGrid   float64 `json:"from_grid_wh"`
}

// Point is a single value of an output series.
type Point struct {
	Start time.Time
	Value float64
}

// Step advances the state by one hour. Injection is always credited in full,
// then consumption is served from the stock; whatever the stock cannot cover
// is drawn from the grid and the stock drops to zero.
func Step(s State, h HourlySample) (State, DerivedRecord) {
	injected := h.InjectionIndex - s.InjectionIndex
	consumed := h.ConsumptionIndex - s.ConsumptionIndex
	s.InjectionIndex = h.InjectionIndex
	s.ConsumptionIndex = h.ConsumptionIndex

	s.Stock += injected

	var discharged, fromGrid float64
	if s.Stock >= consumed {
		discharged = consumed
		s.Stock -= consumed
	} else {
		discharged = s.Stock
		fromGrid = consumed - s.Stock
		s.Stock = 0
	}
	s.Discharge += discharged
	s.GridDraw += fromGrid

	return s, DerivedRecord{
		Start:      h.Start,
		Stock:      s.Stock,
		Discharge:  s.Discharge,
		GridDraw:   s.GridDraw,
		Injected:   injected,
		Consumed:   consumed,
		Discharged: discharged,
		FromGrid:   fromGrid,
	}
}

// Result holds the records of a run and the state after the last hour.
type Result struct {
	Initial State
	Final   State
	Records []DerivedRecord
}

// Simulate pairs both curves and runs Step over every hour in order.
func Simulate(initial State, injection, consumption []Sample) (Result, error) {
	hours, err := Pair(injection, consumption)
	if err != nil {
		return Result{}, err
	}
	return Run(initial, hours), nil
}

// Run steps through already paired hours.
func Run(initial State, hours []HourlySample) Result {
	res := Result{Initial: initial, Records: make([]DerivedRecord, 0, len(hours))}
	st := initial
	for _, h := range hours {
		var rec DerivedRecord
		st, rec = Step(st, h)
		res.Records = append(res.Records, rec)
	}
	res.Final = st
	return res
}

// StockSeries returns the stock snapshot of every hour.
func (r Result) StockSeries() []Point {
	return r.series(func(d DerivedRecord) float64 { return d.Stock })
}

// DischargeSeries returns the cumulative battery discharge of every hour.
func (r Result) DischargeSeries() []Point {
	return r.series(func(d DerivedRecord) float64 { return d.Discharge })
}

// GridDrawSeries returns the cumulative grid draw of every hour.
func (r Result) GridDrawSeries() []Point {
	return r.series(func(d DerivedRecord) float64 { return d.GridDraw })
}

func (r Result) series(value func(DerivedRecord) float64) []Point {
	out := make([]Point, len(r.Records))
	for i, d := range r.Records {
		out[i] = Point{Start: d.Start, Value: value(d)}
	}
	return out
}

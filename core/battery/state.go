package battery

import "errors"

// ErrMissingStock is returned when no prior battery stock is known.
var ErrMissingStock = errors.New("battery stock not found")

// State is the simulation state threaded from one hour to the next.
type State struct {
	// Stock is the energy currently held by the battery.
	Stock float64 `json:"stock_wh"`
	// Discharge is the cumulative energy served from the battery.
	Discharge float64 `json:"discharge_wh"`
	// GridDraw is the cumulative energy that the battery could not cover.
	GridDraw float64 `json:"grid_draw_wh"`
	// InjectionIndex is the last injection meter index consumed.
	InjectionIndex float64 `json:"injection_index_wh"`
	// ConsumptionIndex is the last consumption meter index consumed.
	ConsumptionIndex float64 `json:"consumption_index_wh"`
}

// Field names a component of the seed state.
type Field string

const (
	FieldStock            Field = "stock"
	FieldDischarge        Field = "discharge"
	FieldGridDraw         Field = "grid_draw"
	FieldInjectionIndex   Field = "injection_index"
	FieldConsumptionIndex Field = "consumption_index"
)

// Seed holds the last known values at the start of a run. A nil field means
// the value could not be read.
type Seed struct {
	Stock            *float64
	Discharge        *float64
	GridDraw         *float64
	InjectionIndex   *float64
	ConsumptionIndex *float64
}

// Resolve turns the seed into an initial State. Stock is mandatory; every
// other missing field starts from zero and is reported in defaulted.
func (s Seed) Resolve() (State, []Field, error) {
	if s.Stock == nil {
		return State{}, nil, ErrMissingStock
	}
	var defaulted []Field
	get := func(v *float64, f Field) float64 {
		if v == nil {
			defaulted = append(defaulted, f)
			return 0
		}
		return *v
	}
	st := State{
		Stock:            *s.Stock,
		Discharge:        get(s.Discharge, FieldDischarge),
		GridDraw:         get(s.GridDraw, FieldGridDraw),
		InjectionIndex:   get(s.InjectionIndex, FieldInjectionIndex),
		ConsumptionIndex: get(s.ConsumptionIndex, FieldConsumptionIndex),
	}
	return st, defaulted, nil
}

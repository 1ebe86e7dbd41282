// Package scenarios loads simulator scenarios described in YAML and checks
// their outcome.
package scenarios

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/vbattery/core/battery"
)

// SeedDef lists the last known values. Omitted keys are unknown.
type SeedDef struct {
	Stock            *float64 `yaml:"stock"`
	Discharge        *float64 `yaml:"discharge"`
	GridDraw         *float64 `yaml:"grid_draw"`
	InjectionIndex   *float64 `yaml:"injection_index"`
	ConsumptionIndex *float64 `yaml:"consumption_index"`
}

func (s SeedDef) ToSeed() battery.Seed {
	return battery.Seed{
		Stock:            s.Stock,
		Discharge:        s.Discharge,
		GridDraw:         s.GridDraw,
		InjectionIndex:   s.InjectionIndex,
		ConsumptionIndex: s.ConsumptionIndex,
	}
}

// HourDef is one hour of meter indexes. ConsumptionStart overrides Start for
// the consumption curve.
type HourDef struct {
	Start            string  `yaml:"start"`
	ConsumptionStart string  `yaml:"consumption_start,omitempty"`
	Injection        float64 `yaml:"injection"`
	Consumption      float64 `yaml:"consumption"`
}

type Expected struct {
	Error     string          `yaml:"error,omitempty"`
	Stock     float64         `yaml:"stock"`
	Discharge float64         `yaml:"discharge"`
	GridDraw  float64         `yaml:"grid_draw"`
	Defaulted []battery.Field `yaml:"defaulted,omitempty"`
	Hours     int             `yaml:"hours"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Seed        SeedDef   `yaml:"seed"`
	Hours       []HourDef `yaml:"hours"`
	Expected    Expected  `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	return &sc, nil
}

// LoadDir loads every .yaml file of dir in lexical order.
func LoadDir(dir string) ([]*Scenario, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make([]*Scenario, 0, len(files))
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		out = append(out, sc)
	}
	return out, nil
}

// Samples builds both curves of the scenario.
func (sc *Scenario) Samples() (injection, consumption []battery.Sample, err error) {
	for i, h := range sc.Hours {
		start, err := time.Parse(time.RFC3339, h.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("hour %d: %w", i, err)
		}
		cstart := start
		if h.ConsumptionStart != "" {
			if cstart, err = time.Parse(time.RFC3339, h.ConsumptionStart); err != nil {
				return nil, nil, fmt.Errorf("hour %d: %w", i, err)
			}
		}
		injection = append(injection, battery.Sample{Start: start, Sum: h.Injection})
		consumption = append(consumption, battery.Sample{Start: cstart, Sum: h.Consumption})
	}
	return injection, consumption, nil
}

// Outcome is the observable result of running a scenario.
type Outcome struct {
	Result    battery.Result
	Defaulted []battery.Field
	Err       error
}

// Run resolves the seed and simulates the hours. Simulation errors are
// reported in the outcome; only a malformed scenario returns an error.
func Run(sc *Scenario) (Outcome, error) {
	inj, cons, err := sc.Samples()
	if err != nil {
		return Outcome{}, err
	}
	initial, defaulted, err := sc.Seed.ToSeed().Resolve()
	if err != nil {
		return Outcome{Err: err}, nil
	}
	res, err := battery.Simulate(initial, inj, cons)
	return Outcome{Result: res, Defaulted: defaulted, Err: err}, nil
}

var namedErrors = map[string]error{
	"missing_stock":      battery.ErrMissingStock,
	"timestamp_mismatch": battery.ErrTimestampMismatch,
	"length_mismatch":    battery.ErrLengthMismatch,
}

// Check compares the outcome with the scenario expectations.
func (sc *Scenario) Check(out Outcome) error {
	exp := sc.Expected
	if exp.Error != "" {
		want, ok := namedErrors[exp.Error]
		if !ok {
			return fmt.Errorf("unknown expected error %q", exp.Error)
		}
		if !errors.Is(out.Err, want) {
			return fmt.Errorf("expected error %s, got %v", exp.Error, out.Err)
		}
		if len(out.Result.Records) != 0 {
			return fmt.Errorf("expected no output, got %d records", len(out.Result.Records))
		}
		return nil
	}
	if out.Err != nil {
		return fmt.Errorf("unexpected error: %w", out.Err)
	}
	final := out.Result.Final
	checks := []struct {
		name      string
		got, want float64
	}{
		{"stock", final.Stock, exp.Stock},
		{"discharge", final.Discharge, exp.Discharge},
		{"grid_draw", final.GridDraw, exp.GridDraw},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			return fmt.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
	if exp.Hours != 0 && len(out.Result.Records) != exp.Hours {
		return fmt.Errorf("hours: got %d want %d", len(out.Result.Records), exp.Hours)
	}
	if !slices.Equal(out.Defaulted, exp.Defaulted) {
		return fmt.Errorf("defaulted: got %v want %v", out.Defaulted, exp.Defaulted)
	}
	return nil
}

package app

import (
	"os"

	"github.com/kilianp07/vbattery/core/battery"
	"github.com/kilianp07/vbattery/core/period"
	"github.com/kilianp07/vbattery/pkg/export"
)

func writeChart(path string, rng period.Range, recs []battery.DerivedRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteChart(f, "Virtual battery "+rng.String(), recs)
}

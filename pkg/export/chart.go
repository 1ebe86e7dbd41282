package export

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/vbattery/core/battery"
)

// WriteChart renders the stock, discharge and grid draw curves of a run as a
// standalone HTML page.
func WriteChart(w io.Writer, title string, recs []battery.DerivedRecord) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Wh"}),
	)

	xAxis := make([]string, len(recs))
	stock := make([]opts.LineData, len(recs))
	discharge := make([]opts.LineData, len(recs))
	grid := make([]opts.LineData, len(recs))
	for i, r := range recs {
		xAxis[i] = r.Start.Format("01-02 15:04")
		stock[i] = opts.LineData{Value: r.Stock}
		discharge[i] = opts.LineData{Value: r.Discharge}
		grid[i] = opts.LineData{Value: r.GridDraw}
	}
	line.SetXAxis(xAxis).
		AddSeries("Stock", stock).
		AddSeries("Discharge", discharge).
		AddSeries("Grid draw", grid)
	return line.Render(w)
}

package stats

// Gauge returns the gauge value of p multiplied by scale, or nil when the
// store holds no gauge value.
//
// The battery stock is written back in Wh under a kWh label, so reading it
// requires a scale of 1000 to land in Wh again.
func Gauge(p *Point, scale float64) *float64 {
	if p == nil || p.State == nil {
		return nil
	}
	v := *p.State * scale
	return &v
}

// Cumulative returns the sum value of p, or nil when absent.
func Cumulative(p *Point) *float64 {
	if p == nil || p.Sum == nil {
		return nil
	}
	v := *p.Sum
	return &v
}

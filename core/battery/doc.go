// Package battery reconstructs the state of a virtual home battery from two
// cumulative meter curves.
//
// Energy injected to the grid is credited to the battery stock, energy
// consumed from the grid is served from the stock while it lasts and the
// remainder is counted as grid draw. The simulation is a pure function of an
// initial State and the paired hourly samples:
//
//	seed, defaulted, err := battery.Seed{Stock: &stock}.Resolve()
//	res, err := battery.Simulate(seed, injection, consumption)
//	stock := res.StockSeries()
//
// All quantities are Wh. Counter resets and capacity limits are not modelled:
// a decreasing meter index yields a negative delta that flows through the
// arithmetic unchanged.
package battery

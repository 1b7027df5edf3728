// Package risk encodes guard-rails for how much size the execution gate may take on.
package risk

// Limits bounds a single trade attempt.
type Limits struct {
	MinTradeSize        float64
	MaxNotionalPerTrade float64
}

// AboveMinimum reports whether the notional clears the minimum trade size.
func (l Limits) AboveMinimum(notional float64) bool {
	return notional >= l.MinTradeSize
}

// Allow reports whether the notional fits under the per-trade cap. A zero cap
// disables the check.
func (l Limits) Allow(notional float64) bool {
	return l.MaxNotionalPerTrade <= 0 || notional <= l.MaxNotionalPerTrade
}

// Package signal standardizes payloads shared between data ingestion, the indicator
// pipeline, and the decision engine.
package signal

import "time"

// Tick models the essential pieces of market data consumed by the indicator pipeline.
type Tick struct {
	Pair  string
	Price float64
	Size  float64
	Side  int // +1 buy, -1 sell (aggressor)
	Ts    time.Time
}

// LevelKind tags a key level as support or resistance.
type LevelKind string

const (
	// Support marks a local price minimum.
	Support LevelKind = "support"
	// Resistance marks a local price maximum.
	Resistance LevelKind = "resistance"
)

// KeyLevel is a detected local price extremum near the current price.
type KeyLevel struct {
	Price  float64
	Volume float64
	Kind   LevelKind
}

// MarketObservation is one structured sample handed to the decision engine.
// Assembled fresh each cycle by the indicator pipeline, never mutated afterwards.
type MarketObservation struct {
	Pair           string
	Price          float64
	Volume         float64
	SignalStrength float64 // nominally [-1,1]; deliberately not enforced at this boundary
	KeyLevels      []KeyLevel
	PortfolioValue float64
	Ts             time.Time
}

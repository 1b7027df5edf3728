package engine

import "time"

// Action enumerates what the engine wants done this cycle.
type Action string

const (
	// Buy grows the position.
	Buy Action = "buy"
	// Sell shrinks or flips the position.
	Sell Action = "sell"
	// Hold leaves the book alone this cycle.
	Hold Action = "hold"
)

// Position enumerates the directional state of the book.
type Position string

const (
	// Long holds a positive base-asset quantity.
	Long Position = "long"
	// Short holds a negative base-asset quantity.
	Short Position = "short"
	// Neutral holds nothing.
	Neutral Position = "neutral"
)

// LastAction remembers the most recent non-hold decision.
type LastAction struct {
	Action Action
	Price  float64
	Ts     time.Time
}

// State is the engine's persisted memory. One value per trading pair; never share a
// State across pairs.
type State struct {
	Position     Position
	PositionSize float64 // signed, base-asset quantity
	Momentum     float64
	PriceHistory []float64 // at most MomentumPeriod entries, oldest first
	LastAction   *LastAction
}

// NewState returns the neutral starting state.
func NewState() State {
	return State{Position: Neutral}
}

// Clone deep-copies the state so snapshots cannot alias engine-owned memory.
func (s State) Clone() State {
	out := s
	out.PriceHistory = append([]float64(nil), s.PriceHistory...)
	if s.LastAction != nil {
		la := *s.LastAction
		out.LastAction = &la
	}
	return out
}

// RiskParams carries the protective levels accompanying a non-hold decision.
// TakeProfit is always 3x StopLoss for any reaction ratio (1.5 vs 0.5 multipliers).
type RiskParams struct {
	StopLoss   float64
	TakeProfit float64
	HedgeSize  float64
}

// Decision is the outcome of one analyze call, valid for exactly one cycle.
type Decision struct {
	Action             Action
	Position           Position
	PositionSize       float64
	PositionChange     float64 // new size minus old size
	Force              float64 // combined force
	Acceleration       float64
	Momentum           float64
	GravitationalForce float64
	Risk               *RiskParams // nil when Action == Hold
	Reason             string
}

// ValidationError reports a structurally invalid observation. Raised before any state
// mutation so a bad sample can never leave the engine half-updated.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return "invalid observation: " + e.Field + ": " + e.Msg
}

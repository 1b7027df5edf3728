// Package engine implements the signal and risk decision core: a force-composition
// model over market observations that decides whether to hold, grow, or shrink a
// position and how much protection to attach.
package engine

import (
	"fmt"
	"math"
	"sync"

	"gravbot-go/internal/signal"
)

// Force weights are fixed, not tunable: base signal dominates, momentum and
// gravitation contribute equally.
const (
	signalWeight   = 0.6
	momentumWeight = 0.2
	gravityWeight  = 0.2

	// sizeDeadBand is the minimum position-size change worth acting on.
	sizeDeadBand = 0.01
)

// Engine owns one pair's state and applies the decision core to incoming
// observations. Construct one Engine per trading pair.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	state State
}

// New builds an engine with resolved configuration and a neutral starting state.
func New(patch Patch) *Engine {
	return &Engine{cfg: ResolveConfig(patch), state: NewState()}
}

// Analyze runs one decision cycle. Pure with respect to its inputs: the same
// observation against the same state and config always yields the same decision.
func (e *Engine) Analyze(obs signal.MarketObservation) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dec, next, err := analyze(obs, e.state, e.cfg)
	if err != nil {
		return Decision{}, err
	}
	e.state = next
	return dec, nil
}

// GetState returns a read-only deep copy of the current state.
func (e *Engine) GetState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Reset forces the engine back to neutral with zeroed size and history.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.state = NewState()
	e.mu.Unlock()
}

// UpdateConfig merges the patch into the current configuration. Takes effect on the
// next Analyze call.
func (e *Engine) UpdateConfig(p Patch) {
	e.mu.Lock()
	e.cfg = e.cfg.apply(p)
	e.mu.Unlock()
}

// Config returns the currently resolved configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// analyze is the pure decision core: (observation, state, config) -> (decision, state').
// The input state is never mutated; on a refused transition it is returned unchanged.
func analyze(obs signal.MarketObservation, st State, cfg Config) (Decision, State, error) {
	if err := validate(obs); err != nil {
		return Decision{}, st, err
	}

	// Candidate price window; committed only if the inertia gate passes.
	window := append(append([]float64(nil), st.PriceHistory...), obs.Price)
	if len(window) > cfg.MomentumPeriod {
		window = window[len(window)-cfg.MomentumPeriod:]
	}
	momentum := 0.0
	if len(window) >= 2 && window[0] != 0 {
		momentum = cfg.TradingMass * (obs.Price - window[0]) / window[0]
	}

	gravity := gravitationalForce(obs.KeyLevels, obs.Price, cfg.GravitationalConstant)

	force := obs.SignalStrength*signalWeight + momentum*momentumWeight + gravity*gravityWeight

	if math.Abs(force) < cfg.InertiaThreshold {
		return Decision{
			Action:             Hold,
			Position:           st.Position,
			PositionSize:       st.PositionSize,
			Force:              force,
			Momentum:           momentum,
			GravitationalForce: gravity,
			Reason:             fmt.Sprintf("combined force %.4f below inertia threshold %.4f", force, cfg.InertiaThreshold),
		}, st, nil
	}

	acceleration := force / cfg.TradingMass
	maxSize := cfg.MaxPositionSize * obs.PortfolioValue
	newSize := clamp(st.PositionSize+acceleration, -maxSize, maxSize)
	change := newSize - st.PositionSize

	action := Hold
	position := st.Position
	switch {
	case change > sizeDeadBand:
		action = Buy
		position = Long
	case change < -sizeDeadBand:
		action = Sell
		switch {
		case newSize < 0:
			position = Short
		case newSize == 0:
			position = Neutral
		default:
			position = Long
		}
	}

	risk := RiskParams{
		StopLoss:   math.Abs(newSize) * cfg.RiskReactionRatio * 0.5,
		TakeProfit: math.Abs(newSize) * cfg.RiskReactionRatio * 1.5,
		HedgeSize:  math.Abs(newSize) * cfg.RiskReactionRatio * 0.2,
	}

	dec := Decision{
		Action:             action,
		Position:           position,
		PositionSize:       newSize,
		PositionChange:     change,
		Force:              force,
		Acceleration:       acceleration,
		Momentum:           momentum,
		GravitationalForce: gravity,
		Reason:             fmt.Sprintf("force %.4f accel %.4f size %.4f->%.4f", force, acceleration, st.PositionSize, newSize),
	}
	if action != Hold {
		dec.Risk = &risk
	}

	// Dead-band holds still absorb the drift into state; only the inertia gate above
	// leaves state untouched.
	next := State{
		Position:     position,
		PositionSize: newSize,
		Momentum:     momentum,
		PriceHistory: window,
		LastAction:   st.LastAction,
	}
	if action != Hold {
		next.LastAction = &LastAction{Action: action, Price: obs.Price, Ts: obs.Ts}
	}
	return dec, next, nil
}

// gravitationalForce sums the pull of each key level on the current price: positive
// when the level sits above (attracts upward), negative below, magnitude
// volume/distance^2 scaled by the constant. Zero-distance levels are skipped since
// force is undefined there. The sum is clamped to [-1, 1].
func gravitationalForce(levels []signal.KeyLevel, price float64, g float64) float64 {
	var total float64
	for _, lvl := range levels {
		dist := lvl.Price - price
		if dist == 0 {
			continue
		}
		f := g * lvl.Volume / (dist * dist)
		if dist < 0 {
			f = -f
		}
		total += f
	}
	return clamp(total, -1, 1)
}

func validate(obs signal.MarketObservation) error {
	if obs.Price <= 0 || math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) {
		return &ValidationError{Field: "price", Msg: fmt.Sprintf("must be a positive finite number, got %v", obs.Price)}
	}
	if math.IsNaN(obs.SignalStrength) || math.IsInf(obs.SignalStrength, 0) {
		return &ValidationError{Field: "signalStrength", Msg: "must be a finite number"}
	}
	if obs.PortfolioValue < 0 || math.IsNaN(obs.PortfolioValue) {
		return &ValidationError{Field: "portfolioValue", Msg: "must be non-negative"}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

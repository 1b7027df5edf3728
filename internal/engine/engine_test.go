package engine

import (
	"math"
	"reflect"
	"testing"
	"time"

	"gravbot-go/internal/signal"
)

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func obsWith(strength float64) signal.MarketObservation {
	return signal.MarketObservation{
		Pair:           "SOL/USDC",
		Price:          100,
		SignalStrength: strength,
		PortfolioValue: 10000,
		Ts:             time.Now(),
	}
}

func TestWeakForceHolds(t *testing.T) {
	// threshold 0.15, strength 0.10, no momentum/gravity: force 0.06, hold.
	eng := New(Patch{InertiaThreshold: f64(0.15)})
	dec, err := eng.Analyze(obsWith(0.10))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.Action != Hold {
		t.Fatalf("expected hold, got %s", dec.Action)
	}
	if math.Abs(dec.Force-0.06) > 1e-12 {
		t.Fatalf("expected combined force 0.06, got %v", dec.Force)
	}
	if dec.Risk != nil {
		t.Fatalf("hold decision must not carry risk params")
	}
}

func TestStrongForceBuysLong(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.15), MaxPositionSize: f64(0.3)})
	dec, err := eng.Analyze(obsWith(0.75))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if math.Abs(dec.Force-0.45) > 1e-12 {
		t.Fatalf("expected combined force 0.45, got %v", dec.Force)
	}
	if dec.Action != Buy || dec.Position != Long {
		t.Fatalf("expected buy/long, got %s/%s", dec.Action, dec.Position)
	}
	if st := eng.GetState(); st.Position != Long || st.PositionSize != dec.PositionSize {
		t.Fatalf("state not committed: %+v", st)
	}
}

func TestInertiaGateLeavesStateUntouched(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.15), MaxPositionSize: f64(0.3)})
	if _, err := eng.Analyze(obsWith(0.75)); err != nil {
		t.Fatalf("seed analyze: %v", err)
	}
	before := eng.GetState()

	dec, err := eng.Analyze(obsWith(0.01))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.Action != Hold {
		t.Fatalf("expected hold, got %s", dec.Action)
	}
	after := eng.GetState()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("refused transition mutated state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestAccelerationIsForceOverMass(t *testing.T) {
	for _, mass := range []float64{0.5, 1, 2, 7.25} {
		eng := New(Patch{InertiaThreshold: f64(0.01), TradingMass: f64(mass), MaxPositionSize: f64(1)})
		dec, err := eng.Analyze(obsWith(0.5))
		if err != nil {
			t.Fatalf("Analyze returned error: %v", err)
		}
		if dec.Acceleration != dec.Force/mass {
			t.Fatalf("mass %v: acceleration %v != force/mass %v", mass, dec.Acceleration, dec.Force/mass)
		}
	}
}

func TestPositionSizeBounded(t *testing.T) {
	// Out-of-range signal strength is deliberately not clamped at the boundary;
	// only the position-size clamp tames it.
	eng := New(Patch{InertiaThreshold: f64(0.15), MaxPositionSize: f64(0.3)})
	obs := obsWith(2.0)
	for i := 0; i < 50; i++ {
		dec, err := eng.Analyze(obs)
		if err != nil {
			t.Fatalf("Analyze returned error: %v", err)
		}
		if math.Abs(dec.PositionSize) > 0.3*obs.PortfolioValue+1e-9 {
			t.Fatalf("cycle %d: |size| %v exceeds bound %v", i, dec.PositionSize, 0.3*obs.PortfolioValue)
		}
	}
}

func TestRiskRatioFixedAtThree(t *testing.T) {
	for _, ratio := range []float64{0.1, 0.5, 1, 3.3} {
		eng := New(Patch{InertiaThreshold: f64(0.1), RiskReactionRatio: f64(ratio), MaxPositionSize: f64(0.5)})
		dec, err := eng.Analyze(obsWith(0.9))
		if err != nil {
			t.Fatalf("Analyze returned error: %v", err)
		}
		if dec.Risk == nil {
			t.Fatalf("ratio %v: expected risk params on %s", ratio, dec.Action)
		}
		if got := dec.Risk.TakeProfit / dec.Risk.StopLoss; math.Abs(got-3) > 1e-9 {
			t.Fatalf("ratio %v: TP/SL = %v, want 3", ratio, got)
		}
		if want := math.Abs(dec.PositionSize) * ratio * 0.2; math.Abs(dec.Risk.HedgeSize-want) > 1e-12 {
			t.Fatalf("ratio %v: hedge %v, want %v", ratio, dec.Risk.HedgeSize, want)
		}
	}
}

func TestGravityZeroWithoutLevels(t *testing.T) {
	eng := New(Patch{})
	dec, err := eng.Analyze(obsWith(0.5))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.GravitationalForce != 0 {
		t.Fatalf("expected zero gravity, got %v", dec.GravitationalForce)
	}
}

func TestGravityClampAndDirection(t *testing.T) {
	// Raw pull 0.001*10000/1 = 10, clamped to magnitude 1. A level below the price
	// pulls downward, a level above pulls upward.
	below := gravitationalForce([]signal.KeyLevel{{Price: 94, Volume: 10000, Kind: signal.Support}}, 95, 0.001)
	if below != -1 {
		t.Fatalf("level below price: got %v, want -1", below)
	}
	above := gravitationalForce([]signal.KeyLevel{{Price: 96, Volume: 10000, Kind: signal.Resistance}}, 95, 0.001)
	if above != 1 {
		t.Fatalf("level above price: got %v, want 1", above)
	}
}

func TestGravitySkipsZeroDistance(t *testing.T) {
	got := gravitationalForce([]signal.KeyLevel{{Price: 95, Volume: 10000}}, 95, 0.001)
	if got != 0 {
		t.Fatalf("zero-distance level must contribute nothing, got %v", got)
	}
}

func TestMomentumFloor(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.01)})
	dec, err := eng.Analyze(obsWith(0.5))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.Momentum != 0 {
		t.Fatalf("single-sample window must yield zero momentum, got %v", dec.Momentum)
	}
}

func TestMomentumUsesOldestWindowPrice(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.01), TradingMass: f64(2), MomentumPeriod: intp(5), MaxPositionSize: f64(1)})
	prices := []float64{100, 102, 104}
	var dec Decision
	for _, px := range prices {
		obs := obsWith(0.5)
		obs.Price = px
		var err error
		dec, err = eng.Analyze(obs)
		if err != nil {
			t.Fatalf("Analyze returned error: %v", err)
		}
	}
	want := 2 * (104.0 - 100.0) / 100.0
	if math.Abs(dec.Momentum-want) > 1e-12 {
		t.Fatalf("momentum %v, want %v", dec.Momentum, want)
	}
}

func TestPriceWindowBounded(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.01), MomentumPeriod: intp(3), MaxPositionSize: f64(1)})
	for i := 0; i < 10; i++ {
		obs := obsWith(0.5)
		obs.Price = 100 + float64(i)
		if _, err := eng.Analyze(obs); err != nil {
			t.Fatalf("Analyze returned error: %v", err)
		}
	}
	st := eng.GetState()
	if len(st.PriceHistory) != 3 {
		t.Fatalf("window length %d, want 3", len(st.PriceHistory))
	}
	if st.PriceHistory[0] != 107 || st.PriceHistory[2] != 109 {
		t.Fatalf("window not sliding oldest-first: %v", st.PriceHistory)
	}
}

func TestDeadBandHoldStillCommitsSize(t *testing.T) {
	// A force that passes the gate but moves size by less than the dead-band holds,
	// yet the clamped size is still absorbed into state (drift absorption).
	eng := New(Patch{InertiaThreshold: f64(0.001), TradingMass: f64(100), MaxPositionSize: f64(1)})
	dec, err := eng.Analyze(obsWith(0.5))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.Action != Hold {
		t.Fatalf("expected dead-band hold, got %s", dec.Action)
	}
	if dec.PositionChange == 0 {
		t.Fatalf("expected nonzero drift")
	}
	if st := eng.GetState(); st.PositionSize != dec.PositionSize {
		t.Fatalf("drift not committed: state %v, decision %v", st.PositionSize, dec.PositionSize)
	}
}

func TestSellFlipsShort(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.1), MaxPositionSize: f64(0.5)})
	dec, err := eng.Analyze(obsWith(-0.9))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.Action != Sell || dec.Position != Short {
		t.Fatalf("expected sell/short, got %s/%s", dec.Action, dec.Position)
	}
	if dec.PositionSize >= 0 {
		t.Fatalf("expected negative size, got %v", dec.PositionSize)
	}
}

func TestSellFromLargeLongStaysLong(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.1), MaxPositionSize: f64(1)})
	// Build up a long position well beyond one cycle's acceleration.
	for i := 0; i < 5; i++ {
		if _, err := eng.Analyze(obsWith(1.5)); err != nil {
			t.Fatalf("Analyze returned error: %v", err)
		}
	}
	dec, err := eng.Analyze(obsWith(-0.5))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.Action != Sell || dec.Position != Long {
		t.Fatalf("partial unwind should stay long: got %s/%s size %v", dec.Action, dec.Position, dec.PositionSize)
	}
}

func TestGetStateIdempotentAndIsolated(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.1), MaxPositionSize: f64(0.5)})
	if _, err := eng.Analyze(obsWith(0.9)); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	first := eng.GetState()
	second := eng.GetState()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consecutive snapshots differ:\n%+v\n%+v", first, second)
	}
	// Mutating a snapshot must not leak into the engine.
	if len(first.PriceHistory) > 0 {
		first.PriceHistory[0] = -1
	}
	if got := eng.GetState(); len(got.PriceHistory) > 0 && got.PriceHistory[0] == -1 {
		t.Fatalf("snapshot aliases engine state")
	}
}

func TestResetReturnsToNeutral(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.1), MaxPositionSize: f64(0.5)})
	if _, err := eng.Analyze(obsWith(0.9)); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	eng.Reset()
	st := eng.GetState()
	if st.Position != Neutral || st.PositionSize != 0 || len(st.PriceHistory) != 0 || st.LastAction != nil {
		t.Fatalf("reset left residue: %+v", st)
	}
}

func TestUpdateConfigTakesEffectNextCall(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.9)})
	dec, err := eng.Analyze(obsWith(0.75))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.Action != Hold {
		t.Fatalf("expected hold under high threshold")
	}
	eng.UpdateConfig(Patch{InertiaThreshold: f64(0.1), MaxPositionSize: f64(0.5)})
	dec, err = eng.Analyze(obsWith(0.75))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if dec.Action != Buy {
		t.Fatalf("expected buy after lowering threshold, got %s", dec.Action)
	}
}

func TestInvalidObservationFailsFast(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.1)})
	before := eng.GetState()

	bad := obsWith(0.9)
	bad.Price = 0
	if _, err := eng.Analyze(bad); err == nil {
		t.Fatalf("expected validation error for zero price")
	} else if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	bad = obsWith(math.NaN())
	if _, err := eng.Analyze(bad); err == nil {
		t.Fatalf("expected validation error for NaN signal strength")
	}

	if !reflect.DeepEqual(before, eng.GetState()) {
		t.Fatalf("failed validation mutated state")
	}
}

func TestLastActionRecorded(t *testing.T) {
	eng := New(Patch{InertiaThreshold: f64(0.1), MaxPositionSize: f64(0.5)})
	obs := obsWith(0.9)
	if _, err := eng.Analyze(obs); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	st := eng.GetState()
	if st.LastAction == nil {
		t.Fatalf("expected last action")
	}
	if st.LastAction.Action != Buy || st.LastAction.Price != obs.Price || !st.LastAction.Ts.Equal(obs.Ts) {
		t.Fatalf("unexpected last action: %+v", st.LastAction)
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg := ResolveConfig(Patch{})
	if cfg.TradingMass <= 0 || cfg.MomentumPeriod <= 0 || cfg.MaxPositionSize <= 0 || cfg.MaxPositionSize > 1 {
		t.Fatalf("defaults out of range: %+v", cfg)
	}
	// Out-of-range overrides fall back to defaults rather than poisoning the config.
	bad := ResolveConfig(Patch{TradingMass: f64(-1), MaxPositionSize: f64(2), MomentumPeriod: intp(0)})
	if !reflect.DeepEqual(cfg, bad) {
		t.Fatalf("invalid overrides should be ignored: %+v vs %+v", cfg, bad)
	}
}

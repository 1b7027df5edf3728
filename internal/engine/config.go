package engine

// Config is the fully resolved, immutable-per-session parameter set driving the
// decision core. Build one through ResolveConfig so defaults are applied exactly once
// instead of being sprinkled through call sites.
type Config struct {
	InertiaThreshold      float64 // minimum |combined force| before any position change
	TradingMass           float64 // resistance to change; higher mass, smaller moves
	RiskReactionRatio     float64 // scales stop-loss/take-profit/hedge against size
	GravitationalConstant float64 // key-level attraction strength
	MomentumPeriod        int     // price window length
	MaxPositionSize       float64 // fraction of portfolio, (0,1]
}

// Patch carries optional overrides for Config fields. Nil fields keep the current
// (or default) value.
type Patch struct {
	InertiaThreshold      *float64 `yaml:"inertia_threshold"`
	TradingMass           *float64 `yaml:"trading_mass"`
	RiskReactionRatio     *float64 `yaml:"risk_reaction_ratio"`
	GravitationalConstant *float64 `yaml:"gravitational_constant"`
	MomentumPeriod        *int     `yaml:"momentum_period"`
	MaxPositionSize       *float64 `yaml:"max_position_size"`
}

const (
	defaultInertiaThreshold      = 0.15
	defaultTradingMass           = 1.0
	defaultRiskReactionRatio     = 1.0
	defaultGravitationalConstant = 0.001
	defaultMomentumPeriod        = 10
	defaultMaxPositionSize       = 0.1
)

// ResolveConfig merges a patch over the engine defaults, rejecting out-of-range
// values in favor of the default rather than failing.
func ResolveConfig(p Patch) Config {
	cfg := Config{
		InertiaThreshold:      defaultInertiaThreshold,
		TradingMass:           defaultTradingMass,
		RiskReactionRatio:     defaultRiskReactionRatio,
		GravitationalConstant: defaultGravitationalConstant,
		MomentumPeriod:        defaultMomentumPeriod,
		MaxPositionSize:       defaultMaxPositionSize,
	}
	return cfg.apply(p)
}

func (c Config) apply(p Patch) Config {
	if p.InertiaThreshold != nil && *p.InertiaThreshold >= 0 {
		c.InertiaThreshold = *p.InertiaThreshold
	}
	if p.TradingMass != nil && *p.TradingMass > 0 {
		c.TradingMass = *p.TradingMass
	}
	if p.RiskReactionRatio != nil && *p.RiskReactionRatio > 0 {
		c.RiskReactionRatio = *p.RiskReactionRatio
	}
	if p.GravitationalConstant != nil && *p.GravitationalConstant >= 0 {
		c.GravitationalConstant = *p.GravitationalConstant
	}
	if p.MomentumPeriod != nil && *p.MomentumPeriod > 0 {
		c.MomentumPeriod = *p.MomentumPeriod
	}
	if p.MaxPositionSize != nil && *p.MaxPositionSize > 0 && *p.MaxPositionSize <= 1 {
		c.MaxPositionSize = *p.MaxPositionSize
	}
	return c
}

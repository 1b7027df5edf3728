// Package indicator turns a raw price feed into the structured observation the
// decision engine consumes: bounded price history per pair, a simple moving average,
// normalized momentum, and support/resistance key levels.
package indicator

import (
	"context"
	"sync"
	"time"

	"gravbot-go/internal/signal"
)

const (
	historyCap        = 100
	smaPeriod         = 20
	momentumReference = 0.10 // a 10% move maps to full-scale momentum
	levelProximity    = 0.10 // key levels must sit within 10% of current price
	levelMinSamples   = 10

	// placeholderLevelVolume stands in for real per-level traded volume, which the
	// feed does not report. Known simplification, kept deliberately.
	placeholderLevelVolume = 1000.0
)

// PriceSource supplies the next price sample for a pair. Implementations may hit the
// network (feed-backed) or synthesize a deterministic walk (simulated).
type PriceSource interface {
	Next(ctx context.Context, pair string) (price, volume float64, err error)
}

// Pipeline maintains per-pair price history and assembles market observations.
// Safe for concurrent use across different pairs; callers must not observe the same
// pair concurrently.
type Pipeline struct {
	source PriceSource

	mu     sync.Mutex
	series map[string]*pairSeries
}

type pairSeries struct {
	prices    []float64
	lastPrice float64
}

// NewPipeline builds a pipeline over the given price source.
func NewPipeline(source PriceSource) *Pipeline {
	return &Pipeline{source: source, series: make(map[string]*pairSeries)}
}

// Observe advances the pair's price, updates history, and assembles one observation.
// Source failures propagate unchanged; history is only touched on success.
func (p *Pipeline) Observe(ctx context.Context, pair string, portfolioValue float64) (signal.MarketObservation, error) {
	price, volume, err := p.source.Next(ctx, pair)
	if err != nil {
		return signal.MarketObservation{}, err
	}

	p.mu.Lock()
	series := p.series[pair]
	if series == nil {
		series = &pairSeries{}
		p.series[pair] = series
	}
	series.prices = append(series.prices, price)
	if len(series.prices) > historyCap {
		series.prices = series.prices[len(series.prices)-historyCap:]
	}
	series.lastPrice = price
	prices := append([]float64(nil), series.prices...)
	p.mu.Unlock()

	strength := 0.0
	if len(prices) >= smaPeriod {
		sma := SMA(prices, smaPeriod)
		if sma != 0 {
			strength = clamp((price-sma)/sma*10, -1, 1)
		}
	}

	return signal.MarketObservation{
		Pair:           pair,
		Price:          price,
		Volume:         volume,
		SignalStrength: strength,
		KeyLevels:      DetectKeyLevels(prices, price),
		PortfolioValue: portfolioValue,
		Ts:             time.Now(),
	}, nil
}

// LastPrice returns the most recently observed price for a pair (0 if never seen).
func (p *Pipeline) LastPrice(pair string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.series[pair]; s != nil {
		return s.lastPrice
	}
	return 0
}

// HistoryLen reports how many samples are stored for a pair.
func (p *Pipeline) HistoryLen(pair string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.series[pair]; s != nil {
		return len(s.prices)
	}
	return 0
}

// SMA is the arithmetic mean of the last min(period, len) samples. Short histories
// degrade to the mean of whatever is available rather than erroring.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 || period <= 0 {
		return 0
	}
	if period > len(prices) {
		period = len(prices)
	}
	var sum float64
	for _, px := range prices[len(prices)-period:] {
		sum += px
	}
	return sum / float64(period)
}

// Momentum is the relative move from the first to the last sample, normalized by a
// fixed 10% reference and clamped to [-1, 1]. Fewer than two samples yield zero.
func Momentum(prices []float64) float64 {
	if len(prices) < 2 || prices[0] == 0 {
		return 0
	}
	raw := (prices[len(prices)-1] - prices[0]) / prices[0]
	return clamp(raw/momentumReference, -1, 1)
}

// DetectKeyLevels scans interior samples for strict local extrema and keeps those
// within 10% of the current price. Requires at least 10 samples. Each level carries
// the placeholder volume constant.
func DetectKeyLevels(prices []float64, currentPrice float64) []signal.KeyLevel {
	if len(prices) < levelMinSamples || currentPrice <= 0 {
		return nil
	}
	var levels []signal.KeyLevel
	for i := 1; i < len(prices)-1; i++ {
		px := prices[i]
		var kind signal.LevelKind
		switch {
		case px > prices[i-1] && px > prices[i+1]:
			kind = signal.Resistance
		case px < prices[i-1] && px < prices[i+1]:
			kind = signal.Support
		default:
			continue
		}
		if abs(px-currentPrice)/currentPrice > levelProximity {
			continue
		}
		levels = append(levels, signal.KeyLevel{Price: px, Volume: placeholderLevelVolume, Kind: kind})
	}
	return levels
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Package gate converts engine decisions into gated, auditable trade attempts:
// minimum-size enforcement, quote retrieval, dry-run simulation, and trade history
// with summary statistics.
package gate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	dex "gravbot-go/internal/dex/solana"
	"gravbot-go/internal/metrics"
	"gravbot-go/internal/risk"
)

// Side enumerates trade directions.
type Side string

const (
	// Buy spends the quote asset for the base asset.
	Buy Side = "BUY"
	// Sell spends the base asset for the quote asset.
	Sell Side = "SELL"
)

const (
	reasonBelowMinimum   = "below minimum"
	reasonNotionalCap    = "notional limit exceeded"
	reasonNotImplemented = "not implemented"

	defaultHistoryCap = 1000
)

// QuoteProvider supplies swap quotes; satisfied by the Jupiter client (real or
// simulated, depending on network).
type QuoteProvider interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*dex.Quote, error)
}

// Recorder mirrors every trade record to an external sink.
type Recorder interface {
	Record(TradeRecord)
}

// PairInfo maps a trading pair to its on-chain mints.
type PairInfo struct {
	BaseMint      string
	QuoteMint     string
	BaseDecimals  int
	QuoteDecimals int
}

// TradeRecord is the audited outcome of one trade attempt. Never mutated after
// creation.
type TradeRecord struct {
	Pair           string    `json:"pair"`
	Side           Side      `json:"side"`
	Success        bool      `json:"success"`
	DryRun         bool      `json:"dryRun"`
	InputMint      string    `json:"inputMint"`
	OutputMint     string    `json:"outputMint"`
	InputAmount    uint64    `json:"inputAmount"`
	OutputAmount   uint64    `json:"outputAmount"`
	PriceImpactPct float64   `json:"priceImpactPct"`
	Ts             time.Time `json:"timestamp"`
	Reason         string    `json:"reason,omitempty"`
}

// Statistics summarizes the retained trade history.
type Statistics struct {
	TotalTrades      int
	SuccessfulTrades int
	DryRunTrades     int
	SuccessRate      float64 // percent; 0 when no trades
}

// Gate is the execution gate. Safe for concurrent use.
type Gate struct {
	log      zerolog.Logger
	provider QuoteProvider
	recorder Recorder

	ledger      *Ledger
	pairs       map[string]PairInfo
	limits      risk.Limits
	slippageBps int

	mu     sync.Mutex
	dryRun bool
}

// Config bundles gate construction parameters.
type Config struct {
	Pairs       map[string]PairInfo
	Limits      risk.Limits
	SlippageBps int
	DryRun      bool
	HistoryCap  int
	Recorder    Recorder // optional
}

// New builds a gate over the given quote provider.
func New(log zerolog.Logger, provider QuoteProvider, cfg Config) *Gate {
	capacity := cfg.HistoryCap
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &Gate{
		log:         log,
		provider:    provider,
		recorder:    cfg.Recorder,
		ledger:      NewLedger(capacity),
		pairs:       cfg.Pairs,
		limits:      cfg.Limits,
		slippageBps: cfg.SlippageBps,
		dryRun:      cfg.DryRun,
	}
}

// ExecuteBuy attempts to buy sizeFraction of the portfolio's value in the pair's
// base asset.
func (g *Gate) ExecuteBuy(ctx context.Context, pair string, sizeFraction, portfolioValue float64) (TradeRecord, error) {
	return g.execute(ctx, pair, Buy, sizeFraction, portfolioValue)
}

// ExecuteSell attempts to sell sizeFraction of the portfolio's value from the pair's
// base asset.
func (g *Gate) ExecuteSell(ctx context.Context, pair string, sizeFraction, portfolioValue float64) (TradeRecord, error) {
	return g.execute(ctx, pair, Sell, sizeFraction, portfolioValue)
}

// execute runs the gate checks in order: size floor and cap before any quote is
// requested, then quote, then dry-run record or live rejection. Rejections are
// routine outcomes returned as records; only transport/parse failures return errors,
// and those leave no trace in the history.
func (g *Gate) execute(ctx context.Context, pair string, side Side, sizeFraction, portfolioValue float64) (TradeRecord, error) {
	info, ok := g.pairs[pair]
	if !ok {
		return TradeRecord{}, fmt.Errorf("unknown pair %q", pair)
	}

	amount := portfolioValue * math.Abs(sizeFraction)
	if !g.limits.AboveMinimum(amount) {
		return g.commit(TradeRecord{
			Pair: pair, Side: side, Ts: time.Now(),
			Reason: reasonBelowMinimum,
		}), nil
	}
	if !g.limits.Allow(amount) {
		return g.commit(TradeRecord{
			Pair: pair, Side: side, Ts: time.Now(),
			Reason: reasonNotionalCap,
		}), nil
	}

	inputMint, outputMint := info.QuoteMint, info.BaseMint
	decimals := info.QuoteDecimals
	if side == Sell {
		inputMint, outputMint = info.BaseMint, info.QuoteMint
		decimals = info.BaseDecimals
	}
	inputAmount := toBaseUnits(amount, decimals)

	quote, err := g.provider.GetQuote(ctx, inputMint, outputMint, inputAmount, g.slippageBps)
	if err != nil {
		g.log.Warn().Err(err).Str("pair", pair).Str("side", string(side)).Msg("quote fetch failed")
		return TradeRecord{}, err
	}
	outputAmount, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return TradeRecord{}, &dex.ParseError{Op: "quote outAmount", Err: err}
	}

	rec := TradeRecord{
		Pair:           pair,
		Side:           side,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InputAmount:    inputAmount,
		OutputAmount:   outputAmount,
		PriceImpactPct: quote.PriceImpactPct,
		Ts:             time.Now(),
	}
	if !g.dryRunEnabled() {
		// Live submission stays unimplemented: refuse loudly instead of pretending.
		rec.Reason = reasonNotImplemented
		return g.commit(rec), nil
	}
	rec.Success = true
	rec.DryRun = true
	return g.commit(rec), nil
}

func (g *Gate) commit(rec TradeRecord) TradeRecord {
	g.ledger.Record(rec)
	if g.recorder != nil {
		g.recorder.Record(rec)
	}
	result := "rejected"
	if rec.Success {
		result = "executed"
	}
	metrics.TradesTotal.WithLabelValues(rec.Pair, result).Inc()
	g.log.Info().
		Str("pair", rec.Pair).
		Str("side", string(rec.Side)).
		Bool("success", rec.Success).
		Bool("dry_run", rec.DryRun).
		Uint64("in", rec.InputAmount).
		Uint64("out", rec.OutputAmount).
		Str("reason", rec.Reason).
		Msg("trade attempt")
	return rec
}

// SetDryRun toggles simulation mode; takes effect on the next call only.
func (g *Gate) SetDryRun(enabled bool) {
	g.mu.Lock()
	g.dryRun = enabled
	g.mu.Unlock()
}

func (g *Gate) dryRunEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dryRun
}

// Statistics recomputes summary counters from the full retained history on every
// call, so truncation can never desynchronize them.
func (g *Gate) Statistics() Statistics {
	records := g.ledger.Snapshot()
	stats := Statistics{TotalTrades: len(records)}
	for _, rec := range records {
		if rec.Success {
			stats.SuccessfulTrades++
		}
		if rec.DryRun {
			stats.DryRunTrades++
		}
	}
	if stats.TotalTrades > 0 {
		stats.SuccessRate = float64(stats.SuccessfulTrades) / float64(stats.TotalTrades) * 100
	}
	return stats
}

// History returns the most recent n records in chronological order.
func (g *Gate) History(n int) []TradeRecord {
	return g.ledger.Tail(n)
}

// ClearHistory drops all retained records.
func (g *Gate) ClearHistory() {
	g.ledger.Reset()
}

func toBaseUnits(amount float64, decimals int) uint64 {
	scale := math.Pow10(decimals)
	units := amount * scale
	if units < 0 || math.IsNaN(units) || math.IsInf(units, 0) {
		return 0
	}
	return uint64(units)
}

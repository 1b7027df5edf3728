// Package exchange hosts price-feed connectors backing the indicator pipeline.
package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gravbot-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
	// ProviderDexScreener polls the Dexscreener HTTP API for on-chain pairs.
	ProviderDexScreener = "dexscreener"
)

// Feed represents a pluggable market data stream implementation. It caches the last
// tick per pair so the pipeline can pull prices on its own cadence.
type Feed struct {
	provider                string
	pairs                   []string
	log                     zerolog.Logger
	pollInterval            time.Duration
	dexscreenerBaseURL      string
	dexscreenerDefaultChain string

	mu        sync.RWMutex
	lastTicks map[string]signal.Tick
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultPollInterval       = 2 * time.Second
	defaultDexScreenerBaseURL = "https://api.dexscreener.com"
)

// WithPollInterval overrides the default polling cadence for HTTP-based feeds.
func WithPollInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithDexScreenerConfig injects base URL and default chain metadata for Dexscreener.
func WithDexScreenerConfig(baseURL, defaultChain string) Option {
	return func(f *Feed) {
		if baseURL != "" {
			f.dexscreenerBaseURL = strings.TrimSuffix(baseURL, "/")
		}
		if defaultChain != "" {
			f.dexscreenerDefaultChain = strings.ToLower(defaultChain)
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, pairs []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:           strings.ToLower(provider),
		log:                log,
		pollInterval:       defaultPollInterval,
		dexscreenerBaseURL: defaultDexScreenerBaseURL,
		lastTicks:          make(map[string]signal.Tick),
	}
	f.setPairs(pairs)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) setPairs(pairs []string) {
	unique := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	f.pairs = f.pairs[:0]
	for p := range unique {
		f.pairs = append(f.pairs, p)
	}
	sort.Strings(f.pairs)
}

// Run pushes ticks onto the provided channel until the context is canceled, caching
// the latest tick per pair along the way.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	case ProviderDexScreener:
		return f.runDexScreener(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// LastTick returns the most recent cached tick for the pair.
func (f *Feed) LastTick(pair string) (signal.Tick, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tk, ok := f.lastTicks[pair]
	return tk, ok
}

func (f *Feed) emit(ctx context.Context, out chan<- signal.Tick, tk signal.Tick) error {
	f.mu.Lock()
	f.lastTicks[tk.Pair] = tk
	f.mu.Unlock()
	select {
	case out <- tk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var px float64 = 100.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += 0.1
			for _, p := range f.pairs {
				tk := signal.Tick{Pair: p, Price: px, Size: 1, Side: 1, Ts: ts}
				if err := f.emit(ctx, out, tk); err != nil {
					return err
				}
			}
		}
	}
}

// Source adapts a running feed into the pipeline's price source: each call hands out
// the latest cached tick, failing when no tick has arrived yet.
type Source struct {
	feed *Feed
}

// NewSource wraps a feed for use by the indicator pipeline.
func NewSource(feed *Feed) *Source { return &Source{feed: feed} }

// Next returns the latest price and size seen for the pair.
func (s *Source) Next(_ context.Context, pair string) (float64, float64, error) {
	tk, ok := s.feed.LastTick(pair)
	if !ok {
		return 0, 0, fmt.Errorf("no tick received yet for %s", pair)
	}
	return tk.Price, tk.Size, nil
}

package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gravbot-go/internal/signal"
)

type dexscreenerTarget struct {
	Pair    string
	Chain   string
	Address string
}

type dexscreenerPairsResponse struct {
	Pairs []dexscreenerPair `json:"pairs"`
	Pair  *dexscreenerPair  `json:"pair"`
}

type dexscreenerPair struct {
	PriceUsd    string               `json:"priceUsd"`
	PriceNative string               `json:"priceNative"`
	Txns        dexscreenerTxns      `json:"txns"`
	Volume      dexscreenerVolumes   `json:"volume"`
	Liquidity   dexscreenerLiquidity `json:"liquidity"`
}

type dexscreenerTxns struct {
	M5 dexscreenerTxn `json:"m5"`
}

type dexscreenerTxn struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type dexscreenerVolumes struct {
	M5 float64 `json:"m5"`
}

type dexscreenerLiquidity struct {
	USD float64 `json:"usd"`
}

func (r *dexscreenerPairsResponse) firstPair() (*dexscreenerPair, bool) {
	if len(r.Pairs) > 0 {
		return &r.Pairs[0], true
	}
	if r.Pair != nil {
		return r.Pair, true
	}
	return nil, false
}

func (f *Feed) runDexScreener(ctx context.Context, out chan<- signal.Tick) error {
	client := &http.Client{Timeout: 10 * time.Second}
	targets, err := parseDexScreenerPairs(f.pairs, f.dexscreenerDefaultChain)
	if err != nil {
		return err
	}
	if err := f.pollDexScreener(ctx, client, targets, out); err != nil && !errors.Is(err, context.Canceled) {
		f.log.Warn().Err(err).Msg("initial dexscreener poll failed")
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.pollDexScreener(ctx, client, targets, out); err != nil && !errors.Is(err, context.Canceled) {
				f.log.Warn().Err(err).Msg("dexscreener poll failed")
			}
		}
	}
}

func (f *Feed) pollDexScreener(ctx context.Context, client *http.Client, targets []dexscreenerTarget, out chan<- signal.Tick) error {
	for _, target := range targets {
		tk, err := f.fetchDexScreener(ctx, client, target)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Str("pair", target.Pair).Msg("dexscreener fetch failed")
			continue
		}
		if err := f.emit(ctx, out, *tk); err != nil {
			return err
		}
	}
	return nil
}

func (f *Feed) fetchDexScreener(ctx context.Context, client *http.Client, target dexscreenerTarget) (*signal.Tick, error) {
	url := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", f.dexscreenerBaseURL, target.Chain, target.Address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "gravbot-go/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload dexscreenerPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	pair, ok := payload.firstPair()
	if !ok {
		return nil, fmt.Errorf("no pair data returned")
	}
	price, err := parseDexScreenerPrice(pair)
	if err != nil {
		return nil, err
	}
	qty := pair.Volume.M5 / math.Max(price, 1e-12) / 300
	if qty <= 0 {
		qty = math.Max(1e-6, 10/price)
	}

	last, _ := f.LastTick(target.Pair)
	side := 1
	switch {
	case last.Price > price:
		side = -1
	case last.Price == price && pair.Txns.M5.Sells > pair.Txns.M5.Buys:
		side = -1
	}

	return &signal.Tick{
		Pair:  target.Pair,
		Price: price,
		Size:  qty,
		Side:  side,
		Ts:    time.Now().UTC(),
	}, nil
}

func parseDexScreenerPrice(pair *dexscreenerPair) (float64, error) {
	if pair == nil {
		return 0, fmt.Errorf("pair missing")
	}
	if pair.PriceUsd != "" {
		if px, err := strconv.ParseFloat(pair.PriceUsd, 64); err == nil && px > 0 {
			return px, nil
		}
	}
	if pair.PriceNative != "" {
		if px, err := strconv.ParseFloat(pair.PriceNative, 64); err == nil && px > 0 {
			return px, nil
		}
	}
	return 0, fmt.Errorf("no usable price on pair")
}

// parseDexScreenerPairs accepts entries shaped "PAIR@chain/ADDRESS"; a missing chain
// falls back to the default.
func parseDexScreenerPairs(pairs []string, defaultChain string) ([]dexscreenerTarget, error) {
	targets := make([]dexscreenerTarget, 0, len(pairs))
	for _, entry := range pairs {
		name, spec, found := strings.Cut(entry, "@")
		if !found {
			return nil, fmt.Errorf("dexscreener pair %q missing @chain/address suffix", entry)
		}
		chain, address, found := strings.Cut(spec, "/")
		if !found || address == "" {
			return nil, fmt.Errorf("dexscreener pair %q missing pair address", entry)
		}
		if chain == "" {
			chain = defaultChain
		}
		if chain == "" {
			return nil, fmt.Errorf("dexscreener pair %q has no chain and no default configured", entry)
		}
		targets = append(targets, dexscreenerTarget{
			Pair:    name,
			Chain:   strings.ToLower(chain),
			Address: address,
		})
	}
	return targets, nil
}

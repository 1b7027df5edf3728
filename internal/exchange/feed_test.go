package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gravbot-go/internal/signal"
)

func TestFeedRunEmitsTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(ProviderStub, []string{"SOL/USDC"}, zerolog.Nop())
	ticks := make(chan signal.Tick, 1)

	go func() {
		_ = feed.Run(ctx, ticks)
	}()

	select {
	case tk := <-ticks:
		if tk.Pair != "SOL/USDC" {
			t.Fatalf("unexpected pair %s", tk.Pair)
		}
		cancel()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestSourceServesLastTick(t *testing.T) {
	feed := NewFeed(ProviderStub, []string{"SOL/USDC"}, zerolog.Nop())
	src := NewSource(feed)

	if _, _, err := src.Next(context.Background(), "SOL/USDC"); err == nil {
		t.Fatalf("expected error before any tick arrives")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ticks := make(chan signal.Tick, 4)
	go func() { _ = feed.Run(ctx, ticks) }()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
	cancel()

	price, size, err := src.Next(context.Background(), "SOL/USDC")
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if price <= 0 || size <= 0 {
		t.Fatalf("unexpected sample: price %v size %v", price, size)
	}
}

func TestBinanceStreamName(t *testing.T) {
	if got := binanceStreamName("SOL/USDC"); got != "solusdc@trade" {
		t.Fatalf("unexpected stream name %s", got)
	}
}

func TestPairForStream(t *testing.T) {
	feed := NewFeed(ProviderBinance, []string{"SOL/USDT", "BONK/USDT"}, zerolog.Nop())
	if got := feed.pairForStream("solusdt@trade"); got != "SOL/USDT" {
		t.Fatalf("expected SOL/USDT, got %s", got)
	}
	if got := feed.pairForStream("unknown@trade"); got != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN fallback, got %s", got)
	}
}

func TestParseDexScreenerPairs(t *testing.T) {
	targets, err := parseDexScreenerPairs([]string{"WIF/SOL@solana/PAIR", "BODEN/SOL@/another"}, "solana")
	if err != nil {
		t.Fatalf("parseDexScreenerPairs returned error: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[0].Pair != "WIF/SOL" || targets[0].Chain != "solana" || targets[0].Address != "PAIR" {
		t.Fatalf("unexpected first target: %+v", targets[0])
	}
	if targets[1].Chain != "solana" {
		t.Fatalf("expected default chain applied")
	}
	if _, err := parseDexScreenerPairs([]string{"NO/SUFFIX"}, "solana"); err == nil {
		t.Fatalf("expected error for missing suffix")
	}
}

func TestRunDexScreenerEmitsTick(t *testing.T) {
	const body = `{"pairs":[{"priceUsd":"0.01","priceNative":"0.0001","txns":{"m5":{"buys":3,"sells":1}},"volume":{"m5":120},"liquidity":{"usd":20000}}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(
		ProviderDexScreener,
		[]string{"WIF/SOL@solana/PAIR"},
		zerolog.Nop(),
		WithDexScreenerConfig(server.URL, "solana"),
		WithPollInterval(50*time.Millisecond),
	)

	ticks := make(chan signal.Tick, 1)
	errCh := make(chan error, 1)
	go func() {
		if err := feed.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case tk := <-ticks:
		if tk.Pair != "WIF/SOL" {
			t.Fatalf("unexpected pair %s", tk.Pair)
		}
		if tk.Price != 0.01 {
			t.Fatalf("unexpected price %v", tk.Price)
		}
		if tk.Size <= 0 {
			t.Fatalf("expected positive size")
		}
		cancel()
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatalf("timed out waiting for tick")
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("feed returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("feed did not stop after cancel")
	}
}

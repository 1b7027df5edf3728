package main

import (
	"context"
	"math"
	"os"
	ossignal "os/signal"
	"syscall"

	solanago "github.com/gagliardetto/solana-go"

	"gravbot-go/internal/config"
	dex "gravbot-go/internal/dex/solana"
	"gravbot-go/internal/engine"
	"gravbot-go/internal/exchange"
	"gravbot-go/internal/gate"
	"gravbot-go/internal/indicator"
	"gravbot-go/internal/metrics"
	"gravbot-go/internal/risk"
	"gravbot-go/internal/runner"
	sig "gravbot-go/internal/signal"
	"gravbot-go/internal/util"
)

func main() {
	log := util.NewLogger("info")

	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	rc := cfg.Resolve()
	log = util.NewLogger(rc.App.LogLevel)

	_ = metrics.Serve(rc.App.MetricsAddr)
	log.Info().Str("addr", rc.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Off the primary network the pipeline never touches live endpoints; it runs on
	// the deterministic walk instead.
	var source indicator.PriceSource
	if rc.Dex.Network != dex.MainnetNetwork || rc.Feed.Provider == exchange.ProviderStub {
		log.Info().Str("network", rc.Dex.Network).Msg("using simulated price source")
		source = indicator.NewWalkSource()
	} else {
		feed := exchange.NewFeed(rc.Feed.Provider, rc.Pairs, log,
			exchange.WithPollInterval(rc.UpdateInterval),
			exchange.WithDexScreenerConfig(rc.Feed.BaseURL, rc.Feed.DefaultChain),
		)
		ticks := make(chan sig.Tick, 1024)
		go func() {
			if err := feed.Run(ctx, ticks); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("feed stopped")
				cancel()
			}
		}()
		// The pipeline pulls from the last-tick cache; the channel just has to drain.
		go func() {
			for range ticks {
			}
		}()
		source = exchange.NewSource(feed)
	}
	pipeline := indicator.NewPipeline(source)

	owner, err := dex.LoadPrivateKeyFromEnv()
	if err != nil {
		// Quoting needs no signing key; an ephemeral one keeps the client whole.
		log.Warn().Err(err).Msg("no wallet key, using ephemeral identity")
		owner = solanago.NewWallet().PrivateKey
	}
	jup := dex.NewJupiterClient(rc.Dex.RpcURL, rc.Dex.JupiterBase, rc.Dex.Network, owner, rc.Dex.Commitment,
		dex.WithQuoteTimeout(rc.QuoteTimeout))

	pairInfos := make(map[string]gate.PairInfo, len(rc.Markets))
	for name, m := range rc.Markets {
		pairInfos[name] = gate.PairInfo{
			BaseMint:      m.BaseMint,
			QuoteMint:     m.QuoteMint,
			BaseDecimals:  m.BaseDecimals,
			QuoteDecimals: m.QuoteDecimals,
		}
	}

	var recorder gate.Recorder
	if rc.FillsPath != "" {
		jsonl, err := gate.NewJSONLRecorder(rc.FillsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open fills recorder")
		}
		defer jsonl.Close()
		recorder = jsonl
	}

	execGate := gate.New(log, jup, gate.Config{
		Pairs:       pairInfos,
		Limits:      risk.Limits{MinTradeSize: rc.MinTradeSize, MaxNotionalPerTrade: rc.MaxNotional},
		SlippageBps: rc.SlippageBps,
		DryRun:      rc.DryRun,
		HistoryCap:  rc.HistoryCap,
		Recorder:    recorder,
	})

	// One engine (and one state) per pair; never shared.
	engines := make(map[string]*engine.Engine, len(rc.Pairs))
	for _, pair := range rc.Pairs {
		engines[pair] = engine.New(cfg.Engine)
	}

	loop := runner.New(log, rc.UpdateInterval, rc.Pairs, func(ctx context.Context, pair string) error {
		obs, err := pipeline.Observe(ctx, pair, rc.PortfolioValue)
		if err != nil {
			return err
		}
		metrics.ObservationsTotal.WithLabelValues(pair).Inc()

		dec, err := engines[pair].Analyze(obs)
		if err != nil {
			return err
		}
		metrics.DecisionsTotal.WithLabelValues(pair, string(dec.Action)).Inc()
		metrics.PositionSize.WithLabelValues(pair).Set(dec.PositionSize)
		log.Debug().
			Str("pair", pair).
			Str("action", string(dec.Action)).
			Float64("force", dec.Force).
			Float64("size", dec.PositionSize).
			Str("reason", dec.Reason).
			Msg("decision")

		if dec.Action == engine.Hold || obs.PortfolioValue <= 0 {
			return nil
		}
		fraction := math.Abs(dec.PositionChange) / obs.PortfolioValue
		if dec.Action == engine.Buy {
			_, err = execGate.ExecuteBuy(ctx, pair, fraction, obs.PortfolioValue)
		} else {
			_, err = execGate.ExecuteSell(ctx, pair, fraction, obs.PortfolioValue)
		}
		return err
	})

	log.Info().Strs("pairs", rc.Pairs).Bool("dry_run", rc.DryRun).Msg("decision loop started")
	loop.Run(ctx)

	stats := execGate.Statistics()
	log.Info().
		Int("trades", stats.TotalTrades).
		Int("successful", stats.SuccessfulTrades).
		Float64("success_rate", stats.SuccessRate).
		Msg("shutting down")
}

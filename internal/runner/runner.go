// Package runner drives the per-pair decision loop: a periodic timer per trading
// pair, with cycles strictly serialized so a slow network call can never overlap the
// next tick's state mutation.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gravbot-go/internal/metrics"
)

// CycleFunc runs one observe-analyze-execute cycle for a pair.
type CycleFunc func(ctx context.Context, pair string) error

// Runner schedules cycles for a set of pairs.
type Runner struct {
	log      zerolog.Logger
	interval time.Duration
	pairs    []string
	cycle    CycleFunc
}

// New builds a runner over the given pairs and cycle body.
func New(log zerolog.Logger, interval time.Duration, pairs []string, cycle CycleFunc) *Runner {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Runner{log: log, interval: interval, pairs: pairs, cycle: cycle}
}

// Run blocks until the context is canceled, scheduling one serialized loop per pair.
// In-flight cycles are allowed to finish on shutdown; no new cycles are issued.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, pair := range r.pairs {
		wg.Add(1)
		go func(pair string) {
			defer wg.Done()
			r.runPair(ctx, pair)
		}(pair)
	}
	wg.Wait()
}

// runPair owns one pair's loop. Cycles run synchronously on the ticker goroutine,
// which is the single-slot guard: while a cycle is in flight the ticker's buffered
// tick is consumed late and any further ticks are dropped by the runtime.
func (r *Runner) runPair(ctx context.Context, pair string) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			started := time.Now()
			if err := r.cycle(ctx, pair); err != nil {
				if ctx.Err() != nil {
					return
				}
				// A failed cycle is skipped; state advances only on success.
				r.log.Warn().Err(err).Str("pair", pair).Msg("cycle failed")
			}
			if elapsed := time.Since(started); elapsed > r.interval {
				metrics.CyclesSkipped.WithLabelValues(pair).Inc()
				r.log.Debug().Str("pair", pair).Dur("elapsed", elapsed).Msg("cycle outlived interval, next tick delayed")
			}
		}
	}
}

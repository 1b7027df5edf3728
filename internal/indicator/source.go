package indicator

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// WalkSource synthesizes a deterministic per-pair price walk, used whenever the bot
// runs against a non-primary network and must not touch live endpoints. The same pair
// always replays the same sequence.
type WalkSource struct {
	mu    sync.Mutex
	steps map[string]int
}

// NewWalkSource builds an empty simulated source.
func NewWalkSource() *WalkSource {
	return &WalkSource{steps: make(map[string]int)}
}

// Next advances the pair's walk by one step.
func (w *WalkSource) Next(_ context.Context, pair string) (float64, float64, error) {
	w.mu.Lock()
	step := w.steps[pair]
	w.steps[pair] = step + 1
	w.mu.Unlock()

	base := 50 + float64(seed(pair)%100)
	t := float64(step)
	// Slow trend plus two overlapping oscillations; enough texture for extrema
	// detection without randomness.
	price := base * (1 + 0.001*t + 0.03*math.Sin(t/4) + 0.01*math.Sin(t/1.7))
	volume := 500 + 400*math.Abs(math.Sin(t/3))
	return price, volume, nil
}

func seed(pair string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(pair))
	return h.Sum32()
}

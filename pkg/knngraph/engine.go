package knngraph

import (
	"context"
	"errors"
	"math"
	"time"
)

// maxEpochs bounds the refinement loop against a pathological distance
// function that never converges (ratio never dips below delta and c never
// hits zero). Every scenario in practice converges in single-digit to
// low-double-digit epochs; this is a backstop, not a tuning knob.
const maxEpochs = 2000

// Compile rebuilds the working neighbor graph -- cold-seeded if this is the
// first compile, warm-seeded from the prior compiled index otherwise -- runs
// refinement to convergence, and atomically replaces the compiled index.
// delta overrides the configured convergence threshold for this call only.
// A cancelled context leaves the prior compiled index untouched.
func (idx *Index[Label, Value]) Compile(ctx context.Context, delta ...float64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := time.Now()
	if idx.metrics != nil {
		defer func() { idx.metrics.CompileDuration.Observe(time.Since(start).Seconds()) }()
	}

	if ctx == nil {
		ctx = context.Background()
	}

	threshold := idx.delta
	if len(delta) > 0 {
		threshold = delta[0]
	}

	n := len(idx.items)
	a := 2 * idx.k
	if n == 0 || a > n-1 {
		if idx.metrics != nil {
			idx.metrics.CompileErrors.WithLabelValues("InsufficientPool").Inc()
		}
		return ErrInsufficientPool
	}

	working, err := idx.seed(idx.compiled, a)
	if err != nil {
		return err
	}

	epochs, err := idx.refine(ctx, working, n, threshold)
	if err != nil {
		if idx.metrics != nil {
			idx.metrics.CompileErrors.WithLabelValues(compileErrorKind(err)).Inc()
		}
		return err
	}

	compiled := make(map[Label][]Neighbor[Label], n)
	for _, label := range idx.labels {
		row := working[label].DrainAscending()
		if len(row) > idx.k {
			row = row[:idx.k]
		}
		compiled[label] = row
	}

	idx.compiled = compiled
	idx.dirty = false

	if idx.metrics != nil {
		idx.metrics.CompilesTotal.Inc()
		idx.metrics.CompileEpochs.Observe(float64(epochs))
		idx.metrics.CompiledSize.Set(float64(len(compiled)))
	}
	idx.logger.Info("compile completed", map[string]interface{}{
		"epochs": epochs,
		"items":  n,
		"k":      idx.k,
		"delta":  threshold,
	})

	return nil
}

// compileErrorKind labels a failed refine call for the CompileErrors metric,
// distinguishing a cancelled/deadline-exceeded context from a genuine
// distance-function error so the two aren't conflated under one counter.
func compileErrorKind(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "distance_error"
}

// seed builds the initial working heap for every item. When oldCompiled is
// non-nil, items present in it are warm-seeded with their prior top-k plus
// a-k fresh samples; items absent from it (newly inserted since the last
// compile) are cold-seeded with a fresh samples.
func (idx *Index[Label, Value]) seed(oldCompiled map[Label][]Neighbor[Label], a int) (map[Label]*BoundedHeap[Label], error) {
	working := make(map[Label]*BoundedHeap[Label], len(idx.labels))

	for _, v := range idx.labels {
		h := NewBoundedHeap[Label](a)
		avoid := map[Label]struct{}{v: {}}
		seedCount := a

		if priorRow, warm := oldCompiled[v]; warm {
			for _, nb := range priorRow {
				if nb.Label == v {
					continue // defense in depth: never seed a self-edge
				}
				if h.TryInsert(nb.Label, nb.Distance) {
					avoid[nb.Label] = struct{}{}
				}
			}
			seedCount = a - h.Len()
			if seedCount < 0 {
				seedCount = 0
			}
		}

		fresh := sampleDistinct(idx.labels, seedCount, avoid, idx.rng)
		for _, cand := range fresh {
			d, err := idx.computeDistance(v, cand)
			if err != nil {
				return nil, err
			}
			h.TryInsert(cand, d)
		}

		working[v] = h
	}

	return working, nil
}

// refine runs neighbors-of-neighbors epochs against working until
// convergence, returning the number of epochs executed.
func (idx *Index[Label, Value]) refine(ctx context.Context, working map[Label]*BoundedHeap[Label], n int, delta float64) (int, error) {
	bestRatio := math.Inf(1)
	epochsRun := 0

	for epochsRun = 1; epochsRun <= maxEpochs; epochsRun++ {
		c, err := idx.runEpoch(working, n)
		if err != nil {
			return epochsRun, err
		}

		ratio := float64(c) / float64(n)
		stopRatio := ratio
		if !idx.useCurrentEpochRatio {
			bestRatio = math.Min(bestRatio, ratio)
			stopRatio = bestRatio
		}

		if idx.metrics != nil {
			idx.metrics.EpochsTotal.Inc()
			idx.metrics.EpochImprovements.Observe(float64(c))
			idx.metrics.EpochImprovementRatio.Observe(ratio)
		}
		idx.logger.Debug("epoch completed", map[string]interface{}{
			"epoch": epochsRun, "trials": n, "improvements": c, "ratio": ratio, "best_ratio": bestRatio,
		})

		if c == 0 || stopRatio < delta {
			return epochsRun, nil
		}

		select {
		case <-ctx.Done():
			return epochsRun, ctx.Err()
		default:
		}
	}

	return epochsRun - 1, nil
}

// runEpoch performs n refinement trials against working and returns the
// improvement count c.
func (idx *Index[Label, Value]) runEpoch(working map[Label]*BoundedHeap[Label], n int) (int, error) {
	c := 0

	for t := 0; t < n; t++ {
		u := idx.labels[idx.rng.Intn(n)]

		v, ok := randomKey(working[u], idx.rng)
		if !ok {
			continue
		}
		w, ok := randomKey(working[v], idx.rng)
		if !ok {
			continue
		}
		if w == u {
			continue
		}

		d, err := idx.computeDistance(u, w)
		if err != nil {
			return c, err
		}

		pairs := [2][2]Label{{u, w}, {w, u}}
		for _, pair := range pairs {
			x, y := pair[0], pair[1]
			if x == y {
				continue // defense in depth: never insert a self-edge
			}

			_, maxDist, ok := working[x].PeekMax()
			if !ok {
				continue
			}
			if maxDist > d && working[x].TryInsert(y, d) {
				c++
			}
		}
	}

	return c, nil
}

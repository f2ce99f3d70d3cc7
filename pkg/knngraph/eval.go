package knngraph

import (
	"context"
	"fmt"
)

// epsilon avoids division by zero in the rank-ratio comparison when the
// true distance is 0 (e.g. a duplicate item in the corpus).
const epsilon = 1e-9

// ErrorRatio draws sampleSize labels (default from config) uniformly with
// replacement from the item store, computes each one's exact top-k by
// brute force, and compares it rank-by-rank against the compiled top-k.
// Returns the mean over the sample of the mean per-rank ratio
// (approx+eps)/(exact+eps). A well-behaved compiled index scores close to
// 1.0; it can never legitimately score below 1.0. Fails with ErrNotCompiled
// while dirty.
func (idx *Index[Label, Value]) ErrorRatio(ctx context.Context, sampleSize ...int) (float64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dirty {
		return 0, ErrNotCompiled
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(idx.labels) == 0 {
		return 0, nil
	}

	n := idx.defaultSampleSize
	if len(sampleSize) > 0 {
		n = sampleSize[0]
	}

	var sumPerQuery float64
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		q := idx.sampleQueryLabel()

		exact, err := idx.bruteForceKNearest(q)
		if err != nil {
			return 0, err
		}
		approx := idx.compiled[q]

		if len(exact) != len(approx) {
			return 0, fmt.Errorf("%w: label %v exact=%d approx=%d", ErrLengthMismatch, q, len(exact), len(approx))
		}
		if len(exact) == 0 {
			continue
		}

		var sumRank float64
		for rank := range exact {
			sumRank += (approx[rank].Distance + epsilon) / (exact[rank].Distance + epsilon)
		}
		sumPerQuery += sumRank / float64(len(exact))
	}

	result := sumPerQuery / float64(n)

	if idx.metrics != nil {
		idx.metrics.ErrorRatioCalls.Inc()
		idx.metrics.ErrorRatioObserved.Observe(result)
	}
	idx.logger.Info("error ratio computed", map[string]interface{}{
		"sample_size": n, "ratio": result,
	})

	return result, nil
}

// bruteForceKNearest computes the exact top-k neighbors of q by scanning
// every other item and maintaining a size-k max-heap -- the same
// admission-tested structure the refinement engine uses, reused here
// because the contract (keep the k smallest, evict the current worst) is
// identical.
func (idx *Index[Label, Value]) bruteForceKNearest(q Label) ([]Neighbor[Label], error) {
	h := NewBoundedHeap[Label](idx.k)

	for _, cand := range idx.labels {
		if cand == q {
			continue
		}
		d, err := idx.computeDistance(q, cand)
		if err != nil {
			return nil, err
		}
		h.TryInsert(cand, d)
	}

	return h.DrainAscending(), nil
}

// Package knngraph builds and incrementally maintains an approximate
// k-nearest-neighbor graph over an arbitrary, caller-labeled item set under
// a caller-supplied distance function. It makes no assumptions about the
// distance's metric properties beyond determinism on equal inputs.
package knngraph

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/knngraph/pkg/config"
	"github.com/therealutkarshpriyadarshi/knngraph/pkg/observability"
)

// DistanceFunc computes the distance between two values. It must be
// deterministic for equal inputs, but need not be symmetric and need not
// satisfy the triangle inequality. A non-nil error propagates immediately
// to the caller of Compile or ErrorRatio; the engine never memoizes a
// distance result, so every call site that needs it invokes it afresh.
type DistanceFunc[Value any] func(a, b Value) (float64, error)

// Index binds the item store to the compiled approximate k-NN graph. All
// mutating operations (New, Insert, Compile) take an exclusive lock;
// KNearest and ErrorRatio take a shared lock, so they wait for an
// in-progress Compile to finish rather than overlapping it.
type Index[Label comparable, Value any] struct {
	mu sync.RWMutex

	items  map[Label]Value
	labels []Label // label universe used by sampling: initial items in map-iteration order, later inserts appended

	k                    int
	delta                float64
	useCurrentEpochRatio bool
	defaultSampleSize    int

	distance DistanceFunc[Value]
	rng      *rand.Rand

	// queryRNG backs ErrorRatio's sampling. It is kept separate from rng
	// (which Compile owns exclusively under idx.mu's write lock) because
	// ErrorRatio only takes a read lock -- concurrent ErrorRatio calls, which
	// the shared-access model allows, would otherwise race on the same
	// *rand.Rand. queryMu serializes draws from it.
	queryMu  sync.Mutex
	queryRNG *rand.Rand

	compiled map[Label][]Neighbor[Label]
	dirty    bool

	logger  *observability.Logger
	metrics *observability.Metrics
}

// Option configures an Index at construction time.
type Option[Label comparable, Value any] func(*Index[Label, Value])

// WithLogger routes the index's lifecycle events to logger instead of a
// no-op logger.
func WithLogger[Label comparable, Value any](logger *observability.Logger) Option[Label, Value] {
	return func(idx *Index[Label, Value]) { idx.logger = logger }
}

// WithMetrics registers the index's Prometheus instrumentation against
// metrics instead of a fresh private registry.
func WithMetrics[Label comparable, Value any](metrics *observability.Metrics) Option[Label, Value] {
	return func(idx *Index[Label, Value]) { idx.metrics = metrics }
}

// WithRand overrides the random source used for seeding and refinement.
// Mainly useful for deterministic tests.
func WithRand[Label comparable, Value any](rng *rand.Rand) Option[Label, Value] {
	return func(idx *Index[Label, Value]) { idx.rng = rng }
}

// WithQueryRand overrides the random source used by ErrorRatio's sampling.
// Mainly useful for deterministic tests.
func WithQueryRand[Label comparable, Value any](rng *rand.Rand) Option[Label, Value] {
	return func(idx *Index[Label, Value]) { idx.queryRNG = rng }
}

// New creates an index over items using distance and the given
// configuration (a nil cfg uses config.Default()). It validates that
// 2*cfg.K <= len(items)-1 and immediately compiles.
func New[Label comparable, Value any](items map[Label]Value, cfg *config.Config, distance DistanceFunc[Value], opts ...Option[Label, Value]) (*Index[Label, Value], error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("knngraph: invalid config: %w", err)
	}
	if distance == nil {
		return nil, fmt.Errorf("knngraph: distance function must not be nil")
	}

	storeCopy := make(map[Label]Value, len(items))
	labels := make([]Label, 0, len(items))
	for l, v := range items {
		storeCopy[l] = v
		labels = append(labels, l)
	}

	idx := &Index[Label, Value]{
		items:                storeCopy,
		labels:               labels,
		k:                    cfg.K,
		delta:                cfg.Delta,
		useCurrentEpochRatio: cfg.UseCurrentEpochRatio,
		defaultSampleSize:    cfg.DefaultErrorRatioSampleSize,
		distance:             distance,
		rng:                  rand.New(rand.NewSource(time.Now().UnixNano())),
		queryRNG:             rand.New(rand.NewSource(time.Now().UnixNano() + 1)),
		dirty:                true,
		logger:               observability.NewNopLogger(),
		metrics:              observability.NewMetrics(),
	}

	for _, opt := range opts {
		opt(idx)
	}

	if err := idx.Compile(context.Background()); err != nil {
		return nil, err
	}

	return idx, nil
}

// NewFromValues builds an index where each value is its own label
// (Label == Value), the "sequence of values" item supply of spec §6.
func NewFromValues[Value comparable](values []Value, cfg *config.Config, distance DistanceFunc[Value], opts ...Option[Value, Value]) (*Index[Value, Value], error) {
	items := make(map[Value]Value, len(values))
	for _, v := range values {
		items[v] = v
	}
	return New(items, cfg, distance, opts...)
}

// InsertValue inserts a value under itself as its own label. Only usable
// when Label == Value, as produced by NewFromValues -- Go generics cannot
// express "label defaults to value" as a method on an arbitrary Index[L,V],
// so this is a free function constrained to the Label==Value instantiation.
func InsertValue[Value comparable](idx *Index[Value, Value], value Value) {
	idx.Insert(value, value)
}

// Insert adds label -> value to the item store, or overwrites it if label
// already exists. It marks the index dirty. It never fails.
func (idx *Index[Label, Value]) Insert(label Label, value Value) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.items[label]; !exists {
		idx.labels = append(idx.labels, label)
	}
	idx.items[label] = value
	idx.dirty = true

	if idx.metrics != nil {
		idx.metrics.ItemsTotal.Set(float64(len(idx.items)))
	}
}

// KNearest returns the first min(kPrime, stored) entries of label's
// compiled neighbor row, ascending by distance. kPrime defaults to the
// index's configured k. An unknown label yields an empty, non-error
// result (spec §4.5 normalizes the source's sentinel-empty behavior to
// this). Fails with ErrNotCompiled while the index is dirty.
func (idx *Index[Label, Value]) KNearest(label Label, kPrime ...int) ([]Neighbor[Label], error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dirty {
		return nil, ErrNotCompiled
	}

	row, ok := idx.compiled[label]
	if !ok {
		return []Neighbor[Label]{}, nil
	}

	k := idx.k
	if len(kPrime) > 0 {
		k = kPrime[0]
	}
	if k > len(row) {
		k = len(row)
	}
	if k < 0 {
		k = 0
	}

	result := make([]Neighbor[Label], k)
	copy(result, row[:k])
	return result, nil
}

// Len returns the number of items currently in the store.
func (idx *Index[Label, Value]) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.items)
}

// Dirty reports whether the item store has been mutated since the last
// successful Compile.
func (idx *Index[Label, Value]) Dirty() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dirty
}

// sampleQueryLabel draws a label uniformly with replacement from the label
// universe, for use by ErrorRatio. Callers must already hold idx.mu for
// reading; the universe itself is read under that lock, while queryMu only
// guards the draw from queryRNG.
func (idx *Index[Label, Value]) sampleQueryLabel() Label {
	idx.queryMu.Lock()
	i := idx.queryRNG.Intn(len(idx.labels))
	idx.queryMu.Unlock()
	return idx.labels[i]
}

// computeDistance evaluates the distance function between two labels'
// values and records the call, without ever caching the result -- the
// refinement proof depends on each trial being an independent evaluation.
func (idx *Index[Label, Value]) computeDistance(a, b Label) (float64, error) {
	if idx.metrics != nil {
		idx.metrics.DistanceCallsTotal.Inc()
	}
	d, err := idx.distance(idx.items[a], idx.items[b])
	if err != nil {
		return 0, fmt.Errorf("knngraph: distance(%v, %v): %w", a, b, err)
	}
	return d, nil
}

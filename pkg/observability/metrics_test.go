package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.Registry() == nil {
		t.Fatal("expected a private registry")
	}
}

func TestMetrics_PrivateRegistryAvoidsCollisions(t *testing.T) {
	// Two indexes, each with their own Metrics, must not panic on
	// duplicate collector registration -- this is the whole reason
	// Metrics owns a private registry rather than using the global one.
	m1 := NewMetrics()
	m2 := NewMetrics()

	m1.CompilesTotal.Inc()
	m2.CompilesTotal.Inc()

	if got := testutil.ToFloat64(m1.CompilesTotal); got != 1 {
		t.Errorf("m1.CompilesTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m2.CompilesTotal); got != 1 {
		t.Errorf("m2.CompilesTotal = %v, want 1", got)
	}
}

func TestMetrics_CompileLifecycle(t *testing.T) {
	m := NewMetrics()

	m.CompilesTotal.Inc()
	m.CompileErrors.WithLabelValues("InsufficientPool").Inc()
	m.CompileDuration.Observe(0.25)
	m.CompileEpochs.Observe(4)

	if got := testutil.ToFloat64(m.CompilesTotal); got != 1 {
		t.Errorf("CompilesTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CompileErrors.WithLabelValues("InsufficientPool")); got != 1 {
		t.Errorf("CompileErrors[InsufficientPool] = %v, want 1", got)
	}
}

func TestMetrics_RefinementLoop(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 5; i++ {
		m.EpochsTotal.Inc()
		m.EpochImprovements.Observe(float64(10 - i))
		m.EpochImprovementRatio.Observe(float64(10-i) / 100)
		m.DistanceCallsTotal.Add(200)
	}

	if got := testutil.ToFloat64(m.EpochsTotal); got != 5 {
		t.Errorf("EpochsTotal = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.DistanceCallsTotal); got != 1000 {
		t.Errorf("DistanceCallsTotal = %v, want 1000", got)
	}
}

func TestMetrics_IndexState(t *testing.T) {
	m := NewMetrics()

	m.ItemsTotal.Set(1000)
	m.CompiledSize.Set(1000)

	if got := testutil.ToFloat64(m.ItemsTotal); got != 1000 {
		t.Errorf("ItemsTotal = %v, want 1000", got)
	}
	if got := testutil.ToFloat64(m.CompiledSize); got != 1000 {
		t.Errorf("CompiledSize = %v, want 1000", got)
	}
}

func TestMetrics_ErrorRatio(t *testing.T) {
	m := NewMetrics()

	m.ErrorRatioCalls.Inc()
	m.ErrorRatioObserved.Observe(1.3)

	if got := testutil.ToFloat64(m.ErrorRatioCalls); got != 1 {
		t.Errorf("ErrorRatioCalls = %v, want 1", got)
	}
}

func TestMetrics_ConcurrentUpdates(t *testing.T) {
	m := NewMetrics()
	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				m.EpochsTotal.Inc()
				m.DistanceCallsTotal.Add(20)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if got := testutil.ToFloat64(m.EpochsTotal); got != 1000 {
		t.Errorf("EpochsTotal = %v, want 1000", got)
	}
}

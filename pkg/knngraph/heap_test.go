package knngraph

import "testing"

func TestBoundedHeap_TryInsert_FillsUnderCapacity(t *testing.T) {
	h := NewBoundedHeap[string](3)

	if !h.TryInsert("a", 1.0) {
		t.Fatal("expected insert into empty heap to report improvement")
	}
	if !h.TryInsert("b", 2.0) {
		t.Fatal("expected insert under capacity to report improvement")
	}
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
}

func TestBoundedHeap_TryInsert_RejectsDuplicateLabel(t *testing.T) {
	h := NewBoundedHeap[string](3)
	h.TryInsert("a", 1.0)

	if h.TryInsert("a", 0.5) {
		t.Fatal("expected duplicate-label insert to report false regardless of distance")
	}
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
}

func TestBoundedHeap_TryInsert_EvictsWorseOnImprovement(t *testing.T) {
	h := NewBoundedHeap[string](2)
	h.TryInsert("a", 5.0)
	h.TryInsert("b", 10.0)

	if !h.TryInsert("c", 3.0) {
		t.Fatal("expected a strictly better candidate to evict the current max")
	}
	if h.Contains("b") {
		t.Fatal("expected worst entry (b, 10.0) to have been evicted")
	}
	if !h.Contains("a") || !h.Contains("c") {
		t.Fatal("expected a and c to remain")
	}
}

func TestBoundedHeap_TryInsert_RejectsWhenNotBetter(t *testing.T) {
	h := NewBoundedHeap[string](2)
	h.TryInsert("a", 1.0)
	h.TryInsert("b", 2.0)

	if h.TryInsert("c", 2.0) {
		t.Fatal("expected a tie with the current max to be rejected")
	}
	if h.TryInsert("d", 5.0) {
		t.Fatal("expected a worse-than-max candidate to be rejected")
	}
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (no insert should have happened)", h.Len())
	}
}

func TestBoundedHeap_PeekMax(t *testing.T) {
	h := NewBoundedHeap[string](3)
	h.TryInsert("a", 1.0)
	h.TryInsert("b", 5.0)
	h.TryInsert("c", 3.0)

	label, dist, ok := h.PeekMax()
	if !ok {
		t.Fatal("expected PeekMax to report ok on non-empty heap")
	}
	if label != "b" || dist != 5.0 {
		t.Fatalf("PeekMax() = (%v, %v), want (b, 5.0)", label, dist)
	}
}

func TestBoundedHeap_PeekMax_Empty(t *testing.T) {
	h := NewBoundedHeap[string](3)
	if _, _, ok := h.PeekMax(); ok {
		t.Fatal("expected PeekMax on empty heap to report not-ok")
	}
}

func TestBoundedHeap_DrainAscending(t *testing.T) {
	h := NewBoundedHeap[string](5)
	h.TryInsert("e", 5.0)
	h.TryInsert("a", 1.0)
	h.TryInsert("c", 3.0)
	h.TryInsert("b", 2.0)
	h.TryInsert("d", 4.0)

	got := h.DrainAscending()
	want := []string{"a", "b", "c", "d", "e"}

	if len(got) != len(want) {
		t.Fatalf("DrainAscending() length = %d, want %d", len(got), len(want))
	}
	for i, label := range want {
		if got[i].Label != label {
			t.Errorf("position %d: label = %v, want %v", i, got[i].Label, label)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("not ascending at position %d: %v < %v", i, got[i].Distance, got[i-1].Distance)
		}
	}
	if h.Len() != 0 {
		t.Fatalf("expected heap to be empty after drain, got Len()=%d", h.Len())
	}
}

func TestBoundedHeap_Contains(t *testing.T) {
	h := NewBoundedHeap[int](2)
	h.TryInsert(1, 1.0)

	if !h.Contains(1) {
		t.Error("expected Contains(1) to be true")
	}
	if h.Contains(2) {
		t.Error("expected Contains(2) to be false")
	}
}

package knngraph

import "math/rand"

// sampleDistinct draws k distinct labels uniformly from universe, excluding
// any label present in avoid. Compile's InsufficientPool check ensures
// there are at least k eligible labels on every call it makes; if fewer are
// eligible, sampleDistinct returns all of them instead of k.
//
// Implementation: filter the eligible labels into a fresh slice, partially
// Fisher-Yates shuffle it, and take the first k. This is uniform over the
// eligible set and always terminates in O(len(universe)) time, unlike a
// rejection-sampling loop over a map whose termination depends on the
// avoid-set's size relative to the universe.
func sampleDistinct[Label comparable](universe []Label, k int, avoid map[Label]struct{}, rng *rand.Rand) []Label {
	eligible := make([]Label, 0, len(universe))
	for _, l := range universe {
		if _, skip := avoid[l]; skip {
			continue
		}
		eligible = append(eligible, l)
	}

	if k > len(eligible) {
		k = len(eligible)
	}

	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(eligible)-i)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}

	return eligible[:k]
}

// randomKey picks a uniform random label from a heap's current members. ok
// is false if the heap is empty.
func randomKey[Label comparable](h *BoundedHeap[Label], rng *rand.Rand) (label Label, ok bool) {
	n := h.Len()
	if n == 0 {
		return label, false
	}
	return h.labelAt(rng.Intn(n)), true
}

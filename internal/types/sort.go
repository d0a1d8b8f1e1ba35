package types

// MinSortGap is the smallest distance between neighbouring sort orders that
// midpoint insertion still accepts. Below it the partition is renumbered.
const MinSortGap = 1e-6

// NextSortOrder returns the sort order for an item appended to a partition:
// one more than the current maximum, or 0 for an empty partition.
func NextSortOrder(existing []float64) float64 {
	if len(existing) == 0 {
		return 0
	}
	maxOrder := existing[0]
	for _, o := range existing[1:] {
		if o > maxOrder {
			maxOrder = o
		}
	}
	return maxOrder + 1
}

// SortOrderBetween returns a position strictly between prev and next, either
// of which may be nil for the start or end of the list. ok is false when the
// gap has collapsed below MinSortGap and the caller should renumber.
func SortOrderBetween(prev, next *float64) (pos float64, ok bool) {
	switch {
	case prev == nil && next == nil:
		return 0, true
	case prev == nil:
		return *next - 1, true
	case next == nil:
		return *prev + 1, true
	}
	if *next-*prev < MinSortGap {
		return 0, false
	}
	return (*prev + *next) / 2, true
}

// Renumber returns integer sort orders 0..n-1.
func Renumber(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

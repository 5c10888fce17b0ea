package vlist

import "sort"

// searchPrefix finds the largest index idx in [0, len(prefix)-2] such
// that prefix[idx] <= p, given a monotone non-decreasing prefix vector
// of length m+1 (prefix[0] == 0). At an exact boundary hit, the higher
// index wins — prefix[idx] <= p < prefix[idx+1] except when p equals
// the final total, in which case idx clamps to m-1. This single rule is
// shared by Chunk.locate (over a chunk's own prefix sums) and the
// inter-chunk routing (over cumulative_sizes prefixed with an implicit
// zero), so the two levels resolve boundary ties identically.
func searchPrefix(prefix []float64, p float64) (idx int, offset float64) {
	m := len(prefix) - 1
	i := sort.Search(m+1, func(i int) bool { return prefix[i] > p })
	idx = i - 1
	if idx < 0 {
		idx = 0
	}
	if idx > m-1 {
		idx = m - 1
	}
	return idx, p - prefix[idx]
}

// searchCumulative finds the chunk owning position p given cum, the
// running total through each chunk inclusive (cum[i] = sum of sizes of
// chunks 0..i), with no leading zero entry. It returns the owning chunk
// index and the position's offset within that chunk, ready to be
// passed to that chunk's own locate. This mirrors searchPrefix's
// boundary rule without materializing a len(cum)+1 slice on every call,
// which would cost an allocation per position lookup (every
// GetVisibleRange call locates two positions) and break the O(log N) bound a cumulative lookup is supposed to have.
func searchCumulative(cum []float64, p float64) (idx int, offset float64) {
	m := len(cum)
	c := sort.Search(m, func(i int) bool { return cum[i] > p })
	if c >= m {
		c = m - 1
	}
	var before float64
	if c > 0 {
		before = cum[c-1]
	}
	return c, p - before
}

package vlist

import (
	"fmt"
	"math"

	"vlistindex/vlerr"
)

// chunk is a contiguous slab of up to chunkSize item sizes, its
// intra-chunk prefix sums, and the running total. prefixSums has length
// len(sizes)+1, with prefixSums[0] == 0 and prefixSums[j] == sum of
// sizes[:j].
//
// Deltas are applied in place: each update costs O(K), one pass over
// the trailing prefix sums, rather than periodically recomputing the
// whole vector from sizes, at the cost of float64 drift
// accumulating over very many edits to the same chunk. A host that
// needs a bounded-error Fenwick-tree variant for very long-lived,
// heavily-edited lists should wrap chunk rather than edit this one.
type chunk struct {
	sizes      []float64
	prefixSums []float64
	totalSize  float64
}

func newChunk(n int, def float64) (*chunk, error) {
	if n < 0 {
		return nil, vlerr.NewInvalidSize("chunk item count must be >= 0").WithContext("n", n)
	}
	if math.IsNaN(def) || def < 0 {
		return nil, vlerr.NewInvalidSize("default size must be finite and >= 0").WithContext("default", def)
	}

	sizes := make([]float64, n)
	prefix := make([]float64, n+1)
	for j := 0; j < n; j++ {
		sizes[j] = def
		prefix[j+1] = prefix[j] + def
	}
	return &chunk{sizes: sizes, prefixSums: prefix, totalSize: prefix[n]}, nil
}

// update sets sizes[j] = s and fixes up prefixSums[j+1:] and totalSize in
// place, returning the delta applied.
func (c *chunk) update(j int, s float64) (float64, error) {
	if j < 0 || j >= len(c.sizes) {
		return 0, vlerr.NewIndexOutOfBounds(fmt.Sprintf("local index %d out of bounds for chunk of size %d", j, len(c.sizes))).WithContext("local_index", j)
	}
	if math.IsNaN(s) || s < 0 {
		return 0, vlerr.NewInvalidSize("size must be finite and >= 0").WithContext("size", s)
	}

	delta := s - c.sizes[j]
	c.sizes[j] = s
	for t := j + 1; t < len(c.prefixSums); t++ {
		c.prefixSums[t] += delta
	}
	c.totalSize += delta
	return delta, nil
}

// locate finds the largest j such that prefixSums[j] <= p, returning
// (j, p-prefixSums[j]). At an exact boundary p == prefixSums[j] it
// prefers the higher j when sizes[j-1] == 0: the search finds the first
// prefix sum strictly greater than p (an upper_bound search) and steps
// back one.
func (c *chunk) locate(p float64) (int, float64, error) {
	n := len(c.sizes)
	if n == 0 {
		return 0, 0, vlerr.NewInvalidSize("cannot locate in an empty chunk")
	}
	if math.IsNaN(p) || p < 0 || p > c.totalSize {
		return 0, 0, vlerr.NewInvalidSize(fmt.Sprintf("position %v out of range [0, %v]", p, c.totalSize)).WithContext("position", p)
	}

	j, offset := searchPrefix(c.prefixSums, p)
	return j, offset, nil
}

// newChunkFromSizes rebuilds a chunk directly from a known sizes slice,
// used when rehydrating a chunk that was previously spilled rather than
// reset to its estimated default.
func newChunkFromSizes(sizes []float64) *chunk {
	prefix := make([]float64, len(sizes)+1)
	for j, s := range sizes {
		prefix[j+1] = prefix[j] + s
	}
	return &chunk{sizes: sizes, prefixSums: prefix, totalSize: prefix[len(sizes)]}
}

// resizeTo truncates or extends the chunk to exactly n items, filling
// new trailing items with def, and rebuilds prefixSums/totalSize from
// scratch. Used by VirtualList.Resize to reconcile a tail chunk whose
// item count changed.
func (c *chunk) resizeTo(n int, def float64) error {
	if n < 0 {
		return vlerr.NewInvalidSize("chunk item count must be >= 0").WithContext("n", n)
	}
	switch {
	case n < len(c.sizes):
		c.sizes = c.sizes[:n]
	case n > len(c.sizes):
		for len(c.sizes) < n {
			c.sizes = append(c.sizes, def)
		}
	}
	prefix := make([]float64, n+1)
	for j := 0; j < n; j++ {
		prefix[j+1] = prefix[j] + c.sizes[j]
	}
	c.prefixSums = prefix
	c.totalSize = prefix[n]
	return nil
}

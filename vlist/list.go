// Package vlist implements the index engine for a virtualized list: a
// conceptually huge one-dimensional sequence of items with dynamically
// updatable sizes, answering position and range queries in O(log N)
// amortized over chunked storage, cumulative sums, and a bounded-memory
// chunk cache.
package vlist

import (
	"fmt"
	"math"

	"vlistindex/cache"
	"vlistindex/config"
	"vlistindex/metrics"
	"vlistindex/vlerr"
	"vlistindex/vlog"
)

// Orientation is an opaque axis tag, stored but never consumed by the
// core: callers externalize axis translation.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// maxSafePosition is the implementation-chosen threshold past which
// float64 prefix-sum arithmetic no longer distinguishes unit steps
// reliably. Positions beyond it are rejected with PrecisionLimitExceeded.
const maxSafePosition = 1e15

// Update is one (index, new size) pair, used by both QueueUpdate's
// internal queue and BatchUpdateSizes's explicit list.
type Update struct {
	Index int
	Size  float64
}

// VisibleRange is the half-open index interval of items intersecting a
// viewport, widened by buffer and overscan, together with the pixel
// offsets of its first and last intersecting items.
type VisibleRange struct {
	Start       int
	End         int
	StartOffset float64
	EndOffset   float64
}

// VirtualList owns the ordered sequence of chunk slots, the inter-chunk
// cumulative-sum vector, the running total size, the eviction manager,
// and the pending-update queue. It is a single-owner, single-threaded
// cooperative object: every method must be called from one owning
// goroutine — it takes no lock and starts no goroutine of its own.
type VirtualList struct {
	totalItems    int
	chunkSize     int
	estimatedSize float64
	orientation   Orientation
	cfg           config.Config

	chunks          []*chunk
	cumulativeSizes []float64
	totalSize       float64
	loadedCount     int
	loadedBytes     int64

	pendingUpdates []Update

	evictor *cache.Manager
	spill   *cache.SpillStore

	counters *metrics.Counters
	logger   *vlog.Logger
}

// New constructs a VirtualList over N items of chunk_size K with a
// default per-item size E, preallocating ⌈N/K⌉ absent chunk slots and
// an estimate-only cumulative_sizes vector.
func New(n, chunkSize int, estimatedSize float64, orientation Orientation, cfg config.Config) (*VirtualList, error) {
	if chunkSize <= 0 {
		return nil, vlerr.NewInvalidConfiguration("chunk_size must be >= 1").WithContext("chunk_size", chunkSize)
	}
	if math.IsNaN(estimatedSize) || estimatedSize < 0 {
		return nil, vlerr.NewInvalidConfiguration("estimated_size must be finite and >= 0").WithContext("estimated_size", estimatedSize)
	}
	if n < 0 {
		return nil, vlerr.NewInvalidSize("total_items must be >= 0").WithContext("total_items", n)
	}
	switch orientation {
	case Vertical, Horizontal:
	default:
		return nil, vlerr.NewInvalidConfiguration("unrecognized orientation").WithContext("orientation", string(orientation))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	evictor, err := cache.New(cfg.EvictionPolicy)
	if err != nil {
		return nil, err
	}

	v := &VirtualList{
		totalItems:    n,
		chunkSize:     chunkSize,
		estimatedSize: estimatedSize,
		orientation:   orientation,
		cfg:           cfg,
		evictor:       evictor,
		spill:         cache.NewSpillStore(),
		counters:      &metrics.Counters{},
	}

	numChunks := ceilDiv(n, chunkSize)
	v.chunks = make([]*chunk, numChunks)
	v.cumulativeSizes = make([]float64, numChunks)
	var running float64
	for c := 0; c < numChunks; c++ {
		running += float64(v.itemsInChunk(c)) * estimatedSize
		v.cumulativeSizes[c] = running
	}
	v.totalSize = running
	return v, nil
}

// SetLogger attaches a diagnostic logger. A nil logger (the default) is
// silently a no-op, so this is optional.
func (v *VirtualList) SetLogger(l *vlog.Logger) {
	v.logger = l
}

// TotalSize returns the running total size in constant time.
func (v *VirtualList) TotalSize() float64 {
	return v.totalSize
}

// TotalItems returns N in constant time.
func (v *VirtualList) TotalItems() int {
	return v.totalItems
}

// Orientation returns the stored orientation tag.
func (v *VirtualList) Orientation() Orientation {
	return v.orientation
}

// Stats returns a point-in-time snapshot of cache counters and live
// state, suitable for compression across the host boundary.
func (v *VirtualList) Stats() metrics.Snapshot {
	return v.counters.Take(v.loadedCount, len(v.chunks), v.totalSize)
}

// GetItemSize returns the stored size of item i: the live value if its
// chunk is materialized, the value recorded in the spill store if the
// chunk was evicted or unloaded, or the estimated default if the chunk
// has never been materialized. It never inserts a chunk into the
// materialized set, so a call against a spilled chunk costs a
// decompression but does not disturb eviction ordering or loadedCount.
func (v *VirtualList) GetItemSize(i int) (float64, error) {
	if i < 0 || i >= v.totalItems {
		return 0, vlerr.NewIndexOutOfBounds(fmt.Sprintf("item index %d out of bounds for %d items", i, v.totalItems)).WithContext("index", i)
	}
	c, j := i/v.chunkSize, i%v.chunkSize
	if ch := v.chunks[c]; ch != nil {
		v.evictor.OnAccess(c)
		return ch.sizes[j], nil
	}
	if v.spill.Has(c) {
		sizes, err := v.spill.Rehydrate(c)
		if err != nil {
			return 0, err
		}
		return sizes[j], nil
	}
	return v.estimatedSize, nil
}

// GetPosition returns the exact starting offset of item i, materializing
// nothing: it reads the containing chunk's prefix sum if materialized,
// sums the spilled sizes if the chunk was spilled, otherwise
// extrapolates from the estimated size.
func (v *VirtualList) GetPosition(i int) (float64, error) {
	if i < 0 || i >= v.totalItems {
		return 0, vlerr.NewIndexOutOfBounds(fmt.Sprintf("item index %d out of bounds for %d items", i, v.totalItems)).WithContext("index", i)
	}
	c, j := i/v.chunkSize, i%v.chunkSize

	var prev float64
	if c > 0 {
		prev = v.cumulativeSizes[c-1]
	}

	var pos float64
	if ch := v.chunks[c]; ch != nil {
		pos = prev + ch.prefixSums[j]
		v.evictor.OnAccess(c)
	} else if v.spill.Has(c) {
		sizes, err := v.spill.Rehydrate(c)
		if err != nil {
			return 0, err
		}
		pos = prev + sumSizes(sizes[:j])
	} else {
		pos = prev + float64(j)*v.estimatedSize
	}
	if err := checkPrecision(pos); err != nil {
		return 0, err
	}
	return pos, nil
}

// GetPositions is the batch form of GetPosition.
func (v *VirtualList) GetPositions(indices []int) ([]float64, error) {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		p, err := v.GetPosition(idx)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// UpdateItemSize materializes the containing chunk (possibly triggering
// eviction), applies the new size, and propagates the resulting delta to
// cumulative_sizes and total_size.
func (v *VirtualList) UpdateItemSize(i int, s float64) error {
	if i < 0 || i >= v.totalItems {
		return vlerr.NewIndexOutOfBounds(fmt.Sprintf("item index %d out of bounds for %d items", i, v.totalItems)).WithContext("index", i)
	}
	if math.IsNaN(s) || s < 0 {
		return vlerr.NewInvalidSize("size must be finite and >= 0").WithContext("size", s)
	}

	c, j := i/v.chunkSize, i%v.chunkSize
	ch, err := v.materialize(c)
	if err != nil {
		return err
	}
	delta, err := ch.update(j, s)
	if err != nil {
		return err
	}
	for t := c; t < len(v.cumulativeSizes); t++ {
		v.cumulativeSizes[t] += delta
	}
	v.totalSize += delta
	v.logger.Debug("vlist", "update_item_size", "item size updated", map[string]any{"index": i, "delta": delta})
	return nil
}

// QueueUpdate appends to the pending-update queue, auto-flushing via
// ProcessPendingUpdates once the queue reaches update_batch_size.
func (v *VirtualList) QueueUpdate(i int, s float64) error {
	if i < 0 || i >= v.totalItems {
		return vlerr.NewIndexOutOfBounds(fmt.Sprintf("item index %d out of bounds for %d items", i, v.totalItems)).WithContext("index", i)
	}
	if math.IsNaN(s) || s < 0 {
		return vlerr.NewInvalidSize("size must be finite and >= 0").WithContext("size", s)
	}
	v.pendingUpdates = append(v.pendingUpdates, Update{Index: i, Size: s})
	if len(v.pendingUpdates) >= v.cfg.UpdateBatchSize {
		return v.ProcessPendingUpdates()
	}
	return nil
}

// ProcessPendingUpdates drains the pending-update queue and applies it
// as a single batch.
func (v *VirtualList) ProcessPendingUpdates() error {
	updates := v.pendingUpdates
	v.pendingUpdates = nil
	return v.applyBatch(updates)
}

// BatchUpdateSizes applies an explicit list of updates with the same
// grouped, single-pass propagation as ProcessPendingUpdates.
func (v *VirtualList) BatchUpdateSizes(updates []Update) error {
	return v.applyBatch(updates)
}

// applyBatch groups updates by chunk, applies each chunk's updates in
// the order given, and propagates the summed per-chunk deltas to
// cumulative_sizes in one pass from the lowest touched chunk forward.
// A batch that hits an error aborts at that point; updates already
// applied are not undone and are still propagated before the error is
// returned.
func (v *VirtualList) applyBatch(updates []Update) error {
	deltaByChunk := make(map[int]float64)
	minChunk := -1
	var batchErr error

	for _, u := range updates {
		if u.Index < 0 || u.Index >= v.totalItems {
			batchErr = vlerr.NewIndexOutOfBounds(fmt.Sprintf("item index %d out of bounds for %d items", u.Index, v.totalItems)).WithContext("index", u.Index)
			break
		}
		if math.IsNaN(u.Size) || u.Size < 0 {
			batchErr = vlerr.NewInvalidSize("size must be finite and >= 0").WithContext("size", u.Size)
			break
		}

		c, j := u.Index/v.chunkSize, u.Index%v.chunkSize
		ch, err := v.materialize(c)
		if err != nil {
			batchErr = err
			break
		}
		delta, err := ch.update(j, u.Size)
		if err != nil {
			batchErr = err
			break
		}
		deltaByChunk[c] += delta
		if minChunk < 0 || c < minChunk {
			minChunk = c
		}
	}

	if minChunk < 0 {
		return batchErr
	}

	var running float64
	for t := minChunk; t < len(v.cumulativeSizes); t++ {
		if d, ok := deltaByChunk[t]; ok {
			running += d
		}
		v.cumulativeSizes[t] += running
	}
	v.totalSize += running
	v.logger.Debug("vlist", "batch_update_sizes", "batch applied", map[string]any{"count": len(updates), "chunks_touched": len(deltaByChunk)})
	return batchErr
}

// GetVisibleRange locates the half-open index range of items
// intersecting [scroll, scroll+viewport), widened by the configured
// buffer and overscan margins.
func (v *VirtualList) GetVisibleRange(scroll, viewport float64) (VisibleRange, error) {
	if v.totalItems == 0 {
		return VisibleRange{}, vlerr.NewEmptyList("get_visible_range requires a non-empty list")
	}
	if math.IsNaN(viewport) || viewport <= 0 {
		return VisibleRange{}, vlerr.NewInvalidViewport("viewport extent must be > 0").WithContext("viewport", viewport)
	}
	if math.IsNaN(scroll) {
		return VisibleRange{}, vlerr.NewInvalidViewport("scroll offset must be a finite number").WithContext("scroll", scroll)
	}

	s := math.Max(0, math.Min(scroll, v.totalSize))
	e := math.Min(s+viewport, v.totalSize)

	iStart, oStart, err := v.locate(s)
	if err != nil {
		return VisibleRange{}, err
	}
	iEnd, oEnd, err := v.locate(e)
	if err != nil {
		return VisibleRange{}, err
	}

	margin := v.cfg.BufferSize + v.cfg.OverscanItems
	start := iStart - margin
	if start < 0 {
		start = 0
	}
	end := iEnd + margin + 1
	if end > v.totalItems {
		end = v.totalItems
	}

	return VisibleRange{Start: start, End: end, StartOffset: oStart, EndOffset: oEnd}, nil
}

// locate converts a position into an (index, offset) pair: binary
// search cumulative_sizes to find the owning chunk, materialize it
// (possibly evicting), then binary search its prefix sums.
func (v *VirtualList) locate(p float64) (int, float64, error) {
	if v.totalItems == 0 {
		return 0, 0, vlerr.NewEmptyList("cannot locate in an empty list")
	}
	if err := checkPrecision(p); err != nil {
		return 0, 0, err
	}

	c, posInChunk := searchCumulative(v.cumulativeSizes, p)
	ch, err := v.materialize(c)
	if err != nil {
		return 0, 0, err
	}
	j, offset, err := ch.locate(posInChunk)
	if err != nil {
		return 0, 0, err
	}

	globalIdx := c*v.chunkSize + j
	if globalIdx > v.totalItems-1 {
		globalIdx = v.totalItems - 1
	}
	return globalIdx, offset, nil
}

// Resize changes total_items, growing or shrinking the chunk slot
// array and recomputing cumulative_sizes. The only chunk whose item
// count can change is the chunk at the old and/or new tail position;
// every other slot is either untouched or brand new.
func (v *VirtualList) Resize(n2 int) error {
	if n2 < 0 {
		return vlerr.NewInvalidSize("total_items must be >= 0").WithContext("n", n2)
	}

	oldNumChunks := len(v.chunks)
	newNumChunks := ceilDiv(n2, v.chunkSize)

	switch {
	case newNumChunks > oldNumChunks:
		v.chunks = append(v.chunks, make([]*chunk, newNumChunks-oldNumChunks)...)
		v.cumulativeSizes = append(v.cumulativeSizes, make([]float64, newNumChunks-oldNumChunks)...)
	case newNumChunks < oldNumChunks:
		for c := newNumChunks; c < oldNumChunks; c++ {
			if v.chunks[c] != nil {
				v.loadedBytes -= chunkByteSize(len(v.chunks[c].sizes))
				v.loadedCount--
			}
			v.evictor.Forget(c)
			v.spill.Drop(c)
		}
		v.chunks = v.chunks[:newNumChunks]
		v.cumulativeSizes = v.cumulativeSizes[:newNumChunks]
	}

	v.totalItems = n2

	if newNumChunks == 0 {
		v.totalSize = 0
		return nil
	}

	tailCandidates := map[int]struct{}{newNumChunks - 1: {}}
	if oldNumChunks > 0 && oldNumChunks <= newNumChunks {
		tailCandidates[oldNumChunks-1] = struct{}{}
	}
	for c := range tailCandidates {
		if err := v.reconcileChunkLength(c); err != nil {
			return err
		}
	}

	var running float64
	for c := 0; c < newNumChunks; c++ {
		running += v.chunkContribution(c)
		v.cumulativeSizes[c] = running
	}
	v.totalSize = running
	v.logger.Debug("vlist", "resize", "list resized", map[string]any{"total_items": n2, "chunks": newNumChunks})
	return nil
}

// AddItems grows total_items by count, a thin wrapper over Resize.
func (v *VirtualList) AddItems(count int) error {
	if count < 0 {
		return vlerr.NewInvalidSize("item count to add must be >= 0").WithContext("count", count)
	}
	return v.Resize(v.totalItems + count)
}

// RemoveItems shrinks total_items by count, a thin wrapper over Resize.
func (v *VirtualList) RemoveItems(count int) error {
	if count < 0 {
		return vlerr.NewInvalidSize("item count to remove must be >= 0").WithContext("count", count)
	}
	if count > v.totalItems {
		return vlerr.NewInvalidOperation("cannot remove more items than the list contains").
			WithContext("count", count).WithContext("total_items", v.totalItems)
	}
	return v.Resize(v.totalItems - count)
}

// reconcileChunkLength ensures chunk c's stored representation
// (materialized, spilled, or neither) has exactly itemsInChunk(c)
// entries, called only for chunk indices whose item count a resize may
// have changed.
func (v *VirtualList) reconcileChunkLength(c int) error {
	want := v.itemsInChunk(c)
	if ch := v.chunks[c]; ch != nil {
		before := len(ch.sizes)
		if err := ch.resizeTo(want, v.estimatedSize); err != nil {
			return err
		}
		v.loadedBytes += chunkByteSize(len(ch.sizes)) - chunkByteSize(before)
		return nil
	}
	if v.spill.Has(c) {
		sizes, err := v.spill.Rehydrate(c)
		if err != nil {
			return err
		}
		sizes = resizeSizes(sizes, want, v.estimatedSize)
		return v.spill.Spill(c, sizes, sumSizes(sizes))
	}
	return nil
}

// chunkContribution returns chunk c's current contribution to
// cumulative_sizes, reading from whichever representation is live.
func (v *VirtualList) chunkContribution(c int) float64 {
	if ch := v.chunks[c]; ch != nil {
		return ch.totalSize
	}
	if total, ok := v.spill.TotalOf(c); ok {
		return total
	}
	return float64(v.itemsInChunk(c)) * v.estimatedSize
}

// UnloadChunk drops the materialized chunk at c, spilling its sizes so
// cumulative_sizes and GetItemSize both stay exact for it afterward. A
// no-op if c is already absent.
func (v *VirtualList) UnloadChunk(c int) error {
	if c < 0 || c >= len(v.chunks) {
		return vlerr.NewIndexOutOfBounds(fmt.Sprintf("chunk index %d out of bounds for %d chunks", c, len(v.chunks))).WithContext("chunk", c)
	}
	return v.dropChunk(c, true)
}

// ClearCache drops every materialized chunk, spilling each in turn.
func (v *VirtualList) ClearCache() error {
	for c := range v.chunks {
		if err := v.dropChunk(c, true); err != nil {
			return err
		}
	}
	return nil
}

// materialize returns the chunk at index c, creating (or rehydrating
// from a spilled record) it on first touch and running eviction first
// if the configured ceilings would otherwise be exceeded. Eviction
// always runs to completion before the new chunk takes a slot, so no
// reference into chunks is held across an eviction that could
// invalidate it.
func (v *VirtualList) materialize(c int) (*chunk, error) {
	if ch := v.chunks[c]; ch != nil {
		v.evictor.OnAccess(c)
		v.counters.RecordHit()
		return ch, nil
	}
	v.counters.RecordMiss()

	newBytes := chunkByteSize(v.itemsInChunk(c))
	for v.shouldEvictFor(newBytes) {
		victim, ok := v.evictor.Evict()
		if !ok {
			break
		}
		if err := v.dropChunk(victim, false); err != nil {
			return nil, err
		}
		v.counters.RecordEviction()
	}

	var ch *chunk
	if v.spill.Has(c) {
		sizes, err := v.spill.Rehydrate(c)
		if err != nil {
			return nil, err
		}
		v.counters.RecordRehydration()
		ch = newChunkFromSizes(sizes)
		v.spill.Drop(c)
	} else {
		var err error
		ch, err = newChunk(v.itemsInChunk(c), v.estimatedSize)
		if err != nil {
			return nil, err
		}
	}

	v.chunks[c] = ch
	v.loadedCount++
	v.loadedBytes += chunkByteSize(len(ch.sizes))
	v.evictor.OnAccess(c)
	v.logger.Debug("vlist", "materialize", "chunk materialized", map[string]any{"chunk": c})
	return ch, nil
}

func (v *VirtualList) shouldEvictFor(incomingBytes int64) bool {
	if v.cfg.MaxCachedChunks > 0 && v.loadedCount >= v.cfg.MaxCachedChunks {
		return true
	}
	if v.cfg.MaxMemoryBytes > 0 && v.loadedBytes+incomingBytes > v.cfg.MaxMemoryBytes {
		return true
	}
	return false
}

// dropChunk removes chunk c from the materialized set, spilling its
// sizes so its contribution to cumulative_sizes is unaffected. forget
// controls whether eviction bookkeeping for c is also cleared — skipped
// when c was already named a victim by evictor.Evict.
func (v *VirtualList) dropChunk(c int, forget bool) error {
	ch := v.chunks[c]
	if ch == nil {
		return nil
	}
	if err := v.spill.Spill(c, ch.sizes, ch.totalSize); err != nil {
		return err
	}
	v.counters.RecordSpill()
	v.chunks[c] = nil
	v.loadedCount--
	v.loadedBytes -= chunkByteSize(len(ch.sizes))
	if forget {
		v.evictor.Forget(c)
	}
	v.logger.Debug("vlist", "evict", "chunk dropped", map[string]any{"chunk": c})
	return nil
}

// itemsInChunk returns K for every chunk but the last, which holds
// N mod K items (or K if that divides evenly).
func (v *VirtualList) itemsInChunk(c int) int {
	numChunks := len(v.chunks)
	if c == numChunks-1 {
		if rem := v.totalItems % v.chunkSize; rem != 0 {
			return rem
		}
	}
	return v.chunkSize
}

func checkPrecision(p float64) error {
	if p > maxSafePosition {
		return vlerr.NewPrecisionLimitExceeded(fmt.Sprintf("position %v exceeds safe precision threshold %v", p, maxSafePosition)).WithContext("position", p)
	}
	return nil
}

func ceilDiv(a, b int) int {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// chunkByteSize approximates a materialized chunk's footprint: n item
// sizes plus an n+1-length prefix-sum vector, both float64.
func chunkByteSize(n int) int64 {
	return int64(n)*8 + int64(n+1)*8
}

func resizeSizes(sizes []float64, n int, def float64) []float64 {
	switch {
	case n < len(sizes):
		return sizes[:n]
	case n > len(sizes):
		for len(sizes) < n {
			sizes = append(sizes, def)
		}
	}
	return sizes
}

func sumSizes(sizes []float64) float64 {
	var total float64
	for _, s := range sizes {
		total += s
	}
	return total
}

package vlist

import (
	"math"
	"testing"

	"vlistindex/config"
)

func mustNew(t *testing.T, n, k int, e float64) *VirtualList {
	t.Helper()
	v, err := New(n, k, e, Vertical, config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func TestScenarioS1(t *testing.T) {
	v := mustNew(t, 100, 10, 50.0)
	if v.TotalSize() != 5000.0 {
		t.Fatalf("total_size = %v, want 5000.0", v.TotalSize())
	}
	p, err := v.GetPosition(5)
	if err != nil || p != 250.0 {
		t.Fatalf("get_position(5) = %v, %v, want 250.0, nil", p, err)
	}
	vr, err := v.GetVisibleRange(0, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vr.Start != 0 || vr.End < 4 || vr.StartOffset != 0.0 {
		t.Fatalf("unexpected visible range: %+v", vr)
	}
}

func TestScenarioS2(t *testing.T) {
	v := mustNew(t, 100, 10, 50.0)
	if err := v.UpdateItemSize(5, 100.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalSize() != 5050.0 {
		t.Fatalf("total_size = %v, want 5050.0", v.TotalSize())
	}
	p5, _ := v.GetPosition(5)
	if p5 != 250.0 {
		t.Fatalf("get_position(5) = %v, want 250.0", p5)
	}
	p6, _ := v.GetPosition(6)
	if p6 != 350.0 {
		t.Fatalf("get_position(6) = %v, want 350.0", p6)
	}
	s5, _ := v.GetItemSize(5)
	if s5 != 100.0 {
		t.Fatalf("get_item_size(5) = %v, want 100.0", s5)
	}
}

func TestScenarioS3(t *testing.T) {
	v := mustNew(t, 5, 2, 10.0)
	err := v.BatchUpdateSizes([]Update{{Index: 0, Size: 20}, {Index: 2, Size: 30}, {Index: 4, Size: 15}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{0, 20, 30, 60, 70}
	for i, w := range want {
		p, err := v.GetPosition(i)
		if err != nil || p != w {
			t.Fatalf("get_position(%d) = %v, %v, want %v", i, p, err, w)
		}
	}
	if v.TotalSize() != 85 {
		t.Fatalf("total_size = %v, want 85", v.TotalSize())
	}
}

func TestScenarioS4(t *testing.T) {
	v := mustNew(t, 5, 2, 10.0)
	if err := v.BatchUpdateSizes([]Update{{Index: 0, Size: 20}, {Index: 2, Size: 30}, {Index: 4, Size: 15}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	idx, offset, err := v.locate(25)
	if err != nil || idx != 1 || offset != 5.0 {
		t.Fatalf("locate(25) = (%d, %v), %v, want (1, 5.0)", idx, offset, err)
	}
	idx, offset, err = v.locate(45)
	if err != nil || idx != 2 || offset != 15.0 {
		t.Fatalf("locate(45) = (%d, %v), %v, want (2, 15.0)", idx, offset, err)
	}

	vr, err := v.GetVisibleRange(25, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vr.Start > 2 || vr.End < 4 {
		t.Fatalf("unexpected visible range: %+v", vr)
	}
	if vr.StartOffset != 5.0 || vr.EndOffset != 15.0 {
		t.Fatalf("unexpected offsets: %+v", vr)
	}
}

func TestScenarioS5(t *testing.T) {
	v := mustNew(t, 10, 3, 10.0)
	idx, offset, err := v.locate(30)
	if err != nil || idx != 3 || offset != 0 {
		t.Fatalf("locate(30) = (%d, %v), %v, want (3, 0)", idx, offset, err)
	}
}

func TestScenarioS6(t *testing.T) {
	cfg := config.Default()
	cfg.MaxCachedChunks = 10
	v, err := New(10000, 100, 5.0, Vertical, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for c := 0; c < 20; c++ {
		if _, err := v.materialize(c); err != nil {
			t.Fatalf("materialize(%d): unexpected error: %v", c, err)
		}
	}

	if v.loadedCount != 10 {
		t.Fatalf("loaded_count = %d, want 10", v.loadedCount)
	}
	for c := 0; c < 10; c++ {
		if v.chunks[c] != nil {
			t.Fatalf("chunk %d should have been evicted", c)
		}
	}
	for c := 10; c < 20; c++ {
		if v.chunks[c] == nil {
			t.Fatalf("chunk %d should still be resident", c)
		}
	}
}

func TestPropertyLocateInvertsGetPosition(t *testing.T) {
	v := mustNew(t, 37, 4, 7.5)
	if err := v.UpdateItemSize(10, 22.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < v.TotalItems(); i++ {
		p, err := v.GetPosition(i)
		if err != nil {
			t.Fatalf("get_position(%d): %v", i, err)
		}
		idx, offset, err := v.locate(p)
		if err != nil {
			t.Fatalf("locate(%v): %v", p, err)
		}
		if idx != i || offset != 0 {
			t.Fatalf("locate(get_position(%d)) = (%d, %v), want (%d, 0)", i, idx, offset, i)
		}
	}
}

func TestPropertyBatchMatchesSequential(t *testing.T) {
	updates := []Update{{Index: 1, Size: 12}, {Index: 1, Size: 8}, {Index: 3, Size: 99}, {Index: 0, Size: 1}}

	batched := mustNew(t, 6, 2, 10.0)
	if err := batched.BatchUpdateSizes(updates); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sequential := mustNew(t, 6, 2, 10.0)
	for _, u := range updates {
		if err := sequential.UpdateItemSize(u.Index, u.Size); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if batched.TotalSize() != sequential.TotalSize() {
		t.Fatalf("total_size mismatch: batched=%v sequential=%v", batched.TotalSize(), sequential.TotalSize())
	}
	for i := 0; i < batched.TotalItems(); i++ {
		bp, _ := batched.GetPosition(i)
		sp, _ := sequential.GetPosition(i)
		if bp != sp {
			t.Fatalf("position mismatch at %d: batched=%v sequential=%v", i, bp, sp)
		}
	}
}

func TestPropertyRoundTripUpdateIsNoOp(t *testing.T) {
	v := mustNew(t, 20, 5, 3.0)
	before := v.TotalSize()
	s, err := v.GetItemSize(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.UpdateItemSize(7, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalSize() != before {
		t.Fatalf("total_size changed on round-trip: before=%v after=%v", before, v.TotalSize())
	}
}

func TestGetItemSizeSurvivesEviction(t *testing.T) {
	v := mustNew(t, 10, 5, 3.0) // chunks: [5 items][5 items]
	if err := v.UpdateItemSize(5, 100.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.UnloadChunk(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := v.GetItemSize(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != 100.0 {
		t.Fatalf("GetItemSize after eviction = %v, want 100.0", s)
	}

	before := v.TotalSize()
	if err := v.UpdateItemSize(5, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalSize() != before {
		t.Fatalf("round-trip after eviction changed total_size: before=%v after=%v", before, v.TotalSize())
	}
}

func TestEmptyListVisibleRangeFails(t *testing.T) {
	v := mustNew(t, 0, 4, 10.0)
	if _, err := v.GetVisibleRange(0, 10); err == nil {
		t.Fatal("expected EmptyList error")
	}
}

func TestInvalidViewportRejected(t *testing.T) {
	v := mustNew(t, 10, 4, 10.0)
	if _, err := v.GetVisibleRange(0, 0); err == nil {
		t.Fatal("expected InvalidViewport error")
	}
}

func TestOutOfBoundsIndex(t *testing.T) {
	v := mustNew(t, 10, 4, 10.0)
	if _, err := v.GetItemSize(10); err == nil {
		t.Fatal("expected IndexOutOfBounds error")
	}
}

func TestResizeGrowExtendsTailThenAddsChunks(t *testing.T) {
	v := mustNew(t, 5, 3, 10.0) // chunks: [3 items][2 items]
	if err := v.Resize(8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalItems() != 8 || len(v.chunks) != 3 {
		t.Fatalf("unexpected shape after grow: items=%d chunks=%d", v.TotalItems(), len(v.chunks))
	}
	if v.TotalSize() != 80.0 {
		t.Fatalf("total_size = %v, want 80.0", v.TotalSize())
	}
}

func TestResizeShrinkTruncatesTail(t *testing.T) {
	v := mustNew(t, 10, 3, 10.0)
	if err := v.UpdateItemSize(0, 25.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Resize(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalItems() != 4 || len(v.chunks) != 2 {
		t.Fatalf("unexpected shape after shrink: items=%d chunks=%d", v.TotalItems(), len(v.chunks))
	}
	// item 0 keeps its updated size (25) plus items 1,2 at E=10 and one
	// surviving item in chunk 1 at E=10.
	if v.TotalSize() != 55.0 {
		t.Fatalf("total_size = %v, want 55.0", v.TotalSize())
	}
}

func TestUnloadChunkPreservesTotal(t *testing.T) {
	v := mustNew(t, 10, 3, 10.0)
	if err := v.UpdateItemSize(1, 40.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := v.TotalSize()
	if _, err := v.materialize(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.UnloadChunk(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalSize() != before {
		t.Fatalf("total_size changed after unload: before=%v after=%v", before, v.TotalSize())
	}
	// rematerializing should recover the authoritative size via the
	// spill store, not silently reset to the estimate.
	ch, err := v.materialize(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.sizes[1] != 40.0 {
		t.Fatalf("rehydrated size = %v, want 40.0", ch.sizes[1])
	}
}

func TestClearCacheDropsEverything(t *testing.T) {
	v := mustNew(t, 30, 3, 10.0)
	for c := 0; c < 5; c++ {
		if _, err := v.materialize(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := v.ClearCache(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.loadedCount != 0 {
		t.Fatalf("loaded_count = %d, want 0", v.loadedCount)
	}
}

func TestAddAndRemoveItems(t *testing.T) {
	v := mustNew(t, 10, 5, 2.0)
	if err := v.AddItems(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalItems() != 15 {
		t.Fatalf("total_items = %d, want 15", v.TotalItems())
	}
	if err := v.RemoveItems(15); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalItems() != 0 {
		t.Fatalf("total_items = %d, want 0", v.TotalItems())
	}
	if err := v.RemoveItems(1); err == nil {
		t.Fatal("expected InvalidOperation error removing from an empty list")
	}
}

func TestPrecisionLimitExceeded(t *testing.T) {
	v := mustNew(t, 10, 2, 1.0)
	if err := v.UpdateItemSize(0, math.MaxFloat64/4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := v.GetPosition(1); err == nil {
		t.Fatal("expected PrecisionLimitExceeded error")
	}
}

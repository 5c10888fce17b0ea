// Command vlistdemo exercises the index engine end to end: construction,
// position queries, batched updates, a visible-range query, eviction
// under a tight chunk cache, and a compressed stats snapshot.
package main

import (
	"fmt"
	"os"

	"vlistindex/config"
	"vlistindex/host"
	"vlistindex/vlist"
)

func main() {
	fmt.Println("vlistdemo")
	fmt.Println("=========")

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vlistdemo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	cfg.MaxCachedChunks = 4

	fmt.Println("\n1. Constructing a 10,000-item index")
	b, err := host.New(10000, 100, 24.0, vlist.Vertical, cfg)
	if err != nil {
		return fmt.Errorf("construct index: %w", err)
	}
	fmt.Printf("   total_items=%d total_size=%.1f\n", b.TotalItems(), b.TotalSize())

	fmt.Println("\n2. Updating a handful of item sizes")
	for _, i := range []int{5, 250, 9999} {
		if err := b.UpdateItemSize(i, 48.0); err != nil {
			return fmt.Errorf("update item %d: %w", i, err)
		}
	}
	fmt.Printf("   total_size after updates=%.1f\n", b.TotalSize())

	fmt.Println("\n3. Batch-updating a range of items")
	updates := make([]vlist.Update, 0, 50)
	for i := 1000; i < 1050; i++ {
		updates = append(updates, vlist.Update{Index: i, Size: 30.0})
	}
	if err := b.BatchUpdateSizes(updates); err != nil {
		return fmt.Errorf("batch update: %w", err)
	}
	fmt.Printf("   total_size after batch=%.1f\n", b.TotalSize())

	fmt.Println("\n4. Querying a visible range for a mid-list scroll position")
	vr, err := b.GetVisibleRange(24000, 800)
	if err != nil {
		return fmt.Errorf("get visible range: %w", err)
	}
	fmt.Printf("   range=[%d, %d) start_offset=%.1f end_offset=%.1f\n", vr.Start, vr.End, vr.StartOffset, vr.EndOffset)

	fmt.Println("\n5. Touching more chunks than the cache allows, forcing eviction")
	for c := 0; c < 10; c++ {
		p, err := b.GetPosition(c * 100)
		if err != nil {
			return fmt.Errorf("get position: %w", err)
		}
		if _, err := b.GetVisibleRange(p, 1); err != nil {
			return fmt.Errorf("get visible range: %w", err)
		}
	}
	stats := b.Stats()
	fmt.Printf("   loaded_chunks=%d evictions=%d hit_rate=%.2f\n", stats.LoadedChunks, stats.Evictions, stats.HitRate)

	compressed, err := stats.Compressed()
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	fmt.Printf("   compressed snapshot: %d bytes\n", len(compressed))

	return nil
}

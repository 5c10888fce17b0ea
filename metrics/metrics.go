// Package metrics tracks lightweight counters for a virtualized list
// index — cache hits/misses, evictions, and spills — and exposes a
// compressed point-in-time snapshot for the host boundary to poll.
package metrics

import (
	"encoding/json"
	"sync/atomic"

	"github.com/golang/snappy"
)

// Counters holds the running totals. The zero value is ready to use.
// Every field is updated with atomic operations since a host may read
// a Snapshot from outside the single-threaded owner while the owner is
// still mutating the index — Snapshot is read-only and does not
// participate in the "single owner" contract the index itself requires.
type Counters struct {
	CacheHits    int64
	CacheMisses  int64
	Evictions    int64
	Spills       int64
	Rehydrations int64
}

func (c *Counters) RecordHit()         { atomic.AddInt64(&c.CacheHits, 1) }
func (c *Counters) RecordMiss()        { atomic.AddInt64(&c.CacheMisses, 1) }
func (c *Counters) RecordEviction()    { atomic.AddInt64(&c.Evictions, 1) }
func (c *Counters) RecordSpill()       { atomic.AddInt64(&c.Spills, 1) }
func (c *Counters) RecordRehydration() { atomic.AddInt64(&c.Rehydrations, 1) }

// Snapshot is a point-in-time view of the counters plus whatever live
// state the caller chooses to attach (loaded_count, total_size, ...).
type Snapshot struct {
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	Evictions     int64   `json:"evictions"`
	Spills        int64   `json:"spills"`
	Rehydrations  int64   `json:"rehydrations"`
	LoadedChunks  int     `json:"loaded_chunks"`
	TotalChunks   int     `json:"total_chunks"`
	TotalSize     float64 `json:"total_size"`
	HitRate       float64 `json:"hit_rate"`
}

// Take builds a Snapshot from the current counters plus the supplied
// live state.
func (c *Counters) Take(loadedChunks, totalChunks int, totalSize float64) Snapshot {
	hits := atomic.LoadInt64(&c.CacheHits)
	misses := atomic.LoadInt64(&c.CacheMisses)
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Snapshot{
		CacheHits:    hits,
		CacheMisses:  misses,
		Evictions:    atomic.LoadInt64(&c.Evictions),
		Spills:       atomic.LoadInt64(&c.Spills),
		Rehydrations: atomic.LoadInt64(&c.Rehydrations),
		LoadedChunks: loadedChunks,
		TotalChunks:  totalChunks,
		TotalSize:    totalSize,
		HitRate:      hitRate,
	}
}

// Compressed encodes the snapshot as JSON and Snappy-compresses it —
// cheap enough for a host to poll every frame without the core needing
// to know anything about the transport in between.
func (s Snapshot) Compressed() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

// DecodeSnapshot reverses Snapshot.Compressed.
func DecodeSnapshot(compressed []byte) (Snapshot, error) {
	var s Snapshot
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, err
	}
	return s, nil
}

package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pierrec/lz4/v4"

	"vlistindex/vlerr"
)

// SpillStore preserves the authoritative sizes of a chunk across
// eviction. A chunk that carries per-item updates (its total no longer
// matches E*itemsInChunk(c)) must not revert to the estimate, so the
// virtual list spills every chunk it drops: its sizes slice is
// LZ4-compressed and kept here instead of being discarded outright. The chunk's total is cached
// alongside the compressed payload, so callers can keep cumulative_sizes
// correct without paying a decompression cost just to ask "what is this
// chunk's total now".
type SpillStore struct {
	records map[int]*spillRecord
}

type spillRecord struct {
	compressed []byte
	rawLen     int // decompressed byte length (itemCount * 8)
	itemCount  int
	total      float64
}

// NewSpillStore creates an empty spill store.
func NewSpillStore() *SpillStore {
	return &SpillStore{records: make(map[int]*spillRecord)}
}

// Spill compresses and stores sizes for chunk c, overwriting any prior
// record. total is the chunk's total_size, cached uncompressed so
// TotalOf never needs to decompress.
func (s *SpillStore) Spill(c int, sizes []float64, total float64) error {
	raw := make([]byte, len(sizes)*8)
	for i, v := range sizes {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(raw, compressed)
	if err != nil {
		return vlerr.Wrap(vlerr.InvalidOperation, "failed to compress chunk spill payload", err)
	}
	if n == 0 {
		// Incompressible (or too small to benefit): lz4 signals this by
		// returning 0. Store the raw bytes verbatim; Rehydrate detects
		// this case by comparing compressed length to rawLen.
		compressed = raw
	} else {
		compressed = compressed[:n]
	}

	s.records[c] = &spillRecord{
		compressed: compressed,
		rawLen:     len(raw),
		itemCount:  len(sizes),
		total:      total,
	}
	return nil
}

// Has reports whether chunk c has a spilled record.
func (s *SpillStore) Has(c int) bool {
	_, ok := s.records[c]
	return ok
}

// TotalOf returns the cached total_size of a spilled chunk without
// decompressing its payload.
func (s *SpillStore) TotalOf(c int) (float64, bool) {
	r, ok := s.records[c]
	if !ok {
		return 0, false
	}
	return r.total, true
}

// Rehydrate decompresses and decodes the sizes slice for chunk c.
func (s *SpillStore) Rehydrate(c int) ([]float64, error) {
	r, ok := s.records[c]
	if !ok {
		return nil, vlerr.NewInvalidOperation(fmt.Sprintf("no spilled record for chunk %d", c))
	}

	raw := r.compressed
	if len(r.compressed) != r.rawLen {
		raw = make([]byte, r.rawLen)
		n, err := lz4.UncompressBlock(r.compressed, raw)
		if err != nil {
			return nil, vlerr.Wrap(vlerr.InvalidOperation, "failed to decompress chunk spill payload", err)
		}
		raw = raw[:n]
	}

	sizes := make([]float64, r.itemCount)
	for i := range sizes {
		sizes[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return sizes, nil
}

// Drop removes the spilled record for chunk c, if any.
func (s *SpillStore) Drop(c int) {
	delete(s.records, c)
}

// Len reports the number of spilled chunks currently held.
func (s *SpillStore) Len() int {
	return len(s.records)
}

// Package cache implements the chunk-level cache eviction manager and
// the spill store that preserves authoritative per-item updates across
// eviction.
package cache

import (
	"vlistindex/config"
	"vlistindex/vlerr"
)

// Manager tracks access recency/frequency for currently-materialized
// chunk indices and names eviction victims under the configured policy.
// It tracks at most the set of currently-loaded chunks — an absent
// chunk is simply never recorded.
//
// It tracks bare chunk indices rather than full cache entries: the
// virtual list's chunks slice is itself the entry store, so the
// eviction manager only needs to remember ordering, not values.
type Manager struct {
	policy config.EvictionPolicy

	// order is the recency list for LRU: order[0] is most recently
	// used, order[len-1] is least recently used.
	order []int

	// freq is the access count for LFU.
	freq map[int]int64
	// seq breaks frequency ties in favor of the chunk touched longest
	// ago: lower seq loses ties and is evicted first.
	seq   map[int]int64
	clock int64
}

// New creates an eviction manager for the given policy. Only LRU and LFU
// are recognized — config.Validate already rejects anything else before
// a Manager is constructed, but New re-checks so it is safe to call
// directly.
func New(policy config.EvictionPolicy) (*Manager, error) {
	switch policy {
	case config.LRU, config.LFU:
	default:
		return nil, vlerr.NewInvalidConfiguration("unrecognized cache eviction policy").WithContext("policy", string(policy))
	}
	return &Manager{
		policy: policy,
		freq:   make(map[int]int64),
		seq:    make(map[int]int64),
	}, nil
}

// OnAccess registers a hit to chunk c, moving it to most-recently-used
// (LRU) or incrementing its access count (LFU).
func (m *Manager) OnAccess(c int) {
	m.clock++
	switch m.policy {
	case config.LRU:
		m.moveToFront(c)
	case config.LFU:
		m.freq[c]++
		m.seq[c] = m.clock
		if !m.contains(c) {
			m.order = append(m.order, c)
		}
	}
}

// Evict names a victim per the configured policy and stops tracking it.
// It returns (0, false) if there are no tracked chunks.
func (m *Manager) Evict() (int, bool) {
	if len(m.order) == 0 {
		return 0, false
	}

	switch m.policy {
	case config.LRU:
		victim := m.order[len(m.order)-1]
		m.order = m.order[:len(m.order)-1]
		delete(m.freq, victim)
		delete(m.seq, victim)
		return victim, true
	case config.LFU:
		victim := m.order[0]
		victimFreq := m.freq[victim]
		victimSeq := m.seq[victim]
		victimPos := 0
		for i, c := range m.order {
			f, s := m.freq[c], m.seq[c]
			if f < victimFreq || (f == victimFreq && s < victimSeq) {
				victim, victimFreq, victimSeq, victimPos = c, f, s, i
			}
		}
		m.order = append(m.order[:victimPos], m.order[victimPos+1:]...)
		delete(m.freq, victim)
		delete(m.seq, victim)
		return victim, true
	}
	return 0, false
}

// Forget removes bookkeeping for c without naming it as a victim —
// used when another path (e.g. a resize shrink) discards the chunk.
func (m *Manager) Forget(c int) {
	for i, v := range m.order {
		if v == c {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	delete(m.freq, c)
	delete(m.seq, c)
}

// Len reports the number of chunks currently tracked.
func (m *Manager) Len() int {
	return len(m.order)
}

func (m *Manager) contains(c int) bool {
	for _, v := range m.order {
		if v == c {
			return true
		}
	}
	return false
}

func (m *Manager) moveToFront(c int) {
	for i, v := range m.order {
		if v == c {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append([]int{c}, m.order...)
}

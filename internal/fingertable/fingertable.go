// Package fingertable implements the Chord finger table: a fixed-length
// array of routing shortcuts protected by its own lock, independent of
// the node's successor/predecessor state.
package fingertable

import (
	"sync"

	"chorddht/internal/logger"
	"chorddht/internal/ring"
)

// FingerTable holds M optional NodeInfo slots. Slot i caches the node
// responsible for (self.id + 2^i) mod 2^M. Slots may be nil during
// bootstrap.
type FingerTable struct {
	lgr   logger.Logger
	space ring.Space
	self  ring.NodeInfo
	mu    sync.RWMutex
	slots []*ring.NodeInfo
}

// New creates a finger table with space.Bits slots, all initially nil.
func New(self ring.NodeInfo, space ring.Space, opts ...Option) *FingerTable {
	ft := &FingerTable{
		lgr:   &logger.NopLogger{},
		space: space,
		self:  self,
		slots: make([]*ring.NodeInfo, space.Bits),
	}
	for _, opt := range opts {
		opt(ft)
	}
	return ft
}

// Start returns (self.id + 2^i) mod 2^M, the identifier slot i is
// responsible for.
func (ft *FingerTable) Start(i uint) ring.ID {
	return ft.space.Start(ft.self.ID, i)
}

// Get returns the current occupant of slot i, or false if the slot is
// empty.
func (ft *FingerTable) Get(i uint) (ring.NodeInfo, bool) {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	n := ft.slots[i]
	if n == nil {
		return ring.NodeInfo{}, false
	}
	return *n, true
}

// Set overwrites slot i.
func (ft *FingerTable) Set(i uint, n ring.NodeInfo) {
	ft.mu.Lock()
	ft.slots[i] = &n
	ft.mu.Unlock()
	ft.lgr.Debug("fingertable: slot updated", logger.F("slot", i), logger.FNode("node", n))
}

// Len returns the number of slots (the ring's bit width M).
func (ft *FingerTable) Len() int {
	return len(ft.slots)
}

// ClosestPrecedingNode scans slots M-1 down to 0 and returns the first
// non-nil finger whose id lies strictly in the open interval
// (self.id, target). If none qualifies, it returns false and the caller
// falls back to its successor.
func (ft *FingerTable) ClosestPrecedingNode(target ring.ID) (ring.NodeInfo, bool) {
	ft.mu.RLock()
	snapshot := make([]*ring.NodeInfo, len(ft.slots))
	copy(snapshot, ft.slots)
	ft.mu.RUnlock()

	for i := len(snapshot) - 1; i >= 0; i-- {
		n := snapshot[i]
		if n == nil {
			continue
		}
		if ft.space.InRange(n.ID, ft.self.ID, target, false, false) {
			return *n, true
		}
	}
	return ring.NodeInfo{}, false
}

// Snapshot returns a copy of every populated slot, indexed by slot
// number, for debugging and tests.
func (ft *FingerTable) Snapshot() map[int]ring.NodeInfo {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	out := make(map[int]ring.NodeInfo)
	for i, n := range ft.slots {
		if n != nil {
			out[i] = *n
		}
	}
	return out
}

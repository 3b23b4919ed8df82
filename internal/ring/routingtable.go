// Package ring implements the RING overlay: a Chord-style ring of
// identifiers navigated with a finger table, a single predecessor
// pointer, and a bounded successor list for fault tolerance.
package ring

import (
	"sync"

	"overlaylab/internal/domain"
	"overlaylab/internal/logger"
)

// routingTable holds one node's view of the ring: its finger table, its
// predecessor, and its successor list. It is owned by a single Node and
// protected by a single mutex, matching the cooperative, single-threaded
// scheduling model the simulator runs under.
type routingTable struct {
	mu sync.RWMutex

	self   domain.ID
	space  domain.Space
	logger logger.Logger

	fingers       []domain.ID // length space.Bits; fingers[i] targets self+2^i
	fingerLive    []bool
	predecessor   domain.ID
	predecessorOK bool
	successors    []domain.ID // bounded successor list, successors[0] is finger[0]
}

func newRoutingTable(self domain.ID, space domain.Space, succListSize int, lgr logger.Logger) *routingTable {
	return &routingTable{
		self:       self,
		space:      space,
		logger:     lgr,
		fingers:    make([]domain.ID, space.Bits),
		fingerLive: make([]bool, space.Bits),
		successors: make([]domain.ID, 0, succListSize),
	}
}

// successor returns the first successor, i.e. finger[0].
func (rt *routingTable) successor() (domain.ID, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if len(rt.successors) == 0 {
		return 0, false
	}
	return rt.successors[0], true
}

func (rt *routingTable) setSuccessorList(list []domain.ID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.successors = append(rt.successors[:0], list...)
	if len(rt.successors) > 0 {
		rt.fingers[0] = rt.successors[0]
		rt.fingerLive[0] = true
	}
	rt.logger.Debug("ring: successor list updated", logger.F("size", len(rt.successors)))
}

func (rt *routingTable) successorListSnapshot() []domain.ID {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]domain.ID, len(rt.successors))
	copy(out, rt.successors)
	return out
}

func (rt *routingTable) predecessorID() (domain.ID, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.predecessor, rt.predecessorOK
}

func (rt *routingTable) setPredecessor(id domain.ID) {
	rt.mu.Lock()
	rt.predecessor = id
	rt.predecessorOK = true
	rt.mu.Unlock()
	rt.logger.Debug("ring: predecessor updated", logger.FID("predecessor", id))
}

func (rt *routingTable) clearPredecessor() {
	rt.mu.Lock()
	rt.predecessorOK = false
	rt.mu.Unlock()
}

func (rt *routingTable) setFinger(i int, id domain.ID) {
	rt.mu.Lock()
	rt.fingers[i] = id
	rt.fingerLive[i] = true
	if i == 0 && (len(rt.successors) == 0 || rt.successors[0] != id) {
		if len(rt.successors) == 0 {
			rt.successors = append(rt.successors, id)
		} else {
			rt.successors[0] = id
		}
	}
	rt.mu.Unlock()
}

func (rt *routingTable) clearFinger(i int) {
	rt.mu.Lock()
	rt.fingerLive[i] = false
	rt.mu.Unlock()
}

// fingerSnapshot returns the live finger entries as (index, id) pairs,
// ordered from the highest index down to 0 — the order closestPrecedingFinger
// scans in.
func (rt *routingTable) fingerSnapshot() []struct {
	Index int
	ID    domain.ID
} {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]struct {
		Index int
		ID    domain.ID
	}, 0, len(rt.fingers))
	for i := len(rt.fingers) - 1; i >= 0; i-- {
		if rt.fingerLive[i] {
			out = append(out, struct {
				Index int
				ID    domain.ID
			}{i, rt.fingers[i]})
		}
	}
	return out
}

// distinctFingerCount reports the number of distinct live finger ids,
// excluding self — the RING overlay's routing-table-size metric.
func (rt *routingTable) distinctFingerCount() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	seen := make(map[domain.ID]struct{})
	for i, live := range rt.fingerLive {
		if live && rt.fingers[i] != rt.self {
			seen[rt.fingers[i]] = struct{}{}
		}
	}
	return len(seen)
}

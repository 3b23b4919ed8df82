// Package prefixnet implements the PREFIX overlay: a Pastry-style
// base-2^b digit routing table combined with a leaf set ordered by
// circular distance, navigated with prefix-then-proximity routing.
package prefixnet

import (
	"sync"

	"overlaylab/internal/domain"
	"overlaylab/internal/logger"
)

// cell is a single routing-table slot: a node id sharing a known-length
// prefix with self, and a fixed digit at the row's position.
type cell struct {
	id domain.ID
	ok bool
}

// digitTable holds one node's PREFIX routing state: the 2D routing table
// indexed by (shared-prefix length, digit value) and the leaf set.
type digitTable struct {
	mu sync.RWMutex

	self        domain.ID
	space       domain.Space
	bitsPerDig  int
	base        uint64
	numDigits   int
	leafSize    int
	table       [][]cell // table[row][col]
	leafSet     []domain.ID
	logger      logger.Logger
}

func newDigitTable(self domain.ID, space domain.Space, bitsPerDigit, leafSize int, lgr logger.Logger) *digitTable {
	numDigits := (space.Bits + bitsPerDigit - 1) / bitsPerDigit
	base := uint64(1) << uint(bitsPerDigit)
	table := make([][]cell, numDigits)
	for i := range table {
		table[i] = make([]cell, base)
	}
	return &digitTable{
		self:       self,
		space:      space,
		bitsPerDig: bitsPerDigit,
		base:       base,
		numDigits:  numDigits,
		leafSize:   leafSize,
		table:      table,
		logger:     lgr,
	}
}

// digit returns digit(x, p) = (x >> ((numDigits-1-p)*b)) & (base-1).
func (dt *digitTable) digit(x domain.ID, p int) uint64 {
	shift := uint((dt.numDigits - 1 - p) * dt.bitsPerDig)
	return (uint64(x) >> shift) & (dt.base - 1)
}

// sharedPrefixLength returns the least position where a and b's digits
// differ, or numDigits if every digit matches.
func (dt *digitTable) sharedPrefixLength(a, b domain.ID) int {
	for p := 0; p < dt.numDigits; p++ {
		if dt.digit(a, p) != dt.digit(b, p) {
			return p
		}
	}
	return dt.numDigits
}

// add integrates target into the leaf set and, where applicable, the
// routing table (§4.G). isLive reports whether a given id is currently
// reachable; a target equal to self or not live is discarded.
//
// A routing-table cell keeps its current occupant unless that occupant
// is absent or no longer live, in which case target replaces it —
// matching the reference's `_add_to_state` (original_source/
// dht_comparison/pastry.py), which checks the stored node against the
// network before deciding to keep it.
func (dt *digitTable) add(target domain.ID, isLive func(domain.ID) bool) {
	if target == dt.self || !isLive(target) {
		return
	}
	dt.mu.Lock()
	defer dt.mu.Unlock()

	found := false
	for _, id := range dt.leafSet {
		if id == target {
			found = true
			break
		}
	}
	if !found {
		dt.leafSet = append(dt.leafSet, target)
		sortByCircularDistance(dt.space, dt.self, dt.leafSet)
		if len(dt.leafSet) > dt.leafSize {
			dt.leafSet = dt.leafSet[:dt.leafSize]
		}
	}

	plen := dt.sharedPrefixLength(dt.self, target)
	if plen < dt.numDigits {
		col := dt.digit(target, plen)
		existing := dt.table[plen][col]
		if !existing.ok || !isLive(existing.id) {
			dt.table[plen][col] = cell{id: target, ok: true}
		}
	}
}

// dropDead removes leaf-set and routing-table entries no longer live.
func (dt *digitTable) dropDead(isLive func(domain.ID) bool) {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	filtered := dt.leafSet[:0]
	for _, id := range dt.leafSet {
		if isLive(id) {
			filtered = append(filtered, id)
		}
	}
	dt.leafSet = filtered

	for r := range dt.table {
		for c := range dt.table[r] {
			cl := dt.table[r][c]
			if cl.ok && !isLive(cl.id) {
				dt.table[r][c] = cell{}
			}
		}
	}
}

// clearReferencesTo nulls any routing-table cell or leaf-set member
// pointing at target, used when target is leaving the overlay.
func (dt *digitTable) clearReferencesTo(target domain.ID) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	filtered := dt.leafSet[:0]
	for _, id := range dt.leafSet {
		if id != target {
			filtered = append(filtered, id)
		}
	}
	dt.leafSet = filtered
	for r := range dt.table {
		for c := range dt.table[r] {
			if dt.table[r][c].ok && dt.table[r][c].id == target {
				dt.table[r][c] = cell{}
			}
		}
	}
}

// routingCell returns the entry stored at (row, col), if the cell is
// occupied. It does not check whether that entry is still live.
func (dt *digitTable) routingCell(row int, col uint64) (domain.ID, bool) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	if row < 0 || row >= len(dt.table) {
		return 0, false
	}
	c := dt.table[row][col]
	return c.id, c.ok
}

// leafSetSnapshot returns a copy of the current leaf set, sorted by
// circular distance to self.
func (dt *digitTable) leafSetSnapshot() []domain.ID {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	out := make([]domain.ID, len(dt.leafSet))
	copy(out, dt.leafSet)
	return out
}

// allRoutingEntries returns the entry of every occupied routing-table
// cell. It does not check whether those entries are still live.
func (dt *digitTable) allRoutingEntries() []domain.ID {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	var out []domain.ID
	for _, row := range dt.table {
		for _, c := range row {
			if c.ok {
				out = append(out, c.id)
			}
		}
	}
	return out
}

// size returns |leaf_set| + number of non-empty routing-table cells
// (§4.G).
func (dt *digitTable) size() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	count := len(dt.leafSet)
	for _, row := range dt.table {
		for _, c := range row {
			if c.ok {
				count++
			}
		}
	}
	return count
}

func sortByCircularDistance(space domain.Space, self domain.ID, ids []domain.ID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0; j-- {
			di := space.CircularDistance(ids[j], self)
			dj := space.CircularDistance(ids[j-1], self)
			if di < dj || (di == dj && ids[j] < ids[j-1]) {
				ids[j], ids[j-1] = ids[j-1], ids[j]
			} else {
				break
			}
		}
	}
}

// Package xorkad implements the XOR overlay: Kademlia-style k-buckets
// indexed by the most significant set bit of the XOR distance to self,
// navigated with an iterative, alpha-wide lookup.
package xorkad

import (
	"math/bits"
	"sync"

	"overlaylab/internal/domain"
	"overlaylab/internal/logger"
)

// bucketTable holds one node's k-buckets, one per possible MSB position
// of the XOR distance to self (§4.F).
type bucketTable struct {
	mu sync.RWMutex

	self    domain.ID
	space   domain.Space
	k       int
	buckets [][]domain.ID // buckets[i]: ids whose distance to self is in [2^i, 2^(i+1))
	logger  logger.Logger
}

func newBucketTable(self domain.ID, space domain.Space, k int, lgr logger.Logger) *bucketTable {
	return &bucketTable{
		self:    self,
		space:   space,
		k:       k,
		buckets: make([][]domain.ID, space.Bits),
		logger:  lgr,
	}
}

// bucketIndex returns floor(log2(self XOR peer)), the bucket a peer
// belongs in. Callers must ensure peer != self.
func (bt *bucketTable) bucketIndex(peer domain.ID) int {
	d := bt.space.XOR(bt.self, peer)
	return bits.Len64(d) - 1
}

// update records an observation of peer, moving it to the tail if
// already present, appending if the bucket has room, or dropping it
// otherwise (no ping-based eviction is modeled) (§4.F).
func (bt *bucketTable) update(peer domain.ID) {
	if peer == bt.self {
		return
	}
	idx := bt.bucketIndex(peer)
	bt.mu.Lock()
	defer bt.mu.Unlock()
	b := bt.buckets[idx]
	for i, id := range b {
		if id == peer {
			b = append(b[:i], b[i+1:]...)
			bt.buckets[idx] = append(b, peer)
			return
		}
	}
	if len(b) < bt.k {
		bt.buckets[idx] = append(b, peer)
	}
}

// purgeDead removes entries no longer reported live by isLive.
func (bt *bucketTable) purgeDead(isLive func(domain.ID) bool) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	for i, b := range bt.buckets {
		filtered := b[:0]
		for _, id := range b {
			if isLive(id) {
				filtered = append(filtered, id)
			}
		}
		bt.buckets[i] = filtered
	}
}

// allKnown returns every id currently held across all buckets.
func (bt *bucketTable) allKnown() []domain.ID {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	var out []domain.ID
	for _, b := range bt.buckets {
		out = append(out, b...)
	}
	return out
}

// closest returns the count ids (self included if within the bound)
// known to this table, sorted by ascending XOR distance to target.
func (bt *bucketTable) closest(target domain.ID, count int) []domain.ID {
	known := bt.allKnown()
	known = append(known, bt.self)
	sortByDistance(bt.space, target, known)
	if len(known) > count {
		known = known[:count]
	}
	return known
}

func sortByDistance(space domain.Space, target domain.ID, ids []domain.ID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0; j-- {
			di := space.XOR(ids[j], target)
			dj := space.XOR(ids[j-1], target)
			if di < dj || (di == dj && ids[j] < ids[j-1]) {
				ids[j], ids[j-1] = ids[j-1], ids[j]
			} else {
				break
			}
		}
	}
}

// size returns the sum of bucket lengths, the XOR routing-table-size
// metric (§4.F).
func (bt *bucketTable) size() int {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	total := 0
	for _, b := range bt.buckets {
		total += len(b)
	}
	return total
}

// Package oracle implements the pure, stateless ground-truth functions
// each overlay's lookup correctness is checked against: given a key and
// the current set of live node identifiers, what is the single correct
// responsible node. These functions never touch a routing table or the
// network simulator; they exist purely as a correctness reference for
// tests and harnesses.
package oracle

import "overlaylab/internal/domain"

// Ring returns the least live id greater than or equal to key, wrapping
// to the smallest live id when key exceeds every live id. liveIDs must
// be sorted ascending and non-empty.
func Ring(key domain.ID, liveIDs []domain.ID) domain.ID {
	for _, id := range liveIDs {
		if id >= key {
			return id
		}
	}
	return liveIDs[0]
}

// XOR returns the live id minimizing the Kademlia XOR distance to key,
// breaking ties by lower id.
func XOR(space domain.Space, key domain.ID, liveIDs []domain.ID) domain.ID {
	best := liveIDs[0]
	bestDist := space.XOR(best, key)
	for _, id := range liveIDs[1:] {
		d := space.XOR(id, key)
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best
}

// Prefix returns the live id minimizing (circularDistance(id,key), id)
// lexicographically, matching the PREFIX overlay's closeness metric.
func Prefix(space domain.Space, key domain.ID, liveIDs []domain.ID) domain.ID {
	best := liveIDs[0]
	bestDist := space.CircularDistance(best, key)
	for _, id := range liveIDs[1:] {
		d := space.CircularDistance(id, key)
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best
}

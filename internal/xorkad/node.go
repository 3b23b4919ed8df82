package xorkad

import (
	"github.com/bits-and-blooms/bloom/v3"

	"overlaylab/internal/domain"
	"overlaylab/internal/logger"
	"overlaylab/internal/lookup"
	"overlaylab/internal/network"
	"overlaylab/internal/overlay"
	"overlaylab/internal/storage"
)

// Node is a single XOR overlay participant: a Kademlia-style k-bucket
// table navigated with an iterative, alpha-wide lookup. It implements
// overlay.Node.
type Node struct {
	id    domain.ID
	space domain.Space
	sim   *network.Simulator
	store storage.Store
	lgr   logger.Logger

	k     int
	alpha int
	rt    *bucketTable
}

// New creates a detached XOR node with k-bucket capacity k and lookup
// width alpha.
func New(id domain.ID, space domain.Space, sim *network.Simulator, k, alpha int, opts ...Option) *Node {
	n := &Node{
		id:    id,
		space: space,
		sim:   sim,
		store: storage.NewMemoryStore(nil),
		lgr:   &logger.NopLogger{},
		k:     k,
		alpha: alpha,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.rt = newBucketTable(id, space, k, n.lgr)
	return n
}

func (n *Node) ID() domain.ID { return n.id }

// findNode is the remote procedure a peer invokes on q: q observes the
// caller (bucket-update), then returns its k closest known ids to
// target (§4.F).
func (n *Node) findNode(caller, target domain.ID) []domain.ID {
	n.rt.update(caller)
	return n.rt.closest(target, n.k)
}

// Join registers self, bucket-updates the bootstrap, and runs a
// self-lookup to populate buckets via findNode traversal (§4.F).
func (n *Node) Join(bootstrap *domain.ID) int {
	if bootstrap == nil {
		if _, already := n.sim.GetNode(n.id); already {
			n.lgr.Error(overlay.ErrAlreadyLive.Error(), logger.FID("id", n.id))
			return 0
		}
		n.sim.Register(n)
		return 0
	}

	n.sim.Register(n)
	n.rt.update(*bootstrap)
	res := n.Lookup(n.id)
	n.lgr.Info("xor: joined", logger.FID("id", n.id), logger.F("rounds", res.HopCount))
	return res.HopCount
}

// Leave unregisters self; remote buckets purge this id during their own
// Stabilize (§4.F).
func (n *Node) Leave() int {
	n.lgr.Info("xor: left", logger.FID("id", n.id))
	n.sim.Unregister(n.id)
	return 0
}

// Lookup runs the iterative, alpha-wide shortlist search described in
// §4.F, capping rounds at 2*m.
func (n *Node) Lookup(key domain.ID) lookup.Result {
	shortlist := n.rt.closest(key, n.k)
	path := []domain.ID{n.id}
	queried := map[domain.ID]bool{n.id: true}
	queriedFilter := bloom.NewWithEstimates(uint(n.k*4+8), 0.01)
	queriedFilter.AddString(n.id.String())

	rounds := 0
	roundCap := 2 * n.space.Bits

	for {
		candidates := make([]domain.ID, 0, n.alpha)
		for _, id := range shortlist {
			if len(candidates) >= n.alpha {
				break
			}
			if queriedFilter.TestString(id.String()) && queried[id] {
				continue
			}
			candidates = append(candidates, id)
		}
		if len(candidates) == 0 {
			break
		}

		rounds++
		if n.sim.PerHopDelay() > 0 {
			n.sim.AdvanceTime()
		}

		foundNew := false
		for _, id := range candidates {
			queried[id] = true
			queriedFilter.AddString(id.String())
			path = append(path, id)

			peer, ok := n.sim.GetNode(id)
			if !ok {
				n.sim.ReportDead(id)
				continue
			}
			peerNode, ok := peer.(*Node)
			if !ok {
				continue
			}
			n.rt.update(id)
			returned := peerNode.findNode(n.id, key)
			for _, r := range returned {
				if r == n.id {
					continue
				}
				before := len(shortlist)
				shortlist = mergeUnique(shortlist, r)
				n.rt.update(r)
				if len(shortlist) > before {
					foundNew = true
				}
			}
		}

		shortlist = append(shortlist, n.id)
		sortByDistance(n.space, key, shortlist)
		shortlist = dedupe(shortlist)
		if len(shortlist) > n.k {
			shortlist = shortlist[:n.k]
		}

		if !foundNew || rounds > roundCap {
			break
		}
	}

	best := n.id
	bestDist := n.space.XOR(best, key)
	for _, id := range shortlist {
		d := n.space.XOR(id, key)
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return lookup.New(key, best, rounds, path, true)
}

func mergeUnique(list []domain.ID, id domain.ID) []domain.ID {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

func dedupe(list []domain.ID) []domain.ID {
	out := list[:0]
	var prev domain.ID
	havePrev := false
	for _, id := range list {
		if havePrev && id == prev {
			continue
		}
		out = append(out, id)
		prev, havePrev = id, true
	}
	return out
}

// Store performs a lookup and writes (key, value) into the responsible
// node's local map.
func (n *Node) Store(key domain.ID, value string) bool {
	res := n.Lookup(key)
	if !res.Success {
		return false
	}
	peer, ok := n.sim.GetNode(res.ResponsibleNode)
	if !ok {
		return false
	}
	target, ok := peer.(*Node)
	if !ok {
		return false
	}
	target.store.Put(key, value)
	return true
}

// Retrieve performs a lookup and reads the responsible node's local map.
func (n *Node) Retrieve(key domain.ID) (string, bool) {
	res := n.Lookup(key)
	if !res.Success {
		return "", false
	}
	peer, ok := n.sim.GetNode(res.ResponsibleNode)
	if !ok {
		return "", false
	}
	target, ok := peer.(*Node)
	if !ok {
		return "", false
	}
	return target.store.Get(key)
}

// Stabilize removes dead entries from every bucket (§4.F).
func (n *Node) Stabilize() {
	n.rt.purgeDead(func(id domain.ID) bool {
		_, ok := n.sim.GetNode(id)
		if !ok {
			n.sim.ReportDead(id)
		}
		return ok
	})
}

// RoutingTableSize returns the sum of bucket lengths (§4.F).
func (n *Node) RoutingTableSize() int {
	return n.rt.size()
}

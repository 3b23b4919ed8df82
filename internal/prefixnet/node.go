package prefixnet

import (
	"overlaylab/internal/domain"
	"overlaylab/internal/logger"
	"overlaylab/internal/lookup"
	"overlaylab/internal/network"
	"overlaylab/internal/overlay"
	"overlaylab/internal/storage"
)

// Node is a single PREFIX overlay participant: a digit routing table
// plus a leaf set, navigated by prefix match first and proximity
// second. It implements overlay.Node.
type Node struct {
	id    domain.ID
	space domain.Space
	sim   *network.Simulator
	store storage.Store
	lgr   logger.Logger

	rt *digitTable
}

// New creates a detached PREFIX node with bitsPerDigit-bit digits and a
// leaf set bounded by leafSize.
func New(id domain.ID, space domain.Space, sim *network.Simulator, bitsPerDigit, leafSize int, opts ...Option) *Node {
	n := &Node{
		id:    id,
		space: space,
		sim:   sim,
		store: storage.NewMemoryStore(nil),
		lgr:   &logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(n)
	}
	n.rt = newDigitTable(id, space, bitsPerDigit, leafSize, n.lgr)
	return n
}

func (n *Node) ID() domain.ID { return n.id }

func (n *Node) isLive(id domain.ID) bool {
	_, ok := n.sim.GetNode(id)
	if !ok {
		n.sim.ReportDead(id)
	}
	return ok
}

// ingest adds peer itself plus every member of peer's leaf set and routing
// table, the "add via peer's state" step used by Join and Stabilize.
func (n *Node) ingest(peer *Node) {
	n.rt.add(peer.id, n.isLive)
	for _, id := range peer.rt.leafSetSnapshot() {
		n.rt.add(id, n.isLive)
	}
	for _, id := range peer.rt.allRoutingEntries() {
		n.rt.add(id, n.isLive)
	}
}

// Join registers self, ingests the bootstrap's state, walks a
// self-lookup to learn path-node state, and notifies its resulting
// leaf-set neighbours (§4.G).
func (n *Node) Join(bootstrap *domain.ID) int {
	if bootstrap == nil {
		if _, already := n.sim.GetNode(n.id); already {
			n.lgr.Error(overlay.ErrAlreadyLive.Error(), logger.FID("id", n.id))
			return 0
		}
		n.sim.Register(n)
		return 0
	}

	messages := 0
	bootPeer, ok := n.sim.GetNode(*bootstrap)
	if !ok {
		n.lgr.Warn("prefix: bootstrap not found", logger.FID("bootstrap", *bootstrap))
		return 0
	}
	bootNode, ok := bootPeer.(*Node)
	if !ok {
		return 0
	}

	n.sim.Register(n)
	n.ingest(bootNode)
	messages++

	res := n.Lookup(n.id)
	messages += res.HopCount
	for _, id := range res.Path {
		if id == n.id {
			continue
		}
		peer, ok := n.sim.GetNode(id)
		if !ok {
			continue
		}
		if node, ok := peer.(*Node); ok {
			n.ingest(node)
			messages++
		}
	}

	for _, leaf := range n.rt.leafSetSnapshot() {
		peer, ok := n.sim.GetNode(leaf)
		if !ok {
			continue
		}
		if node, ok := peer.(*Node); ok {
			node.rt.add(n.id, node.isLive)
			messages++
		}
	}

	n.lgr.Info("prefix: joined", logger.FID("id", n.id), logger.F("messages", messages))
	return messages
}

// Leave removes self from every leaf-set neighbour, transfers local data
// to the closest surviving leaf, and unregisters (§4.G).
func (n *Node) Leave() int {
	messages := 0
	leafSet := n.rt.leafSetSnapshot()

	for _, leaf := range leafSet {
		peer, ok := n.sim.GetNode(leaf)
		if !ok {
			continue
		}
		if node, ok := peer.(*Node); ok {
			node.rt.clearReferencesTo(n.id)
			messages++
		}
	}

	if len(leafSet) > 0 {
		closest := leafSet[0]
		bestDist := n.space.CircularDistance(closest, n.id)
		for _, id := range leafSet[1:] {
			d := n.space.CircularDistance(id, n.id)
			if d < bestDist || (d == bestDist && id < closest) {
				closest, bestDist = id, d
			}
		}
		if peer, ok := n.sim.GetNode(closest); ok {
			if node, ok := peer.(*Node); ok {
				for _, e := range n.store.All() {
					node.store.Put(e.Key, e.Value)
					messages++
				}
			}
		}
	}

	n.sim.Unregister(n.id)
	n.lgr.Info("prefix: left", logger.FID("id", n.id), logger.F("messages", messages))
	return messages
}

// nextHop implements the next-hop selection rule of §4.G.
func (n *Node) nextHop(key domain.ID) (domain.ID, bool) {
	if n.space.CircularDistance(n.id, key) == 0 {
		return 0, false
	}

	plen := n.rt.sharedPrefixLength(n.id, key)
	if plen < n.rt.numDigits {
		col := n.rt.digit(key, plen)
		if id, ok := n.rt.routingCell(plen, col); ok && n.isLive(id) {
			return id, true
		}
	}

	candidates := n.rt.leafSetSnapshot()
	for _, id := range n.rt.allRoutingEntries() {
		if n.isLive(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	best := candidates[0]
	bestDist := n.space.CircularDistance(best, key)
	for _, id := range candidates[1:] {
		d := n.space.CircularDistance(id, key)
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	if bestDist < n.space.CircularDistance(n.id, key) {
		return best, true
	}
	return 0, false
}

// Lookup walks the overlay towards the node responsible for key,
// terminating on no next hop, a repeated id, a dead next hop, or the
// hop cap of 2*m (§4.G).
func (n *Node) Lookup(key domain.ID) lookup.Result {
	path := []domain.ID{n.id}
	visited := map[domain.ID]bool{n.id: true}
	current := n
	hops := 0
	hopCap := 2 * n.space.Bits

	for {
		nextID, ok := current.nextHop(key)
		if !ok {
			return lookup.New(key, current.id, hops, path, true)
		}
		if visited[nextID] {
			return lookup.New(key, current.id, hops, path, true)
		}

		peer, ok := current.sim.GetNode(nextID)
		if !ok {
			current.sim.ReportDead(nextID)
			return lookup.New(key, current.id, hops, path, true)
		}
		nextNode, ok := peer.(*Node)
		if !ok {
			return lookup.New(key, current.id, hops, path, true)
		}

		hops++
		path = append(path, nextID)
		visited[nextID] = true
		if hops > hopCap {
			return lookup.Failed(key, hops, path)
		}
		current = nextNode
	}
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

// Stabilize purges dead entries, then re-ingests state from every
// surviving leaf (§4.G).
func (n *Node) Stabilize() {
	n.rt.dropDead(n.isLive)

	for _, leaf := range n.rt.leafSetSnapshot() {
		peer, ok := n.sim.GetNode(leaf)
		if !ok {
			continue
		}
		if node, ok := peer.(*Node); ok {
			n.ingest(node)
		}
	}
}

// RoutingTableSize returns |leaf_set| plus the number of non-empty
// routing-table cells (§4.G).
func (n *Node) RoutingTableSize() int {
	return n.rt.size()
}

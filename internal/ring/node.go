package ring

import (
	"overlaylab/internal/domain"
	"overlaylab/internal/logger"
	"overlaylab/internal/lookup"
	"overlaylab/internal/network"
	"overlaylab/internal/overlay"
	"overlaylab/internal/storage"
)

// Node is a single RING overlay participant: a ring position navigated
// via a finger table, a predecessor pointer, and a bounded successor
// list. It implements overlay.Node.
type Node struct {
	id    domain.ID
	space domain.Space
	sim   *network.Simulator
	store storage.Store
	lgr   logger.Logger

	succListSize int
	rt           *routingTable
}

// New creates a detached RING node. Callers must call Join before the
// node participates in lookups from other nodes.
func New(id domain.ID, space domain.Space, sim *network.Simulator, succListSize int, opts ...Option) *Node {
	n := &Node{
		id:           id,
		space:        space,
		sim:          sim,
		store:        storage.NewMemoryStore(nil),
		lgr:          &logger.NopLogger{},
		succListSize: succListSize,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.rt = newRoutingTable(id, space, succListSize, n.lgr)
	return n
}

func (n *Node) ID() domain.ID { return n.id }

// Join registers this node with the network, learning an initial
// successor and finger table from bootstrap (§4.E). With no bootstrap it
// forms a fresh, single-node ring.
func (n *Node) Join(bootstrap *domain.ID) int {
	if bootstrap == nil {
		if _, already := n.sim.GetNode(n.id); already {
			n.lgr.Error(overlay.ErrAlreadyLive.Error(), logger.FID("id", n.id))
			return 0
		}
		n.rt.setSuccessorList([]domain.ID{n.id})
		n.sim.Register(n)
		n.lgr.Info("ring: joined as first node", logger.FID("id", n.id))
		return 0
	}

	bootPeer, ok := n.sim.GetNode(*bootstrap)
	if !ok {
		n.lgr.Warn("ring: bootstrap not found", logger.FID("bootstrap", *bootstrap))
		return 0
	}

	messages := 0
	succRes := bootPeer.Lookup(n.id)
	messages++
	succ := *bootstrap
	if succRes.Success {
		succ = succRes.ResponsibleNode
	}
	n.rt.setSuccessorList([]domain.ID{succ})

	for i := 0; i < n.space.Bits; i++ {
		target := n.space.AddPow2(n.id, i)
		res := bootPeer.Lookup(target)
		messages++
		if res.Success {
			n.rt.setFinger(i, res.ResponsibleNode)
		}
	}

	n.sim.Register(n)
	n.lgr.Info("ring: joined", logger.FID("id", n.id), logger.FID("successor", succ), logger.F("messages", messages))
	return messages
}

// Leave notifies neighbours, transfers local data to the successor, and
// unregisters (§4.E).
func (n *Node) Leave() int {
	messages := 0
	pred, predOK := n.rt.predecessorID()
	succ, succOK := n.rt.successor()

	if succOK && succ != n.id {
		if peer, ok := n.sim.GetNode(succ); ok {
			if node, ok2 := peer.(*Node); ok2 {
				node.adoptPredecessor(pred, predOK)
				messages++
				for _, e := range n.store.All() {
					node.store.Put(e.Key, e.Value)
					messages++
				}
			}
		}
	}
	if predOK && pred != n.id {
		if peer, ok := n.sim.GetNode(pred); ok {
			if node, ok2 := peer.(*Node); ok2 {
				node.adoptSuccessor(succ, succOK)
				messages++
			}
		}
	}

	n.sim.Unregister(n.id)
	n.lgr.Info("ring: left", logger.FID("id", n.id), logger.F("messages", messages))
	return messages
}

func (n *Node) adoptPredecessor(pred domain.ID, ok bool) {
	if ok {
		n.rt.setPredecessor(pred)
	} else {
		n.rt.clearPredecessor()
	}
}

func (n *Node) adoptSuccessor(succ domain.ID, ok bool) {
	if ok {
		n.rt.setFinger(0, succ)
	}
}

// notify is invoked by a peer who believes it might be our predecessor.
func (n *Node) notify(candidate domain.ID) {
	if candidate == n.id {
		return
	}
	pred, predOK := n.rt.predecessorID()
	if !predOK || n.space.BetweenOpen(candidate, pred, n.id) {
		n.rt.setPredecessor(candidate)
	}
}

// closestPrecedingFinger scans the finger table from highest to lowest
// index and returns the first live entry strictly between self and key.
func (n *Node) closestPrecedingFinger(key domain.ID) (domain.ID, bool) {
	for _, f := range n.rt.fingerSnapshot() {
		if n.sim.LikelyDead(f.ID) {
			continue
		}
		if !n.space.BetweenOpen(f.ID, n.id, key) {
			continue
		}
		if _, ok := n.sim.GetNode(f.ID); ok {
			return f.ID, true
		}
		n.sim.ReportDead(f.ID)
	}
	return 0, false
}

// Lookup walks the ring from this node towards the node responsible for
// key, capping total hops at 2*m (§4.E).
func (n *Node) Lookup(key domain.ID) lookup.Result {
	path := []domain.ID{n.id}
	current := n
	hops := 0
	hopCap := 2 * n.space.Bits

	for {
		succ, ok := current.rt.successor()
		if !ok {
			return lookup.Failed(key, hops, path)
		}
		if n.space.Between(key, current.id, succ) {
			return lookup.New(key, succ, hops, path, true)
		}

		nextID, ok := current.closestPrecedingFinger(key)
		if !ok {
			return lookup.New(key, succ, hops, path, true)
		}
		if nextID == current.id {
			return lookup.New(key, succ, hops, path, true)
		}

		peer, ok := current.sim.GetNode(nextID)
		if !ok {
			current.sim.ReportDead(nextID)
			return lookup.New(key, succ, hops, path, true)
		}
		nextNode, ok := peer.(*Node)
		if !ok {
			return lookup.New(key, succ, hops, path, true)
		}

		hops++
		path = append(path, nextID)
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

// Stabilize runs one round of the RING repair protocol (§4.E).
func (n *Node) Stabilize() {
	succList := n.rt.successorListSnapshot()

	var succ domain.ID
	succOK := false
	for _, cand := range succList {
		if _, ok := n.sim.GetNode(cand); ok {
			succ, succOK = cand, true
			break
		}
		n.sim.ReportDead(cand)
	}
	if !succOK {
		succ = n.id
	}
	n.rt.setFinger(0, succ)

	if peer, ok := n.sim.GetNode(succ); ok {
		if succNode, ok2 := peer.(*Node); ok2 {
			if x, xok := succNode.rt.predecessorID(); xok {
				if _, liveOK := n.sim.GetNode(x); liveOK && n.space.BetweenOpen(x, n.id, succ) {
					succ = x
					n.rt.setFinger(0, succ)
				}
			}
			if peer2, ok3 := n.sim.GetNode(succ); ok3 {
				if succNode2, ok4 := peer2.(*Node); ok4 {
					succNode2.notify(n.id)
				}
			}
		}
	}

	for i := 0; i < n.space.Bits; i++ {
		target := n.space.AddPow2(n.id, i)
		res := n.Lookup(target)
		if res.Success {
			n.rt.setFinger(i, res.ResponsibleNode)
		} else {
			n.rt.clearFinger(i)
		}
	}

	newList := make([]domain.ID, 0, n.succListSize)
	cur := succ
	visited := map[domain.ID]bool{}
	for len(newList) < n.succListSize {
		newList = append(newList, cur)
		visited[cur] = true
		peer, ok := n.sim.GetNode(cur)
		if !ok {
			break
		}
		node, ok := peer.(*Node)
		if !ok {
			break
		}
		next, nok := node.rt.successor()
		if !nok || visited[next] {
			break
		}
		cur = next
	}
	n.rt.setSuccessorList(newList)
}

// RoutingTableSize returns the number of distinct live finger entries,
// excluding self (§4.E).
func (n *Node) RoutingTableSize() int {
	return n.rt.distinctFingerCount()
}

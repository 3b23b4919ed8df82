package ring

import (
	"testing"

	"overlaylab/internal/domain"
	"overlaylab/internal/network"
	"overlaylab/internal/oracle"
)

func buildRing(t *testing.T, n, bits, seed int) (*network.Simulator, domain.Space, []*Node) {
	t.Helper()
	space, err := domain.NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	sim := network.New(0)
	ids := domain.GenerateNodeIDs(n, bits, seed)

	nodes := make([]*Node, n)
	first := New(ids[0], space, sim, 3)
	first.Join(nil)
	nodes[0] = first

	for i := 1; i < n; i++ {
		node := New(ids[i], space, sim, 3)
		node.Join(&ids[0])
		nodes[i] = node
	}
	for round := 0; round < 30; round++ {
		for _, node := range nodes {
			node.Stabilize()
		}
	}
	return sim, space, nodes
}

func TestRingLookupTrivial(t *testing.T) {
	const bits = 16
	sim, _, nodes := buildRing(t, 5, bits, 42)
	keys := domain.GenerateKeys(10, bits, 123)
	live := sim.LiveIDs()

	for _, key := range keys {
		res := nodes[0].Lookup(key)
		if !res.Success {
			t.Fatalf("lookup(%v) did not succeed", key)
		}
		want := oracle.Ring(key, sortedIDs(live))
		if res.ResponsibleNode != want {
			t.Errorf("lookup(%v) = %v, want %v", key, res.ResponsibleNode, want)
		}
		if res.HopCount > 4 {
			t.Errorf("lookup(%v) took %d hops, want <= 4", key, res.HopCount)
		}
	}
}

func TestRingChurn(t *testing.T) {
	const bits = 16
	sim, _, nodes := buildRing(t, 20, bits, 42)

	// Leave nodes at indices 3, 7, 11 in sorted id order.
	leaveIdx := map[int]bool{3: true, 7: true, 11: true}
	var survivors []*Node
	for i, node := range nodes {
		if leaveIdx[i] {
			node.Leave()
		} else {
			survivors = append(survivors, node)
		}
	}

	for round := 0; round < 30; round++ {
		for _, node := range survivors {
			node.Stabilize()
		}
	}

	keys := domain.GenerateKeys(200, bits, 123)
	live := sortedIDs(sim.LiveIDs())
	hit := 0
	for _, key := range keys {
		res := survivors[0].Lookup(key)
		if res.Success && res.ResponsibleNode == oracle.Ring(key, live) {
			hit++
		}
	}
	if ratio := float64(hit) / float64(len(keys)); ratio < 0.85 {
		t.Errorf("post-churn accuracy = %.2f, want >= 0.85", ratio)
	}
}

func sortedIDs(ids []domain.ID) []domain.ID {
	out := make([]domain.ID, len(ids))
	copy(out, ids)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

package xorkad

import (
	"math"
	"sort"
	"testing"

	"overlaylab/internal/domain"
	"overlaylab/internal/network"
	"overlaylab/internal/oracle"
)

func buildXOR(t *testing.T, n, bits, seed, k, alpha int) (*network.Simulator, domain.Space, []*Node) {
	t.Helper()
	return buildXORWithDelay(t, n, bits, seed, k, alpha, 0)
}

func buildXORWithDelay(t *testing.T, n, bits, seed, k, alpha int, perHopDelay float64) (*network.Simulator, domain.Space, []*Node) {
	t.Helper()
	space, err := domain.NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	sim := network.New(perHopDelay)
	ids := domain.GenerateNodeIDs(n, bits, seed)

	nodes := make([]*Node, n)
	first := New(ids[0], space, sim, k, alpha)
	first.Join(nil)
	nodes[0] = first
	for i := 1; i < n; i++ {
		node := New(ids[i], space, sim, k, alpha)
		node.Join(&ids[0])
		nodes[i] = node
	}
	for round := 0; round < 10; round++ {
		for _, node := range nodes {
			node.Stabilize()
		}
	}
	return sim, space, nodes
}

func TestXORLookupCorrectness(t *testing.T) {
	const bits = 16
	sim, space, nodes := buildXOR(t, 20, bits, 42, 8, 3)

	live := sim.LiveIDs()
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })

	keys := domain.GenerateKeys(100, bits, 123)
	hit := 0
	for _, key := range keys {
		res := nodes[0].Lookup(key)
		if !res.Success {
			t.Fatalf("lookup(%v) did not succeed", key)
		}
		if res.ResponsibleNode == oracle.XOR(space, key, live) {
			hit++
		}
	}
	if ratio := float64(hit) / float64(len(keys)); ratio < 0.95 {
		t.Errorf("accuracy = %.2f, want >= 0.95", ratio)
	}
}

// TestXORVirtualTimeScaling is scenario S5 (spec.md §8): with
// per_hop_delay=1.0 and N=100, the mean virtual-time cost of 200 lookups
// must not exceed 2.5*log2(N).
func TestXORVirtualTimeScaling(t *testing.T) {
	const bits = 16
	const n = 100
	sim, _, nodes := buildXORWithDelay(t, n, bits, 42, 8, 3, 1.0)

	keys := domain.GenerateKeys(200, bits, 123)
	before := sim.VirtualTime()
	for i, key := range keys {
		initiator := nodes[i%len(nodes)]
		res := initiator.Lookup(key)
		if !res.Success {
			t.Fatalf("lookup(%v) did not succeed", key)
		}
	}
	after := sim.VirtualTime()

	meanLatency := (after - before) / float64(len(keys))
	bound := 2.5 * math.Log2(float64(n))
	if meanLatency > bound {
		t.Errorf("mean virtual-time latency = %.3f, want <= %.3f (2.5*log2(%d))", meanLatency, bound, n)
	}
}

// TestXORClosestFiveNodes is scenario S2 (spec.md §8): five widely spaced
// ids, alpha=3, k=8; looking up 0x3F00 from 0x1000 must resolve to
// 0x2000 since 0x2000 XOR 0x3F00 = 0x1F00 is the minimal distance.
func TestXORClosestFiveNodes(t *testing.T) {
	const bits = 16
	space, err := domain.NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	sim := network.New(0)
	raw := []domain.ID{0x1000, 0x2000, 0x4000, 0x8000, 0xC000}

	nodes := make([]*Node, len(raw))
	nodes[0] = New(raw[0], space, sim, 8, 3)
	nodes[0].Join(nil)
	for i := 1; i < len(raw); i++ {
		nodes[i] = New(raw[i], space, sim, 8, 3)
		nodes[i].Join(&raw[0])
	}

	res := nodes[0].Lookup(domain.ID(0x3F00))
	if !res.Success {
		t.Fatalf("lookup did not succeed")
	}
	if want := domain.ID(0x2000); res.ResponsibleNode != want {
		t.Errorf("lookup(0x3F00) = %v, want %v", res.ResponsibleNode, want)
	}
}

func TestXORBucketCapacity(t *testing.T) {
	sp, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	bt := newBucketTable(domain.ID(0), sp, 2, nil)
	// 4..7 all have their highest XOR-distance bit at position 2, so they
	// compete for the same bucket.
	for _, id := range []domain.ID{4, 5, 6, 7} {
		bt.update(id)
	}
	if got := bt.size(); got != 2 {
		t.Errorf("bucket size = %d, want 2 (capacity enforced)", got)
	}
}

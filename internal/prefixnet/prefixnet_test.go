package prefixnet

import (
	"sort"
	"testing"

	"overlaylab/internal/domain"
	"overlaylab/internal/network"
	"overlaylab/internal/oracle"
)

func buildPrefix(t *testing.T, n, bits, seed, bitsPerDigit, leafSize int) (*network.Simulator, domain.Space, []*Node) {
	t.Helper()
	space, err := domain.NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	sim := network.New(0)
	ids := domain.GenerateNodeIDs(n, bits, seed)

	nodes := make([]*Node, n)
	first := New(ids[0], space, sim, bitsPerDigit, leafSize)
	first.Join(nil)
	nodes[0] = first
	for i := 1; i < n; i++ {
		node := New(ids[i], space, sim, bitsPerDigit, leafSize)
		node.Join(&ids[0])
		nodes[i] = node
	}
	for round := 0; round < 15; round++ {
		for _, node := range nodes {
			node.Stabilize()
		}
	}
	return sim, space, nodes
}

func TestPrefixLookupCorrectness(t *testing.T) {
	const bits = 16
	sim, space, nodes := buildPrefix(t, 20, bits, 42, 4, 8)

	live := sim.LiveIDs()
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })

	keys := domain.GenerateKeys(100, bits, 123)
	hit := 0
	for _, key := range keys {
		res := nodes[0].Lookup(key)
		if !res.Success {
			t.Fatalf("lookup(%v) did not succeed", key)
		}
		if res.ResponsibleNode == oracle.Prefix(space, key, live) {
			hit++
		}
	}
	if ratio := float64(hit) / float64(len(keys)); ratio < 0.90 {
		t.Errorf("accuracy = %.2f, want >= 0.90", ratio)
	}
}

// TestPrefixClosestRing is scenario S3 (spec.md §8): three ids, b=4,
// leaf_size=8; looking up 0x0080 must resolve to 0x0100 since its
// circular distance (0x80) beats 0x0200's (0x180) and 0xFF00's (0x180);
// those two tie with each other, and the tie-break by lower id picks
// 0x0200 between them.
func TestPrefixClosestRing(t *testing.T) {
	const bits = 16
	space, err := domain.NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	sim := network.New(0)
	raw := []domain.ID{0x0100, 0x0200, 0xFF00}

	nodes := make([]*Node, len(raw))
	nodes[0] = New(raw[0], space, sim, 4, 8)
	nodes[0].Join(nil)
	for i := 1; i < len(raw); i++ {
		nodes[i] = New(raw[i], space, sim, 4, 8)
		nodes[i].Join(&raw[0])
	}

	res := nodes[0].Lookup(domain.ID(0x0080))
	if !res.Success {
		t.Fatalf("lookup did not succeed")
	}
	if want := domain.ID(0x0100); res.ResponsibleNode != want {
		t.Errorf("lookup(0x0080) = %v, want %v", res.ResponsibleNode, want)
	}
}

func TestPrefixDigitAndSharedPrefix(t *testing.T) {
	sp, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	dt := newDigitTable(domain.ID(0), sp, 4, 8, nil)

	if got := dt.digit(domain.ID(0xAB), 0); got != 0xA {
		t.Errorf("digit(0xAB,0) = %x, want a", got)
	}
	if got := dt.digit(domain.ID(0xAB), 1); got != 0xB {
		t.Errorf("digit(0xAB,1) = %x, want b", got)
	}
	if got := dt.sharedPrefixLength(domain.ID(0xAB), domain.ID(0xAC)); got != 1 {
		t.Errorf("sharedPrefixLength(0xAB,0xAC) = %d, want 1", got)
	}
	if got := dt.sharedPrefixLength(domain.ID(0xAB), domain.ID(0xAB)); got != dt.numDigits {
		t.Errorf("sharedPrefixLength(x,x) = %d, want %d", got, dt.numDigits)
	}
}

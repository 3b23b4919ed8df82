package domain

import "testing"

func TestHashKeyDeterministic(t *testing.T) {
	a := HashKey("node-42-0", 16)
	b := HashKey("node-42-0", 16)
	if a != b {
		t.Fatalf("HashKey is not referentially transparent: %v != %v", a, b)
	}
	if uint64(a) >= uint64(1)<<16 {
		t.Fatalf("HashKey(%q, 16) = %d out of range", "node-42-0", a)
	}
}

func TestGenerateNodeIDsDeterministicAndSorted(t *testing.T) {
	a := GenerateNodeIDs(8, 16, 42)
	b := GenerateNodeIDs(8, 16, 42)
	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("expected 8 ids, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("generators diverged at index %d: %v != %v", i, a[i], b[i])
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i-1] >= a[i] {
			t.Fatalf("ids not strictly ascending at index %d: %v >= %v", i, a[i-1], a[i])
		}
	}
}

func TestGenerateKeysDistinctFromNodeIDs(t *testing.T) {
	nodes := GenerateNodeIDs(5, 16, 42)
	keys := GenerateKeys(5, 16, 123)
	same := true
	for i := range nodes {
		if nodes[i] != keys[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("node and key generators produced identical sequences; prefixes are not being mixed in")
	}
}

func TestGenerateNodeIDsCount(t *testing.T) {
	for _, count := range []int{1, 8, 20, 100} {
		ids := GenerateNodeIDs(count, 16, 42)
		if len(ids) != count {
			t.Errorf("GenerateNodeIDs(%d,...) returned %d ids", count, len(ids))
		}
	}
}

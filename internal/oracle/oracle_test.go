package oracle

import (
	"testing"

	"overlaylab/internal/domain"
)

func ids(xs ...uint64) []domain.ID {
	out := make([]domain.ID, len(xs))
	for i, x := range xs {
		out[i] = domain.ID(x)
	}
	return out
}

func TestRing(t *testing.T) {
	live := ids(10, 50, 200)
	cases := []struct {
		key  domain.ID
		want domain.ID
	}{
		{5, 10},
		{10, 10},
		{11, 50},
		{200, 200},
		{201, 10}, // wraps
	}
	for _, c := range cases {
		if got := Ring(c.key, live); got != c.want {
			t.Errorf("Ring(%v, %v) = %v, want %v", c.key, live, got, c.want)
		}
	}
}

func TestXOR(t *testing.T) {
	sp, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	live := ids(0b00001111, 0b00001110, 0b11110000)
	key := domain.ID(0b00001101)
	// XOR(0b1111,0b1101)=0b0010=2 ; XOR(0b1110,0b1101)=0b0011=3 ; far one is large.
	want := domain.ID(0b00001111)
	if got := XOR(sp, key, live); got != want {
		t.Errorf("XOR = %v, want %v", got, want)
	}
}

func TestPrefixTieBreak(t *testing.T) {
	sp, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	// Two ids equidistant from key; lower id must win.
	live := ids(10, 20)
	key := domain.ID(15)
	if got := Prefix(sp, key, live); got != domain.ID(10) {
		t.Errorf("Prefix tie-break = %v, want 10", got)
	}
}

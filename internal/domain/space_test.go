package domain

import "testing"

func TestNewSpace(t *testing.T) {
	tests := []struct {
		name    string
		bits    int
		wantErr bool
	}{
		{"default 16 bits", 16, false},
		{"minimum 1 bit", 1, false},
		{"maximum 63 bits", 63, false},
		{"zero bits", 0, true},
		{"negative bits", -4, true},
		{"too wide", 64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp, err := NewSpace(tt.bits)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSpace(%d) error = %v, wantErr %v", tt.bits, err, tt.wantErr)
			}
			if !tt.wantErr && sp.Size() != uint64(1)<<uint(tt.bits) {
				t.Errorf("Size() = %d, want %d", sp.Size(), uint64(1)<<uint(tt.bits))
			}
		})
	}
}

func TestBetween(t *testing.T) {
	sp, _ := NewSpace(8)
	tests := []struct {
		name    string
		x, a, b ID
		want    bool
	}{
		{"linear, inside", 5, 1, 10, true},
		{"linear, equals upper bound", 10, 1, 10, true},
		{"linear, equals lower bound", 1, 1, 10, false},
		{"linear, outside", 20, 1, 10, false},
		{"wrap, inside high side", 250, 200, 10, true},
		{"wrap, inside low side", 5, 200, 10, true},
		{"wrap, outside", 100, 200, 10, false},
		{"whole ring when a==b", 0, 42, 42, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sp.Between(tt.x, tt.a, tt.b); got != tt.want {
				t.Errorf("Between(%d,%d,%d) = %v, want %v", tt.x, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestBetweenOpen(t *testing.T) {
	sp, _ := NewSpace(8)
	tests := []struct {
		name    string
		x, a, b ID
		want    bool
	}{
		{"linear, inside", 5, 1, 10, true},
		{"linear, equals lower bound", 1, 1, 10, false},
		{"wrap, inside", 250, 200, 10, true},
		{"a==b excludes only a", 1, 42, 42, true},
		{"a==b excludes a itself", 42, 42, 42, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sp.BetweenOpen(tt.x, tt.a, tt.b); got != tt.want {
				t.Errorf("BetweenOpen(%d,%d,%d) = %v, want %v", tt.x, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCircularDistance(t *testing.T) {
	sp, _ := NewSpace(4) // space size 16
	tests := []struct {
		a, b ID
		want uint64
	}{
		{0, 0, 0},
		{0, 8, 8},
		{1, 15, 2},
		{2, 14, 4},
	}
	for _, tt := range tests {
		if got := sp.CircularDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("CircularDistance(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAddPow2(t *testing.T) {
	sp, _ := NewSpace(4) // mod 16
	if got := sp.AddPow2(15, 0); got != 0 {
		t.Errorf("AddPow2(15,0) = %d, want 0 (wraps)", got)
	}
	if got := sp.AddPow2(0, 3); got != 8 {
		t.Errorf("AddPow2(0,3) = %d, want 8", got)
	}
}

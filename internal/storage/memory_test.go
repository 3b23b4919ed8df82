package storage

import (
	"testing"

	"overlaylab/internal/domain"
)

func TestMemoryStorePutGetDelete(t *testing.T) {
	s := NewMemoryStore(nil)

	if _, ok := s.Get(domain.ID(5)); ok {
		t.Fatalf("expected miss on empty store")
	}

	s.Put(domain.ID(5), "v5")
	v, ok := s.Get(domain.ID(5))
	if !ok || v != "v5" {
		t.Fatalf("Get(5) = %q, %v, want v5, true", v, ok)
	}

	s.Put(domain.ID(5), "v5-updated")
	v, ok = s.Get(domain.ID(5))
	if !ok || v != "v5-updated" {
		t.Fatalf("Get(5) after update = %q, %v, want v5-updated, true", v, ok)
	}

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	s.Delete(domain.ID(5))
	if _, ok := s.Get(domain.ID(5)); ok {
		t.Fatalf("expected miss after delete")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() after delete = %d, want 0", s.Len())
	}
}

func TestMemoryStoreBetween(t *testing.T) {
	sp, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	s := NewMemoryStore(nil)
	for _, k := range []domain.ID{10, 20, 200, 250} {
		s.Put(k, "v")
	}

	got := s.Between(sp, domain.ID(5), domain.ID(25))
	if len(got) != 2 {
		t.Fatalf("Between(5,25) returned %d entries, want 2: %+v", len(got), got)
	}

	// wrap-around interval
	got = s.Between(sp, domain.ID(240), domain.ID(15))
	if len(got) != 2 {
		t.Fatalf("Between(240,15) returned %d entries, want 2: %+v", len(got), got)
	}
}

func TestMemoryStoreAll(t *testing.T) {
	s := NewMemoryStore(nil)
	keys := []domain.ID{1, 2, 3}
	for _, k := range keys {
		s.Put(k, "v")
	}
	all := s.All()
	if len(all) != len(keys) {
		t.Fatalf("All() returned %d entries, want %d", len(all), len(keys))
	}
}

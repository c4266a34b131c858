package cache

import (
	"testing"
	"time"
)

func TestLookupFreshAndStale(t *testing.T) {
	s := New()
	now := time.Now()
	s.now = func() time.Time { return now }

	s.Put("games_123", []string{"a", "b"})

	if _, ok := s.Lookup("games_123", 5*time.Minute); !ok {
		t.Fatal("expected fresh hit immediately after Put")
	}

	// advance past the TTL
	now = now.Add(5 * time.Minute)
	if _, ok := s.Lookup("games_123", 5*time.Minute); ok {
		t.Fatal("expected stale entry to miss")
	}

	// the stale entry is still present for overwrite
	if _, ok := s.Get("games_123"); !ok {
		t.Fatal("stale entry should remain until overwritten or swept")
	}

	// a new Put refreshes it
	s.Put("games_123", []string{"c"})
	v, ok := s.Lookup("games_123", 5*time.Minute)
	if !ok {
		t.Fatal("expected fresh hit after overwrite")
	}
	if got := v.([]string); len(got) != 1 || got[0] != "c" {
		t.Fatalf("got %v, want [c]", got)
	}
}

func TestLookupAbsent(t *testing.T) {
	s := New()
	if _, ok := s.Lookup("nope", time.Minute); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestSetKeyOrderIndependent(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
	}{
		{"permutation", []string{"3", "1", "2"}, []string{"1", "2", "3"}},
		{"duplicates", []string{"1", "1", "2"}, []string{"2", "1"}},
		{"single", []string{"730"}, []string{"730", "730"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := SetKey("prices", tt.a)
			kb := SetKey("prices", tt.b)
			if ka != kb {
				t.Errorf("SetKey(%v) = %q, SetKey(%v) = %q; want equal", tt.a, ka, tt.b, kb)
			}
		})
	}
}

func TestKey(t *testing.T) {
	if got := Key("ach", "76561197960287930", "440"); got != "ach_76561197960287930_440" {
		t.Errorf("Key = %q", got)
	}
}

func TestSweep(t *testing.T) {
	s := New()
	now := time.Now()
	s.now = func() time.Time { return now }

	s.Put("old", 1)
	now = now.Add(2 * time.Hour)
	s.Put("new", 2)

	s.sweep(time.Hour)

	if _, ok := s.Get("old"); ok {
		t.Error("expected old entry to be swept")
	}
	if _, ok := s.Get("new"); !ok {
		t.Error("expected new entry to survive sweep")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

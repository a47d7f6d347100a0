package rewrite_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/yaklabco/tsweave/pkg/rewrite"
)

func TestSharedContext(t *testing.T) {
	t.Parallel()

	s := rewrite.NewSharedContext()
	s.Set("b", 1)
	s.Set("a", "x")

	if v, ok := rewrite.Value[string](s, "a"); !ok || v != "x" {
		t.Errorf("Value(a) = %q, %v", v, ok)
	}
	if _, ok := rewrite.Value[string](s, "b"); ok {
		t.Error("Value[string](b) succeeded for an int")
	}
	if got := s.Keys(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Keys() = %v", got)
	}

	s.Delete("a")
	if s.Len() != 1 {
		t.Errorf("Len() = %d after Delete", s.Len())
	}

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Reset", s.Len())
	}
}

func TestSharedContext_ConcurrentUpdate(t *testing.T) {
	t.Parallel()

	s := rewrite.NewSharedContext()
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("n", func(old any, _ bool) any {
				n, _ := old.(int)
				return n + 1
			})
		}()
	}
	wg.Wait()

	if n, _ := rewrite.Value[int](s, "n"); n != 64 {
		t.Errorf("n = %d, want 64", n)
	}
}

func TestSharedContext_UID(t *testing.T) {
	t.Parallel()

	s := rewrite.NewSharedContext()
	seen := make(map[string]bool)
	for range 100 {
		id := s.UID("helper")
		if !strings.HasPrefix(id, "helper_") {
			t.Fatalf("UID() = %q, want helper_ prefix", id)
		}
		if seen[id] {
			t.Fatalf("UID() repeated %q", id)
		}
		seen[id] = true
	}

	before := s.UID("helper")
	s.Reset()
	if after := s.UID("helper"); after == before {
		t.Error("UID() repeated across Reset")
	}
}

func TestEscape(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"it's", `it\'s`},
		{`a\b`, `a\\b`},
		{"line\nbreak", `line\nbreak`},
	}
	for _, tt := range tests {
		if got := rewrite.Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := rewrite.Quote("it's"); got != `'it\'s'` {
		t.Errorf("Quote() = %q", got)
	}
}

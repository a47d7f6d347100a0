package rewrite

import (
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/yaklabco/tsweave/pkg/semantic"
)

// SharedContext is the session-scoped store plugins use to coordinate.
// It is safe for concurrent use by units transformed in parallel.
type SharedContext struct {
	mu     sync.Mutex
	values map[string]any
	uid    uint64
}

// NewSharedContext creates an empty context.
func NewSharedContext() *SharedContext {
	return &SharedContext{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *SharedContext) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *SharedContext) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key.
func (s *SharedContext) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Update replaces the value under key with fn's result in one step. old is
// nil and ok false when key is unset.
func (s *SharedContext) Update(key string, fn func(old any, ok bool) any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.values[key]
	next := fn(old, ok)
	s.values[key] = next
	return next
}

// Keys returns the stored keys in sorted order.
func (s *SharedContext) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Len returns the number of stored keys.
func (s *SharedContext) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Reset drops every value. Hosts call it when the session is invalidated.
// Identifiers from UID stay unique across resets.
func (s *SharedContext) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any)
}

// UID returns an identifier starting with prefix that no earlier call on
// this context returned.
func (s *SharedContext) UID(prefix string) string {
	s.mu.Lock()
	n := s.uid
	s.uid++
	s.mu.Unlock()

	hash := strconv.FormatUint(semantic.Fingerprint(prefix)&0xffffffff, 36)
	return prefix + "_" + hash + strconv.FormatUint(n, 36)
}

// Value returns the value under key asserted to T.
func Value[T any](s *SharedContext, key string) (T, bool) {
	v, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

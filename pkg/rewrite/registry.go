package rewrite

import (
	"cmp"
	"slices"
	"sync"
)

// Factory builds a configured plugin.
type Factory func(opts Options) (Plugin, error)

// Descriptor is a registry entry.
type Descriptor struct {
	// ID is the unique plugin identifier used in configuration.
	ID string

	// Description is a one-line summary for listings and templates.
	Description string

	// New builds the plugin from its options.
	New Factory
}

// Registry holds the plugins a host can resolve by ID.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]Descriptor
	aliases map[string]string // alias -> canonical ID
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]Descriptor),
		aliases: make(map[string]string),
	}
}

// Register adds a plugin to the registry.
// If a plugin with the same ID already exists, it is replaced.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.ID] = d
}

// RegisterAlias maps an alias to a canonical plugin ID.
func (r *Registry) RegisterAlias(alias, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = id
}

// Get retrieves a descriptor by ID or alias.
func (r *Registry) Get(key string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.byID[key]; ok {
		return d, true
	}
	if id, ok := r.aliases[key]; ok {
		d, ok := r.byID[id]
		return d, ok
	}
	return Descriptor{}, false
}

// Descriptors returns all registered plugins sorted by ID.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		result = append(result, d)
	}
	slices.SortFunc(result, func(a, b Descriptor) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// AliasesOf returns the aliases registered for id, sorted.
func (r *Registry) AliasesOf(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []string
	for alias, target := range r.aliases {
		if target == id {
			result = append(result, alias)
		}
	}
	slices.Sort(result)
	return result
}

// IDs returns all registered plugin IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.byID))
	for id := range r.byID {
		result = append(result, id)
	}
	slices.Sort(result)
	return result
}

// DefaultRegistry is the global registry for built-in plugins.
// Plugins register themselves during init().
//
//nolint:gochecknoglobals // Global registry is intentional for plugin registration
var DefaultRegistry = NewRegistry()

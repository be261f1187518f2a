package rules

import (
	"fmt"
	"sort"
)

// Registry maps rule set identifiers to rule sets. It is built once at
// startup and only read afterwards, so it is safe to share between requests.
type Registry struct {
	sets map[string]*RuleSet
}

// NewRegistry creates a registry from the given rule sets.
// Returns an error if two rule sets share an ID.
func NewRegistry(sets ...*RuleSet) (*Registry, error) {
	r := &Registry{sets: make(map[string]*RuleSet, len(sets))}
	for _, rs := range sets {
		if _, exists := r.sets[rs.ID()]; exists {
			return nil, fmt.Errorf("rule set already registered: %s", rs.ID())
		}
		r.sets[rs.ID()] = rs
	}
	return r, nil
}

// Lookup returns the rule set for id. Returns false if not found.
func (r *Registry) Lookup(id string) (*RuleSet, bool) {
	rs, ok := r.sets[id]
	return rs, ok
}

// All returns every rule set sorted by ID.
func (r *Registry) All() []*RuleSet {
	out := make([]*RuleSet, 0, len(r.sets))
	for _, rs := range r.sets {
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Len returns the number of registered rule sets.
func (r *Registry) Len() int {
	return len(r.sets)
}

// withOverrides returns a new registry where sets replace entries with the same ID.
func (r *Registry) withOverrides(sets []*RuleSet) *Registry {
	merged := make(map[string]*RuleSet, len(r.sets)+len(sets))
	for id, rs := range r.sets {
		merged[id] = rs
	}
	for _, rs := range sets {
		merged[rs.ID()] = rs
	}
	return &Registry{sets: merged}
}

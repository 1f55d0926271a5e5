package tools

import (
	"fmt"
	"sort"
	"sync"
)

func cloneSet(s *ToolSet) ToolSet {
	c := *s
	if s.Tools != nil {
		c.Tools = append([]Tool(nil), s.Tools...)
	}
	if s.Categories != nil {
		c.Categories = append([]string(nil), s.Categories...)
	}
	return c
}

// Registry holds the catalog of ToolSets a router selects from.
type Registry struct {
	sets map[string]*ToolSet
	mu   sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*ToolSet)}
}

// Register adds or replaces a ToolSet.
func (r *Registry) Register(set ToolSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set.Name == "" {
		return fmt.Errorf("tool set name cannot be empty")
	}
	if set.ToolCount == 0 && len(set.Tools) > 0 {
		set.ToolCount = len(set.Tools)
	}
	r.sets[set.Name] = &set
	return nil
}

// Get retrieves a ToolSet by name. The result is a deep copy.
func (r *Registry) Get(name string) (*ToolSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sets[name]
	if !ok {
		return nil, false
	}
	c := cloneSet(s)
	return &c, true
}

// GetEnabled returns enabled ToolSets sorted by priority descending.
func (r *Registry) GetEnabled() []ToolSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolSet, 0)
	for _, s := range r.sets {
		if s.Enabled {
			out = append(out, cloneSet(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// TotalToolCount sums ToolCount across enabled sets.
func (r *Registry) TotalToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, s := range r.sets {
		if s.Enabled {
			total += s.ToolCount
		}
	}
	return total
}

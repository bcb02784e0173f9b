package dispatch

import (
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Registry maps identifiers to sinks. Identifiers are slash separated
// (e.g. "sidebar/answer") so targets can be selected with glob patterns.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Add registers sink under id, replacing any previous sink.
func (r *Registry) Add(id string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[id] = sink
}

// Remove unregisters id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, id)
}

// Get returns the sink registered under exactly id.
func (r *Registry) Get(id string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sinks[id]
	return s, ok
}

// IDs returns the sorted registered identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sinks))
	for id := range r.sinks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Match returns the sinks whose identifiers match pattern, ordered by
// identifier. A pattern without glob characters matches only itself.
// Malformed patterns match nothing.
func (r *Registry) Match(pattern string) []Sink {
	if s, ok := r.Get(pattern); ok {
		return []Sink{s}
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil
	}

	var out []Sink
	for _, id := range r.IDs() {
		if ok, _ := doublestar.Match(pattern, id); ok {
			if s, found := r.Get(id); found {
				out = append(out, s)
			}
		}
	}
	return out
}

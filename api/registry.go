package api

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"
)

// Settings carries the connection details a caller resolved from options,
// config files or flags. Factories apply the non-zero fields on top of their
// own defaults and environment fallbacks.
type Settings struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Factory builds a transport from caller settings.
type Factory func(Settings) (Transport, error)

// Registry maps transport names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds factory under name, replacing any earlier one.
func (r *Registry) Register(name string, factory Factory) {
	if factory == nil {
		panic("api: Register factory is nil for " + name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get builds the transport registered under name with settings applied.
func (r *Registry) Get(name string, settings Settings) (Transport, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, Validation(fmt.Sprintf("unknown transport: %q (available: %v)", name, r.Available()))
	}
	return factory(settings)
}

// Available returns the sorted registered names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// IsRegistered reports whether name has a factory.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

var defaultRegistry = NewRegistry()

// Register adds a factory to the process-wide registry. Transport packages
// call it from init.
func Register(name string, factory Factory) {
	defaultRegistry.Register(name, factory)
}

// Get builds a transport from the process-wide registry.
func Get(name string, settings Settings) (Transport, error) {
	return defaultRegistry.Get(name, settings)
}

// Available lists the process-wide registry.
func Available() []string {
	return defaultRegistry.Available()
}

// IsRegistered checks the process-wide registry.
func IsRegistered(name string) bool {
	return defaultRegistry.IsRegistered(name)
}

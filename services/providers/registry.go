package providers

import (
	"errors"
	"sync"
)

// ErrProviderNotFound is returned when no factory is registered for a name
var ErrProviderNotFound = errors.New("provider not found")

// Factory constructs a provider client. Construction may be expensive
// (connection setup), so the registry defers it until first use.
type Factory func() (Provider, error)

// Registry is a keyed registry of provider clients with lazy construction
// and reuse. Clients are built on first request for a name and shared
// afterwards; there are no package-level singletons, so the registry can be
// replaced wholesale in tests.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	clients   map[string]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		clients:   make(map[string]Provider),
	}
}

// Register registers a factory under a provider name. Registering the same
// name again replaces the factory and drops any constructed client.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	delete(r.clients, name)
}

// Get returns the client for a provider name, constructing it on first use
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[name]; ok {
		return client, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	client, err := factory()
	if err != nil {
		return nil, err
	}

	r.clients[name] = client
	return client, nil
}

// Names returns the registered provider names
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

package provider

import (
	"fmt"
	"sync"

	"github.com/agentrig/agentrig/internal/resource"
)

// Registry maps resource types to their adapters. Dispatch is by enumerated
// type with an explicit unknown-type error, never by string inspection at
// call sites.
type Registry struct {
	mu      sync.RWMutex
	clients map[resource.Type]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[resource.Type]Client)}
}

// Register installs the adapter for a resource type, replacing any previous
// registration.
func (r *Registry) Register(t resource.Type, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[t] = c
}

// Get returns the adapter for a resource type.
func (r *Registry) Get(t resource.Type) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[t]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for resource type %q", t)
	}
	return c, nil
}

// Package registry maps routing decisions to resolvers.
package registry

import (
	"sync"

	"key-resolver-go/pkg/interfaces"
	"key-resolver-go/pkg/types"
)

// ResolverRegistry manages the resolver for each route.
type ResolverRegistry struct {
	mu        sync.RWMutex
	resolvers map[types.Route]interfaces.Resolver
	order     []interfaces.Resolver
	fallback  interfaces.Resolver
}

// NewResolverRegistry creates a new resolver registry.
func NewResolverRegistry() *ResolverRegistry {
	return &ResolverRegistry{
		resolvers: make(map[types.Route]interfaces.Resolver),
	}
}

// Register adds a resolver under its route, replacing any previous one.
func (r *ResolverRegistry) Register(resolver interfaces.Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resolvers[resolver.Route()]; !exists {
		r.order = append(r.order, resolver)
	} else {
		for i, existing := range r.order {
			if existing.Route() == resolver.Route() {
				r.order[i] = resolver
			}
		}
	}
	r.resolvers[resolver.Route()] = resolver
}

// SetFallback sets the resolver used for RouteFallback and unregistered routes.
func (r *ResolverRegistry) SetFallback(resolver interfaces.Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = resolver
}

// Get returns the resolver for route.
func (r *ResolverRegistry) Get(route types.Route) interfaces.Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if route != types.RouteFallback {
		if res, ok := r.resolvers[route]; ok {
			return res
		}
	}
	return r.fallback
}

// All returns all registered resolvers in registration order.
func (r *ResolverRegistry) All() []interfaces.Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]interfaces.Resolver, len(r.order))
	copy(result, r.order)
	return result
}

package ratelimiter

import (
	"fmt"
	"sync"
)

// Registry holds one Limiter per model name.
type Registry interface {
	Get(model string) (Limiter, error)
	Set(model string, limiter Limiter)
	Lookup(model string) (Limiter, bool)
}

type mapRegistry struct {
	registry map[string]Limiter
	mu       sync.RWMutex
}

// NewRegistry creates a new in-memory rate limiter registry.
func NewRegistry() Registry {
	return &mapRegistry{
		registry: make(map[string]Limiter),
	}
}

func (r *mapRegistry) Get(model string) (Limiter, error) {
	limiter, ok := r.Lookup(model)
	if !ok {
		return nil, fmt.Errorf("rate limiter not found for model: %s", model)
	}
	return limiter, nil
}

func (r *mapRegistry) Lookup(model string) (Limiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limiter, ok := r.registry[model]
	return limiter, ok
}

func (r *mapRegistry) Set(model string, limiter Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter == nil {
		delete(r.registry, model)
		return
	}
	r.registry[model] = limiter
}

package factory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"ocm.software/open-component-model/managerproxy/manager"
)

// Constructor creates a new manager instance.
type Constructor func() manager.Manager

// Registry is a Source of manager implementations linked into the process.
type Registry struct {
	mu           sync.Mutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds an implementation under identifier.
func (r *Registry) Register(identifier string, constructor Constructor) error {
	if identifier == "" {
		return fmt.Errorf("manager identifier must not be empty")
	}
	if constructor == nil {
		return fmt.Errorf("constructor for manager %q must not be nil", identifier)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[identifier]; exists {
		return fmt.Errorf("manager %q is already registered", identifier)
	}
	r.constructors[identifier] = constructor
	return nil
}

// MustRegister is Register but panics on error.
func (r *Registry) MustRegister(identifier string, constructor Constructor) {
	if err := r.Register(identifier, constructor); err != nil {
		panic(err)
	}
}

func (r *Registry) Identifiers(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.constructors)), nil
}

func (r *Registry) Instantiate(_ context.Context, identifier string) (manager.Manager, error) {
	r.mu.Lock()
	constructor, ok := r.constructors[identifier]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", manager.ErrUnknownIdentifier, identifier)
	}
	return constructor(), nil
}

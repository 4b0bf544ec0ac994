// Package transform provides the post-render hook chain. Hooks are
// registered callbacks resolved by name at startup; configuration can
// only reference hooks compiled into the binary, so there is no dynamic
// loading at run time.
package transform

import (
	"context"
	"fmt"

	"github.com/a-delannoy/yaani/internal/ctxlog"
	"github.com/a-delannoy/yaani/internal/render"
)

// Hook receives the fully rendered inventory and may mutate it freely.
// A non-nil error aborts the run.
type Hook func(ctx context.Context, inv *render.Inventory) error

// HookError reports the failure of one named hook.
type HookError struct {
	Name string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("transform hook %q: %v", e.Name, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// Registry maps configured hook names to compiled callbacks.
type Registry struct {
	hooks map[string]Hook
}

// NewRegistry returns an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Hook)}
}

// Register adds a named hook. Registering the same name twice is a
// programmer error and panics, matching handler registration elsewhere.
func (r *Registry) Register(name string, h Hook) {
	if _, exists := r.hooks[name]; exists {
		panic(fmt.Sprintf("transform hook %q already registered", name))
	}
	r.hooks[name] = h
}

// Resolve verifies every configured name maps to a registered hook.
// Called during startup so unknown hooks are rejected before any fetch.
func (r *Registry) Resolve(names []string) error {
	for _, name := range names {
		if _, ok := r.hooks[name]; !ok {
			return fmt.Errorf("transform hook %q is not registered", name)
		}
	}
	return nil
}

// Apply invokes the named hooks in declared order. The first failure
// aborts the chain.
func (r *Registry) Apply(ctx context.Context, names []string, inv *render.Inventory) error {
	logger := ctxlog.FromContext(ctx)
	for _, name := range names {
		h, ok := r.hooks[name]
		if !ok {
			return &HookError{Name: name, Err: fmt.Errorf("not registered")}
		}
		logger.Debug("Applying transform hook.", "hook", name)
		if err := h(ctx, inv); err != nil {
			return &HookError{Name: name, Err: err}
		}
	}
	return nil
}

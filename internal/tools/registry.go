// Package tools parses tool commands out of model output and executes them
// against the sales backend.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mateury/next-gen-consultant/internal/domain"
)

// Unbounded marks a Spec without an upper argument limit.
const Unbounded = -1

// HandlerFunc runs a command with already arity-checked arguments and returns
// the rendered output.
type HandlerFunc func(ctx context.Context, args []string) (string, error)

// Spec describes one command.
type Spec struct {
	Name        domain.CommandName
	MinArgs     int
	MaxArgs     int
	Usage       string
	Description string
	Handler     HandlerFunc
}

// Registry stores command specs keyed by command name.
type Registry struct {
	mu    sync.RWMutex
	specs map[domain.CommandName]Spec
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[domain.CommandName]Spec),
	}
}

// Register adds a command spec.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("command name is required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("handler is required")
	}
	if spec.MaxArgs != Unbounded && spec.MaxArgs < spec.MinArgs {
		return fmt.Errorf("invalid arity for %s: max %d < min %d", spec.Name, spec.MaxArgs, spec.MinArgs)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("command already registered for %s", spec.Name)
	}
	r.specs[spec.Name] = spec
	return nil
}

// MustRegister adds a command spec or panics.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Lookup returns the spec registered for name.
func (r *Registry) Lookup(name domain.CommandName) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Specs returns all registered specs sorted by name.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	specs := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		specs = append(specs, s)
	}
	r.mu.RUnlock()
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Grammar returns a grammar recognizing the registered command names.
func (r *Registry) Grammar() *Grammar {
	specs := r.Specs()
	names := make([]domain.CommandName, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return NewGrammar(names...)
}

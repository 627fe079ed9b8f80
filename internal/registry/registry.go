package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
)

// ErrSealed is returned when a definition is registered after loading ended.
var ErrSealed = errors.New("registry is sealed")

// Registry holds the block definitions of one editor session.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*block.Type
	sealed bool
}

// New creates and initializes an empty Registry.
func New() *Registry {
	return &Registry{types: make(map[string]*block.Type)}
}

// Register adds definitions to the registry. It is idempotent per name: the
// last registration wins. Every entry is validated on its own and an invalid
// one is rejected without affecting the others; the returned slice holds one
// error per rejected entry.
func (r *Registry) Register(ctx context.Context, defs ...*block.Type) []error {
	logger := ctxlog.FromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return []error{ErrSealed}
	}

	var errs []error
	for i, def := range defs {
		if err := def.Validate(); err != nil {
			logger.Warn("Rejected block definition", "index", i, "error", err)
			errs = append(errs, fmt.Errorf("definition %d: %w", i, err))
			continue
		}
		if _, exists := r.types[def.Name]; exists {
			logger.Debug("Replacing block definition", "type", def.Name)
		}
		r.types[def.Name] = def.Clone()
	}
	return errs
}

// Seal ends the loading phase.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Lookup returns a copy of the definition registered under name.
func (r *Registry) Lookup(name string) (*block.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[name]
	if !ok {
		return nil, false
	}
	return def.Clone(), true
}

// Has reports whether a definition is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Types returns copies of every definition, sorted by name.
func (r *Registry) Types() []*block.Type {
	names := r.Names()
	out := make([]*block.Type, 0, len(names))
	for _, name := range names {
		if def, ok := r.Lookup(name); ok {
			out = append(out, def)
		}
	}
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Package registry manages the named pipeline specs available to a run.
// Built-in pipelines self-register from pkg/jobs; spec files loaded with -f
// bypass the registry.
package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/pkg/config"
	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/logger"
)

// Registry manages pipeline spec registration and lookup.
type Registry struct {
	specs  map[string]*config.Spec
	mu     sync.RWMutex
	logger *zap.Logger
}

// Global registry instance
var defaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs:  make(map[string]*config.Spec),
		logger: logger.Get().With(zap.String("component", "pipeline_registry")),
	}
}

// Register validates a spec and adds it under its name. Registering the same
// name twice is an error.
func (r *Registry) Register(spec *config.Spec) error {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "pipeline %q already registered", spec.Name)
	}

	r.specs[spec.Name] = spec
	r.logger.Debug("pipeline registered", zap.String("name", spec.Name))
	return nil
}

// Get returns a copy of the named spec, safe for the caller to mutate.
func (r *Registry) Get(name string) (*config.Spec, error) {
	r.mu.RLock()
	spec, exists := r.specs[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "pipeline %q not registered", name)
	}
	return spec.Clone(), nil
}

// List returns the registered pipeline names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListSpecs returns copies of every registered spec, sorted by name.
func (r *Registry) ListSpecs() []*config.Spec {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]*config.Spec, 0, len(names))
	for _, name := range names {
		specs = append(specs, r.specs[name].Clone())
	}
	return specs
}

// Has reports whether a pipeline is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.specs[name]
	return exists
}

// Clear removes all registered pipelines (mainly for testing).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = make(map[string]*config.Spec)
}

// Global registry functions

// Register adds a spec to the global registry.
func Register(spec *config.Spec) error {
	return defaultRegistry.Register(spec)
}

// MustRegister adds a spec to the global registry and panics on error. It is
// meant for built-in pipelines registering from init.
func MustRegister(spec *config.Spec) {
	if err := defaultRegistry.Register(spec); err != nil {
		panic(err)
	}
}

// Get returns a copy of a spec from the global registry.
func Get(name string) (*config.Spec, error) {
	return defaultRegistry.Get(name)
}

// List returns pipeline names from the global registry.
func List() []string {
	return defaultRegistry.List()
}

// ListSpecs returns spec copies from the global registry.
func ListSpecs() []*config.Spec {
	return defaultRegistry.ListSpecs()
}

// Has checks the global registry for a pipeline.
func Has(name string) bool {
	return defaultRegistry.Has(name)
}

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

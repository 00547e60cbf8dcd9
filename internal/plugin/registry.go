package plugin

import (
	"fmt"
	"sort"
	"sync"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
)

// Factory creates a fresh plugin instance. Every configured use of a plugin
// gets its own instance.
type Factory func() Plugin

// Registry maps entry-point names to plugin factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]map[string]Factory // map[name]map[version]Factory
	latest    map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]map[string]Factory),
		latest:    make(map[string]string),
	}
}

// Register adds a factory under the name and version reported by the plugin
// it creates. The most recently registered version of a name is the one New
// returns.
func (r *Registry) Register(factory Factory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil plugin factory")
	}
	probe := factory()
	if probe == nil {
		return fmt.Errorf("plugin factory returned nil")
	}

	md := probe.Metadata()
	if err := md.Validate(); err != nil {
		return fmt.Errorf("invalid plugin metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.factories[md.Name] == nil {
		r.factories[md.Name] = make(map[string]Factory)
	}
	if _, exists := r.factories[md.Name][md.Version]; exists {
		return fmt.Errorf("plugin %s@%s already registered", md.Name, md.Version)
	}

	r.factories[md.Name][md.Version] = factory
	r.latest[md.Name] = md.Version
	return nil
}

// MustRegister is Register that panics on error, for use from init.
func (r *Registry) MustRegister(factory Factory) {
	if err := r.Register(factory); err != nil {
		panic(err)
	}
}

// New instantiates the latest version of the named plugin.
func (r *Registry) New(name string) (Plugin, error) {
	r.mu.RLock()
	version, ok := r.latest[name]
	r.mu.RUnlock()
	if !ok {
		return nil, notFound(name, r.Names())
	}
	return r.Get(name, version)
}

// Get instantiates a specific plugin version.
func (r *Registry) Get(name, version string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.factories[name]
	if !ok {
		return nil, notFound(name, r.namesLocked())
	}
	factory, ok := versions[version]
	if !ok {
		return nil, derrors.NotFoundError(fmt.Sprintf("plugin %s@%s not found", name, version)).
			WithContext("plugin", name).
			Build()
	}
	return factory(), nil
}

// Has reports whether any version of name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns the metadata of every registered plugin version, sorted by
// name then version.
func (r *Registry) List() []PluginMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []PluginMetadata
	for _, versions := range r.factories {
		for _, factory := range versions {
			out = append(out, factory().Metadata())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// Names returns the registered entry-point names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes one plugin version. When the latest version is removed,
// New falls back to the highest remaining version string.
func (r *Registry) Unregister(name, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.factories[name]
	if !ok {
		return fmt.Errorf("plugin %s not found", name)
	}
	if _, ok := versions[version]; !ok {
		return fmt.Errorf("plugin %s@%s not found", name, version)
	}

	delete(versions, version)
	if len(versions) == 0 {
		delete(r.factories, name)
		delete(r.latest, name)
		return nil
	}
	if r.latest[name] == version {
		remaining := make([]string, 0, len(versions))
		for v := range versions {
			remaining = append(remaining, v)
		}
		sort.Strings(remaining)
		r.latest[name] = remaining[len(remaining)-1]
	}
	return nil
}

func notFound(name string, available []string) error {
	return derrors.NotFoundError(fmt.Sprintf("plugin %q is not installed", name)).
		WithContext("plugin", name).
		WithContext("available", available).
		Build()
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry plugins register
// themselves in at init.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Package plugin is a registry of provider factories (STT, TTS, LLM, VAD).
// Provider packages register themselves from init, and the CLI picks them by
// name from configuration.
package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chriscow/interview-agents-go/pkg/ai/llm"
	"github.com/chriscow/interview-agents-go/pkg/ai/stt"
	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
	"github.com/chriscow/interview-agents-go/pkg/ai/vad"
)

// Provider kinds.
const (
	KindSTT = "stt"
	KindTTS = "tts"
	KindLLM = "llm"
	KindVAD = "vad"
)

// Factory creates a new provider instance from configuration.
// The returned value must implement the interface of the plugin kind.
type Factory func(cfg map[string]any) (any, error)

// Plugin represents a registered plugin with its metadata.
type Plugin struct {
	Kind        string         // "stt", "tts", "llm", "vad"
	Name        string         // e.g. "openai", "fake"
	Factory     Factory        // creates instances
	Description string         // human-readable description
	Version     string         // plugin version
	Config      map[string]any // documented configuration keys and defaults
}

// Registry manages plugin registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]map[string]*Plugin // [kind][name] -> Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]map[string]*Plugin)}
}

var globalRegistry = NewRegistry()

// Default returns the process-wide registry that provider packages register
// into.
func Default() *Registry {
	return globalRegistry
}

// Register adds a plugin to the global registry.
// Panics if a plugin with the same kind and name is already registered.
func Register(kind, name string, factory Factory) {
	globalRegistry.Register(kind, name, factory)
}

// RegisterWithMetadata adds a plugin with additional metadata to the global
// registry.
func RegisterWithMetadata(plugin *Plugin) {
	globalRegistry.RegisterWithMetadata(plugin)
}

// Get retrieves a plugin factory from the global registry.
func Get(kind, name string) (Factory, bool) {
	return globalRegistry.Get(kind, name)
}

// List returns all registered plugins of a specific kind.
// If kind is empty, returns all plugins.
func List(kind string) []*Plugin {
	return globalRegistry.List(kind)
}

// ListKinds returns all registered plugin kinds.
func ListKinds() []string {
	return globalRegistry.ListKinds()
}

// Register adds a plugin to this registry instance.
// Panics if a plugin with the same kind and name is already registered.
func (r *Registry) Register(kind, name string, factory Factory) {
	r.RegisterWithMetadata(&Plugin{
		Kind:    kind,
		Name:    name,
		Factory: factory,
	})
}

// RegisterWithMetadata adds a plugin with metadata to this registry instance.
// Panics on an incomplete plugin or a duplicate kind/name pair.
func (r *Registry) RegisterWithMetadata(plugin *Plugin) {
	if plugin.Kind == "" {
		panic("plugin kind cannot be empty")
	}
	if plugin.Name == "" {
		panic("plugin name cannot be empty")
	}
	if plugin.Factory == nil {
		panic("plugin factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plugins[plugin.Kind] == nil {
		r.plugins[plugin.Kind] = make(map[string]*Plugin)
	}
	if existing, exists := r.plugins[plugin.Kind][plugin.Name]; exists {
		panic(fmt.Sprintf("plugin %s/%s already registered (existing version: %s, new version: %s)",
			plugin.Kind, plugin.Name, existing.Version, plugin.Version))
	}
	r.plugins[plugin.Kind][plugin.Name] = plugin
}

// Get retrieves a plugin factory from this registry instance.
func (r *Registry) Get(kind, name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, exists := r.plugins[kind][name]
	if !exists {
		return nil, false
	}
	return plugin.Factory, true
}

// List returns the plugins of kind, or every plugin when kind is empty,
// sorted by kind then name.
func (r *Registry) List(kind string) []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var plugins []*Plugin
	for k, kindMap := range r.plugins {
		if kind != "" && k != kind {
			continue
		}
		for _, plugin := range kindMap {
			plugins = append(plugins, plugin)
		}
	}

	sort.Slice(plugins, func(i, j int) bool {
		if plugins[i].Kind != plugins[j].Kind {
			return plugins[i].Kind < plugins[j].Kind
		}
		return plugins[i].Name < plugins[j].Name
	})
	return plugins
}

// ListKinds returns all registered plugin kinds in sorted order.
func (r *Registry) ListKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.plugins))
	for kind := range r.plugins {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Clear removes all plugins from this registry instance.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[string]map[string]*Plugin)
}

// create runs the factory of kind/name.
func (r *Registry) create(kind, name string, cfg map[string]any) (any, error) {
	factory, ok := r.Get(kind, name)
	if !ok {
		return nil, fmt.Errorf("no %s plugin named %q (available: %v)", kind, name, r.names(kind))
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	instance, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s plugin %q: %w", kind, name, err)
	}
	return instance, nil
}

func (r *Registry) names(kind string) []string {
	var names []string
	for _, p := range r.List(kind) {
		names = append(names, p.Name)
	}
	return names
}

// NewSTT builds the STT provider registered as name.
func (r *Registry) NewSTT(name string, cfg map[string]any) (stt.STT, error) {
	return build[stt.STT](r, KindSTT, name, cfg)
}

// NewTTS builds the TTS provider registered as name.
func (r *Registry) NewTTS(name string, cfg map[string]any) (tts.TTS, error) {
	return build[tts.TTS](r, KindTTS, name, cfg)
}

// NewLLM builds the LLM provider registered as name.
func (r *Registry) NewLLM(name string, cfg map[string]any) (llm.LLM, error) {
	return build[llm.LLM](r, KindLLM, name, cfg)
}

// NewVAD builds the VAD provider registered as name.
func (r *Registry) NewVAD(name string, cfg map[string]any) (vad.VAD, error) {
	return build[vad.VAD](r, KindVAD, name, cfg)
}

func build[T any](r *Registry, kind, name string, cfg map[string]any) (T, error) {
	var zero T
	instance, err := r.create(kind, name, cfg)
	if err != nil {
		return zero, err
	}
	provider, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%s plugin %q returned %T, which is not a %s provider", kind, name, instance, kind)
	}
	return provider, nil
}

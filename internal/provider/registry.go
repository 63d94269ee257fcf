package provider

import (
	"fmt"
	"net/http"
	"sync"
)

// AdapterRegistry defines the interface for looking up provider adapters.
// The engine depends on this interface so tests can substitute fakes.
type AdapterRegistry interface {
	// Get retrieves the adapter for a provider kind
	Get(kind Kind) (Adapter, error)

	// Kinds returns every registered provider kind, sorted
	Kinds() []Kind
}

// Registry manages the loaded adapters and implements AdapterRegistry
type Registry struct {
	mu       sync.RWMutex
	adapters map[Kind]Adapter
	settings map[Kind]Settings
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[Kind]Adapter),
		settings: make(map[Kind]Settings),
	}
}

// NewDefaultRegistry registers an adapter for every builtin provider.
// Missing settings entries fall back to the provider defaults.
func NewDefaultRegistry(settings map[Kind]Settings, httpClient *http.Client) (*Registry, error) {
	r := NewRegistry()

	for _, kind := range Builtin {
		s := settings[kind].WithDefaults(kind)
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s settings: %w", kind, err)
		}

		var adapter Adapter
		switch kind {
		case KindOpenAI:
			adapter = NewOpenAIAdapter(s, httpClient)
		case KindAnthropic:
			adapter = NewAnthropicAdapter(s, httpClient)
		case KindGemini:
			adapter = NewGeminiAdapter(s, httpClient)
		}

		if err := r.Register(adapter, s); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds an adapter to the registry
func (r *Registry) Register(adapter Adapter, settings Settings) error {
	if adapter == nil {
		return fmt.Errorf("adapter is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kind := adapter.Kind()
	if kind == KindNone {
		return fmt.Errorf("adapter must name a provider")
	}
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("provider %s already registered", kind)
	}

	r.adapters[kind] = adapter
	r.settings[kind] = settings

	return nil
}

// Get retrieves an adapter by kind
func (r *Registry) Get(kind Kind) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[kind]
	if !exists {
		return nil, &UnsupportedProviderError{Provider: kind}
	}

	return adapter, nil
}

// Settings retrieves the settings an adapter was registered with
func (r *Registry) Settings(kind Kind) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.settings[kind]
	if !exists {
		return Settings{}, &UnsupportedProviderError{Provider: kind}
	}

	return s, nil
}

// Kinds returns all registered provider kinds
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}

	return sortedKinds(kinds)
}

// Compile-time verification that Registry implements AdapterRegistry
var _ AdapterRegistry = (*Registry)(nil)

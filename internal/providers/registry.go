// Package providers - provider registry built from project configuration
package providers

import (
	"sort"
	"sync"

	"github.com/hazyhaar/goclode/internal/config"
	"github.com/hazyhaar/goclode/internal/coreerr"
)

// Registry holds the providers wired up for one project's effective
// configuration (config.Info.Provider); project configuration is the
// single source of truth for provider wiring, not a database table.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	current   string
}

// NewRegistry builds a Registry from a resolved config.Info.
func NewRegistry(info config.Info) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.rebuild(info)
	return r
}

func (r *Registry) rebuild(info config.Info) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(info.Provider))
	for id := range info.Provider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg := info.Provider[id]
		endpoint := &Endpoint{
			ID:           id,
			Name:         id,
			BaseURL:      cfg.BaseURL,
			APIKeyEnv:    cfg.APIKeyEnv,
			DefaultModel: cfg.DefaultModel,
			Priority:     cfg.Priority,
			RateLimitRPM: cfg.RateLimitRPM,
		}

		switch id {
		case "cerebras":
			r.providers[id] = NewCerebrasProvider(endpoint)
		case "openrouter":
			r.providers[id] = NewOpenRouterProvider(endpoint)
		default:
			// Any other OpenAI-compatible endpoint reuses the Cerebras
			// client, since both speak the same chat-completions wire
			// format.
			r.providers[id] = NewCerebrasProvider(endpoint)
		}
	}

	if r.current == "" || r.providers[r.current] == nil {
		r.current = ""
		for _, id := range ids {
			if r.providers[id].IsAvailable() {
				r.current = id
				break
			}
		}
	}
}

// Reload rebuilds the registry from a freshly resolved config.Info, e.g.
// after config.Update disposes the owning instance.
func (r *Registry) Reload(info config.Info) {
	r.rebuild(info)
}

// Get returns a provider by ID.
func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, coreerr.NotFound("provider", id)
	}
	return p, nil
}

// Current returns the active provider, or nil if none is available.
func (r *Registry) Current() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.current == "" {
		return nil
	}
	return r.providers[r.current]
}

// SetCurrent sets the active provider by ID.
func (r *Registry) SetCurrent(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[id]; !ok {
		return coreerr.NotFound("provider", id)
	}
	r.current = id
	return nil
}

// List returns every registered provider.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		list = append(list, p)
	}
	return list
}

// Available returns providers whose API key is configured.
func (r *Registry) Available() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Provider, 0)
	for _, p := range r.providers {
		if p.IsAvailable() {
			list = append(list, p)
		}
	}
	return list
}

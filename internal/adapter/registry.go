package adapter

import (
	"sort"
	"strings"
	"sync"

	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/logger"
	"sjsage522/metaworker/pkg/errors"
)

// Constructor builds a fresh adapter instance
type Constructor func() (SiteAdapter, error)

// HostRule maps a site's hosts to its source id
type HostRule struct {
	SourceID string
	BaseURL  string
	Keywords []string
}

// RegistryOptions configures a Registry
type RegistryOptions struct {
	Constructors map[string]Constructor
	Order        []string
	Generic      Constructor
	Hosts        []HostRule
	Logger       *logger.Logger
}

// Registry owns one live adapter per source id, built lazily
type Registry struct {
	mu           sync.Mutex
	constructors map[string]Constructor
	order        []string
	instances    map[string]SiteAdapter
	newGeneric   Constructor
	generic      SiteAdapter
	hosts        []HostRule
	log          *logger.Logger
}

// NewRegistry creates a registry. The generic adapter is built eagerly and
// its failure is returned, since nothing can fall back from it.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Generic == nil {
		return nil, errors.NewConfiguration("registry needs a generic adapter constructor", nil)
	}
	generic, err := opts.Generic()
	if err != nil {
		return nil, errors.NewConfiguration("construct generic adapter", err)
	}
	log := opts.Logger
	if log == nil {
		log = logger.ForAdapter("registry")
	}

	order := opts.Order
	if len(order) == 0 {
		for id := range opts.Constructors {
			order = append(order, id)
		}
		sort.Strings(order)
	}
	return &Registry{
		constructors: opts.Constructors,
		order:        order,
		instances:    make(map[string]SiteAdapter),
		newGeneric:   opts.Generic,
		generic:      generic,
		hosts:        opts.Hosts,
		log:          log,
	}, nil
}

// Get returns the adapter for sourceID. Unknown ids and named adapters that
// fail to construct resolve to the generic adapter.
func (r *Registry) Get(sourceID string) SiteAdapter {
	id := strings.ToLower(strings.TrimSpace(sourceID))

	r.mu.Lock()
	defer r.mu.Unlock()

	if id == GenericSourceID {
		return r.generic
	}
	if a, ok := r.instances[id]; ok {
		return a
	}
	ctor, ok := r.constructors[id]
	if !ok {
		return r.generic
	}
	a, err := ctor()
	if err != nil || a == nil {
		r.log.Warn().Err(err).Str("source", id).Msg("adapter construction failed, using generic")
		return r.generic
	}
	r.instances[id] = a
	return a
}

// Reload evicts the cached instance of sourceID so the next Get rebuilds it.
// The generic adapter is rebuilt immediately and kept when that fails.
func (r *Registry) Reload(sourceID string) bool {
	id := strings.ToLower(strings.TrimSpace(sourceID))

	r.mu.Lock()
	defer r.mu.Unlock()

	if id == GenericSourceID {
		g, err := r.newGeneric()
		if err != nil || g == nil {
			r.log.Error().Err(err).Msg("generic adapter reload failed, keeping previous instance")
			return false
		}
		r.generic = g
		return true
	}
	if _, ok := r.constructors[id]; !ok {
		return false
	}
	delete(r.instances, id)
	r.log.Info().Str("source", id).Msg("adapter evicted")
	return true
}

// Known reports whether sourceID names a registered source or generic
func (r *Registry) Known(sourceID string) bool {
	id := strings.ToLower(strings.TrimSpace(sourceID))
	if id == GenericSourceID {
		return true
	}
	_, ok := r.constructors[id]
	return ok
}

// Construct builds a throwaway instance of sourceID without touching the cache
func (r *Registry) Construct(sourceID string) (SiteAdapter, error) {
	id := strings.ToLower(strings.TrimSpace(sourceID))
	if id == GenericSourceID {
		return r.newGeneric()
	}
	ctor, ok := r.constructors[id]
	if !ok {
		return nil, errors.NewValidation(id, "unknown source")
	}
	return ctor()
}

// SourceIDs lists the registered named sources followed by generic
func (r *Registry) SourceIDs() []string {
	return append(append([]string(nil), r.order...), GenericSourceID)
}

// DetectSource derives a source id from an explicit hint, else from the URL
// host, else falls back to generic.
func (r *Registry) DetectSource(rawURL, hint string) string {
	if h := strings.ToLower(strings.TrimSpace(hint)); h != "" && r.Known(h) {
		return h
	}
	host := helpers.Host(rawURL)
	if host == "" {
		return GenericSourceID
	}
	for _, rule := range r.hosts {
		if base := helpers.Host(rule.BaseURL); base != "" && helpers.SameOrSubHost(host, base) {
			return rule.SourceID
		}
	}
	for _, rule := range r.hosts {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(host, kw) {
				return rule.SourceID
			}
		}
	}
	return GenericSourceID
}

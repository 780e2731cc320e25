package flowsteps

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-flowsteps/core"
)

// ProviderPack is a named group of activity providers a downstream workflow
// engine contributes, registered as one unit.
type ProviderPack struct {
	Name      string
	Providers []core.Provider
}

// CommandQueryBundleFactory builds an embedder-defined bundle over the
// facade's command/query surface.
type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks lets embedding applications contribute providers and
// command/query bundles without touching the module's wiring. Registration
// is write-once per name; application happens when the embedder assembles
// its service.
type ExtensionHooks struct {
	mu            sync.RWMutex
	providerPacks map[string]ProviderPack
	bundles       map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		providerPacks: map[string]ProviderPack{},
		bundles:       map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterProviderPack(pack ProviderPack) error {
	if h == nil {
		return fmt.Errorf("flowsteps: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("flowsteps: provider pack name is required")
	}
	if len(pack.Providers) == 0 {
		return fmt.Errorf("flowsteps: provider pack %q has no providers", name)
	}
	for _, provider := range pack.Providers {
		if provider == nil {
			return fmt.Errorf("flowsteps: provider pack %q contains nil provider", name)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.providerPacks[name]; exists {
		return fmt.Errorf("flowsteps: provider pack %q already registered", name)
	}
	h.providerPacks[name] = ProviderPack{
		Name:      name,
		Providers: append([]core.Provider(nil), pack.Providers...),
	}
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(name string, factory CommandQueryBundleFactory) error {
	if h == nil {
		return fmt.Errorf("flowsteps: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("flowsteps: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("flowsteps: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("flowsteps: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyProviderPacks registers every contributed provider on the registry,
// packs in name order so registration conflicts surface deterministically.
func (h *ExtensionHooks) ApplyProviderPacks(registry core.Registry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("flowsteps: registry is required")
	}

	h.mu.RLock()
	packs := make([]ProviderPack, 0, len(h.providerPacks))
	for _, pack := range h.providerPacks {
		packs = append(packs, pack)
	}
	h.mu.RUnlock()
	sort.Slice(packs, func(i, j int) bool { return packs[i].Name < packs[j].Name })

	for _, pack := range packs {
		for _, provider := range pack.Providers {
			if err := registry.Register(provider); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildCommandQueryBundles runs every registered factory against the service
// and returns the bundles keyed by registration name.
func (h *ExtensionHooks) BuildCommandQueryBundles(service CommandQueryService) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("flowsteps: command/query service is required")
	}

	h.mu.RLock()
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(factories))
	for name, factory := range factories {
		bundle, err := factory(service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

package flowsteps

import (
	"context"
	"testing"

	"github.com/goliatone/go-flowsteps/core"
)

func TestExtensionHooks_RegisterAndApplyProviderPacks(t *testing.T) {
	hooks := NewExtensionHooks()
	pack := ProviderPack{
		Name: "downstream-pack",
		Providers: []core.Provider{
			extensionProvider{id: "custom_provider"},
		},
	}
	if err := hooks.RegisterProviderPack(pack); err != nil {
		t.Fatalf("register provider pack: %v", err)
	}
	if err := hooks.RegisterProviderPack(pack); err == nil {
		t.Fatalf("expected duplicate provider pack registration error")
	}

	registry := core.NewProviderRegistry()
	if err := hooks.ApplyProviderPacks(registry); err != nil {
		t.Fatalf("apply provider packs: %v", err)
	}
	if _, ok := registry.Get("custom_provider"); !ok {
		t.Fatalf("expected provider pack registration in registry")
	}
}

func TestExtensionHooks_CommandQueryBundles(t *testing.T) {
	hooks := NewExtensionHooks()

	if err := hooks.RegisterCommandQueryBundle("workflow_bundle", func(service CommandQueryService) (any, error) {
		return map[string]any{
			"refresh_fn":       service.RefreshToken,
			"list_baseline_fn": service.ListBaselines,
		}, nil
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}
	if err := hooks.RegisterCommandQueryBundle("workflow_bundle", func(CommandQueryService) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate bundle registration error")
	}

	svc := &stubFacadeService{}
	bundles, err := hooks.BuildCommandQueryBundles(svc)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected one bundle, got %d", len(bundles))
	}
	if _, ok := bundles["workflow_bundle"]; !ok {
		t.Fatalf("expected workflow_bundle entry in built bundles")
	}
}

type extensionProvider struct {
	id string
}

func (p extensionProvider) ID() string { return p.id }

func (p extensionProvider) AuthorizeURL(core.AuthorizeURLRequest) (string, error) {
	return "https://example.test/auth", nil
}

func (extensionProvider) Exchange(context.Context, core.ExchangeRequest) (core.TokenGrant, error) {
	return core.TokenGrant{}, nil
}

func (extensionProvider) RefreshGrant(context.Context, core.RefreshGrantRequest) (core.TokenGrant, error) {
	return core.TokenGrant{}, nil
}

func (extensionProvider) FetchActivity(context.Context, core.FetchActivityInput) (core.FetchActivityResult, error) {
	return core.FetchActivityResult{}, nil
}

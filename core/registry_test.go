package core

import "testing"

func TestProviderRegistry_RegisterAndGet(t *testing.T) {
	registry := NewProviderRegistry()

	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if err := registry.Register(&testProvider{id: "figma"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(&testProvider{id: "figma"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	provider, ok := registry.Get("figma")
	if !ok || provider.ID() != "figma" {
		t.Fatalf("expected registered provider back")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Fatalf("expected miss for unknown provider")
	}
	if _, ok := registry.Get(""); ok {
		t.Fatalf("expected miss for empty id")
	}
}

func TestProviderRegistry_ListIsSorted(t *testing.T) {
	registry := NewProviderRegistry()
	for _, id := range []string{"zeplin", "figma", "sketch"} {
		if err := registry.Register(&testProvider{id: id}); err != nil {
			t.Fatalf("Register %s: %v", id, err)
		}
	}

	providers := registry.List()
	if len(providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(providers))
	}
	want := []string{"figma", "sketch", "zeplin"}
	for i, provider := range providers {
		if provider.ID() != want[i] {
			t.Fatalf("expected %q at %d, got %q", want[i], i, provider.ID())
		}
	}
}

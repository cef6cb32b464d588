package providers

import (
	"testing"

	"github.com/hazyhaar/goclode/internal/config"
	"github.com/hazyhaar/goclode/internal/coreerr"
)

func TestNewRegistryBuildsProvidersFromConfig(t *testing.T) {
	info := config.Info{
		Provider: map[string]config.ProviderConfig{
			"cerebras":   {APIKeyEnv: "NONEXISTENT_CEREBRAS_KEY", DefaultModel: "llama-3.3-70b"},
			"openrouter": {APIKeyEnv: "NONEXISTENT_OPENROUTER_KEY"},
		},
	}

	r := NewRegistry(info)

	if len(r.List()) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(r.List()))
	}
	if _, err := r.Get("cerebras"); err != nil {
		t.Fatalf("Get(cerebras): %v", err)
	}
	if _, err := r.Get("missing"); !coreerr.Is(err, coreerr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRegistryCurrentIsNilWhenNoProviderHasCredentials(t *testing.T) {
	info := config.Info{
		Provider: map[string]config.ProviderConfig{
			"cerebras": {APIKeyEnv: "NONEXISTENT_CEREBRAS_KEY"},
		},
	}

	r := NewRegistry(info)
	if r.Current() != nil {
		t.Fatalf("expected no current provider without credentials")
	}
}

func TestSetCurrentRejectsUnknownProvider(t *testing.T) {
	r := NewRegistry(config.Info{})
	if err := r.SetCurrent("nope"); !coreerr.Is(err, coreerr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

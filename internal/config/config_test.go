package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 8789 {
		t.Fatalf("API.Port = %d, want 8789", cfg.API.Port)
	}
	if cfg.Planner.TimeoutSeconds != 25 {
		t.Fatalf("Planner.TimeoutSeconds = %d, want 25", cfg.Planner.TimeoutSeconds)
	}
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	contents := `
[api]
port = 9000

[planner]
provider = "openrouter"
timeout_seconds = 10
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Fatalf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Planner.Provider != ProviderOpenRouter {
		t.Fatalf("Planner.Provider = %q, want openrouter", cfg.Planner.Provider)
	}
	if cfg.Planner.TimeoutSeconds != 10 {
		t.Fatalf("Planner.TimeoutSeconds = %d, want 10", cfg.Planner.TimeoutSeconds)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("HOME_INVENTORY_API_PORT", "9100")
	t.Setenv("HOME_INVENTORY_LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "secret-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 9100 {
		t.Fatalf("API.Port = %d, want 9100 (env override)", cfg.API.Port)
	}
	if cfg.Planner.Provider != ProviderGemini {
		t.Fatalf("Planner.Provider = %q, want gemini", cfg.Planner.Provider)
	}
	if cfg.Planner.GeminiAPIKey != "secret-key" {
		t.Fatalf("Planner.GeminiAPIKey = %q, want secret-key", cfg.Planner.GeminiAPIKey)
	}
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Planner.Provider = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.API.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for invalid port")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRWMutexManager_GetReturnsClone(t *testing.T) {
	m := NewManager(Default())
	a := m.Get()
	a.API.Port = 1

	b := m.Get()
	if b.API.Port == 1 {
		t.Fatalf("mutating a returned snapshot leaked into the manager")
	}
}

func TestRWMutexManager_ReloadSwapsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	if err := os.WriteFile(path, []byte("[planner]\nprovider = \"openrouter\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m := NewManager(Default())
	if err := m.Reload(path); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := m.Get().Planner.Provider; got != ProviderOpenRouter {
		t.Fatalf("Planner.Provider = %q after reload, want openrouter", got)
	}
}

func TestRWMutexManager_ReloadRejectsPortChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	if err := os.WriteFile(path, []byte("[api]\nport = 9999\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m := NewManager(Default())
	if err := m.Reload(path); err == nil {
		t.Fatalf("expected Reload() to reject a port change")
	}
	if got := m.Get().API.Port; got != Default().API.Port {
		t.Fatalf("API.Port = %d after rejected reload, want unchanged default", got)
	}
}

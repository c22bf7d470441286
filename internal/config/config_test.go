package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_UNIT_ID", "")
	t.Setenv("EVENT_BUFFER_SIZE", "not-a-number")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.UnitID != "unit-main" {
		t.Fatalf("expected default unit id unit-main, got %q", cfg.UnitID)
	}
	if cfg.EventBufferSize != 64 {
		t.Fatalf("expected event buffer fallback 64, got %d", cfg.EventBufferSize)
	}
}

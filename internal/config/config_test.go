package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SEARCH_CACHE_TTL_SECONDS", "")
	t.Setenv("LOOKUP_DEBOUNCE_MS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.SearchCacheTTLSeconds != 20 {
		t.Fatalf("expected default cache ttl 20, got %d", cfg.SearchCacheTTLSeconds)
	}
	if cfg.LookupDebounceMS != 300 {
		t.Fatalf("expected default debounce 300, got %d", cfg.LookupDebounceMS)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOOKUP_DEBOUNCE_MS", "0")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.LookupDebounceMS != 0 {
		t.Fatalf("explicit zero debounce must survive, got %d", cfg.LookupDebounceMS)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("negative token ttl must fall back to 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}

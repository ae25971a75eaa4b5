package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "REDIS_URL", "JWT_SECRET", "CIV_PROFILE", "STRENGTH_SPREAD", "SIM_SPEED"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8010" {
		t.Errorf("expected port 8010, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Errorf("expected storage disabled by default, got %q %q", cfg.DatabaseURL, cfg.RedisURL)
	}
	if cfg.Profile != "ranked" || cfg.Speed != "medium" || cfg.Spread != 0 {
		t.Errorf("unexpected simulation defaults %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CIV_PROFILE", "synthetic")
	t.Setenv("STRENGTH_SPREAD", "1.25")
	t.Setenv("SIM_SPEED", "fast")
	t.Setenv("REDIS_URL", "redis://localhost:6379/3")

	cfg := Load()
	if cfg.Port != "9000" || cfg.Profile != "synthetic" || cfg.Speed != "fast" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Spread != 1.25 {
		t.Errorf("expected spread 1.25, got %v", cfg.Spread)
	}
	if cfg.RedisURL != "redis://localhost:6379/3" {
		t.Errorf("unexpected redis URL %s", cfg.RedisURL)
	}
}

func TestLoadIgnoresBadSpread(t *testing.T) {
	t.Setenv("STRENGTH_SPREAD", "wide")
	if cfg := Load(); cfg.Spread != 0 {
		t.Errorf("expected fallback spread 0, got %v", cfg.Spread)
	}
}

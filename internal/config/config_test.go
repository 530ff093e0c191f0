package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Model.HalfLifeHours != 5 {
		t.Errorf("HalfLifeHours = %v, want 5", cfg.Model.HalfLifeHours)
	}
	if cfg.Model.SampleInterval != time.Second {
		t.Errorf("SampleInterval = %s, want 1s", cfg.Model.SampleInterval)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Database.Path = %q, want empty (in-memory)", cfg.Database.Path)
	}
	if got := cfg.ListenAddr(); got != "127.0.0.1:37778" {
		t.Errorf("ListenAddr = %q, want 127.0.0.1:37778", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CAFFEINE_HALF_LIFE_HOURS", "6.5")
	t.Setenv("CAFFEINE_SAMPLE_INTERVAL", "250ms")
	t.Setenv("CAFFEINE_PORT", "9000")
	t.Setenv("CAFFEINE_DB", "/tmp/caffeine.db")
	t.Setenv("CAFFEINE_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.HalfLifeHours != 6.5 {
		t.Errorf("HalfLifeHours = %v, want 6.5", cfg.Model.HalfLifeHours)
	}
	if cfg.Model.SampleInterval != 250*time.Millisecond {
		t.Errorf("SampleInterval = %s, want 250ms", cfg.Model.SampleInterval)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want default preserved", cfg.Server.Bind)
	}
	if cfg.Database.Path != "/tmp/caffeine.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero half-life", func(c *Config) { c.Model.HalfLifeHours = 0 }, false},
		{"negative half-life", func(c *Config) { c.Model.HalfLifeHours = -1 }, false},
		{"zero interval", func(c *Config) { c.Model.SampleInterval = 0 }, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: unexpected error %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate: expected error")
			}
		})
	}
}

func TestLoadRejectsBadHalfLife(t *testing.T) {
	t.Setenv("CAFFEINE_HALF_LIFE_HOURS", "0")
	if _, err := Load(); err == nil {
		t.Error("expected error for zero half-life")
	}
}

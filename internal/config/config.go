package config

import (
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all caffeine configuration.
type Config struct {
	Server   ServerConfig
	Model    ModelConfig
	Database DatabaseConfig
	Log      LogConfig
	Drinks   string `env:"DRINKS"` // optional YAML catalog merged over the built-ins
}

type ServerConfig struct {
	Bind string `env:"BIND"`
	Port int    `env:"PORT"`
}

type ModelConfig struct {
	HalfLifeHours  float64       `env:"HALF_LIFE_HOURS"`
	SampleInterval time.Duration `env:"SAMPLE_INTERVAL"` // live level cadence
}

type DatabaseConfig struct {
	Path string `env:"DB"` // empty keeps history in memory only
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"`
	Format string `env:"LOG_FORMAT"` // "text" or "json"
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Model: ModelConfig{
			HalfLifeHours:  5,
			SampleInterval: time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the defaults overridden by CAFFEINE_* environment variables.
func Load() (Config, error) {
	cfg := Default()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CAFFEINE_"}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values the decay model cannot tolerate.
func (c *Config) Validate() error {
	hl := c.Model.HalfLifeHours
	if hl <= 0 || math.IsNaN(hl) || math.IsInf(hl, 0) {
		return fmt.Errorf("half_life_hours must be a positive number, got %v", hl)
	}
	if c.Model.SampleInterval <= 0 {
		return fmt.Errorf("sample_interval must be positive, got %s", c.Model.SampleInterval)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Server.Port)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config carries environment overrides for the CLI. Flags take
// precedence over these; both fall back to built-in defaults.
type Config struct {
	// CatalogPath overrides the default catalog database location.
	CatalogPath string `env:"TIMEALIGN_CATALOG"`

	// Format selects the default output format (json or csv).
	Format string `env:"TIMEALIGN_FORMAT" envDefault:"json"`

	// CacheChunks sets how many decoded screen chunks to keep in
	// memory per recording. Zero disables the cache.
	CacheChunks int `env:"TIMEALIGN_CACHE_CHUNKS" envDefault:"0"`
}

// New reads configuration from the environment.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Package config provides type-safe environment variable loading. A .env
// file in the working directory is applied once before the first parse;
// real environment variables always win.
package config

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var loadDotEnvOnce sync.Once

// Load parses environment variables into the given struct pointer using
// `env` tags.
func Load(cfg any) error {
	loadDotEnvOnce.Do(func() {
		// Missing .env is the normal case outside local development.
		_ = godotenv.Load()
	})

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// MustLoad is Load that panics on failure, for use at startup.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

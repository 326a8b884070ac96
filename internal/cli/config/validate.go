package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/stepcat/internal/state"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	switch c.OutputFormat {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("unknown output format %q (want auto, text or json)", c.OutputFormat)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative")
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Validate checks the store backend and its required settings.
func (s StoreConfig) Validate() error {
	if s.Type == "" {
		return fmt.Errorf("store.type is required")
	}
	if !state.IsRegistered(s.Type) {
		return fmt.Errorf("unknown store type %q\nAvailable stores: %v\nHint: Check store.type in stepcat.yaml", s.Type, state.Backends())
	}
	if strings.EqualFold(s.Type, "postgres") && s.DSN == "" {
		return fmt.Errorf("store.dsn is required for the postgres store")
	}
	return nil
}

// StateConfig converts s into the store package's configuration.
func (s StoreConfig) StateConfig() state.Config {
	return state.Config{Type: s.Type, Path: s.Path, DSN: s.DSN}
}

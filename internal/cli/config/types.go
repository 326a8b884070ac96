// Package config provides configuration management for the stepcat CLI.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Store        StoreConfig  `koanf:"store"`
	Server       ServerConfig `koanf:"server"`
	Cache        CacheConfig  `koanf:"cache"`
	OutputFormat string       `koanf:"output"`
	Verbose      bool         `koanf:"verbose"`
	LogLevel     string       `koanf:"log_level"`
}

// StoreConfig selects the catalog store backend.
type StoreConfig struct {
	Type string `koanf:"type"`
	Path string `koanf:"path"`
	DSN  string `koanf:"dsn"`
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CacheConfig sizes the in-memory catalog cache.
type CacheConfig struct {
	Size int `koanf:"size"`
}

// Default configuration values.
const (
	DefaultStoreType       = "sqlite"
	DefaultStorePath       = ".stepcat/catalog.db"
	DefaultAddr            = ":8000"
	DefaultMaxUploadBytes  = 10 << 20
	DefaultShutdownTimeout = 5 * time.Second
	DefaultCacheSize       = 256
	DefaultOutput          = "auto" // Auto-detect: TTY=text, non-TTY=json
	DefaultLogLevel        = "warn"
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Type: DefaultStoreType,
			Path: DefaultStorePath,
		},
		Server: ServerConfig{
			Addr:            DefaultAddr,
			MaxUploadBytes:  DefaultMaxUploadBytes,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Cache:        CacheConfig{Size: DefaultCacheSize},
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
	}
}

// defaults flattens Default into koanf keys.
func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"store.type":              d.Store.Type,
		"store.path":              d.Store.Path,
		"store.dsn":               d.Store.DSN,
		"server.addr":             d.Server.Addr,
		"server.max_upload_bytes": d.Server.MaxUploadBytes,
		"server.shutdown_timeout": d.Server.ShutdownTimeout.String(),
		"cache.size":              d.Cache.Size,
		"output":                  d.OutputFormat,
		"verbose":                 d.Verbose,
		"log_level":               d.LogLevel,
	}
}

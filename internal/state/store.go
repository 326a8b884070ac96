// Package state persists uploaded configurations and their table catalogs.
//
// Catalog rows are versioned by a per-file generation number. Replacing a
// catalog writes the new rows under generation+1, flips the active generation
// on the configuration row and drops older rows, all in one transaction.
// Every read joins on the active generation.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Config selects and configures a store backend.
type Config struct {
	Type string // sqlite or postgres
	Path string // sqlite file path, ":memory:" for an in-memory database
	DSN  string // postgres connection string
}

// Opener opens a store for a backend.
type Opener func(ctx context.Context, cfg Config, logger *slog.Logger) (*SQLStore, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register adds a backend. Called by backend files in their init() functions.
func Register(name string, opener Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = opener
}

// Backends returns all registered backend names (sorted).
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(name)]
	return ok
}

// Open opens the backend named by cfg.Type and applies pending migrations.
// A nil logger discards output.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Type == "" {
		return nil, fmt.Errorf("store type not specified")
	}

	registryMu.RLock()
	opener, ok := registry[strings.ToLower(cfg.Type)]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownBackendError{Type: cfg.Type, Available: Backends()}
	}

	store, err := opener(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// UnknownBackendError is returned when an unknown store type is requested.
type UnknownBackendError struct {
	Type      string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown store type %q\nAvailable stores: %v\nHint: Check store.type in stepcat.yaml", e.Type, e.Available)
}

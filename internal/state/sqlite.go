package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // sqlite driver
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

func init() {
	Register("sqlite", func(ctx context.Context, cfg Config, logger *slog.Logger) (*SQLStore, error) {
		return OpenSQLite(ctx, cfg.Path, logger)
	})
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
// Use ":memory:" for an in-memory database. Migrations are not applied; use
// Open or call Migrate.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	if path == "" {
		path = MemoryPath
	}

	dsn := MemoryPath
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Each connection to :memory: is a separate database, and SQLite allows a
	// single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return newSQLStore(db, dialectSQLite, logger), nil
}

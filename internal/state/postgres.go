package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

func init() {
	Register("postgres", func(ctx context.Context, cfg Config, logger *slog.Logger) (*SQLStore, error) {
		return OpenPostgres(ctx, cfg.DSN, logger)
	})
}

// OpenPostgres connects to PostgreSQL using a pgx connection string.
// Migrations are not applied; use Open or call Migrate.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires store.dsn")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return newSQLStore(db, dialectPostgres, logger), nil
}

// NewPostgresWithDB wraps an existing connection with postgres placeholders.
// Useful when the caller manages the pool or in tests.
func NewPostgresWithDB(db *sql.DB, logger *slog.Logger) *SQLStore {
	return newSQLStore(db, dialectPostgres, logger)
}

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/stepcat/pkg/core"
)

var errClosed = core.ErrStoreClosed

// dialect captures the differences between backends.
type dialect struct {
	name         string
	goose        string
	numberedArgs bool // $1, $2 instead of ?
}

var (
	dialectSQLite   = dialect{name: "sqlite", goose: "sqlite3"}
	dialectPostgres = dialect{name: "postgres", goose: "postgres", numberedArgs: true}
)

// rebind rewrites ? placeholders for backends that use numbered arguments.
func (d dialect) rebind(query string) string {
	if !d.numberedArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements core.Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	now     func() time.Time
}

var _ core.Store = (*SQLStore)(nil)

func newSQLStore(db *sql.DB, d dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Dialect returns the backend name.
func (s *SQLStore) Dialect() string {
	return s.dialect.name
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// ReplaceCatalog stores cfg and refs as the only state for cfg.Filename.
func (s *SQLStore) ReplaceCatalog(ctx context.Context, cfg core.Configuration, refs []core.TableRef) (int64, error) {
	if s.db == nil {
		return 0, errClosed
	}
	if cfg.Filename == "" {
		return 0, fmt.Errorf("filename is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	uploadedAt := cfg.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = s.now()
	}

	// The upsert comes first so it takes the row lock: a concurrent replace of
	// the same file waits here and then builds on the committed generation.
	var generation int64
	if err := tx.QueryRowContext(ctx, s.dialect.rebind(`INSERT INTO configurations
		(filename, step_name, service_name, service_config, generation, revision, uploaded_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (filename) DO UPDATE SET
			step_name = excluded.step_name,
			service_name = excluded.service_name,
			service_config = excluded.service_config,
			generation = configurations.generation + 1,
			revision = excluded.revision,
			uploaded_at = excluded.uploaded_at
		RETURNING generation`),
		cfg.Filename, cfg.StepName, cfg.ServiceName, cfg.ServiceConfig, generateID(), uploadedAt.UnixMilli(),
	).Scan(&generation); err != nil {
		return 0, fmt.Errorf("failed to save configuration: %w", err)
	}

	insertRow := s.dialect.rebind(`INSERT INTO catalog_tables
		(id, filename, generation, position, table_type, database_name, table_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for i, ref := range refs {
		if _, err := tx.ExecContext(ctx, insertRow,
			generateID(), cfg.Filename, generation, i, string(ref.Kind), ref.Database, ref.Table,
		); err != nil {
			return 0, fmt.Errorf("failed to insert table %s: %w", ref.QualifiedName(), err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		s.dialect.rebind(`DELETE FROM catalog_tables WHERE filename = ? AND generation <> ?`),
		cfg.Filename, generation,
	); err != nil {
		return 0, fmt.Errorf("failed to drop previous catalog: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit catalog: %w", err)
	}

	s.logger.Debug("replaced catalog",
		slog.String("filename", cfg.Filename),
		slog.Int64("generation", generation),
		slog.Int("tables", len(refs)))

	return generation, nil
}

// CatalogRevision returns the token of the last replace of filename. Every
// replace gets a fresh token, so equal tokens mean an unchanged catalog.
func (s *SQLStore) CatalogRevision(ctx context.Context, filename string) (string, error) {
	if s.db == nil {
		return "", errClosed
	}

	var revision string
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT revision FROM configurations WHERE filename = ?`), filename,
	).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", core.ErrNotFound, filename)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read revision: %w", err)
	}
	return revision, nil
}

// GetConfiguration retrieves the stored configuration for filename.
func (s *SQLStore) GetConfiguration(ctx context.Context, filename string) (*core.Configuration, error) {
	if s.db == nil {
		return nil, errClosed
	}

	cfg := &core.Configuration{}
	var uploadedAt int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT filename, step_name, service_name, service_config, generation, uploaded_at
		FROM configurations WHERE filename = ?`), filename,
	).Scan(&cfg.Filename, &cfg.StepName, &cfg.ServiceName, &cfg.ServiceConfig, &cfg.Generation, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}
	cfg.UploadedAt = time.UnixMilli(uploadedAt).UTC()

	return cfg, nil
}

// ListConfigurations returns every stored configuration with its table count.
func (s *SQLStore) ListConfigurations(ctx context.Context) ([]core.ConfigurationSummary, error) {
	if s.db == nil {
		return nil, errClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT c.filename, c.step_name, c.service_name, c.uploaded_at, COUNT(t.id)
		FROM configurations c
		LEFT JOIN catalog_tables t ON t.filename = c.filename AND t.generation = c.generation
		GROUP BY c.filename, c.step_name, c.service_name, c.uploaded_at
		ORDER BY c.filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]core.ConfigurationSummary, 0)
	for rows.Next() {
		var sum core.ConfigurationSummary
		var uploadedAt int64
		if err := rows.Scan(&sum.Filename, &sum.StepName, &sum.ServiceName, &uploadedAt, &sum.TableCount); err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		sum.UploadedAt = time.UnixMilli(uploadedAt).UTC()
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteConfiguration removes a configuration and its catalog.
func (s *SQLStore) DeleteConfiguration(ctx context.Context, filename string) error {
	if s.db == nil {
		return errClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM catalog_tables WHERE filename = ?`), filename); err != nil {
		return fmt.Errorf("failed to delete catalog: %w", err)
	}

	result, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM configurations WHERE filename = ?`), filename)
	if err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, filename)
	}

	return tx.Commit()
}

// GetCatalog returns the active catalog rows for filename in extraction order.
func (s *SQLStore) GetCatalog(ctx context.Context, filename string) ([]core.CatalogRow, error) {
	if s.db == nil {
		return nil, errClosed
	}

	// The LEFT JOIN yields one all-NULL table row for a configuration without
	// tables, which tells "uploaded, empty" apart from "never uploaded" in a
	// single statement.
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT c.filename, t.table_type, t.database_name, t.table_name
		FROM configurations c
		LEFT JOIN catalog_tables t ON t.filename = c.filename AND t.generation = c.generation
		WHERE c.filename = ?
		ORDER BY t.position`), filename)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	found := false
	result := make([]core.CatalogRow, 0)
	for rows.Next() {
		found = true
		var file string
		var kind, db, table sql.NullString
		if err := rows.Scan(&file, &kind, &db, &table); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		if !kind.Valid {
			continue
		}
		row, err := catalogRow(file, kind.String, db.String, table.String)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, filename)
	}

	return result, nil
}

// ListCatalog returns the active catalog rows of every configuration.
func (s *SQLStore) ListCatalog(ctx context.Context) ([]core.CatalogRow, error) {
	if s.db == nil {
		return nil, errClosed
	}

	return s.queryRows(ctx, `SELECT t.filename, t.table_type, t.database_name, t.table_name
		FROM catalog_tables t
		JOIN configurations c ON c.filename = t.filename AND c.generation = t.generation
		ORDER BY t.filename, t.position`)
}

// FindTable returns every active catalog row naming database.table.
func (s *SQLStore) FindTable(ctx context.Context, database, table string) ([]core.CatalogRow, error) {
	if s.db == nil {
		return nil, errClosed
	}

	return s.queryRows(ctx, s.dialect.rebind(`SELECT t.filename, t.table_type, t.database_name, t.table_name
		FROM catalog_tables t
		JOIN configurations c ON c.filename = t.filename AND c.generation = t.generation
		WHERE t.database_name = ? AND t.table_name = ?
		ORDER BY t.filename, t.position`), database, table)
}

func (s *SQLStore) queryRows(ctx context.Context, query string, args ...any) ([]core.CatalogRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]core.CatalogRow, 0)
	for rows.Next() {
		var file, kind, db, table string
		if err := rows.Scan(&file, &kind, &db, &table); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		row, err := catalogRow(file, kind, db, table)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func catalogRow(file, kind, db, table string) (core.CatalogRow, error) {
	k, err := core.ParseTableKind(kind)
	if err != nil {
		return core.CatalogRow{}, fmt.Errorf("corrupt catalog row for %s: %w", file, err)
	}
	return core.CatalogRow{Filename: file, Type: k, DatabaseName: db, TableName: table}, nil
}

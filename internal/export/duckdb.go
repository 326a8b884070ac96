// Package export writes catalog snapshots to DuckDB for ad-hoc analytics.
package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/stepcat/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Names of the objects created in the DuckDB file.
const (
	CatalogTable = "table_catalog"
	UsageView    = "table_usage"
)

const (
	createCatalog = `CREATE OR REPLACE TABLE ` + CatalogTable + ` (
		filename      VARCHAR NOT NULL,
		type          VARCHAR NOT NULL,
		database_name VARCHAR NOT NULL,
		table_name    VARCHAR NOT NULL
	)`

	createUsage = `CREATE OR REPLACE VIEW ` + UsageView + ` AS
		SELECT
			database_name,
			table_name,
			count(*) FILTER (WHERE type = 'source') AS readers,
			count(*) FILTER (WHERE type = 'target') AS writers
		FROM ` + CatalogTable + `
		GROUP BY database_name, table_name`

	insertRow = `INSERT INTO ` + CatalogTable + ` VALUES (?, ?, ?, ?)`
)

// ToDuckDB replaces the catalog table in the DuckDB database at path with
// rows and returns the number of rows written.
func ToDuckDB(ctx context.Context, path string, rows []core.CatalogRow) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("%w: duckdb path is required", core.ErrInvalidArgument)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return 0, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, createCatalog); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", CatalogTable, err)
	}
	if _, err := tx.ExecContext(ctx, createUsage); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", UsageView, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRow)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Filename, string(r.Type), r.DatabaseName, r.TableName); err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", r.Ref().QualifiedName(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit export: %w", err)
	}
	return len(rows), nil
}

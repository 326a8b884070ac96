package core

import "context"

// Store defines the persistence operations for configurations and their
// table catalogs.
type Store interface {
	Close() error

	// ReplaceCatalog stores cfg and refs as the only state for cfg.Filename.
	// The swap is atomic: readers observe either the previous catalog or the
	// new one, never an empty intermediate. Returns the new generation.
	ReplaceCatalog(ctx context.Context, cfg Configuration, refs []TableRef) (int64, error)

	// GetConfiguration returns ErrNotFound for unknown filenames.
	GetConfiguration(ctx context.Context, filename string) (*Configuration, error)
	ListConfigurations(ctx context.Context) ([]ConfigurationSummary, error)
	DeleteConfiguration(ctx context.Context, filename string) error

	// CatalogRevision returns a token that changes on every replace of
	// filename, or ErrNotFound for unknown filenames.
	CatalogRevision(ctx context.Context, filename string) (string, error)

	// GetCatalog returns ErrNotFound for unknown filenames and an empty slice
	// for known files without tables.
	GetCatalog(ctx context.Context, filename string) ([]CatalogRow, error)
	ListCatalog(ctx context.Context) ([]CatalogRow, error)
	FindTable(ctx context.Context, database, table string) ([]CatalogRow, error)
}

// Package catalog implements the catalog service: it turns uploaded job step
// documents into persisted table catalogs and answers catalog queries.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/leapstack-labs/stepcat/internal/loader"
	"github.com/leapstack-labs/stepcat/pkg/confignode"
	"github.com/leapstack-labs/stepcat/pkg/core"
	"github.com/leapstack-labs/stepcat/pkg/extract"
)

// DefaultCacheSize is the number of per-file catalogs kept in memory.
const DefaultCacheSize = 256

// Config configures a Service.
type Config struct {
	Store     core.Store
	Logger    *slog.Logger
	CacheSize int // <= 0 uses DefaultCacheSize
}

// Service coordinates the loader, the extractor and the store.
// It is safe for concurrent use.
type Service struct {
	store  core.Store
	logger *slog.Logger
	cache  *lru.Cache[string, cachedCatalog]
	now    func() time.Time
}

// cachedCatalog is a catalog as read at a given store revision. Other
// processes may write to the same store, so an entry is only served while
// the store still reports that revision.
type cachedCatalog struct {
	revision string
	rows     []core.CatalogRow
}

// New creates a catalog service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("catalog service requires a store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedCatalog](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}
	return &Service{
		store:  cfg.Store,
		logger: logger,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Extract runs table extraction over root. The filename only labels logs;
// nothing is persisted.
func (s *Service) Extract(filename string, root confignode.Node) []core.TableRef {
	refs := extract.Tables(root)
	sum := extract.Summarize(refs)
	s.logger.Debug("extracted tables",
		slog.String("filename", filename),
		slog.Int("sources", sum.Sources),
		slog.Int("targets", sum.Targets))
	return refs
}

// Upload parses raw, extracts its tables and replaces everything stored under
// filename. Malformed documents return an error wrapping
// core.ErrInvalidDocument and leave the stored state untouched.
func (s *Service) Upload(ctx context.Context, filename string, raw []byte) (*core.UploadResult, error) {
	name, err := normalizeFilename(filename)
	if err != nil {
		return nil, err
	}

	step, err := loader.Parse(name, raw)
	if err != nil {
		s.logger.Debug("rejected upload", slog.String("filename", name), slog.String("error", err.Error()))
		return nil, err
	}

	refs := s.Extract(name, step.ServiceConfig)

	serviceConfig, err := confignode.Encode(step.ServiceConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to encode service_config: %w", err)
	}

	generation, err := s.store.ReplaceCatalog(ctx, core.Configuration{
		Filename:      name,
		StepName:      step.StepName,
		ServiceName:   step.ServiceName,
		ServiceConfig: string(serviceConfig),
		UploadedAt:    s.now(),
	}, refs)
	s.cache.Remove(name)
	if err != nil {
		return nil, fmt.Errorf("failed to store catalog for %s: %w", name, err)
	}

	s.logger.Info("configuration uploaded",
		slog.String("filename", name),
		slog.String("step_name", step.StepName),
		slog.String("service_name", step.ServiceName),
		slog.Int("tables", len(refs)),
		slog.Int64("generation", generation))

	return &core.UploadResult{
		Filename:    name,
		StepName:    step.StepName,
		ServiceName: step.ServiceName,
		Generation:  generation,
		Tables:      refs,
	}, nil
}

// Tables returns the catalog stored for filename. Unknown filenames return an
// error wrapping core.ErrNotFound; known files without tables return an empty
// slice.
func (s *Service) Tables(ctx context.Context, filename string) ([]core.CatalogRow, error) {
	name, err := normalizeFilename(filename)
	if err != nil {
		return nil, err
	}

	// The revision is read before the rows, so a concurrent replace can only
	// make the entry newer than its label, which costs a refetch.
	revision, err := s.store.CatalogRevision(ctx, name)
	if err != nil {
		s.cache.Remove(name)
		return nil, err
	}
	if entry, ok := s.cache.Get(name); ok && entry.revision == revision {
		return cloneRows(entry.rows), nil
	}

	rows, err := s.store.GetCatalog(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(name, cachedCatalog{revision: revision, rows: rows})
	return cloneRows(rows), nil
}

// Configuration returns the stored job step metadata for filename.
func (s *Service) Configuration(ctx context.Context, filename string) (*core.Configuration, error) {
	name, err := normalizeFilename(filename)
	if err != nil {
		return nil, err
	}
	return s.store.GetConfiguration(ctx, name)
}

// List returns a summary of every stored configuration.
func (s *Service) List(ctx context.Context) ([]core.ConfigurationSummary, error) {
	return s.store.ListConfigurations(ctx)
}

// Delete removes the configuration and catalog stored under filename.
func (s *Service) Delete(ctx context.Context, filename string) error {
	name, err := normalizeFilename(filename)
	if err != nil {
		return err
	}
	err = s.store.DeleteConfiguration(ctx, name)
	s.cache.Remove(name)
	if err != nil {
		return err
	}
	s.logger.Info("configuration deleted", slog.String("filename", name))
	return nil
}

// Lineage returns every stored catalog row that names database.table, telling
// which uploaded steps read or write it.
func (s *Service) Lineage(ctx context.Context, database, table string) ([]core.CatalogRow, error) {
	if database == "" || table == "" {
		return nil, fmt.Errorf("%w: database and table are required", core.ErrInvalidArgument)
	}
	return s.store.FindTable(ctx, database, table)
}

// All returns the active catalog rows of every stored configuration.
func (s *Service) All(ctx context.Context) ([]core.CatalogRow, error) {
	return s.store.ListCatalog(ctx)
}

// normalizeFilename reduces a client supplied name to its base name.
func normalizeFilename(filename string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%w: filename is required", core.ErrInvalidArgument)
	}
	return name, nil
}

func cloneRows(rows []core.CatalogRow) []core.CatalogRow {
	out := make([]core.CatalogRow, len(rows))
	copy(out, rows)
	return out
}

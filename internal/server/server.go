// Package server exposes the catalog service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/stepcat/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Defaults for Config fields left zero.
const (
	DefaultAddr            = ":8000"
	DefaultMaxUploadBytes  = 10 << 20
	DefaultShutdownTimeout = 5 * time.Second
)

// CatalogService is the subset of the catalog service the API needs.
type CatalogService interface {
	Upload(ctx context.Context, filename string, raw []byte) (*core.UploadResult, error)
	Tables(ctx context.Context, filename string) ([]core.CatalogRow, error)
	Configuration(ctx context.Context, filename string) (*core.Configuration, error)
	List(ctx context.Context) ([]core.ConfigurationSummary, error)
	Delete(ctx context.Context, filename string) error
	Lineage(ctx context.Context, database, table string) ([]core.CatalogRow, error)
}

// Config holds configuration for the API server.
type Config struct {
	Service         CatalogService
	Addr            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Server is the catalog HTTP API.
type Server struct {
	svc             CatalogService
	addr            string
	maxUploadBytes  int64
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New creates a server. Zero config values fall back to the defaults.
func New(cfg Config) *Server {
	s := &Server{
		svc:             cfg.Service,
		addr:            cfg.Addr,
		maxUploadBytes:  cfg.MaxUploadBytes,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = DefaultShutdownTimeout
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/upload", s.handleUpload)
	r.Post("/upload/", s.handleUpload)
	r.Get("/configurations", s.handleList)
	r.Route("/configuration/{filename}", func(r chi.Router) {
		r.Get("/", s.handleConfiguration)
		r.Delete("/", s.handleDelete)
		r.Get("/tables", s.handleTables)
	})
	r.Get("/tables/{database}/{table}", s.handleLineage)

	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener until the context is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

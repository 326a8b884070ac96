// Package ingest uploads job step documents from a directory, once or
// continuously as files change.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/stepcat/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Defaults for Options fields left zero.
const (
	DefaultConcurrency = 4
	DefaultDebounce    = 100 * time.Millisecond
)

// Uploader stores one document under a filename.
type Uploader interface {
	Upload(ctx context.Context, filename string, raw []byte) (*core.UploadResult, error)
}

// Options tunes Dir and Watch.
type Options struct {
	Logger      *slog.Logger
	Concurrency int
	Debounce    time.Duration
	// OnResult is called after every upload attempt. Watch calls it from
	// timer goroutines, so it must be safe for concurrent use.
	OnResult func(Result)
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	return o
}

// Result is the outcome of uploading one file.
type Result struct {
	Path   string
	Upload *core.UploadResult
	Err    error
}

// IsDocument reports whether path names a YAML document.
func IsDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// Files lists the YAML documents directly inside dir, sorted by name.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsDocument(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Dir uploads every YAML document in dir. A failing file is reported in its
// Result and does not stop the others. The returned error is only set when
// the directory cannot be read or ctx is cancelled.
func Dir(ctx context.Context, up Uploader, dir string, opts Options) ([]Result, error) {
	opts = opts.withDefaults()

	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = uploadFile(gctx, up, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	opts.Logger.Info("directory ingested", slog.String("dir", dir), slog.Int("files", len(files)))
	return results, nil
}

// Watch ingests dir once and then re-uploads documents that are written or
// created, until ctx is cancelled.
func Watch(ctx context.Context, up Uploader, dir string, opts Options) error {
	opts = opts.withDefaults()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if _, err := Dir(ctx, up, dir, opts); err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	opts.Logger.Info("watching for changes", slog.String("dir", dir))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !IsDocument(event.Name) {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(opts.Debounce, func() {
				if ctx.Err() != nil {
					return
				}
				opts.Logger.Debug("file changed, uploading", slog.String("file", path))
				uploadFile(ctx, up, path, opts)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.Logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

func uploadFile(ctx context.Context, up Uploader, path string, opts Options) Result {
	res := Result{Path: path}
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from a directory listing
	if err != nil {
		res.Err = fmt.Errorf("failed to read %s: %w", path, err)
	} else {
		res.Upload, res.Err = up.Upload(ctx, filepath.Base(path), raw)
	}

	if res.Err != nil {
		opts.Logger.Warn("upload failed", slog.String("file", path), slog.String("error", res.Err.Error()))
	} else {
		opts.Logger.Debug("uploaded", slog.String("file", path), slog.Int("tables", len(res.Upload.Tables)))
	}
	if opts.OnResult != nil {
		opts.OnResult(res)
	}
	return res
}

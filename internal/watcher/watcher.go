// Package watcher loads rental records into the dataset store and reloads
// them when the data file changes.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/repository"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

// Loader reads a record source into a store
type Loader struct {
	source  repository.RecordSource
	store   *dataset.Store
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewLoader creates a loader filling store from source
func NewLoader(source repository.RecordSource, store *dataset.Store, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Loader {
	return &Loader{
		source:  source,
		store:   store,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Load reads the source and swaps the result into the store. On failure the
// store keeps its current dataset.
func (l *Loader) Load(ctx context.Context) error {
	start := time.Now()
	name := l.source.Name()

	records, err := l.source.LoadRecords(ctx)
	if err != nil {
		l.metrics.RecordDatasetLoadError(name)
		l.logger.Error(ctx, "[DATASET_LOAD_ERROR] Failed to load dataset", logging.Fields{
			"source": name,
		}, err)
		return fmt.Errorf("failed to load dataset from %s: %w", name, err)
	}

	ds := dataset.New(records, name)
	l.store.Swap(ds)

	took := time.Since(start)
	l.metrics.RecordDatasetLoad(name, ds.Len(), took)

	bounds, _ := ds.Bounds()
	l.logger.Info(ctx, "[DATASET_LOADED] Dataset loaded", logging.Fields{
		"source":      name,
		"records":     ds.Len(),
		"range":       bounds.String(),
		"duration_ms": took.Milliseconds(),
	})
	return nil
}

// Watcher reloads the dataset after the data file is written
type Watcher struct {
	path     string
	loader   *Loader
	debounce time.Duration
	fs       *fsnotify.Watcher
	logger   *logging.StructuredLogger
}

// New watches the directory holding path. Events for other files in the
// directory are ignored.
func New(path string, loader *Loader, debounce time.Duration, logger *logging.StructuredLogger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// watching the directory survives editors that replace the file
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		path:     abs,
		loader:   loader,
		debounce: debounce,
		fs:       fs,
		logger:   logger,
	}, nil
}

// Run handles file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info(ctx, "[WATCH_START] Watching data file", logging.Fields{
		"path":        w.path,
		"debounce_ms": w.debounce.Milliseconds(),
	})

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug(ctx, "[WATCH_EVENT] Data file changed", logging.Fields{
				"path": event.Name,
				"op":   event.Op.String(),
			})
			timer.Reset(w.debounce)

		case <-timer.C:
			// failures are logged and counted by the loader
			_ = w.loader.Load(ctx)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(ctx, "[WATCH_ERROR] File watcher error", logging.Fields{
				"path": w.path,
			}, err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

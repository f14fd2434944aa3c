// Package watcher ingests documents from drop directories. Files that appear
// in a watched directory become documents; edits update them; deletions remove
// them. Each change triggers an index rebuild after a short quiet period.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	fileDebounce    = 400 * time.Millisecond
	rebuildDebounce = time.Second
)

// Rebuilder is the index-rebuild hook invoked after ingested changes settle.
type Rebuilder interface {
	RebuildIndex(ctx context.Context) (int, error)
}

// Watcher watches drop directories and feeds file changes to an Ingestor.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	ingestor   *Ingestor
	rebuilder  Rebuilder
	logger     *zap.Logger

	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	pending  map[string]*time.Timer
	rebuild  *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// New creates a watcher over the given roots. Extensions filter which files
// are ingested (empty means all); recursive controls whether subdirectories
// are watched too.
func New(roots, extensions []string, recursive bool, ingestor *Ingestor, rebuilder Rebuilder, logger *zap.Logger) *Watcher {
	return &Watcher{
		roots:      roots,
		extensions: extensions,
		recursive:  recursive,
		ingestor:   ingestor,
		rebuilder:  rebuilder,
		logger:     logger,
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
}

// Start begins watching. Missing roots are created. Runs until ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.started = true
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.fsw.Close()
			w.fsw = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

	w.logger.Info("watching directories",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx)
	return nil
}

// SyncExistingFiles ingests files already present in the watched roots.
// Call after Start so documents dropped before startup are not missed.
func (w *Watcher) SyncExistingFiles(ctx context.Context) {
	ingested := 0
	for _, root := range w.roots {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if !matchExtension(path, w.extensions) {
				return nil
			}
			if err := w.ingestor.IngestFile(ctx, path); err != nil {
				w.logger.Warn("sync ingest failed", zap.String("path", path), zap.Error(err))
			} else {
				ingested++
			}
			return nil
		})
	}
	if ingested > 0 {
		w.scheduleRebuild()
	}
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(ctx, path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.debounceIngest(ctx, path)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancelPending(path)
		if matchExtension(path, w.extensions) {
			if err := w.ingestor.RemoveFile(ctx, path); err != nil {
				w.logger.Warn("remove failed", zap.String("path", path), zap.Error(err))
			}
			w.scheduleRebuild()
		}
	}
}

// handleNewDirectory watches a directory that appeared under a root and
// ingests whatever it already contains.
func (w *Watcher) handleNewDirectory(ctx context.Context, dir string) {
	w.mu.Lock()
	fsw := w.fsw
	recursive := w.recursive
	w.mu.Unlock()
	if fsw == nil || !recursive {
		return
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				w.logger.Debug("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if matchExtension(path, w.extensions) {
			w.debounceIngest(ctx, path)
		}
		return nil
	})
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	if !w.recursive {
		return w.fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// debounceIngest ingests a file after writes to it settle. Editors and copies
// produce bursts of write events; only the last one matters.
func (w *Watcher) debounceIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(fileDebounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if err := w.ingestor.IngestFile(ctx, path); err != nil {
			w.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			return
		}
		w.scheduleRebuild()
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// scheduleRebuild coalesces rebuilds so a burst of dropped files produces
// one index build, not one per file.
func (w *Watcher) scheduleRebuild() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rebuild != nil {
		w.rebuild.Stop()
	}
	w.rebuild = time.AfterFunc(rebuildDebounce, func() {
		if _, err := w.rebuilder.RebuildIndex(context.Background()); err != nil {
			w.logger.Warn("rebuild after ingest failed", zap.Error(err))
		}
	})
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// Directories returns the watched roots.
func (w *Watcher) Directories() []string {
	return append([]string(nil), w.roots...)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	if w.rebuild != nil {
		w.rebuild.Stop()
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

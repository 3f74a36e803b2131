// Package watcher monitors the library drop folder for incoming ebooks
// and feeds settled files into enrichment.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/buchregal/buchregal-server/internal/domain"
	"github.com/buchregal/buchregal-server/internal/epub"
)

// defaultSettleDelay is how long a file must stay quiet before it is
// treated as fully written. Copies into the drop folder arrive as a
// burst of create/write events; acting on the first one reads a
// truncated zip.
const defaultSettleDelay = 2 * time.Second

// Enricher is the downstream consumer of settled files.
type Enricher interface {
	EnrichOne(ctx context.Context, meta *domain.BookMetadata) (*domain.EnrichedMetadata, error)
}

// Watcher debounces drop-folder events and enriches settled EPUBs.
type Watcher struct {
	dir         string
	enricher    Enricher
	logger      *slog.Logger
	settleDelay time.Duration

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for dir. The directory must exist.
func New(dir string, enricher Enricher, logger *slog.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat drop folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("drop folder %s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		dir:         filepath.Clean(dir),
		enricher:    enricher,
		logger:      logger,
		settleDelay: defaultSettleDelay,
		fsw:         fsw,
		pending:     make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}, nil
}

// Start begins watching. It returns immediately; events are processed
// in the background until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.logger.Info("watching drop folder", "path", w.dir)

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down and waits for in-flight work, including
// settle callbacks that already fired.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	close(w.done)
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.touch(ctx, event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// touch resets the settle timer for a path. The enrichment fires only
// after the file has been quiet for the full settle delay.
func (w *Watcher) touch(ctx context.Context, path string) {
	if !strings.EqualFold(filepath.Ext(path), ".epub") {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settleDelay)
		return
	}

	w.pending[path] = time.AfterFunc(w.settleDelay, func() {
		// Joining the WaitGroup and checking done share the mutex with
		// Stop, so Stop either sees this callback or outruns it; either
		// way it cannot return while process is still writing.
		w.mu.Lock()
		delete(w.pending, path)
		select {
		case <-w.done:
			w.mu.Unlock()
			return
		default:
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		if ctx.Err() != nil {
			return
		}

		w.process(ctx, path)
	})
}

// process extracts metadata from a settled file and enriches it. A
// broken file is logged and skipped, never fatal.
func (w *Watcher) process(ctx context.Context, path string) {
	meta, err := epub.ExtractMetadata(path)
	if err != nil {
		w.logger.Warn("skipping unreadable ebook", "path", path, "error", err)
		return
	}

	entry, err := w.enricher.EnrichOne(ctx, meta)
	if err != nil {
		w.logger.Error("enrichment failed for dropped ebook", "path", path, "error", err)
		return
	}

	w.logger.Info("enriched dropped ebook",
		"path", filepath.Base(path),
		"genre", entry.Genre,
		"provenance", entry.Provenance,
	)
}

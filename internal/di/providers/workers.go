package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/buchregal/buchregal-server/internal/config"
	"github.com/buchregal/buchregal-server/internal/logger"
	"github.com/buchregal/buchregal-server/internal/service"
	"github.com/buchregal/buchregal-server/internal/watcher"
)

// DropWatcherHandle wraps the drop-folder watcher with shutdown capability.
type DropWatcherHandle struct {
	*watcher.Watcher
	cancel  context.CancelFunc
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *DropWatcherHandle) Shutdown() error {
	if !h.started {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideDropWatcher provides the drop-folder watcher. An empty drop
// path disables it, the server then only enriches via the API.
func ProvideDropWatcher(i do.Injector) (*DropWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Library.DropPath == "" {
		log.Info("No drop folder configured, watcher disabled")
		return &DropWatcherHandle{started: false}, nil
	}

	enrichment := do.MustInvoke[*service.EnrichmentService](i)

	w, err := watcher.New(cfg.Library.DropPath, enrichment, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	log.Info("Drop folder watcher started", "path", cfg.Library.DropPath)

	return &DropWatcherHandle{
		Watcher: w,
		cancel:  cancel,
		started: true,
	}, nil
}

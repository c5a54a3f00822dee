package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/starford/planboard/internal/clock"
	"github.com/starford/planboard/internal/icsync"
	"github.com/starford/planboard/internal/observability"
	"github.com/starford/planboard/internal/storage"
	"github.com/starford/planboard/internal/store"
	"github.com/starford/planboard/internal/workspace"
)

// Workspace bundles the long-lived components every entry point needs.
type Workspace struct {
	Store    store.Store
	Service  *workspace.Service
	Importer *icsync.Importer
	Metrics  *observability.Metrics
}

// OpenWorkspace opens the configured store and inbox and wires the service
// and importer over them. c may be nil for the wall clock.
func OpenWorkspace(ctx context.Context, cfg *Config, c clock.Clock) (*Workspace, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("app timezone: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	st, err := store.Open(ctx, cfg.Storage.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if err := os.MkdirAll(cfg.ICS.InboxPath, 0o755); err != nil {
		st.Close()
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	inbox, err := storage.NewFS(cfg.ICS.InboxPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init inbox: %w", err)
	}

	opts := []workspace.Option{
		workspace.WithLocation(loc),
		workspace.WithMetrics(metrics),
	}
	if c != nil {
		opts = append(opts, workspace.WithClock(c))
	}
	svc := workspace.NewService(st, opts...)

	return &Workspace{
		Store:   st,
		Service: svc,
		Importer: icsync.NewImporter(svc, inbox, icsync.Options{
			Past:    cfg.ICS.Past,
			Ahead:   cfg.ICS.Ahead,
			Metrics: metrics,
		}),
		Metrics: metrics,
	}, nil
}

// Close releases the store.
func (w *Workspace) Close() error {
	return w.Store.Close()
}

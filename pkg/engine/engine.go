// Package engine is the embeddable entry point: it opens the store at the
// well-known path and exposes the registry, lease manager, and mailbox as
// one handle. Each short-lived invocation opens an Engine, makes its calls,
// and closes it.
package engine

import (
	"context"

	"github.com/jpatrickfarrell/jat-sub013/internal/config"
	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/lease"
	"github.com/jpatrickfarrell/jat-sub013/internal/mailbox"
	"github.com/jpatrickfarrell/jat-sub013/internal/registry"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage/sqlite"
)

type Engine struct {
	store    storage.Store
	registry *registry.Registry
	leases   *lease.Manager
	mailbox  *mailbox.Mailbox
}

// Open opens the store file named by cfg and wires the services around it.
// The returned Engine must be closed.
func Open(cfg config.Config) (*Engine, error) {
	st, err := sqlite.New(cfg.DBPath, sqlite.Options{
		BusyTimeout:    cfg.BusyTimeout,
		LogSlowQueries: true,
	})
	if err != nil {
		return nil, err
	}
	return fromStore(sqlite.NewResilient(st), cfg), nil
}

// OpenInMemory wires the services around a private in-memory store, used by
// tests and throwaway sessions.
func OpenInMemory(cfg config.Config) (*Engine, error) {
	st, err := sqlite.NewInMemory()
	if err != nil {
		return nil, err
	}
	return fromStore(st, cfg), nil
}

func fromStore(st storage.Store, cfg config.Config) *Engine {
	return &Engine{
		store:    st,
		registry: registry.New(st),
		leases:   lease.New(st, cfg.TTL),
		mailbox:  mailbox.New(st, cfg.ActiveWindow),
	}
}

// Project resolves the working-tree path to its project, creating it on
// first use.
func (e *Engine) Project(ctx context.Context, humanKey string) (core.Project, error) {
	return e.store.EnsureProject(ctx, humanKey)
}

// ProjectBySlug resolves an existing project by its slug.
func (e *Engine) ProjectBySlug(ctx context.Context, slug string) (core.Project, error) {
	return e.store.GetProjectBySlug(ctx, slug)
}

func (e *Engine) Registry() *registry.Registry { return e.registry }
func (e *Engine) Leases() *lease.Manager       { return e.leases }
func (e *Engine) Mailbox() *mailbox.Mailbox    { return e.mailbox }

func (e *Engine) Close() error {
	return e.store.Close()
}

package main

import (
	"github.com/multiagents/multiagents/internal/broadcast"
	"github.com/multiagents/multiagents/internal/config"
	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/eventlog"
	"github.com/multiagents/multiagents/internal/gate"
	"github.com/multiagents/multiagents/internal/oneshot"
	"github.com/multiagents/multiagents/internal/provider"
	"github.com/multiagents/multiagents/internal/session"
	"github.com/multiagents/multiagents/internal/store"
	"github.com/multiagents/multiagents/internal/tmux"
)

// app wires together every core component for one CLI invocation. It is
// rebuilt fresh per process; nothing here survives past a single
// subcommand run.
type app struct {
	paths      config.Paths
	store      *store.Store
	log        *eventlog.Writer
	gate       *gate.Gate
	oneshot    *oneshot.Runner
	tmux       *tmux.Driver
	sessions   *session.Resolver
	registry   provider.Registry
	broadcasts *broadcast.Coordinator

	closeDB func() error
}

// bootstrap resolves paths, opens and migrates the store, and wires the
// rest of the core components around it.
func bootstrap() (*app, error) {
	paths := config.ResolvePaths(nil)

	db, err := store.Open(paths.DBPath)
	if err != nil {
		return nil, errs.New(errs.CodeStoreError, "open store: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, errs.New(errs.CodeStoreError, "migrate store: %v", err)
	}

	s := store.New(db)
	log := eventlog.NewWriter(paths.LogsDir)
	g := gate.New()
	registry := provider.DefaultRegistry()
	tmuxDriver := tmux.New()
	sessions := session.New(s)
	oneshotRunner := oneshot.New(g, log)
	coordinator := broadcast.New(s, sessions, oneshotRunner, tmuxDriver, registry, log)

	return &app{
		paths: paths, store: s, log: log, gate: g, oneshot: oneshotRunner,
		tmux: tmuxDriver, sessions: sessions, registry: registry, broadcasts: coordinator,
		closeDB: db.Close,
	}, nil
}

func (a *app) Close() error {
	return a.closeDB()
}

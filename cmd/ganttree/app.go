package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/ganttree/internal/datasource"
	"github.com/vanderheijden86/ganttree/pkg/config"
	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/expansion"
	"github.com/vanderheijden86/ganttree/pkg/gitlab"
	"github.com/vanderheijden86/ganttree/pkg/hierarchy"
	"github.com/vanderheijden86/ganttree/pkg/model"
	"github.com/vanderheijden86/ganttree/pkg/version"
)

// app is the wiring shared by the commands: the resolved source, the
// GitLab client and enricher when the source is remote, and the expansion
// state store.
type app struct {
	cfg      config.Config
	source   datasource.Source
	client   *gitlab.Client
	enricher *hierarchy.Enricher
	fetcher  *datasource.Fetcher

	closers []io.Closer
}

// stateKey names the view for state namespaces and snapshots.
func stateKey(cfg config.Config) string {
	if cfg.Source.Project == "" && cfg.Source.Assignee != "" {
		return "@" + cfg.Source.Assignee
	}
	return cfg.Source.Project
}

// snapshotPath is the SQLite database holding fetched snapshots. It doubles
// as the state database when the sqlite backend is selected.
func snapshotPath(cfg config.Config) string {
	if backend, _ := datasource.ParseStateBackend(cfg.State.Backend); backend == datasource.StateSQLite && cfg.State.Path != "" {
		return cfg.State.Path
	}
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return datasource.DefaultStatePath(datasource.StateSQLite, dir)
}

func newApp(cfg config.Config) (*app, error) {
	src, err := datasource.ResolveSource(cfg.Source.File, stateKey(cfg), snapshotPath(cfg), cfg.Source.Offline)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, source: src}

	a.fetcher = &datasource.Fetcher{
		Source:    src,
		Hierarchy: cfg.Hierarchy.Enabled,
		Links:     cfg.Hierarchy.Links,
	}
	if src.Type != datasource.SourceTypeGitLab {
		return a, nil
	}

	a.client, err = gitlab.New(cfg.Source.Instance,
		gitlab.WithToken(cfg.Source.Token),
		gitlab.WithUserAgent("ganttree/"+version.Version),
	)
	if err != nil {
		return nil, err
	}
	a.enricher = hierarchy.NewEnricher(a.client,
		hierarchy.WithBatchSize(cfg.Hierarchy.BatchSize),
		hierarchy.WithConcurrency(cfg.Hierarchy.Concurrency),
	)
	a.fetcher.Transport = a.client
	a.fetcher.Enricher = a.enricher

	if path := snapshotPath(cfg); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			debug.Warn("create snapshot directory", err)
		} else if db, err := datasource.OpenSQLite(path); err != nil {
			debug.Warn("open snapshot cache", err)
		} else {
			a.fetcher.Snapshots = db
			a.closers = append(a.closers, db)
		}
	}
	return a, nil
}

// listOptions is the view the configuration asks for.
func (a *app) listOptions() model.ListOptions {
	return model.ListOptions{Project: a.cfg.Source.Project, Assignee: a.cfg.Source.Assignee}
}

// openStore opens the expansion state of the configured view.
func openStore(cfg config.Config) (*expansion.Store, io.Closer, error) {
	backend, err := datasource.ParseStateBackend(cfg.State.Backend)
	if err != nil {
		return nil, nil, err
	}
	path := cfg.State.Path
	if path == "" {
		dir := config.StateDir()
		if dir == "" && backend != datasource.StateMemory {
			return nil, nil, fmt.Errorf("cannot determine state directory; set state.path")
		}
		path = datasource.DefaultStatePath(backend, dir)
	}
	namespace := stateKey(cfg)
	if namespace == "" {
		namespace = cfg.Source.File
	}
	kv, closer, err := datasource.OpenState(backend, path, namespace)
	if err != nil {
		return nil, nil, err
	}
	key := expansion.StateKey
	if backend == datasource.StateFile && namespace != "" {
		key = expansion.StateKey + ":" + namespace
	}
	return expansion.NewWithKey(kv, key), closer, nil
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

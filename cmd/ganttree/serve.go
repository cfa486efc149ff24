package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ganttree/internal/server"
	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/tree"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the issue tree over HTTP",
		Long: `Start an HTTP server with a JSON API for the tree. Expansion state is
kept per browser session.

Routes:
  GET  /api/tree                 visible rows (filter, filterMode, expanded, all)
  GET  /api/tasks                flat filtered list
  GET  /api/expanded             expanded ids of the session
  POST /api/tasks/{id}/toggle    also /expand and /collapse
  POST /api/expand-all           and /api/collapse-all
  GET  /api/tasks/{id}/children  fetch children from GitLab
  GET  /api/tasks/{id}/hierarchy parent of one task as GitLab reports it
  GET  /api/stats                timing and cache metrics`,
		Example: `  ganttree serve -p group/app --port 8080`,
		RunE:    runServe,
	}
	cmd.Flags().Int("port", 0, "port to serve on (default 8080)")
	cmd.Flags().String("mode", "", "default filter mode (simple|regex)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := getConfig(cmd)
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	mode, err := tree.ParseFilterMode(cfg.Filter.Mode)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if debug.Enabled() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	scfg := server.Config{
		Source:        a.fetcher,
		Project:       cfg.Source.Project,
		Assignee:      cfg.Source.Assignee,
		Port:          cfg.Server.Port,
		SessionSecret: cfg.Server.SessionSecret,
		DefaultMode:   mode,
		Logger:        logger,
	}
	if a.enricher != nil {
		scfg.Children = a.enricher
	}
	srv, err := server.New(scfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on http://localhost:%d\n", a.source, cfg.Server.Port)
	fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to stop")
	return srv.Serve(cmd.Context())
}

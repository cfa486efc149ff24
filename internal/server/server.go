// Package server exposes the issue tree over HTTP. Expansion state is kept
// per browser session in a signed cookie.
package server

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/ganttree/internal/datasource"
	"github.com/vanderheijden86/ganttree/pkg/model"
	"github.com/vanderheijden86/ganttree/pkg/tree"
)

// TaskSource loads the task list of a view. *datasource.Fetcher satisfies
// it.
type TaskSource interface {
	Fetch(ctx context.Context, opts model.ListOptions) (datasource.Result, error)
}

// ChildFetcher loads the children of one task. *hierarchy.Enricher
// satisfies it.
type ChildFetcher interface {
	FetchChildren(ctx context.Context, project string, parent *model.Task) []*model.Task
}

// HierarchyLookup answers the hierarchy of a single task. A ChildFetcher
// that also implements it enables the hierarchy endpoint.
type HierarchyLookup interface {
	Lookup(ctx context.Context, project, id string) (model.HierarchyInfo, bool)
}

// Config holds configuration for the server.
type Config struct {
	Source   TaskSource
	Children ChildFetcher // optional
	Project  string
	Assignee string

	Port          int
	SessionSecret string
	DefaultMode   tree.FilterMode
	Logger        *slog.Logger
}

// Server serves the tree API.
type Server struct {
	source   TaskSource
	children ChildFetcher
	project  string
	assignee string
	mode     tree.FilterMode
	port     int

	sessionStore *sessions.CookieStore
	builder      *tree.Builder
	logger       *slog.Logger
}

// New creates a server. Without a session secret a random key is used, so
// sessions do not survive a restart.
func New(cfg Config) (*Server, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("server needs a task source")
	}
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating session key: %w", err)
		}
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.MaxAge(86400 * 30)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := cfg.DefaultMode
	if mode == "" {
		mode = tree.ModeSimple
	}
	return &Server{
		source:       cfg.Source,
		children:     cfg.Children,
		project:      cfg.Project,
		assignee:     cfg.Assignee,
		mode:         mode,
		port:         cfg.Port,
		sessionStore: sessionStore,
		builder:      tree.NewBuilder(),
		logger:       logger,
	}, nil
}

// Handler returns the routed handler with middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/tree", s.handleTree)
		r.Get("/tasks", s.handleTasks)
		r.Get("/expanded", s.handleExpanded)
		r.Post("/expand-all", s.handleExpandAll)
		r.Post("/collapse-all", s.handleCollapseAll)
		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Post("/toggle", s.handleToggle)
			r.Post("/expand", s.handleExpand)
			r.Post("/collapse", s.handleCollapse)
			r.Get("/children", s.handleChildren)
			r.Get("/hierarchy", s.handleHierarchy)
		})
		r.Get("/stats", s.handleStats)
	})
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting tree server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down tree server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

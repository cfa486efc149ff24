package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ganttree/internal/datasource"
	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/expansion"
	"github.com/vanderheijden86/ganttree/pkg/model"
	"github.com/vanderheijden86/ganttree/pkg/tree"
	"github.com/vanderheijden86/ganttree/pkg/ui"
	"github.com/vanderheijden86/ganttree/pkg/watcher"
)

type treeOptions struct {
	All       bool
	ExpandAll bool
	Strict    bool
	JSON      bool
	NoDates   bool
	Watch     bool
	Page      int
}

func newTreeCmd() *cobra.Command {
	opts := &treeOptions{}

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the issue tree",
		Long: `Fetch or load tasks, resolve their hierarchy and print the forest.

Collapsed tasks hide their children unless --all is given. With a filter,
every task on the path to a match is shown and ancestors kept only for a
match are dimmed.`,
		Example: `  # Tree of a project
  ganttree tree -p group/app

  # Issues assigned to a user, filtered by pattern
  ganttree tree -a ada --filter '^API' --mode regex

  # Re-render whenever a snapshot file changes
  ganttree tree -f tasks.jsonl --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTree(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "show children of collapsed tasks")
	cmd.Flags().BoolVar(&opts.ExpandAll, "expand-all", false, "expand every task with children and save that state")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when parent links form a cycle")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the rows as JSON")
	cmd.Flags().BoolVar(&opts.NoDates, "no-dates", false, "hide start and due dates")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-render when the task file changes")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page of the issue list")
	cmd.Flags().String("filter", "", "only show tasks whose title matches (and their ancestors)")
	cmd.Flags().String("mode", "", "filter mode (simple|regex)")

	return cmd
}

// treeView is one rendered state of the tree.
type treeView struct {
	Rows    []*model.Task   `json:"rows"`
	Total   int             `json:"total"`
	Filter  string          `json:"filter,omitempty"`
	Mode    tree.FilterMode `json:"mode"`
	Source  string          `json:"source"`
	roots   []*model.Task
	showAll bool
}

// buildView loads tasks and derives the rows to show.
func buildView(ctx context.Context, a *app, store *expansion.Store, opts *treeOptions) (*treeView, error) {
	mode, err := tree.ParseFilterMode(a.cfg.Filter.Mode)
	if err != nil {
		return nil, err
	}
	listOpts := a.listOptions()
	listOpts.Page = opts.Page
	res, err := a.fetcher.Fetch(ctx, listOpts)
	if err != nil {
		return nil, err
	}

	builder := tree.NewBuilder(tree.WithExpansion(store))
	var roots []*model.Task
	if opts.Strict {
		if roots, err = builder.BuildStrict(res.Tasks); err != nil {
			return nil, err
		}
	} else {
		roots = builder.Build(res.Tasks)
	}
	if opts.ExpandAll {
		store.ExpandAll(res.Tasks)
		builder.ApplyExpansion(roots)
	}

	term := a.cfg.Filter.Term
	if mode == tree.ModePattern && strings.TrimSpace(term) != "" {
		if err := tree.ValidatePattern(term); err != nil {
			return nil, err
		}
	}
	filtered := tree.FilterTree(roots, term, mode)

	v := &treeView{
		Total:   len(res.Tasks),
		Filter:  term,
		Mode:    mode,
		Source:  res.Source,
		roots:   filtered,
		showAll: opts.All || strings.TrimSpace(term) != "",
	}
	if v.showAll {
		v.Rows = tree.FlattenTree(filtered)
	} else {
		v.Rows = tree.VisibleTasks(filtered)
	}
	return v, nil
}

func printView(w io.Writer, v *treeView, opts *treeOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	r := ui.NewRenderer(w)
	r.Term = v.Filter
	r.Mode = v.Mode
	r.All = v.showAll
	r.ShowDates = !opts.NoDates
	if len(v.roots) == 0 {
		_, err := fmt.Fprintln(w, r.Theme.Warning.Render("No tasks to show."))
		return err
	}
	if _, err := r.Render(w, v.roots); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, r.Summary(len(v.Rows), v.Total, v.Filter))
	return err
}

func runTree(cmd *cobra.Command, opts *treeOptions) error {
	cfg := getConfig(cmd)
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	store, closer, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	out := cmd.OutOrStdout()
	render := func() error {
		v, err := buildView(cmd.Context(), a, store, opts)
		if err != nil {
			return err
		}
		return printView(out, v, opts)
	}
	if err := render(); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	if a.source.Type != datasource.SourceTypeJSONL {
		return errors.New("--watch needs a task file (--file)")
	}
	return watchTree(cmd.Context(), a.source.Path, cmd.ErrOrStderr(), render)
}

// watchTree calls render after every change of path until ctx is done.
func watchTree(ctx context.Context, path string, errOut io.Writer, render func() error) error {
	w, err := watcher.New(path, watcher.WithOnError(func(err error) {
		debug.Warn("watch "+path, err)
	}))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	mode := "fsnotify"
	if w.IsPolling() {
		mode = "polling"
	}
	fmt.Fprintf(errOut, "Watching %s (%s). Press Ctrl+C to stop.\n", path, mode)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changed():
			fmt.Fprintf(errOut, "\n── %s changed at %s ──\n", path, time.Now().Format("15:04:05"))
			if err := render(); err != nil {
				fmt.Fprintf(errOut, "Error: %v\n", err)
			}
		}
	}
}

package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/hierarchy"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// Fetcher loads the task list of a view from a resolved source. Remote
// results go through hierarchy enrichment and, when Snapshots is set, are
// cached for offline use.
type Fetcher struct {
	Source    Source
	Transport hierarchy.Transport
	Enricher  *hierarchy.Enricher

	// Hierarchy enables parent resolution. Links switches remote
	// resolution to the issue link listing.
	Hierarchy bool
	Links     bool

	Snapshots *SQLiteDB
}

// Result is one fetched task list.
type Result struct {
	Tasks      []*model.Task    `json:"tasks"`
	Pagination model.Pagination `json:"pagination"`
	Stats      hierarchy.Stats  `json:"stats"`
	Source     string           `json:"source"`

	// Changes compares the result against the previous snapshot of the
	// same view. Nil when there was none.
	Changes *SnapshotDiff `json:"changes,omitempty"`
}

// SnapshotKey is the snapshot name of a view: the project path, or
// "@assignee" for the assigned-to view.
func SnapshotKey(opts model.ListOptions) string {
	if opts.Project == "" && opts.Assignee != "" {
		return "@" + opts.Assignee
	}
	return opts.Project
}

// Fetch loads tasks for opts. An empty opts.Project uses the source's
// project unless an assignee is given.
func (f *Fetcher) Fetch(ctx context.Context, opts model.ListOptions) (Result, error) {
	defer debug.LogEnterExit("fetch " + f.Source.String())()
	if opts.Project == "" && opts.Assignee == "" {
		opts.Project = f.Source.Project
	}
	res := Result{Source: f.Source.String()}

	if f.Source.Type != SourceTypeGitLab {
		source := f.Source
		if source.Type == SourceTypeSnapshot {
			source.Project = SnapshotKey(opts)
		}
		tasks, err := LoadLocal(source)
		if err != nil {
			return Result{}, err
		}
		res.Tasks = tasks
		res.Pagination = model.Pagination{Page: 1, PageSize: len(tasks), Total: len(tasks)}
		if f.Hierarchy {
			res.Stats = hierarchy.TitleResolver{}.Resolve(ctx, opts.Project, tasks)
		}
		return res, nil
	}

	if f.Transport == nil {
		return Result{}, fmt.Errorf("%s: no client configured", f.Source)
	}
	enricher := f.Enricher
	if enricher == nil {
		enricher = hierarchy.NewEnricher(f.Transport)
	}

	var page model.TaskPage
	var err error
	switch {
	case opts.Project == "" && opts.Assignee != "":
		page, err = enricher.AssignedTo(ctx, opts)
	case !f.Hierarchy:
		page, err = f.Transport.ListIssues(ctx, opts.Normalize())
		model.SortByDue(page.Tasks)
	case f.Links:
		page, err = f.Transport.ListIssues(ctx, opts.Normalize())
		if err == nil {
			res.Stats = enricher.EnrichWithLinks(ctx, opts.Project, page.Tasks)
			model.SortByDue(page.Tasks)
		}
	default:
		page, res.Stats, err = enricher.ProjectIssues(ctx, opts)
	}
	if err != nil {
		return Result{}, err
	}
	res.Tasks = page.Tasks
	res.Pagination = page.Pagination

	if f.Snapshots != nil {
		if key := SnapshotKey(opts); key != "" {
			if prev, _, err := f.Snapshots.LoadSnapshot(key); err == nil {
				diff := DiffSnapshots(prev, res.Tasks)
				res.Changes = &diff
				debug.Log("snapshot %s: %s", key, diff.Summary())
			}
			if err := f.Snapshots.SaveSnapshot(key, res.Tasks); err != nil {
				debug.Warn("save snapshot", err)
			}
		}
	}
	return res, nil
}

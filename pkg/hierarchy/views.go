package hierarchy

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// AssignedTo lists one page of issues assigned to opts.Assignee across
// projects, resolves the parents of child-type tasks and adds absent parents
// as dimmed context. The list is ordered by due date. Tasks with a project
// path get qualified ids ("group/app#12"), since iids repeat across
// projects.
//
// Only the list request itself can fail.
func (e *Enricher) AssignedTo(ctx context.Context, opts model.ListOptions) (model.TaskPage, error) {
	if e.transport == nil {
		return model.TaskPage{}, fmt.Errorf("no transport configured")
	}
	opts = opts.Normalize()
	opts.Project = ""
	page, err := e.transport.ListIssues(ctx, opts)
	if err != nil {
		return model.TaskPage{}, fmt.Errorf("listing issues assigned to %s: %w", opts.Assignee, err)
	}
	page.Tasks = e.FetchMissingParents(ctx, page.Tasks)
	model.QualifyIDs(page.Tasks)
	model.SortByDue(page.Tasks)
	return page, nil
}

// ProjectIssues lists one page of a project's issues and enriches their
// hierarchy.
func (e *Enricher) ProjectIssues(ctx context.Context, opts model.ListOptions) (model.TaskPage, Stats, error) {
	if e.transport == nil {
		return model.TaskPage{}, Stats{}, fmt.Errorf("no transport configured")
	}
	if opts.Project == "" {
		return model.TaskPage{}, Stats{}, fmt.Errorf("project path is required")
	}
	opts = opts.Normalize()
	page, err := e.transport.ListIssues(ctx, opts)
	if err != nil {
		return model.TaskPage{}, Stats{}, fmt.Errorf("listing issues of %s: %w", opts.Project, err)
	}
	stats := e.Enrich(ctx, opts.Project, page.Tasks)
	model.SortByDue(page.Tasks)
	return page, stats, nil
}

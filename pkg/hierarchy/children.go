package hierarchy

import (
	"context"
	"time"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/metrics"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// FetchChildPages follows the children cursor of id until the source reports
// no further page and returns every child seen. A failed request stops the
// walk; the children gathered so far are returned with HasMore false and an
// empty cursor.
func (e *Enricher) FetchChildPages(ctx context.Context, project, id string) model.ChildrenPage {
	defer metrics.Timer(metrics.ChildrenFetch)()

	var out model.ChildrenPage
	if e.transport == nil || id == "" {
		return out
	}

	cursor := ""
	seen := make(map[string]bool)
	for {
		page, err := e.transport.FetchChildren(ctx, project, id, cursor)
		if err != nil {
			debug.Warn("children of "+id, err)
			return model.ChildrenPage{Children: out.Children}
		}
		out.Children = append(out.Children, page.Children...)
		if !page.HasMore || page.EndCursor == "" {
			return model.ChildrenPage{Children: out.Children}
		}
		if seen[page.EndCursor] {
			debug.Log("hierarchy: children cursor of %s repeated, stopping", id)
			return model.ChildrenPage{Children: out.Children}
		}
		seen[page.EndCursor] = true
		cursor = page.EndCursor
	}
}

// FetchChildren returns the children of parent as tasks. Children inherit
// the parent's dates until their own are fetched and sit one level below
// it. A qualified parent id overrides project and gives qualified children.
func (e *Enricher) FetchChildren(ctx context.Context, project string, parent *model.Task) []*model.Task {
	if parent == nil || parent.ID == "" {
		return nil
	}
	qualified, iid := model.SplitID(parent.ID)
	if qualified != "" {
		project = qualified
	}
	page := e.FetchChildPages(ctx, project, iid)

	children := make([]*model.Task, 0, len(page.Children))
	for _, ref := range page.Children {
		id := ref.ID
		if qualified != "" {
			id = model.QualifiedID(project, ref.ID)
		}
		child := model.NewTask(id, ref.Title)
		child.URL = ref.URL
		child.ProjectPath = project
		child.Start = copyTime(parent.Start)
		child.Due = copyTime(parent.Due)
		child.ParentID = parent.ID
		child.Depth = parent.Depth + 1
		children = append(children, child)
	}
	return children
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

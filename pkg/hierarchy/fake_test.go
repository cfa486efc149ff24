package hierarchy

import (
	"context"
	"errors"
	"sync"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

var errUnavailable = errors.New("endpoint unavailable")

// fakeTransport answers from in-memory tables and records what it was asked.
type fakeTransport struct {
	mu sync.Mutex

	hierarchy  map[string]model.HierarchyInfo
	batchErr   func(batch []string) error
	childPages map[string][]model.ChildrenPage // id -> pages in cursor order
	childErrAt int                             // fail on this page index (0 = never)
	links      map[string][]model.Relation
	linkErr    map[string]bool
	issues     map[string]*model.Task // project/id -> task
	byIDErr    error
	list       model.TaskPage
	listErr    error

	batches      [][]string
	childCursors []string
	byIDCalls    [][]string
}

func newFake() *fakeTransport {
	return &fakeTransport{
		hierarchy:  map[string]model.HierarchyInfo{},
		childPages: map[string][]model.ChildrenPage{},
		links:      map[string][]model.Relation{},
		linkErr:    map[string]bool{},
		issues:     map[string]*model.Task{},
	}
}

func (f *fakeTransport) parent(child, parent string) {
	f.hierarchy[child] = model.HierarchyInfo{HasParent: true, Parent: &model.ParentRef{ID: parent}}
}

func (f *fakeTransport) FetchHierarchy(_ context.Context, _, id string) (model.HierarchyInfo, error) {
	info, ok := f.hierarchy[id]
	if !ok {
		return model.HierarchyInfo{}, errUnavailable
	}
	return info, nil
}

func (f *fakeTransport) FetchHierarchyBatch(_ context.Context, _ string, ids []string) (map[string]model.HierarchyInfo, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), ids...))
	f.mu.Unlock()
	if f.batchErr != nil {
		if err := f.batchErr(ids); err != nil {
			return nil, err
		}
	}
	out := map[string]model.HierarchyInfo{}
	for _, id := range ids {
		if info, ok := f.hierarchy[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

func (f *fakeTransport) FetchChildren(_ context.Context, _, id, cursor string) (model.ChildrenPage, error) {
	f.mu.Lock()
	f.childCursors = append(f.childCursors, cursor)
	n := len(f.childCursors)
	f.mu.Unlock()
	if f.childErrAt > 0 && n == f.childErrAt {
		return model.ChildrenPage{}, errUnavailable
	}
	pages := f.childPages[id]
	for i, p := range pages {
		prev := ""
		if i > 0 {
			prev = pages[i-1].EndCursor
		}
		if prev == cursor {
			return p, nil
		}
	}
	return model.ChildrenPage{}, nil
}

func (f *fakeTransport) FetchLinks(_ context.Context, _, id string) ([]model.Relation, error) {
	if f.linkErr[id] {
		return nil, errUnavailable
	}
	return f.links[id], nil
}

func (f *fakeTransport) ListIssues(_ context.Context, opts model.ListOptions) (model.TaskPage, error) {
	if f.listErr != nil {
		return model.TaskPage{}, f.listErr
	}
	page := f.list
	page.Pagination.Page = opts.Page
	page.Pagination.PageSize = opts.PerPage
	return page, nil
}

func (f *fakeTransport) FetchIssuesByID(_ context.Context, project string, ids []string) ([]*model.Task, error) {
	f.mu.Lock()
	f.byIDCalls = append(f.byIDCalls, append([]string(nil), ids...))
	f.mu.Unlock()
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	var out []*model.Task
	for _, id := range ids {
		if t, ok := f.issues[project+"/"+id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func issue(id, title string, hasChildren bool) *model.Task {
	t := model.NewTask(id, title)
	t.SetKind(model.KindIssue)
	t.HasChildrenHint = hasChildren
	return t
}

func childTask(id, title string) *model.Task {
	t := model.NewTask(id, title)
	t.SetKind(model.KindTask)
	return t
}

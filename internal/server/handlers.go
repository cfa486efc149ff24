package server

import (
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ganttree/internal/datasource"
	"github.com/vanderheijden86/ganttree/pkg/expansion"
	"github.com/vanderheijden86/ganttree/pkg/hierarchy"
	"github.com/vanderheijden86/ganttree/pkg/metrics"
	"github.com/vanderheijden86/ganttree/pkg/model"
	"github.com/vanderheijden86/ganttree/pkg/tree"
	"github.com/vanderheijden86/ganttree/pkg/ui"
)

// Row is one task of a tree response.
type Row struct {
	*model.Task
	TitleHTML string `json:"title_html,omitempty"`
}

// TreeResponse is the body of GET /api/tree.
type TreeResponse struct {
	Rows         []Row            `json:"rows"`
	Total        int              `json:"total"`
	Visible      int              `json:"visible"`
	Filter       string           `json:"filter,omitempty"`
	Mode         tree.FilterMode  `json:"mode"`
	PatternError string           `json:"pattern_error,omitempty"`
	Expanded     []string         `json:"expanded"`
	Pagination   model.Pagination `json:"pagination"`
	Stats        hierarchy.Stats  `json:"stats"`
	Share        string           `json:"share"`
}

// ExpansionResponse is the body of the expansion endpoints.
type ExpansionResponse struct {
	ID       string   `json:"id,omitempty"`
	State    *bool    `json:"expanded_state,omitempty"`
	Expanded []string `json:"expanded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) expansion(w http.ResponseWriter, r *http.Request) *expansion.Store {
	return expansion.New(NewSessionKV(s.sessionStore, w, r))
}

func (s *Server) viewState(r *http.Request) ui.ViewState {
	q := r.URL.Query()
	vs := ui.ParseViewState(q)
	if !q.Has(ui.ParamFilterMode) {
		vs.Mode = s.mode
	}
	if vs.Project == "" && vs.Assignee == "" {
		vs.Project = s.project
		vs.Assignee = s.assignee
	}
	return vs
}

func (s *Server) fetch(r *http.Request, vs ui.ViewState) (datasource.Result, []*model.Task, error) {
	defer metrics.TimerWithCallback(metrics.SourceFetch, func(d time.Duration) {
		s.logger.Debug("fetched tasks", "project", vs.Project, "assignee", vs.Assignee, "duration", d)
	})()
	res, err := s.source.Fetch(r.Context(), model.ListOptions{
		Project:  vs.Project,
		Assignee: vs.Assignee,
		Page:     vs.Page,
		State:    r.URL.Query().Get("state"),
	})
	if err != nil {
		return datasource.Result{}, nil, err
	}
	// Building mutates tasks, and a source may hand out the same records to
	// concurrent requests.
	tasks := make([]*model.Task, 0, len(res.Tasks))
	for _, t := range res.Tasks {
		if t == nil {
			continue
		}
		c := t.Clone()
		c.Children = nil
		tasks = append(tasks, c)
	}
	return res, tasks, nil
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	vs := s.viewState(r)
	store := s.expansion(w, r)
	store.ExpandIDs(vs.Expanded...)

	res, tasks, err := s.fetch(r, vs)
	if err != nil {
		s.logger.Error("fetching tasks", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := TreeResponse{
		Total:      len(tasks),
		Filter:     vs.Filter,
		Mode:       vs.Mode,
		Pagination: res.Pagination,
		Stats:      res.Stats,
	}
	if vs.Mode == tree.ModePattern && strings.TrimSpace(vs.Filter) != "" {
		if err := tree.ValidatePattern(vs.Filter); err != nil {
			resp.PatternError = err.Error()
		}
	}

	builder := tree.NewBuilder(tree.WithExpansion(store))
	roots := builder.Build(tasks)
	s.attachCachedChildren(roots)
	filtered := tree.FilterTree(roots, vs.Filter, vs.Mode)

	var rows []*model.Task
	if r.URL.Query().Get("all") == "1" || strings.TrimSpace(vs.Filter) != "" {
		rows = tree.FlattenTree(filtered)
	} else {
		rows = tree.VisibleTasks(filtered)
	}

	resp.Rows = make([]Row, len(rows))
	for i, t := range rows {
		resp.Rows[i] = Row{Task: t}
		if t.MatchesFilter && strings.TrimSpace(vs.Filter) != "" {
			resp.Rows[i].TitleHTML = highlightHTML(t.Title, vs.Filter, vs.Mode)
		}
	}
	resp.Visible = len(rows)
	resp.Expanded = store.ExpandedIDs()

	share := vs
	share.Expanded = resp.Expanded
	resp.Share = share.Values().Encode()

	writeJSON(w, http.StatusOK, resp)
}

// attachCachedChildren gives expanded tasks that only carry a children hint
// the children fetched for them earlier.
func (s *Server) attachCachedChildren(roots []*model.Task) {
	var walk func(t *model.Task)
	walk = func(t *model.Task) {
		if t.Expanded && len(t.Children) == 0 && t.HasChildrenHint {
			probe := &model.Task{ID: t.ID}
			if s.builder.LoadCachedChildren(probe) {
				for _, c := range probe.Children {
					cc := c.Clone()
					cc.Children = nil
					cc.ParentID = t.ID
					cc.Depth = t.Depth + 1
					t.Children = append(t.Children, cc)
				}
				t.HasChildren = len(t.Children) > 0
			}
		}
		for _, c := range t.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
}

func highlightHTML(title, term string, mode tree.FilterMode) string {
	const markStart, markEnd = "\x00", "\x01"
	marked := tree.HighlightMatchesFunc(title, term, mode, func(m string) string {
		return markStart + m + markEnd
	})
	escaped := html.EscapeString(marked)
	return strings.NewReplacer(markStart, "<mark>", markEnd, "</mark>").Replace(escaped)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	vs := s.viewState(r)
	_, tasks, err := s.fetch(r, vs)
	if err != nil {
		s.logger.Error("fetching tasks", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tree.FilterTasks(tasks, vs.Filter, vs.Mode))
}

func (s *Server) handleExpanded(w http.ResponseWriter, r *http.Request) {
	store := s.expansion(w, r)
	writeJSON(w, http.StatusOK, ExpansionResponse{Expanded: store.ExpandedIDs()})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := taskID(r)
	store := s.expansion(w, r)
	state := store.Toggle(id)
	writeJSON(w, http.StatusOK, ExpansionResponse{ID: id, State: &state, Expanded: store.ExpandedIDs()})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	id := taskID(r)
	store := s.expansion(w, r)
	store.Expand(id)
	state := true
	writeJSON(w, http.StatusOK, ExpansionResponse{ID: id, State: &state, Expanded: store.ExpandedIDs()})
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	id := taskID(r)
	store := s.expansion(w, r)
	store.Collapse(id)
	state := false
	writeJSON(w, http.StatusOK, ExpansionResponse{ID: id, State: &state, Expanded: store.ExpandedIDs()})
}

func (s *Server) handleExpandAll(w http.ResponseWriter, r *http.Request) {
	vs := s.viewState(r)
	_, tasks, err := s.fetch(r, vs)
	if err != nil {
		s.logger.Error("fetching tasks", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	tree.BuildTree(tasks)
	store := s.expansion(w, r)
	store.ExpandAll(tasks)
	writeJSON(w, http.StatusOK, ExpansionResponse{Expanded: store.ExpandedIDs()})
}

func (s *Server) handleCollapseAll(w http.ResponseWriter, r *http.Request) {
	store := s.expansion(w, r)
	store.Clear()
	writeJSON(w, http.StatusOK, ExpansionResponse{Expanded: store.ExpandedIDs()})
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	if s.children == nil {
		writeError(w, http.StatusNotImplemented, "child fetching is not available for this source")
		return
	}
	id := taskID(r)
	vs := s.viewState(r)
	_, tasks, err := s.fetch(r, vs)
	if err != nil {
		s.logger.Error("fetching tasks", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	var parent *model.Task
	for _, t := range tasks {
		if t.ID == id {
			parent = t
			break
		}
	}
	if parent == nil {
		writeError(w, http.StatusNotFound, "task "+id+" not found")
		return
	}

	project := parent.ProjectPath
	if project == "" {
		project = vs.Project
	}
	children := s.children.FetchChildren(r.Context(), project, parent)
	parent.Children = children
	parent.HasChildren = len(children) > 0
	s.builder.CacheChildren(parent)

	if children == nil {
		children = []*model.Task{}
	}
	writeJSON(w, http.StatusOK, struct {
		Parent   string        `json:"parent"`
		Children []*model.Task `json:"children"`
	}{Parent: id, Children: children})
}

// taskID is the {id} route parameter. Qualified ids ("group/app#12") arrive
// path-escaped.
func taskID(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

// HierarchyResponse is the hierarchy of one task as the remote reports it.
type HierarchyResponse struct {
	ID          string `json:"id"`
	ParentID    string `json:"parent_id,omitempty"`
	ParentTitle string `json:"parent_title,omitempty"`
	HasChildren bool   `json:"has_children"`
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	lookup, ok := s.children.(HierarchyLookup)
	if !ok {
		writeError(w, http.StatusNotImplemented, "hierarchy lookup is not available for this source")
		return
	}
	id := taskID(r)
	info, found := lookup.Lookup(r.Context(), s.viewState(r).Project, id)
	if !found {
		writeError(w, http.StatusNotFound, "no hierarchy for task "+id)
		return
	}
	resp := HierarchyResponse{ID: id, ParentID: info.ParentID(), HasChildren: info.HasChildren}
	if project, _ := model.SplitID(id); project != "" {
		resp.ParentID = model.QualifiedID(project, resp.ParentID)
	}
	if info.Parent != nil {
		resp.ParentTitle = info.Parent.Title
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metrics.TakeSnapshot())
}

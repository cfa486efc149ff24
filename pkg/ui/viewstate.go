package ui

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/tree"
)

// Query parameter names of a shareable view.
const (
	ParamProject    = "project"
	ParamAssignee   = "assigneeUsername"
	ParamPage       = "tasksPage"
	ParamFilter     = "filter"
	ParamFilterMode = "filterMode"
	ParamExpanded   = "expanded"
)

// ViewState is the part of a tree view that can be carried in a URL query.
type ViewState struct {
	Project  string          `json:"project,omitempty"`
	Assignee string          `json:"assignee,omitempty"`
	Page     int             `json:"page,omitempty"`
	Filter   string          `json:"filter,omitempty"`
	Mode     tree.FilterMode `json:"mode"`
	Expanded []string        `json:"expanded,omitempty"`
}

// ParseViewState reads a view from query values. Unknown filter modes fall
// back to simple, non-positive pages are ignored and the expanded list is
// split on commas with blanks dropped.
func ParseViewState(q url.Values) ViewState {
	vs := ViewState{
		Project:  strings.TrimSpace(q.Get(ParamProject)),
		Assignee: strings.TrimSpace(q.Get(ParamAssignee)),
		Filter:   q.Get(ParamFilter),
		Mode:     tree.ModeSimple,
	}
	if raw := q.Get(ParamPage); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			vs.Page = page
		}
	}
	if raw := q.Get(ParamFilterMode); raw != "" {
		mode, err := tree.ParseFilterMode(raw)
		if err != nil {
			debug.Log("ui: %v", err)
		}
		vs.Mode = mode
	}
	for _, raw := range q[ParamExpanded] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				vs.Expanded = append(vs.Expanded, id)
			}
		}
	}
	return vs
}

// Values encodes vs back into query values, omitting empty fields.
func (vs ViewState) Values() url.Values {
	q := url.Values{}
	if vs.Project != "" {
		q.Set(ParamProject, vs.Project)
	}
	if vs.Assignee != "" {
		q.Set(ParamAssignee, vs.Assignee)
	}
	if vs.Page > 0 {
		q.Set(ParamPage, strconv.Itoa(vs.Page))
	}
	if vs.Filter != "" {
		q.Set(ParamFilter, vs.Filter)
		if vs.Mode != "" && vs.Mode != tree.ModeSimple {
			q.Set(ParamFilterMode, string(vs.Mode))
		}
	}
	if len(vs.Expanded) > 0 {
		q.Set(ParamExpanded, strings.Join(vs.Expanded, ","))
	}
	return q
}

// Package model defines the task records positioned in the issue hierarchy.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is the native issue-type taxonomy of the source, reduced to what the
// hierarchy needs.
type Kind string

const (
	KindIssue Kind = "issue" // may own children
	KindTask  Kind = "task"  // always belongs under an issue
)

// Task is one issue-like record positioned in the hierarchy.
//
// ParentID is resolved by enrichment or inference; the last writer wins.
// HasChildrenHint comes from source metadata (e.g. GitLab has_tasks) while
// HasChildren is derived by the tree builder from attached children. The two
// are deliberately kept apart: filtering relies on the hint surviving when no
// child currently matches.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url,omitempty"`
	ProjectPath string     `json:"project_path,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	Due         *time.Time `json:"due,omitempty"`
	Closed      bool       `json:"closed,omitempty"`

	ParentID        string `json:"parent_id,omitempty"`
	IsParentType    bool   `json:"is_parent_type,omitempty"`
	IsChildType     bool   `json:"is_child_type,omitempty"`
	HasChildrenHint bool   `json:"has_children_hint,omitempty"`

	// Tree state. Rebuilt on every build; never persisted.
	HasChildren bool    `json:"has_children,omitempty"`
	Children    []*Task `json:"-"`
	Depth       int     `json:"depth"`

	// Display flags, computed by the tree and filter passes.
	Expanded      bool `json:"expanded"`
	Visible       bool `json:"visible"`
	MatchesFilter bool `json:"matches_filter"`
	Dimmed        bool `json:"dimmed"`
}

// NewTask returns a task with the display defaults of a freshly fetched
// record: visible, matching, not dimmed, collapsed.
func NewTask(id, title string) *Task {
	return &Task{
		ID:            id,
		Title:         title,
		Visible:       true,
		MatchesFilter: true,
	}
}

// SetKind sets the type hints. The parent and child hints are mutually
// exclusive.
func (t *Task) SetKind(k Kind) {
	switch k {
	case KindTask:
		t.IsChildType = true
		t.IsParentType = false
	default:
		t.IsParentType = true
		t.IsChildType = false
	}
}

// Kind reports the task's kind from its type hints.
func (t *Task) Kind() Kind {
	if t.IsChildType {
		return KindTask
	}
	return KindIssue
}

// Clone returns a shallow copy. The Children slice is shared with the
// original.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// ErrInvalidTask is returned by Validate.
var ErrInvalidTask = errors.New("invalid task")

// Validate checks the fields every task must carry.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTask)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: %s has an empty title", ErrInvalidTask, t.ID)
	}
	if t.IsParentType && t.IsChildType {
		return fmt.Errorf("%w: %s is both parent and child type", ErrInvalidTask, t.ID)
	}
	if t.ParentID != "" && t.ParentID == t.ID {
		return fmt.Errorf("%w: %s is its own parent", ErrInvalidTask, t.ID)
	}
	return nil
}

// EnsureDue fills Due with Start plus one day when only Start is known.
func (t *Task) EnsureDue() {
	if t.Due == nil && t.Start != nil {
		due := t.Start.AddDate(0, 0, 1)
		t.Due = &due
	}
}

// SortByDue orders tasks by due date, earliest first. Tasks without a due
// date follow the dated ones and keep their relative order; nil entries go
// last.
func SortByDue(tasks []*Task) {
	rank := func(t *Task) int {
		switch {
		case t == nil:
			return 2
		case t.Due == nil:
			return 1
		}
		return 0
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		ra, rb := rank(a), rank(b)
		if ra != rb || ra != 0 {
			return ra < rb
		}
		return a.Due.Before(*b.Due)
	})
}

// QualifiedID names a task by project and source id, "group/app#12", for
// lists that mix projects. Source ids are only unique within a project. An
// empty project returns id unchanged.
func QualifiedID(project, id string) string {
	if project == "" || id == "" {
		return id
	}
	return project + "#" + id
}

// SplitID undoes QualifiedID. A plain id returns an empty project.
func SplitID(id string) (project, sourceID string) {
	i := strings.LastIndex(id, "#")
	if i <= 0 {
		return "", id
	}
	return id[:i], id[i+1:]
}

// QualifyIDs rewrites the ID and ParentID of every task that has a project
// path to their qualified form. Parents are assumed to live in the child's
// project. Already qualified ids are left alone.
func QualifyIDs(tasks []*Task) {
	for _, t := range tasks {
		if t == nil || t.ProjectPath == "" {
			continue
		}
		if p, _ := SplitID(t.ID); p == "" {
			t.ID = QualifiedID(t.ProjectPath, t.ID)
		}
		if p, _ := SplitID(t.ParentID); p == "" {
			t.ParentID = QualifiedID(t.ProjectPath, t.ParentID)
		}
	}
}

package datasource

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// SnapshotDiff lists how a task list changed between two loads.
type SnapshotDiff struct {
	Added      []string      `json:"added,omitempty"`
	Removed    []string      `json:"removed,omitempty"`
	Reparented []ParentChange `json:"reparented,omitempty"`
	Retitled   []string      `json:"retitled,omitempty"`
	CountA     int           `json:"count_a"`
	CountB     int           `json:"count_b"`
}

// ParentChange records a task whose parent differs between snapshots.
type ParentChange struct {
	ID     string `json:"id"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Changed reports whether the snapshots differ.
func (d SnapshotDiff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Reparented) > 0 || len(d.Retitled) > 0
}

// Summary returns a short human-readable description of the diff.
func (d SnapshotDiff) Summary() string {
	if !d.Changed() {
		return fmt.Sprintf("no changes (%d tasks)", d.CountB)
	}
	var parts []string
	if n := len(d.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	if n := len(d.Reparented); n > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", n))
	}
	if n := len(d.Retitled); n > 0 {
		parts = append(parts, fmt.Sprintf("%d renamed", n))
	}
	return fmt.Sprintf("%s (%d -> %d tasks)", strings.Join(parts, ", "), d.CountA, d.CountB)
}

// DiffSnapshots compares two task lists by id. Result lists follow the
// order of the list the ids came from.
func DiffSnapshots(before, after []*model.Task) SnapshotDiff {
	diff := SnapshotDiff{CountA: len(before), CountB: len(after)}

	old := make(map[string]*model.Task, len(before))
	for _, t := range before {
		if t != nil {
			old[t.ID] = t
		}
	}
	seen := make(map[string]bool, len(after))
	for _, t := range after {
		if t == nil {
			continue
		}
		seen[t.ID] = true
		prev, ok := old[t.ID]
		if !ok {
			diff.Added = append(diff.Added, t.ID)
			continue
		}
		if prev.ParentID != t.ParentID {
			diff.Reparented = append(diff.Reparented, ParentChange{ID: t.ID, Before: prev.ParentID, After: t.ParentID})
		}
		if prev.Title != t.Title {
			diff.Retitled = append(diff.Retitled, t.ID)
		}
	}
	for _, t := range before {
		if t != nil && !seen[t.ID] {
			diff.Removed = append(diff.Removed, t.ID)
		}
	}
	return diff
}

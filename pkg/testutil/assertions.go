package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// AssertTaskCount verifies the expected number of tasks.
func AssertTaskCount(t *testing.T, tasks []*model.Task, expected int) {
	t.Helper()
	if len(tasks) != expected {
		t.Errorf("expected %d tasks, got %d", expected, len(tasks))
	}
}

// AssertNoDuplicateIDs verifies every task appears once.
func AssertNoDuplicateIDs(t *testing.T, tasks []*model.Task) {
	t.Helper()
	seen := make(map[string]bool)
	for _, task := range tasks {
		if seen[task.ID] {
			t.Errorf("duplicate task ID: %s", task.ID)
		}
		seen[task.ID] = true
	}
}

// AssertDepthsConsistent verifies every task in a flattened forest sits one
// level below its parent, and roots at depth 0.
func AssertDepthsConsistent(t *testing.T, flat []*model.Task) {
	t.Helper()
	byID := BuildTaskMap(flat)
	for _, task := range flat {
		parent, ok := byID[task.ParentID]
		if !ok {
			if task.Depth != 0 {
				t.Errorf("task %s has no parent in list but depth %d", task.ID, task.Depth)
			}
			continue
		}
		if task.Depth != parent.Depth+1 {
			t.Errorf("task %s depth %d, parent %s depth %d", task.ID, task.Depth, parent.ID, parent.Depth)
		}
	}
}

// AssertParent verifies the parent of the task with the given id.
func AssertParent(t *testing.T, tasks []*model.Task, id, parentID string) {
	t.Helper()
	task := FindTask(tasks, id)
	if task == nil {
		t.Errorf("task %s not found", id)
		return
	}
	if task.ParentID != parentID {
		t.Errorf("task %s: expected parent %q, got %q", id, parentID, task.ParentID)
	}
}

// WriteTasksFile writes tasks as JSONL to name inside a temp dir and
// returns the path.
func WriteTasksFile(t *testing.T, name string, tasks []*model.Task) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(ToJSONL(tasks)), 0o644); err != nil {
		t.Fatalf("failed to write tasks file: %v", err)
	}
	return path
}

// BuildTaskMap indexes tasks by id.
func BuildTaskMap(tasks []*model.Task) map[string]*model.Task {
	m := make(map[string]*model.Task, len(tasks))
	for _, task := range tasks {
		m[task.ID] = task
	}
	return m
}

// FindTask returns the task with the given id, or nil.
func FindTask(tasks []*model.Task, id string) *model.Task {
	for _, task := range tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}

// GetIDs returns the ids of tasks in order.
func GetIDs(tasks []*model.Task) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

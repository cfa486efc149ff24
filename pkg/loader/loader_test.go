package loader

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/ganttree/pkg/model"
	"github.com/vanderheijden86/ganttree/pkg/testutil"
)

func TestParseTasksSkipsBadLines(t *testing.T) {
	input := "\xEF\xBB\xBF" + `{"id":"1","title":"Epic","is_parent_type":true,"has_children_hint":true}
not json

{"id":"","title":"no id"}
{"id":" 2 ","title":"Epic - child","parent_id":" 1 ","is_child_type":true}
`
	var warnings []string
	tasks, err := ParseTasksWithOptions(strings.NewReader(input), ParseOptions{
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertTaskCount(t, tasks, 2)
	testutil.AssertParent(t, tasks, "2", "1")
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}
	if !tasks[0].Visible || !tasks[0].MatchesFilter {
		t.Error("parsed tasks should default to visible and matching")
	}
}

func TestParseTasksLongLine(t *testing.T) {
	long := `{"id":"1","title":"` + strings.Repeat("x", 200) + `"}`
	input := long + "\n" + `{"id":"2","title":"short"}` + "\n"
	var warned bool
	tasks, err := ParseTasksWithOptions(strings.NewReader(input), ParseOptions{
		BufferSize:     64,
		WarningHandler: func(string) { warned = true },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != "2" || !warned {
		t.Errorf("expected only the short task with a warning, got %v warned=%v", testutil.GetIDs(tasks), warned)
	}
}

func TestTaskFilter(t *testing.T) {
	input := testutil.ToJSONL(testutil.QuickChain(4))
	tasks, err := ParseTasksWithOptions(strings.NewReader(input), ParseOptions{
		TaskFilter: func(t *model.Task) bool { return t.ParentID != "" },
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertTaskCount(t, tasks, 3)
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "tasks.jsonl")
	want := testutil.QuickTree(2, 2)
	if err := SaveTasksToFile(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadTasksFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertTaskCount(t, got, len(want))
	for i := range want {
		if got[i].ID != want[i].ID || got[i].ParentID != want[i].ParentID {
			t.Errorf("task %d: got %s/%s want %s/%s", i, got[i].ID, got[i].ParentID, want[i].ID, want[i].ParentID)
		}
		if got[i].Start == nil || !got[i].Start.Equal(*want[i].Start) {
			t.Errorf("task %d: start not preserved", i)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadTasksFromFile(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteTasksSkipsNil(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTasks(&buf, []*model.Task{nil, model.NewTask("1", "a")}); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected one line, got %q", buf.String())
	}
}

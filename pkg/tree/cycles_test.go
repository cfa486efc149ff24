package tree

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/ganttree/pkg/model"
	"github.com/vanderheijden86/ganttree/pkg/testutil"
)

func TestDetectParentCycles(t *testing.T) {
	tasks := []*model.Task{
		task("r", "root", ""),
		task("a", "a", "b"),
		task("b", "b", "a"),
		task("s", "self", "s"),
		task("x", "x", "y"),
		task("y", "y", "z"),
		task("z", "z", "x"),
		task("leaf", "leaf", "a"),
		task("dangling", "dangling", "nowhere"),
	}
	got := DetectParentCycles(tasks)
	want := [][]string{{"a", "b"}, {"s"}, {"x", "y", "z"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DetectParentCycles() = %v, want %v", got, want)
	}
}

func TestDetectParentCyclesNone(t *testing.T) {
	if got := DetectParentCycles(testutil.QuickTree(3, 2)); len(got) != 0 {
		t.Errorf("expected no cycles in a tree, got %v", got)
	}
}

func TestDetectParentCyclesGenerated(t *testing.T) {
	g := testutil.NewDefault()
	for _, f := range []testutil.Fixture{g.SelfLoop(), g.Cycle(4)} {
		tasks := g.ToTasks(f)
		got := DetectParentCycles(tasks)
		if len(got) != 1 || len(got[0]) != len(f.Nodes) {
			t.Errorf("%s: expected one cycle over every node, got %v", f.Description, got)
		}
		if roots := BuildTree(tasks); len(roots) != 0 {
			t.Errorf("%s: cycle members must not become roots, got %d", f.Description, len(roots))
		}
	}
}

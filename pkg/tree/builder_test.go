package tree

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/ganttree/pkg/model"
	"github.com/vanderheijden86/ganttree/pkg/testutil"
)

func task(id, title, parent string) *model.Task {
	t := model.NewTask(id, title)
	t.ParentID = parent
	return t
}

type staticExpansion map[string]bool

func (s staticExpansion) IsExpanded(id string) bool { return s[id] }

func TestBuildTreeEmpty(t *testing.T) {
	if roots := BuildTree(nil); len(roots) != 0 {
		t.Errorf("expected no roots, got %d", len(roots))
	}
}

func TestBuildTreeParentChild(t *testing.T) {
	parent := task("1", "Epic", "")
	child := task("2", "Epic - part", "1")
	grand := task("3", "Epic - part - leaf", "2")

	roots := BuildTree([]*model.Task{grand, child, parent})
	if len(roots) != 1 || roots[0] != parent {
		t.Fatalf("expected single root 1, got %v", testutil.GetIDs(roots))
	}
	if !parent.HasChildren || len(parent.Children) != 1 || parent.Children[0] != child {
		t.Errorf("expected child attached to parent")
	}
	if grand.Depth != 2 || child.Depth != 1 || parent.Depth != 0 {
		t.Errorf("unexpected depths: parent=%d child=%d grand=%d", parent.Depth, child.Depth, grand.Depth)
	}
}

func TestBuildTreeResetsStaleChildren(t *testing.T) {
	a := task("a", "A", "")
	b := task("b", "B", "a")
	BuildTree([]*model.Task{a, b})

	b.ParentID = ""
	roots := BuildTree([]*model.Task{a, b})
	if len(roots) != 2 {
		t.Fatalf("expected two roots after unlinking, got %d", len(roots))
	}
	if a.HasChildren || len(a.Children) != 0 {
		t.Errorf("expected stale children cleared, got %v", testutil.GetIDs(a.Children))
	}
}

func TestBuildTreeUnresolvableParent(t *testing.T) {
	issue := task("1", "Issue", "404")
	child := task("2", "Task", "404")
	child.SetKind(model.KindTask)

	log := &DiagnosticLog{}
	b := NewBuilder(WithDiagnostics(log))
	roots := b.Build([]*model.Task{issue, child})

	if len(roots) != 1 || roots[0].ID != "1" {
		t.Fatalf("expected only the issue as root, got %v", testutil.GetIDs(roots))
	}
	if got := log.ByKind(DiagnosticOrphanChild); len(got) != 1 || got[0].TaskID != "2" {
		t.Errorf("expected orphan diagnostic for 2, got %+v", log.All())
	}
}

func TestBuildTreeChildTypeWithoutParent(t *testing.T) {
	child := task("2", "Task", "")
	child.SetKind(model.KindTask)
	if roots := BuildTree([]*model.Task{child}); len(roots) != 0 {
		t.Errorf("child-type task must never be a root, got %v", testutil.GetIDs(roots))
	}
}

func TestBuildTreeTwoCycle(t *testing.T) {
	a := task("A", "A", "B")
	b := task("B", "B", "A")
	c := task("C", "C", "")

	log := &DiagnosticLog{}
	roots := NewBuilder(WithDiagnostics(log)).Build([]*model.Task{a, b, c})
	if len(roots) != 1 || roots[0] != c {
		t.Fatalf("expected only C as root, got %v", testutil.GetIDs(roots))
	}
	if got := log.ByKind(DiagnosticCycle); len(got) != 2 {
		t.Errorf("expected two cycle diagnostics, got %+v", got)
	}
	if len(FlattenTree(roots)) != 1 {
		t.Errorf("cycle members must not be reachable")
	}
}

func TestBuildTreeSelfParent(t *testing.T) {
	a := task("A", "A", "A")
	roots := BuildTree([]*model.Task{a})
	if len(roots) != 0 {
		t.Errorf("self-parented task must be excluded, got %v", testutil.GetIDs(roots))
	}
	if a.HasChildren {
		t.Error("self-parented task must not list itself as child")
	}
}

func TestBuildTreeLongCycle(t *testing.T) {
	tasks := testutil.QuickCycle(50)
	if roots := BuildTree(tasks); len(roots) != 0 {
		t.Errorf("expected no roots for a pure cycle, got %d", len(roots))
	}
}

func TestBuildTreeDuplicateAndMissingIDs(t *testing.T) {
	first := task("1", "first", "")
	dup := task("1", "dup", "")
	blank := task("", "blank", "")

	log := &DiagnosticLog{}
	roots := NewBuilder(WithDiagnostics(log)).Build([]*model.Task{first, dup, blank, nil})
	if len(roots) != 1 || roots[0] != first {
		t.Fatalf("expected first occurrence only, got %d roots", len(roots))
	}
	if len(log.ByKind(DiagnosticDuplicateID)) != 1 || len(log.ByKind(DiagnosticMissingID)) != 1 {
		t.Errorf("unexpected diagnostics %+v", log.All())
	}
}

func TestBuildStrict(t *testing.T) {
	b := NewBuilder()
	roots, err := b.BuildStrict([]*model.Task{task("A", "A", "B"), task("B", "B", "A"), task("C", "C", "")})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if len(roots) != 1 {
		t.Errorf("expected forest returned alongside error, got %d roots", len(roots))
	}

	if _, err := b.BuildStrict(testutil.QuickChain(3)); err != nil {
		t.Errorf("expected no error for a chain, got %v", err)
	}
}

func TestAncestorSet(t *testing.T) {
	tasks := testutil.QuickChain(4)
	set := AncestorSet(tasks[3], tasks)
	for _, id := range []string{"T-n0", "T-n1", "T-n2"} {
		if !set[id] {
			t.Errorf("expected %s in ancestor set", id)
		}
	}
	if set["T-n3"] {
		t.Error("task must not be its own ancestor in a chain")
	}
}

func TestVisibleTasksRespectsExpansion(t *testing.T) {
	tasks := testutil.QuickTree(2, 2) // n0 -> n1,n2 -> n3..n6
	b := NewBuilder(WithExpansion(staticExpansion{"T-n0": true, "T-n1": true}))
	roots := b.Build(tasks)

	visible := VisibleTasks(roots)
	got := testutil.GetIDs(visible)
	want := []string{"T-n0", "T-n1", "T-n3", "T-n4", "T-n2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	for _, v := range visible {
		if !v.Visible {
			t.Errorf("expected %s marked visible", v.ID)
		}
	}
}

func TestVisibleTasksExpandedLeaf(t *testing.T) {
	leaf := task("1", "leaf", "")
	leaf.Expanded = true
	if got := VisibleTasks([]*model.Task{leaf}); len(got) != 1 {
		t.Errorf("expected leaf only, got %d", len(got))
	}
}

func TestFlattenTreeIgnoresExpansion(t *testing.T) {
	tasks := testutil.QuickTree(3, 2)
	roots := BuildTree(tasks)
	flat := FlattenTree(roots)
	testutil.AssertTaskCount(t, flat, len(tasks))
	testutil.AssertNoDuplicateIDs(t, flat)
	testutil.AssertDepthsConsistent(t, flat)
}

func TestChildrenCache(t *testing.T) {
	parent := task("1", "P", "")
	child := task("2", "C", "1")
	BuildTree([]*model.Task{parent, child})

	b := NewBuilder()
	b.CacheChildren(parent)

	fresh := task("1", "P", "")
	if !b.LoadCachedChildren(fresh) {
		t.Fatal("expected cache hit")
	}
	if !fresh.HasChildren || len(fresh.Children) != 1 || fresh.Children[0] != child {
		t.Errorf("expected cached child restored")
	}

	b.ClearCache()
	if b.LoadCachedChildren(task("1", "P", "")) {
		t.Error("expected miss after ClearCache")
	}
}

func TestApplyExpansionWithoutState(t *testing.T) {
	a := task("1", "A", "")
	a.Expanded = true
	NewBuilder().ApplyExpansion([]*model.Task{a})
	if !a.Expanded {
		t.Error("ApplyExpansion without state must not touch tasks")
	}
}

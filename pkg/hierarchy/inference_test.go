package hierarchy

import (
	"context"
	"testing"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

func TestInferFromTitles(t *testing.T) {
	tests := []struct {
		name       string
		parents    []*model.Task
		child      string
		wantParent string
	}{
		{
			name:       "separator after prefix",
			parents:    []*model.Task{issue("1", "Setup Project", true)},
			child:      "Setup Project - install deps",
			wantParent: "1",
		},
		{
			name:       "no separator",
			parents:    []*model.Task{issue("1", "Setup Project", true)},
			child:      "Setup Projectile",
			wantParent: "",
		},
		{
			name:       "case and whitespace insensitive",
			parents:    []*model.Task{issue("1", "  BUILD pipeline ", true)},
			child:      "build Pipeline: cache",
			wantParent: "1",
		},
		{
			name:       "longest prefix wins",
			parents:    []*model.Task{issue("1", "Release", true), issue("2", "Release 2", true)},
			child:      "Release 2 & docs",
			wantParent: "2",
		},
		{
			name:       "first in input order wins ties",
			parents:    []*model.Task{issue("1", "Docs", true), issue("2", "docs", true)},
			child:      "Docs_update",
			wantParent: "1",
		},
		{
			name:       "parent without hint ignored",
			parents:    []*model.Task{issue("1", "Setup Project", false)},
			child:      "Setup Project - install deps",
			wantParent: "",
		},
		{
			name:       "exact title is not a child",
			parents:    []*model.Task{issue("1", "Setup", true)},
			child:      "Setup",
			wantParent: "",
		},
		{
			name:       "tab separator",
			parents:    []*model.Task{issue("1", "Setup", true)},
			child:      "Setup\tthings",
			wantParent: "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child := childTask("c", tt.child)
			tasks := append(append([]*model.Task{}, tt.parents...), child)
			n := InferFromTitles(tasks)
			if child.ParentID != tt.wantParent {
				t.Errorf("ParentID = %q, want %q", child.ParentID, tt.wantParent)
			}
			if want := map[bool]int{true: 1, false: 0}[tt.wantParent != ""]; n != want {
				t.Errorf("linked = %d, want %d", n, want)
			}
		})
	}
}

func TestInferFromTitlesKeepsExistingParent(t *testing.T) {
	parent := issue("1", "Setup", true)
	child := childTask("2", "Setup - deps")
	child.ParentID = "99"
	InferFromTitles([]*model.Task{parent, child})
	if child.ParentID != "99" {
		t.Errorf("an existing parent must not be overwritten, got %q", child.ParentID)
	}
}

func TestInferFromTitlesIgnoresChildTypeParents(t *testing.T) {
	notParent := childTask("1", "Setup")
	notParent.HasChildrenHint = true
	child := childTask("2", "Setup - deps")
	InferFromTitles([]*model.Task{notParent, child})
	if child.ParentID != "" {
		t.Errorf("child-type tasks are not parent candidates, got %q", child.ParentID)
	}
}

func TestTitleResolverStats(t *testing.T) {
	tasks := []*model.Task{
		issue("1", "Setup", true),
		childTask("2", "Setup - a"),
		childTask("3", "Other - b"),
	}
	stats := TitleResolver{}.Resolve(context.Background(), "g/p", tasks)
	if stats.Requested != 2 || stats.Parents != 1 || stats.Inferred != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// Package tree builds the issue forest from a flat task list and derives the
// visible and filtered views of it.
//
// BuildTree mutates the tasks it is given (children, depth and the derived
// HasChildren flag are rewritten on every call). FilterTree never does: it
// works on shallow clones so the same base forest can be filtered repeatedly.
package tree

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/metrics"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// ErrCycle is returned by BuildStrict when parent links form a cycle.
var ErrCycle = errors.New("parent cycle")

// ExpansionState reports which tasks are expanded. *expansion.Store
// satisfies it.
type ExpansionState interface {
	IsExpanded(id string) bool
}

// BuildTree links tasks into a forest using their ParentID and returns the
// roots in input order.
//
// A task is a root when its ParentID is empty or names no task in the list.
// Child-type tasks are never roots: without a resolvable parent they are
// dropped. A task that is its own ancestor is excluded. Both cases report a
// Diagnostic to the debug log.
func BuildTree(tasks []*model.Task) []*model.Task {
	return buildTree(tasks, logSink{})
}

func buildTree(tasks []*model.Task, sink DiagnosticSink) []*model.Task {
	index := make(map[string]*model.Task, len(tasks))
	ordered := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if strings.TrimSpace(t.ID) == "" {
			sink.Report(Diagnostic{Kind: DiagnosticMissingID, Message: fmt.Sprintf("task %q has no id", t.Title)})
			continue
		}
		if _, dup := index[t.ID]; dup {
			sink.Report(Diagnostic{Kind: DiagnosticDuplicateID, TaskID: t.ID, Message: "duplicate id, keeping first occurrence"})
			continue
		}
		index[t.ID] = t
		ordered = append(ordered, t)
	}

	for _, t := range ordered {
		t.Children = nil
		t.HasChildren = false
	}

	var roots []*model.Task
	for _, t := range ordered {
		ancestors, cyclic := walkAncestors(t, index)
		if cyclic && ancestors[t.ID] {
			sink.Report(Diagnostic{
				Kind:    DiagnosticCycle,
				TaskID:  t.ID,
				Message: fmt.Sprintf("task is its own ancestor via parent %s", t.ParentID),
			})
			continue
		}

		parent, ok := resolveParent(t, index)
		if ok {
			parent.Children = append(parent.Children, t)
			parent.HasChildren = true
			t.Depth = len(ancestors)
			continue
		}

		t.Depth = 0
		if t.IsChildType {
			sink.Report(Diagnostic{
				Kind:    DiagnosticOrphanChild,
				TaskID:  t.ID,
				Message: fmt.Sprintf("child-type task has no resolvable parent (parent %q)", t.ParentID),
			})
			continue
		}
		roots = append(roots, t)
	}
	return roots
}

func resolveParent(t *model.Task, index map[string]*model.Task) (*model.Task, bool) {
	if t.ParentID == "" {
		return nil, false
	}
	p, ok := index[t.ParentID]
	return p, ok
}

// walkAncestors follows ParentID links from t. The returned set holds every
// ancestor id seen before the walk ended; cyclic reports that the walk
// stopped because it revisited an id.
func walkAncestors(t *model.Task, index map[string]*model.Task) (map[string]bool, bool) {
	ancestors := make(map[string]bool)
	cur := t
	for {
		parent, ok := resolveParent(cur, index)
		if !ok {
			return ancestors, false
		}
		if ancestors[parent.ID] {
			return ancestors, true
		}
		ancestors[parent.ID] = true
		if parent.ID == t.ID {
			return ancestors, true
		}
		cur = parent
	}
}

// AncestorSet returns the ids of every ancestor of t reachable through
// ParentID links in tasks. The walk stops at the first repeated id.
func AncestorSet(t *model.Task, tasks []*model.Task) map[string]bool {
	index := make(map[string]*model.Task, len(tasks))
	for _, task := range tasks {
		if task != nil && task.ID != "" {
			if _, dup := index[task.ID]; !dup {
				index[task.ID] = task
			}
		}
	}
	set, _ := walkAncestors(t, index)
	return set
}

// VisibleTasks walks roots in pre-order, descending only into expanded tasks
// with children. Every returned task is marked Visible and its Depth is
// refreshed.
func VisibleTasks(roots []*model.Task) []*model.Task {
	var out []*model.Task
	var walk func(t *model.Task, depth int)
	walk = func(t *model.Task, depth int) {
		t.Depth = depth
		t.Visible = true
		out = append(out, t)
		if t.Expanded && len(t.Children) > 0 {
			for _, c := range t.Children {
				walk(c, depth+1)
			}
		}
	}
	for _, r := range roots {
		if r != nil {
			walk(r, 0)
		}
	}
	return out
}

// FlattenTree walks roots in pre-order and always descends, refreshing Depth.
// It is the list form of a filtered forest.
func FlattenTree(roots []*model.Task) []*model.Task {
	defer metrics.Timer(metrics.TreeFlatten)()

	var out []*model.Task
	var walk func(t *model.Task, depth int)
	walk = func(t *model.Task, depth int) {
		t.Depth = depth
		out = append(out, t)
		for _, c := range t.Children {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		if r != nil {
			walk(r, 0)
		}
	}
	return out
}

// Builder carries the state a tree view needs across rebuilds: the expansion
// state, a cache of fetched children and where diagnostics go. It is safe
// for concurrent use.
type Builder struct {
	expansion ExpansionState
	sink      DiagnosticSink

	mu    sync.Mutex
	cache map[string][]*model.Task
}

// Option configures a Builder.
type Option func(*Builder)

// WithExpansion sets the expansion state applied after each build.
func WithExpansion(s ExpansionState) Option {
	return func(b *Builder) { b.expansion = s }
}

// WithDiagnostics sets where build diagnostics are reported.
func WithDiagnostics(sink DiagnosticSink) Option {
	return func(b *Builder) {
		if sink != nil {
			b.sink = sink
		}
	}
}

// NewBuilder returns a Builder with the given options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		sink:  logSink{},
		cache: make(map[string][]*model.Task),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs BuildTree and applies the expansion state to the result.
func (b *Builder) Build(tasks []*model.Task) []*model.Task {
	defer metrics.Timer(metrics.TreeBuild)()
	roots := buildTree(tasks, b.sink)
	b.ApplyExpansion(roots)
	return roots
}

// BuildStrict is Build that also fails when any task was excluded for being
// its own ancestor. The forest is returned either way.
func (b *Builder) BuildStrict(tasks []*model.Task) ([]*model.Task, error) {
	defer metrics.Timer(metrics.TreeBuild)()
	collected := &DiagnosticLog{}
	roots := buildTree(tasks, teeSink{collected, b.sink})
	b.ApplyExpansion(roots)

	cycles := collected.ByKind(DiagnosticCycle)
	if len(cycles) == 0 {
		return roots, nil
	}
	ids := make([]string, len(cycles))
	for i, d := range cycles {
		ids[i] = d.TaskID
	}
	return roots, fmt.Errorf("%w: %s", ErrCycle, strings.Join(ids, ", "))
}

// ApplyExpansion sets Expanded on every task reachable from tasks according
// to the builder's expansion state. Without a state it is a no-op.
func (b *Builder) ApplyExpansion(tasks []*model.Task) {
	if b.expansion == nil {
		return
	}
	seen := make(map[*model.Task]bool)
	var apply func(t *model.Task)
	apply = func(t *model.Task) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		t.Expanded = b.expansion.IsExpanded(t.ID)
		for _, c := range t.Children {
			apply(c)
		}
	}
	for _, t := range tasks {
		apply(t)
	}
}

// CacheChildren remembers t's current children for a later rebuild.
func (b *Builder) CacheChildren(t *model.Task) {
	if t == nil || t.ID == "" {
		return
	}
	children := make([]*model.Task, len(t.Children))
	copy(children, t.Children)

	b.mu.Lock()
	b.cache[t.ID] = children
	b.mu.Unlock()
}

// LoadCachedChildren restores t's children from the cache. It reports
// whether the cache held an entry for t.
func (b *Builder) LoadCachedChildren(t *model.Task) bool {
	if t == nil {
		return false
	}
	b.mu.Lock()
	children, ok := b.cache[t.ID]
	b.mu.Unlock()

	metrics.ChildrenCache.Record(ok)
	if !ok {
		return false
	}
	t.Children = children
	t.HasChildren = len(children) > 0
	return true
}

// ClearCache drops every cached children list.
func (b *Builder) ClearCache() {
	b.mu.Lock()
	b.cache = make(map[string][]*model.Task)
	b.mu.Unlock()
	debug.Log("tree: children cache cleared")
}

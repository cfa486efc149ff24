// Package hierarchy resolves parent/child relationships between tasks.
//
// Relationships come from a remote Transport when one is available and fall
// back to title inference otherwise. Every remote call is fail-soft: errors
// are logged through debug and turn into "no relationship known", so the
// caller always gets a usable task list back.
package hierarchy

import (
	"context"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// MaxBatchSize is the largest id list sent in one hierarchy batch query.
const MaxBatchSize = 50

// ParentBatchSize is the largest id list sent when fetching missing parents.
const ParentBatchSize = 20

// ChildrenPageSize is the page size requested for children queries.
const ChildrenPageSize = 100

// Transport is the remote source of hierarchy data. Implementations may fail
// on any call; callers in this package never propagate those failures.
type Transport interface {
	// FetchHierarchy returns the hierarchy of one task.
	FetchHierarchy(ctx context.Context, project, id string) (model.HierarchyInfo, error)
	// FetchHierarchyBatch returns the hierarchy of up to MaxBatchSize tasks.
	// Ids the source could not answer are absent from the map. A partial map
	// may come back together with an error.
	FetchHierarchyBatch(ctx context.Context, project string, ids []string) (map[string]model.HierarchyInfo, error)
	// FetchChildren returns one page of children. An empty cursor asks for
	// the first page.
	FetchChildren(ctx context.Context, project, id, cursor string) (model.ChildrenPage, error)
	// FetchLinks lists the directional links of one task.
	FetchLinks(ctx context.Context, project, id string) ([]model.Relation, error)
	// ListIssues returns one page of tasks with its pagination metadata.
	ListIssues(ctx context.Context, opts model.ListOptions) (model.TaskPage, error)
	// FetchIssuesByID returns the tasks with the given ids in project.
	FetchIssuesByID(ctx context.Context, project string, ids []string) ([]*model.Task, error)
}

// Stats summarizes one resolution pass.
type Stats struct {
	Requested     int  `json:"requested"`
	Resolved      int  `json:"resolved"`
	Parents       int  `json:"parents"`
	FailedBatches int  `json:"failed_batches,omitempty"`
	Inferred      int  `json:"inferred,omitempty"`
	FallbackUsed  bool `json:"fallback_used"`
}

// Resolver assigns ParentIDs to tasks. Implementations mutate tasks in place
// and never fail; Stats says what they managed.
type Resolver interface {
	Resolve(ctx context.Context, project string, tasks []*model.Task) Stats
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, project string, tasks []*model.Task) Stats

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, project string, tasks []*model.Task) Stats {
	return f(ctx, project, tasks)
}

func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// taskIDs returns the distinct non-empty ids of tasks in input order.
func taskIDs(tasks []*model.Task, keep func(*model.Task) bool) []string {
	seen := make(map[string]bool, len(tasks))
	var ids []string
	for _, t := range tasks {
		if t == nil || t.ID == "" || seen[t.ID] {
			continue
		}
		if keep != nil && !keep(t) {
			continue
		}
		seen[t.ID] = true
		ids = append(ids, t.ID)
	}
	return ids
}

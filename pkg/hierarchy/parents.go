package hierarchy

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/metrics"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

type projectParents struct {
	parentOf map[string]string
	fetched  []*model.Task
}

// FetchMissingParents resolves the parents of child-type tasks and adds the
// parents that are not in tasks yet, so children of a cross-project listing
// are not dropped by the tree builder. Tasks are grouped by ProjectPath and
// each project is handled concurrently; a failing project only loses its own
// parents. Added parents are marked Dimmed and not matching: they are shown
// for context only.
//
// The returned slice starts with tasks and ends with the added parents. Ids
// are left as the source reports them; lists spanning projects need
// model.QualifyIDs before they are built into a tree.
func (e *Enricher) FetchMissingParents(ctx context.Context, tasks []*model.Task) []*model.Task {
	defer metrics.Timer(metrics.MissingParents)()

	var projects []string
	byProject := make(map[string][]*model.Task)
	for _, t := range tasks {
		if t == nil || t.ID == "" || !t.IsChildType {
			continue
		}
		if t.ProjectPath == "" {
			debug.Log("hierarchy: task %s has no project path, parent unknown", t.ID)
			continue
		}
		if _, ok := byProject[t.ProjectPath]; !ok {
			projects = append(projects, t.ProjectPath)
		}
		byProject[t.ProjectPath] = append(byProject[t.ProjectPath], t)
	}
	if len(projects) == 0 || e.transport == nil {
		return tasks
	}

	// Source ids repeat across projects, so presence is keyed on both.
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t != nil {
			known[model.QualifiedID(t.ProjectPath, t.ID)] = true
		}
	}

	results := make([]projectParents, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, project := range projects {
		g.Go(func() error {
			results[i] = e.projectParents(gctx, project, taskIDs(byProject[project], nil), known)
			return nil
		})
	}
	_ = g.Wait()

	out := tasks
	for i, res := range results {
		for _, t := range byProject[projects[i]] {
			if pid, ok := res.parentOf[t.ID]; ok {
				t.ParentID = pid
			}
		}
		for _, p := range res.fetched {
			key := model.QualifiedID(p.ProjectPath, p.ID)
			if known[key] {
				continue
			}
			known[key] = true
			out = append(out, p)
		}
	}
	debug.Log("hierarchy: added %d missing parents across %d projects", len(out)-len(tasks), len(projects))
	return out
}

// projectParents runs in its own goroutine: it only reads known and writes
// its return value.
func (e *Enricher) projectParents(ctx context.Context, project string, ids []string, known map[string]bool) projectParents {
	res := projectParents{parentOf: make(map[string]string)}

	infos, failed, batches := e.fetchBatches(ctx, project, ids)
	if failed == batches {
		debug.Log("hierarchy: %s hierarchy unavailable", project)
		return res
	}

	var missing []string
	wanted := make(map[string]bool)
	for _, id := range ids {
		pid := infos[id].ParentID()
		if pid == "" {
			continue
		}
		res.parentOf[id] = pid
		if !known[model.QualifiedID(project, pid)] && !wanted[pid] {
			wanted[pid] = true
			missing = append(missing, pid)
		}
	}

	for _, batch := range chunk(missing, ParentBatchSize) {
		parents, err := e.transport.FetchIssuesByID(ctx, project, batch)
		if err != nil {
			debug.Warn(fmt.Sprintf("parents %v of %s", batch, project), err)
			continue
		}
		returned := make(map[string]bool, len(parents))
		for _, p := range parents {
			if p == nil || p.ID == "" {
				continue
			}
			returned[p.ID] = true
			if p.ProjectPath == "" {
				p.ProjectPath = project
			}
			p.Dimmed = true
			p.MatchesFilter = false
			res.fetched = append(res.fetched, p)
		}
		for _, id := range batch {
			if !returned[id] {
				debug.Log("hierarchy: parent %s of %s not returned (closed, deleted or no access)", id, project)
			}
		}
	}
	return res
}

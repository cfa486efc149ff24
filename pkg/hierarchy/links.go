package hierarchy

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/metrics"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// EnrichWithLinks resolves hierarchy from the legacy link API, for sources
// whose structured hierarchy endpoint is unavailable. Links are listed for
// every task concurrently and merged once all requests are done:
// is_blocked_by makes the linked task the parent, blocks makes it a child.
// When no link yields a parent, the fallback resolver runs.
func (e *Enricher) EnrichWithLinks(ctx context.Context, project string, tasks []*model.Task) Stats {
	defer metrics.Timer(metrics.LinksFetch)()

	var live []*model.Task
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t != nil && t.ID != "" && !seen[t.ID] {
			seen[t.ID] = true
			live = append(live, t)
		}
	}
	stats := Stats{Requested: len(live)}
	if len(live) == 0 {
		return stats
	}

	results := make([][]model.Relation, len(live))
	ok := make([]bool, len(live))
	if e.transport != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrency)
		for i, t := range live {
			g.Go(func() error {
				rels, err := e.transport.FetchLinks(gctx, project, t.ID)
				if err != nil {
					debug.Warn("links for "+t.ID, err)
					return nil
				}
				results[i] = rels
				ok[i] = true
				return nil
			})
		}
		_ = g.Wait()
	}

	index := make(map[string]*model.Task, len(live))
	for _, t := range live {
		index[t.ID] = t
	}
	for i, t := range live {
		if !ok[i] {
			stats.FailedBatches++
			continue
		}
		stats.Resolved++
		for _, rel := range results[i] {
			if rel.TargetID == "" || rel.TargetID == t.ID {
				continue
			}
			switch rel.Type {
			case model.RelationIsBlockedBy:
				t.ParentID = rel.TargetID
				stats.Parents++
				if parent, found := index[rel.TargetID]; found {
					parent.HasChildrenHint = true
				}
			case model.RelationBlocks:
				t.HasChildrenHint = true
				if child, found := index[rel.TargetID]; found {
					child.ParentID = t.ID
					stats.Parents++
				}
			}
		}
	}
	debug.Log("hierarchy: %s links resolved %d/%d tasks, %d parent links",
		project, stats.Resolved, stats.Requested, stats.Parents)

	if stats.Parents == 0 {
		e.runFallback(ctx, project, tasks, &stats)
	}
	return stats
}

package hierarchy

import (
	"context"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/metrics"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// Enricher resolves task hierarchy through a Transport, falling back to a
// Resolver (title inference by default) when the transport yields nothing.
// An Enricher holds no per-call state and may be shared.
type Enricher struct {
	transport   Transport
	fallback    Resolver
	batchSize   int
	concurrency int
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithFallback replaces the title-inference fallback. A nil resolver
// disables the fallback.
func WithFallback(r Resolver) EnricherOption {
	return func(e *Enricher) { e.fallback = r }
}

// WithBatchSize sets the hierarchy batch size, capped at MaxBatchSize.
func WithBatchSize(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 && n <= MaxBatchSize {
			e.batchSize = n
		}
	}
}

// WithConcurrency sets how many link or project requests run at once.
func WithConcurrency(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEnricher returns an Enricher over t. A nil transport is allowed; every
// remote lookup then resolves nothing and the fallback runs.
func NewEnricher(t Transport, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		transport:   t,
		fallback:    TitleResolver{},
		batchSize:   MaxBatchSize,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve implements Resolver by running Enrich.
func (e *Enricher) Resolve(ctx context.Context, project string, tasks []*model.Task) Stats {
	return e.Enrich(ctx, project, tasks)
}

// Enrich sets ParentID and HasChildrenHint on tasks from batched hierarchy
// queries. Results of batches that succeeded are kept when others fail. An
// existing HasChildrenHint is never cleared. When no task gained a parent,
// or every batch failed, the fallback resolver runs over the same tasks.
func (e *Enricher) Enrich(ctx context.Context, project string, tasks []*model.Task) Stats {
	defer metrics.Timer(metrics.HierarchyEnrich)()

	ids := taskIDs(tasks, nil)
	stats := Stats{Requested: len(ids)}
	if len(ids) == 0 {
		return stats
	}

	infos, failed, batches := e.fetchBatches(ctx, project, ids)
	stats.FailedBatches = failed

	for _, t := range tasks {
		if t == nil {
			continue
		}
		info, ok := infos[t.ID]
		if !ok {
			continue
		}
		stats.Resolved++
		if pid := info.ParentID(); pid != "" {
			t.ParentID = pid
			stats.Parents++
		}
		if info.HasChildren {
			t.HasChildrenHint = true
		}
	}
	debug.Log("hierarchy: %s resolved %d/%d tasks, %d parents, %d/%d batches failed",
		project, stats.Resolved, stats.Requested, stats.Parents, failed, batches)

	if stats.Parents == 0 || failed == batches {
		e.runFallback(ctx, project, tasks, &stats)
	}
	return stats
}

// fetchBatches queries ids in batches and merges the answers. It reports
// how many batches failed out of how many were attempted.
func (e *Enricher) fetchBatches(ctx context.Context, project string, ids []string) (map[string]model.HierarchyInfo, int, int) {
	infos := make(map[string]model.HierarchyInfo, len(ids))
	batches := chunk(ids, e.batchSize)
	if e.transport == nil {
		return infos, len(batches), len(batches)
	}

	failed := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			debug.Warn("hierarchy batch", err)
			failed += len(batches) - i
			break
		}
		res, err := e.transport.FetchHierarchyBatch(ctx, project, batch)
		if err != nil {
			debug.Warn("hierarchy batch", err)
			failed++
		}
		for id, info := range res {
			infos[id] = info
		}
	}
	return infos, failed, len(batches)
}

func (e *Enricher) runFallback(ctx context.Context, project string, tasks []*model.Task, stats *Stats) {
	if e.fallback == nil {
		return
	}
	debug.Log("hierarchy: %s falling back to title inference", project)
	fb := e.fallback.Resolve(ctx, project, tasks)
	stats.FallbackUsed = true
	stats.Inferred = fb.Parents
}

// Lookup returns the hierarchy of one task. ok is false when the transport
// failed or knew nothing about id. A qualified id overrides project.
func (e *Enricher) Lookup(ctx context.Context, project, id string) (model.HierarchyInfo, bool) {
	if e.transport == nil || id == "" {
		return model.HierarchyInfo{}, false
	}
	if p, iid := model.SplitID(id); p != "" {
		project, id = p, iid
	}
	info, err := e.transport.FetchHierarchy(ctx, project, id)
	if err != nil {
		debug.Warn("hierarchy lookup "+id, err)
		return model.HierarchyInfo{}, false
	}
	return info, true
}

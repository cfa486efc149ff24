package hierarchy

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/metrics"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// InferFromTitles links parentless child-type tasks to the parent whose title
// is the longest case-insensitive prefix of theirs. Only tasks that are not
// child-type and carry HasChildrenHint are parent candidates, and the prefix
// must be followed by a separator (whitespace, '-', '_', ':' or '&') so that
// "Task A" does not claim "Task ABC". On equal prefix length the candidate
// met first in input order wins. Children that match nothing stay
// parentless.
//
// It returns the number of children linked. The match is a heuristic.
func InferFromTitles(tasks []*model.Task) int {
	defer metrics.Timer(metrics.Inference)()

	type candidate struct {
		task  *model.Task
		title string
	}
	var parents []candidate
	var children []*model.Task
	for _, t := range tasks {
		if t == nil || t.ID == "" {
			continue
		}
		if t.IsChildType {
			children = append(children, t)
			continue
		}
		if !t.HasChildrenHint {
			continue
		}
		title := normalizeTitle(t.Title)
		if title == "" {
			continue
		}
		parents = append(parents, candidate{task: t, title: title})
	}

	linked := 0
	for _, child := range children {
		if child.ParentID != "" {
			continue
		}
		title := normalizeTitle(child.Title)

		var best *model.Task
		bestLen := 0
		for _, p := range parents {
			if p.task.ID == child.ID || len(p.title) <= bestLen {
				continue
			}
			if strings.HasPrefix(title, p.title) && separatedAt(title, len(p.title)) {
				best = p.task
				bestLen = len(p.title)
			}
		}
		if best == nil {
			debug.Log("hierarchy: no title match for task %s %q", child.ID, child.Title)
			continue
		}
		child.ParentID = best.ID
		linked++
		debug.Log("hierarchy: inferred %s -> %s from title", child.ID, best.ID)
	}
	return linked
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// separatedAt reports whether s has a separator rune at byte offset i.
func separatedAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsSpace(r) || strings.ContainsRune("-_:&", r)
}

// TitleResolver is the Resolver backed by InferFromTitles.
type TitleResolver struct{}

// Resolve implements Resolver.
func (TitleResolver) Resolve(_ context.Context, _ string, tasks []*model.Task) Stats {
	requested := 0
	for _, t := range tasks {
		if t != nil && t.IsChildType && t.ParentID == "" {
			requested++
		}
	}
	n := InferFromTitles(tasks)
	return Stats{Requested: requested, Resolved: n, Parents: n, Inferred: n}
}

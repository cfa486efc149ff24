package tree

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/metrics"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// FilterMode selects how a search term is matched against titles.
type FilterMode string

const (
	// ModeSimple is a case-insensitive substring test.
	ModeSimple FilterMode = "simple"
	// ModePattern compiles the term as a case-insensitive regular expression.
	ModePattern FilterMode = "regex"
)

// ParseFilterMode maps a user-supplied mode name to a FilterMode. An empty
// string means ModeSimple.
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple":
		return ModeSimple, nil
	case "regex", "regexp", "pattern":
		return ModePattern, nil
	default:
		return ModeSimple, fmt.Errorf("unknown filter mode %q (want simple or regex)", s)
	}
}

// Matcher reports whether a title matches a search term.
type Matcher func(title string) bool

// NewMatcher returns the predicate for term in mode. In ModePattern a term
// that does not compile yields a matcher that matches nothing.
func NewMatcher(term string, mode FilterMode) Matcher {
	if mode == ModePattern {
		re, err := regexp.Compile("(?i)" + term)
		if err != nil {
			debug.Log("tree: invalid filter pattern %q: %v", term, err)
			return func(string) bool { return false }
		}
		return re.MatchString
	}
	needle := strings.ToLower(term)
	return func(title string) bool {
		return strings.Contains(strings.ToLower(title), needle)
	}
}

// ValidatePattern reports whether pattern compiles the way ModePattern
// compiles it.
func ValidatePattern(pattern string) error {
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	return nil
}

func isBlank(term string) bool {
	return strings.TrimSpace(term) == ""
}

// FilterTree returns the part of the forest that matches term.
//
// A task survives if it matches or has a surviving descendant. Survivors are
// shallow clones: MatchesFilter records the task's own match and Dimmed marks
// a task kept only for a matching descendant. A surviving task with no
// surviving children keeps its original children and HasChildren so it can
// still be expanded.
//
// A blank term marks every task as matching and returns roots itself. An
// invalid pattern yields an empty forest.
func FilterTree(roots []*model.Task, term string, mode FilterMode) []*model.Task {
	defer metrics.Timer(metrics.TreeFilter)()

	if isBlank(term) {
		markAllMatching(roots, make(map[*model.Task]bool))
		return roots
	}

	match := NewMatcher(term, mode)
	out := make([]*model.Task, 0, len(roots))
	for _, r := range roots {
		if r == nil {
			continue
		}
		if c := filterNode(r, match, make(map[*model.Task]bool)); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// filterNode returns the filtered clone of t, or nil when nothing under t
// matches. path guards against children lists that loop back.
func filterNode(t *model.Task, match Matcher, path map[*model.Task]bool) *model.Task {
	if path[t] {
		return nil
	}
	path[t] = true
	defer delete(path, t)

	self := match(t.Title)

	var kept []*model.Task
	for _, c := range t.Children {
		if c == nil {
			continue
		}
		if fc := filterNode(c, match, path); fc != nil {
			kept = append(kept, fc)
		}
	}

	if !self && len(kept) == 0 {
		return nil
	}

	clone := t.Clone()
	clone.MatchesFilter = self
	clone.Dimmed = !self && len(kept) > 0
	if len(kept) > 0 {
		clone.Children = kept
		clone.HasChildren = true
	}
	return clone
}

func markAllMatching(tasks []*model.Task, seen map[*model.Task]bool) {
	for _, t := range tasks {
		if t == nil || seen[t] {
			continue
		}
		seen[t] = true
		t.MatchesFilter = true
		t.Dimmed = false
		markAllMatching(t.Children, seen)
	}
}

// FilterResult is the outcome of a flat filter pass.
type FilterResult struct {
	Tasks        []*model.Task `json:"tasks"`
	TotalCount   int           `json:"total_count"`
	VisibleCount int           `json:"visible_count"`
}

// FilterTasks filters a flat list without regard to hierarchy. A blank term
// returns tasks unchanged.
func FilterTasks(tasks []*model.Task, term string, mode FilterMode) FilterResult {
	res := FilterResult{TotalCount: len(tasks)}
	if isBlank(term) {
		res.Tasks = tasks
		res.VisibleCount = len(tasks)
		return res
	}
	match := NewMatcher(term, mode)
	res.Tasks = make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil && match(t.Title) {
			res.Tasks = append(res.Tasks, t)
		}
	}
	res.VisibleCount = len(res.Tasks)
	return res
}

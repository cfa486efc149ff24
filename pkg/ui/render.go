// Package ui renders the issue forest for a terminal: one row per visible
// task with branch connectors, an expansion indicator, the id, the title
// with filter matches highlighted, and the schedule.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/ganttree/pkg/model"
	"github.com/vanderheijden86/ganttree/pkg/tree"
)

// Indicators for the expansion column.
const (
	IndicatorExpanded  = "▼"
	IndicatorCollapsed = "▶"
	IndicatorLeaf      = "•"
)

// Renderer writes forests as text.
type Renderer struct {
	Theme     Theme
	Width     int
	ShowDates bool

	// Term and Mode select the filter matches to highlight.
	Term string
	Mode tree.FilterMode

	// All descends into collapsed tasks as well.
	All bool
}

// NewRenderer returns a renderer sized and styled for w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{
		Theme:     NewTheme(w),
		Width:     TerminalWidth(w),
		ShowDates: true,
		Mode:      tree.ModeSimple,
	}
}

// Render writes roots to w and returns the number of rows written.
func (r *Renderer) Render(w io.Writer, roots []*model.Task) (int, error) {
	rows := 0
	var walk func(t *model.Task, prefix string, last, root bool) error
	walk = func(t *model.Task, prefix string, last, root bool) error {
		connector := ""
		if !root {
			connector = "├── "
			if last {
				connector = "└── "
			}
		}
		if _, err := fmt.Fprintln(w, r.Row(t, prefix+connector)); err != nil {
			return err
		}
		rows++

		if !r.descends(t) {
			return nil
		}
		childPrefix := prefix
		if !root {
			if last {
				childPrefix += "    "
			} else {
				childPrefix += "│   "
			}
		}
		for i, c := range t.Children {
			if err := walk(c, childPrefix, i == len(t.Children)-1, false); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if root == nil {
			continue
		}
		if err := walk(root, "", true, true); err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func (r *Renderer) descends(t *model.Task) bool {
	return len(t.Children) > 0 && (r.All || t.Expanded)
}

// Indicator returns the expansion marker of t.
func Indicator(t *model.Task) string {
	switch {
	case t.Expanded && (t.HasChildren || t.HasChildrenHint):
		return IndicatorExpanded
	case t.HasChildren || t.HasChildrenHint:
		return IndicatorCollapsed
	default:
		return IndicatorLeaf
	}
}

// Row formats one task with the given branch prefix.
func (r *Renderer) Row(t *model.Task, prefix string) string {
	th := r.Theme
	width := r.Width
	if width <= 0 {
		width = DefaultWidth
	}

	var left strings.Builder
	left.WriteString(th.Branch.Render(prefix))
	left.WriteString(th.Indicator.Render(Indicator(t)))
	left.WriteString(" ")
	left.WriteString(th.ID.Render(displayID(t.ID)))
	left.WriteString(" ")

	right := ""
	if r.ShowDates && width > 60 && (t.Start != nil || t.Due != nil) {
		right = th.Dates.Render(formatDate(t.Start) + " → " + formatDate(t.Due))
	}

	titleWidth := width - lipgloss.Width(left.String()) - lipgloss.Width(right) - 2
	if titleWidth < 5 {
		titleWidth = 5
	}
	left.WriteString(r.title(t, titleWidth))

	if right == "" {
		return left.String()
	}
	pad := width - lipgloss.Width(left.String()) - lipgloss.Width(right) - 1
	if pad < 1 {
		pad = 1
	}
	return left.String() + strings.Repeat(" ", pad) + right
}

func (r *Renderer) title(t *model.Task, width int) string {
	th := r.Theme
	base := th.Title
	switch {
	case t.Dimmed:
		base = th.Dimmed
	case t.Closed:
		base = th.Closed
	}

	text := padRight(truncate(t.Title, width), width)
	if t.Dimmed || !t.MatchesFilter {
		return base.Render(text)
	}

	// Matches are wrapped in a sentinel first so the styling can be applied
	// segment by segment after truncation.
	const markStart, markEnd = "\x00", "\x01"
	marked := tree.HighlightMatchesFunc(text, r.Term, r.Mode, func(m string) string {
		return markStart + m + markEnd
	})
	if marked == text {
		return base.Render(text)
	}

	var out strings.Builder
	for len(marked) > 0 {
		i := strings.Index(marked, markStart)
		if i < 0 {
			out.WriteString(base.Render(marked))
			break
		}
		if i > 0 {
			out.WriteString(base.Render(marked[:i]))
		}
		marked = marked[i+len(markStart):]
		j := strings.Index(marked, markEnd)
		if j < 0 {
			out.WriteString(th.Match.Render(marked))
			break
		}
		out.WriteString(th.Match.Render(marked[:j]))
		marked = marked[j+len(markEnd):]
	}
	return out.String()
}

// Summary is the footer line of a rendered tree.
func (r *Renderer) Summary(visible, total int, term string) string {
	if strings.TrimSpace(term) == "" {
		return r.Theme.Header.Render(fmt.Sprintf("%d of %d tasks", visible, total))
	}
	return r.Theme.Header.Render(fmt.Sprintf("%d of %d tasks match %q", visible, total, term))
}

// displayID is "#12" for a plain id and "group/app#12" for a qualified one.
func displayID(id string) string {
	if project, _ := model.SplitID(id); project != "" {
		return id
	}
	return "#" + id
}

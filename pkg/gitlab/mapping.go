package gitlab

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// Issue is the subset of a GitLab REST issue the tree needs.
type Issue struct {
	IID         int        `json:"iid"`
	ProjectID   int        `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	WebURL      string     `json:"web_url"`
	State       string     `json:"state"`
	CreatedAt   string     `json:"created_at"`
	DueDate     string     `json:"due_date"`
	IssueType   string     `json:"issue_type"`
	Type        string     `json:"type"`
	HasTasks    bool       `json:"has_tasks"`
	Milestone   *Milestone `json:"milestone"`
	References  *struct {
		Full string `json:"full"`
	} `json:"references"`
}

// Milestone is the milestone attached to an issue.
type Milestone struct {
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	DueDate   string `json:"due_date"`
}

var (
	startLine = regexp.MustCompile(`(?mi)^\s*GanttStart:\s*(\S+)`)
	dueLine   = regexp.MustCompile(`(?mi)^\s*GanttDue:\s*(\S+)`)
)

// DescriptionDates reads the "GanttStart: 2024-01-31" and "GanttDue: ..."
// lines of an issue description. Missing or unparseable lines give nil.
func DescriptionDates(description string) (start, due *time.Time) {
	if m := startLine.FindStringSubmatch(description); m != nil {
		start = parseDate(m[1])
	}
	if m := dueLine.FindStringSubmatch(description); m != nil {
		due = parseDate(m[1])
	}
	return start, due
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// IsChildType reports whether the issue type places it under another issue.
func (i Issue) IsChildType() bool {
	typ := i.IssueType
	if typ == "" {
		typ = i.Type
	}
	return strings.EqualFold(typ, "task")
}

// ToTask maps an issue onto a task.
//
// Start comes from the description, then the milestone start, then the
// creation date. Due comes from the description, then the issue due date,
// then the milestone due date, and defaults to one day after start.
func (i Issue) ToTask() *model.Task {
	id := ""
	if i.IID != 0 {
		id = strconv.Itoa(i.IID)
	}
	t := model.NewTask(id, i.Title)
	t.URL = i.WebURL
	t.Closed = i.State == "closed"
	if i.IsChildType() {
		t.SetKind(model.KindTask)
	} else {
		t.SetKind(model.KindIssue)
	}
	t.HasChildrenHint = i.HasTasks

	t.ProjectPath = ProjectPathFromURL(i.WebURL)
	if t.ProjectPath == "" && i.References != nil {
		if path, _, ok := strings.Cut(i.References.Full, "#"); ok {
			t.ProjectPath = path
		}
	}

	start, due := DescriptionDates(i.Description)
	if start == nil && i.Milestone != nil {
		start = parseDate(i.Milestone.StartDate)
	}
	if start == nil {
		start = parseDate(i.CreatedAt)
	}
	if due == nil {
		due = parseDate(i.DueDate)
	}
	if due == nil && i.Milestone != nil {
		due = parseDate(i.Milestone.DueDate)
	}
	t.Start = start
	t.Due = due
	t.EnsureDue()
	return t
}

// ProjectPathFromURL extracts "group/project" from an issue web URL such as
// https://gitlab.com/group/project/-/issues/12. It returns "" when webURL
// does not parse or has no path.
func ProjectPathFromURL(webURL string) string {
	if webURL == "" {
		return ""
	}
	u, err := url.Parse(webURL)
	if err != nil || u.Host == "" {
		return ""
	}
	path, _, _ := strings.Cut(u.Path, "/-/")
	return strings.Trim(path, "/")
}

// PaginationFromHeaders reads GitLab's x-prev-page, x-next-page,
// x-total-pages and x-total headers. Absent headers give zero.
func PaginationFromHeaders(h interface{ Get(string) string }) model.Pagination {
	atoi := func(key string) int {
		n, err := strconv.Atoi(strings.TrimSpace(h.Get(key)))
		if err != nil {
			return 0
		}
		return n
	}
	return model.Pagination{
		Previous: atoi("X-Prev-Page"),
		Next:     atoi("X-Next-Page"),
		Last:     atoi("X-Total-Pages"),
		Total:    atoi("X-Total"),
	}
}

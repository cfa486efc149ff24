package gitlab

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDescriptionDates(t *testing.T) {
	start, due := DescriptionDates("Plan\n\nGanttStart: 2024-02-01\n  ganttdue: 2024-02-10\n")
	require.NotNil(t, start)
	require.NotNil(t, due)
	assert.Equal(t, date("2024-02-01"), *start)
	assert.Equal(t, date("2024-02-10"), *due)

	start, due = DescriptionDates("GanttStart: soon")
	assert.Nil(t, start)
	assert.Nil(t, due)
}

func TestIssueToTaskDates(t *testing.T) {
	tests := []struct {
		name      string
		issue     Issue
		wantStart string
		wantDue   string
	}{
		{
			name:      "description wins",
			issue:     Issue{Description: "GanttStart: 2024-03-01\nGanttDue: 2024-03-05", DueDate: "2024-04-01", CreatedAt: "2024-01-01T00:00:00Z"},
			wantStart: "2024-03-01",
			wantDue:   "2024-03-05",
		},
		{
			name:      "milestone start then due date",
			issue:     Issue{Milestone: &Milestone{StartDate: "2024-05-01", DueDate: "2024-06-01"}, DueDate: "2024-05-20", CreatedAt: "2024-01-01T00:00:00Z"},
			wantStart: "2024-05-01",
			wantDue:   "2024-05-20",
		},
		{
			name:      "milestone due",
			issue:     Issue{Milestone: &Milestone{DueDate: "2024-06-01"}, CreatedAt: "2024-01-01T00:00:00Z"},
			wantStart: "2024-01-01",
			wantDue:   "2024-06-01",
		},
		{
			name:      "due defaults to start plus a day",
			issue:     Issue{CreatedAt: "2024-01-01T00:00:00Z"},
			wantStart: "2024-01-01",
			wantDue:   "2024-01-02",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.issue.IID = 1
			tt.issue.Title = "x"
			task := tt.issue.ToTask()
			require.NotNil(t, task.Start)
			require.NotNil(t, task.Due)
			assert.Equal(t, tt.wantStart, task.Start.Format("2006-01-02"))
			assert.Equal(t, tt.wantDue, task.Due.Format("2006-01-02"))
		})
	}
}

func TestIssueKind(t *testing.T) {
	assert.True(t, Issue{IssueType: "task"}.IsChildType())
	assert.True(t, Issue{Type: "TASK"}.IsChildType())
	assert.False(t, Issue{IssueType: "incident", Type: "task"}.IsChildType())
	assert.False(t, Issue{}.IsChildType())

	task := Issue{IID: 3, Title: "t", References: &struct {
		Full string `json:"full"`
	}{Full: "g/p#3"}}.ToTask()
	assert.Equal(t, model.KindIssue, task.Kind())
	assert.Equal(t, "g/p", task.ProjectPath)
	assert.True(t, task.Visible)
	assert.True(t, task.MatchesFilter)
}

func TestProjectPathFromURL(t *testing.T) {
	tests := map[string]string{
		"https://gitlab.com/group/project/-/issues/123":     "group/project",
		"https://gitlab.com/group/sub/project/-/issues/1":   "group/sub/project",
		"https://gitlab.example.com/group/project":          "group/project",
		"https://gitlab.example.com/":                       "",
		"":                                                  "",
		"not a url":                                         "",
		"https://gitlab.com/group/project/-/work_items/9#x": "group/project",
	}
	for in, want := range tests {
		assert.Equal(t, want, ProjectPathFromURL(in), in)
	}
}

func TestPaginationFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("X-Next-Page", "2")
	h.Set("X-Total", "41")
	h.Set("X-Prev-Page", "")
	assert.Equal(t, model.Pagination{Next: 2, Total: 41}, PaginationFromHeaders(h))
}

package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// User is the authenticated GitLab user.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	WebURL   string `json:"web_url"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	u := c.restBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, out)
}

func projectPath(project string) string {
	return "projects/" + url.PathEscape(project)
}

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var u User
	if _, err := c.get(ctx, "user", nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// ListIssues implements hierarchy.Transport. Without a project it lists
// issues across all projects, filtered by assignee when one is set.
func (c *Client) ListIssues(ctx context.Context, opts model.ListOptions) (model.TaskPage, error) {
	opts = opts.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(opts.Page))
	q.Set("per_page", strconv.Itoa(opts.PerPage))
	q.Set("state", opts.State)
	if opts.Assignee != "" {
		q.Set("assignee_username", opts.Assignee)
	}

	path := "issues"
	if opts.Project != "" {
		path = projectPath(opts.Project) + "/issues"
	} else {
		q.Set("scope", "all")
	}

	var issues []Issue
	h, err := c.get(ctx, path, q, &issues)
	if err != nil {
		return model.TaskPage{}, err
	}

	page := model.TaskPage{Tasks: make([]*model.Task, 0, len(issues))}
	for _, is := range issues {
		t := is.ToTask()
		if t.ProjectPath == "" {
			t.ProjectPath = opts.Project
		}
		page.Tasks = append(page.Tasks, t)
	}
	page.Pagination = PaginationFromHeaders(h)
	page.Pagination.Page = opts.Page
	page.Pagination.PageSize = opts.PerPage
	return page, nil
}

// FetchIssuesByID implements hierarchy.Transport. Issues are fetched in any
// state.
func (c *Client) FetchIssuesByID(ctx context.Context, project string, ids []string) ([]*model.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, id := range ids {
		q.Add("iids[]", id)
	}
	q.Set("state", "all")
	q.Set("per_page", strconv.Itoa(max(len(ids), 20)))

	var issues []Issue
	if _, err := c.get(ctx, projectPath(project)+"/issues", q, &issues); err != nil {
		return nil, err
	}
	tasks := make([]*model.Task, 0, len(issues))
	for _, is := range issues {
		t := is.ToTask()
		if t.ProjectPath == "" {
			t.ProjectPath = project
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

type linkedIssue struct {
	IID      int    `json:"iid"`
	Title    string `json:"title"`
	LinkType string `json:"link_type"`
}

// FetchLinks implements hierarchy.Transport using the issue links API.
func (c *Client) FetchLinks(ctx context.Context, project, id string) ([]model.Relation, error) {
	var linked []linkedIssue
	if _, err := c.get(ctx, projectPath(project)+"/issues/"+url.PathEscape(id)+"/links", nil, &linked); err != nil {
		return nil, err
	}
	rels := make([]model.Relation, 0, len(linked))
	for _, l := range linked {
		if l.IID == 0 {
			continue
		}
		rels = append(rels, model.Relation{
			SourceID: id,
			TargetID: strconv.Itoa(l.IID),
			Title:    l.Title,
			Type:     model.RelationType(l.LinkType),
		})
	}
	return rels, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("gitlab(%s)", c.instance)
}

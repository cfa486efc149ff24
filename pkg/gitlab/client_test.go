package gitlab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/ganttree/pkg/hierarchy"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", WithToken("secret"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func decodeGraphQL(t *testing.T, r *http.Request) graphqlRequest {
	t.Helper()
	var req graphqlRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestNew(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultInstance, c.Instance())

	c, err = New("https://gitlab.example.com///")
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.com", c.Instance())
	assert.Equal(t, "https://gitlab.example.com/api/v4/", c.restBase)

	_, err = New("gitlab.example.com")
	assert.Error(t, err)
	_, err = New("ftp://gitlab.example.com")
	assert.Error(t, err)
}

func TestListIssuesAssignedTo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/issues", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("PRIVATE-TOKEN"))
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("per_page"))
		assert.Equal(t, "opened", q.Get("state"))
		assert.Equal(t, "ada", q.Get("assignee_username"))
		assert.Equal(t, "all", q.Get("scope"))

		w.Header().Set("X-Prev-Page", "1")
		w.Header().Set("X-Next-Page", "3")
		w.Header().Set("X-Total-Pages", "4")
		w.Header().Set("X-Total", "37")
		writeJSON(t, w, []map[string]any{
			{"iid": 12, "title": "Epic", "web_url": "https://gitlab.example.com/g/p/-/issues/12", "has_tasks": true, "created_at": "2024-01-02T10:00:00.000Z"},
			{"iid": 13, "title": "Epic - part", "web_url": "https://gitlab.example.com/g/sub/q/-/issues/13", "issue_type": "task", "created_at": "2024-01-03T10:00:00Z", "state": "closed"},
		})
	})

	page, err := c.ListIssues(context.Background(), model.ListOptions{Assignee: "ada", Page: 2, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 2)

	assert.Equal(t, model.Pagination{Page: 2, PageSize: 10, Previous: 1, Next: 3, Last: 4, Total: 37}, page.Pagination)

	epic, part := page.Tasks[0], page.Tasks[1]
	assert.Equal(t, "12", epic.ID)
	assert.True(t, epic.HasChildrenHint)
	assert.True(t, epic.IsParentType)
	assert.Equal(t, "g/p", epic.ProjectPath)
	assert.True(t, part.IsChildType)
	assert.True(t, part.Closed)
	assert.Equal(t, "g/sub/q", part.ProjectPath)
}

func TestListIssuesProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/g%2Fp/issues", r.URL.EscapedPath())
		assert.Empty(t, r.URL.Query().Get("scope"))
		writeJSON(t, w, []map[string]any{{"iid": 1, "title": "No url"}})
	})
	page, err := c.ListIssues(context.Background(), model.ListOptions{Project: "g/p"})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "g/p", page.Tasks[0].ProjectPath)
	assert.Equal(t, model.Pagination{Page: 1, PageSize: 20}, page.Pagination)
}

func TestFetchIssuesByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/g%2Fp/issues", r.URL.EscapedPath())
		assert.Equal(t, []string{"4", "9"}, r.URL.Query()["iids[]"])
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		writeJSON(t, w, []map[string]any{{"iid": 4, "title": "Parent"}})
	})
	tasks, err := c.FetchIssuesByID(context.Background(), "g/p", []string{"4", "9"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "4", tasks[0].ID)
	assert.Equal(t, "g/p", tasks[0].ProjectPath)

	none, err := c.FetchIssuesByID(context.Background(), "g/p", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFetchLinks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/g%2Fp/issues/7/links", r.URL.EscapedPath())
		writeJSON(t, w, []map[string]any{
			{"iid": 3, "title": "blocker", "link_type": "is_blocked_by"},
			{"iid": 5, "title": "blocked", "link_type": "blocks"},
			{"iid": 0, "title": "broken"},
		})
	})
	rels, err := c.FetchLinks(context.Background(), "g/p", "7")
	require.NoError(t, err)
	assert.Equal(t, []model.Relation{
		{SourceID: "7", TargetID: "3", Title: "blocker", Type: model.RelationIsBlockedBy},
		{SourceID: "7", TargetID: "5", Title: "blocked", Type: model.RelationBlocks},
	}, rels)
}

func TestFetchHierarchy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graphql", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		req := decodeGraphQL(t, r)
		assert.Contains(t, req.Query, "WorkItemWidgetHierarchy")
		assert.Equal(t, "g/p", req.Variables["fullPath"])
		assert.Equal(t, "2", req.Variables["iid"])
		writeJSON(t, w, map[string]any{"data": map[string]any{"project": map[string]any{"workItem": map[string]any{
			"iid": "2", "title": "child",
			"widgets": []any{
				map[string]any{},
				map[string]any{"hasParent": true, "parent": map[string]any{"iid": "1", "title": "Epic", "webUrl": "u"}, "hasChildren": false},
			},
		}}}})
	})
	info, err := c.FetchHierarchy(context.Background(), "g/p", "2")
	require.NoError(t, err)
	assert.True(t, info.HasParent)
	assert.Equal(t, "1", info.ParentID())
	assert.Equal(t, "Epic", info.Parent.Title)
}

func TestFetchHierarchyMissingWorkItem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": map[string]any{"project": map[string]any{"workItem": nil}}})
	})
	_, err := c.FetchHierarchy(context.Background(), "g/p", "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchHierarchyBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		assert.Contains(t, req.Query, `issue_1: workItem(iid: "1")`)
		assert.Contains(t, req.Query, `issue_2: workItem(iid: "2")`)
		assert.Equal(t, "g/p", req.Variables["fullPath"])
		writeJSON(t, w, map[string]any{
			"data": map[string]any{"project": map[string]any{
				"issue_1": map[string]any{"iid": "1", "widgets": []any{map[string]any{"hasParent": false, "hasChildren": true}}},
				"issue_2": map[string]any{"iid": "2", "widgets": []any{map[string]any{"hasParent": true, "parent": map[string]any{"iid": "1"}, "hasChildren": false}}},
				"issue_3": nil,
			}},
			"errors": []any{map[string]any{"message": "work item 3 not found"}},
		})
	})
	got, err := c.FetchHierarchyBatch(context.Background(), "g/p", []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got["1"].HasChildren)
	assert.Equal(t, "1", got["2"].ParentID())
}

func TestFetchHierarchyBatchLimits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	got, err := c.FetchHierarchyBatch(context.Background(), "g/p", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	ids := make([]string, hierarchy.MaxBatchSize+1)
	for i := range ids {
		ids[i] = "x"
	}
	_, err = c.FetchHierarchyBatch(context.Background(), "g/p", ids)
	assert.Error(t, err)
}

func TestFetchChildren(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		assert.Equal(t, "c1", req.Variables["after"])
		assert.EqualValues(t, hierarchy.ChildrenPageSize, req.Variables["first"])
		writeJSON(t, w, map[string]any{"data": map[string]any{"project": map[string]any{"workItem": map[string]any{
			"iid": "1",
			"widgets": []any{map[string]any{"children": map[string]any{
				"nodes":    []any{map[string]any{"iid": "5", "title": "five", "webUrl": "u5"}},
				"pageInfo": map[string]any{"endCursor": "c2", "hasNextPage": true},
			}}},
		}}}})
	})
	page, err := c.FetchChildren(context.Background(), "g/p", "1", "c1")
	require.NoError(t, err)
	assert.Equal(t, model.ChildrenPage{
		Children:  []model.ChildRef{{ID: "5", Title: "five", URL: "u5"}},
		HasMore:   true,
		EndCursor: "c2",
	}, page)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"not found", http.StatusNotFound, `{"message":"404 Project Not Found"}`, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, `{"message":"401 Unauthorized"}`, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"error":"insufficient_scope"}`, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.CurrentUser(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.NotContains(t, apiErr.Error(), "secret")
		})
	}
}

func TestGraphQLErrorsWithoutData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"errors": []any{map[string]any{"message": "Field 'workItem' doesn't exist"}}})
	})
	_, err := c.FetchHierarchy(context.Background(), "g/p", "1")
	require.ErrorIs(t, err, ErrGraphQL)
	assert.True(t, strings.Contains(err.Error(), "workItem"))
}

func TestCurrentUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/user", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "ganttree/"))
		writeJSON(t, w, map[string]any{"id": 1, "username": "ada", "name": "Ada"})
	})
	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
}

func TestEnricherOverClient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": map[string]any{"project": map[string]any{
			"issue_2": map[string]any{"widgets": []any{map[string]any{"hasParent": true, "parent": map[string]any{"iid": "1"}}}},
		}}})
	})
	parent := model.NewTask("1", "Epic")
	child := model.NewTask("2", "Other")
	child.SetKind(model.KindTask)

	stats := hierarchy.NewEnricher(c).Enrich(context.Background(), "g/p", []*model.Task{parent, child})
	assert.Equal(t, "1", child.ParentID)
	assert.Equal(t, 1, stats.Parents)
	assert.False(t, stats.FallbackUsed)
}

package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ganttree/pkg/hierarchy"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

const hierarchyFields = `
      iid
      title
      widgets {
        ... on WorkItemWidgetHierarchy {
          hasParent
          parent { iid title webUrl }
          hasChildren
        }
      }`

const hierarchyQuery = `query getWorkItemHierarchy($fullPath: ID!, $iid: String!) {
  project(fullPath: $fullPath) {
    workItem(iid: $iid) {` + hierarchyFields + `
    }
  }
}`

const childrenQuery = `query getWorkItemChildren($fullPath: ID!, $iid: String!, $first: Int!, $after: String) {
  project(fullPath: $fullPath) {
    workItem(iid: $iid) {
      iid
      title
      widgets {
        ... on WorkItemWidgetHierarchy {
          children(first: $first, after: $after) {
            nodes { iid title webUrl }
            pageInfo { endCursor hasNextPage }
          }
        }
      }
    }
  }
}`

var _ hierarchy.Transport = (*Client)(nil)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type workItem struct {
	IID     string   `json:"iid"`
	Title   string   `json:"title"`
	Widgets []widget `json:"widgets"`
}

// widget is any work item widget. Only the hierarchy widget fills these
// fields; the others decode to an empty object.
type widget struct {
	HasParent   *bool            `json:"hasParent"`
	Parent      *model.ParentRef `json:"parent"`
	HasChildren *bool            `json:"hasChildren"`
	Children    *struct {
		Nodes    []model.ChildRef `json:"nodes"`
		PageInfo struct {
			EndCursor   string `json:"endCursor"`
			HasNextPage bool   `json:"hasNextPage"`
		} `json:"pageInfo"`
	} `json:"children"`
}

func (w *workItem) hierarchy() (model.HierarchyInfo, bool) {
	if w == nil {
		return model.HierarchyInfo{}, false
	}
	for _, wd := range w.Widgets {
		if wd.HasParent == nil && wd.HasChildren == nil {
			continue
		}
		info := model.HierarchyInfo{Parent: wd.Parent}
		if wd.HasParent != nil {
			info.HasParent = *wd.HasParent
		}
		if wd.HasChildren != nil {
			info.HasChildren = *wd.HasChildren
		}
		return info, true
	}
	return model.HierarchyInfo{}, false
}

// graphql posts query and decodes response data into out. Errors in the
// response body fail the call only when no data came back.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]any, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.graphqlURL, graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	var resp graphqlResponse
	if _, err := c.do(req, &resp); err != nil {
		return err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		if len(resp.Errors) > 0 {
			return fmt.Errorf("%w: %s", ErrGraphQL, joinErrors(resp.Errors))
		}
		return fmt.Errorf("%w: empty response", ErrGraphQL)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("gitlab: decoding graphql data: %w", err)
	}
	return nil
}

func joinErrors(errs []graphqlError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// FetchHierarchy implements hierarchy.Transport.
func (c *Client) FetchHierarchy(ctx context.Context, project, id string) (model.HierarchyInfo, error) {
	var data struct {
		Project *struct {
			WorkItem *workItem `json:"workItem"`
		} `json:"project"`
	}
	err := c.graphql(ctx, hierarchyQuery, map[string]any{"fullPath": project, "iid": id}, &data)
	if err != nil {
		return model.HierarchyInfo{}, err
	}
	if data.Project == nil || data.Project.WorkItem == nil {
		return model.HierarchyInfo{}, fmt.Errorf("work item %s in %s: %w", id, project, ErrNotFound)
	}
	info, ok := data.Project.WorkItem.hierarchy()
	if !ok {
		return model.HierarchyInfo{}, fmt.Errorf("work item %s in %s has no hierarchy widget", id, project)
	}
	return info, nil
}

// batchQuery builds one query with an aliased workItem per id.
func batchQuery(ids []string) string {
	var b strings.Builder
	b.WriteString("query batchGetWorkItemHierarchy($fullPath: ID!) {\n  project(fullPath: $fullPath) {\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "    issue_%s: workItem(iid: %s) {%s\n    }\n", aliasSafe(id), strconv.Quote(id), hierarchyFields)
	}
	b.WriteString("  }\n}")
	return b.String()
}

// aliasSafe maps id onto the characters allowed in a GraphQL alias.
func aliasSafe(id string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return '_'
	}, id)
}

// FetchHierarchyBatch implements hierarchy.Transport. Ids beyond
// hierarchy.MaxBatchSize are rejected.
func (c *Client) FetchHierarchyBatch(ctx context.Context, project string, ids []string) (map[string]model.HierarchyInfo, error) {
	if len(ids) == 0 {
		return map[string]model.HierarchyInfo{}, nil
	}
	if len(ids) > hierarchy.MaxBatchSize {
		return nil, fmt.Errorf("batch of %d ids exceeds %d", len(ids), hierarchy.MaxBatchSize)
	}
	var data struct {
		Project map[string]*workItem `json:"project"`
	}
	if err := c.graphql(ctx, batchQuery(ids), map[string]any{"fullPath": project}, &data); err != nil {
		return nil, err
	}
	if data.Project == nil {
		return nil, fmt.Errorf("project %s: %w", project, ErrNotFound)
	}
	out := make(map[string]model.HierarchyInfo, len(ids))
	for _, id := range ids {
		if info, ok := data.Project["issue_"+aliasSafe(id)].hierarchy(); ok {
			out[id] = info
		}
	}
	return out, nil
}

// FetchChildren implements hierarchy.Transport.
func (c *Client) FetchChildren(ctx context.Context, project, id, cursor string) (model.ChildrenPage, error) {
	vars := map[string]any{"fullPath": project, "iid": id, "first": hierarchy.ChildrenPageSize}
	if cursor != "" {
		vars["after"] = cursor
	}
	var data struct {
		Project *struct {
			WorkItem *workItem `json:"workItem"`
		} `json:"project"`
	}
	if err := c.graphql(ctx, childrenQuery, vars, &data); err != nil {
		return model.ChildrenPage{}, err
	}
	if data.Project == nil || data.Project.WorkItem == nil {
		return model.ChildrenPage{}, fmt.Errorf("work item %s in %s: %w", id, project, ErrNotFound)
	}
	for _, wd := range data.Project.WorkItem.Widgets {
		if wd.Children == nil {
			continue
		}
		return model.ChildrenPage{
			Children:  wd.Children.Nodes,
			HasMore:   wd.Children.PageInfo.HasNextPage,
			EndCursor: wd.Children.PageInfo.EndCursor,
		}, nil
	}
	return model.ChildrenPage{}, nil
}

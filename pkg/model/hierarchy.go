package model

// ParentRef identifies a parent returned by a hierarchy query.
type ParentRef struct {
	ID    string `json:"iid"`
	Title string `json:"title"`
	URL   string `json:"webUrl"`
}

// HierarchyInfo is the structured hierarchy answer for one task.
type HierarchyInfo struct {
	HasParent   bool
	Parent      *ParentRef
	HasChildren bool
}

// ParentID returns the parent's id, or "" when no parent is known.
func (h HierarchyInfo) ParentID() string {
	if !h.HasParent || h.Parent == nil {
		return ""
	}
	return h.Parent.ID
}

// ChildRef is one child returned by a paginated children query.
type ChildRef struct {
	ID    string `json:"iid"`
	Title string `json:"title"`
	URL   string `json:"webUrl"`
}

// ChildrenPage is one page of children. EndCursor is opaque.
type ChildrenPage struct {
	Children  []ChildRef
	HasMore   bool
	EndCursor string
}

// RelationType is the direction of a legacy issue link.
type RelationType string

const (
	RelationBlocks      RelationType = "blocks"
	RelationIsBlockedBy RelationType = "is_blocked_by"
	RelationRelatesTo   RelationType = "relates_to"
)

// Relation is a directional link record from the legacy link API. SourceID
// is the task the links were listed for.
type Relation struct {
	SourceID string
	TargetID string
	Title    string
	Type     RelationType
}

// Pagination is the page metadata of a task list response. Zero means the
// value was not reported.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Previous int `json:"previous,omitempty"`
	Next     int `json:"next,omitempty"`
	Last     int `json:"last,omitempty"`
	Total    int `json:"total,omitempty"`
}

// TaskPage is one page of a task list.
type TaskPage struct {
	Tasks      []*Task    `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// ListOptions selects a page of tasks from a source. An empty Project lists
// issues across projects, which is how the assigned-to view works.
type ListOptions struct {
	Project  string
	Assignee string
	State    string // "opened" when empty
	Page     int
	PerPage  int
}

// Normalize fills defaults: page 1, 20 per page, opened issues.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PerPage < 1 {
		o.PerPage = 20
	}
	if o.PerPage > 100 {
		o.PerPage = 100
	}
	if o.State == "" {
		o.State = "opened"
	}
	return o
}

// Package testutil provides deterministic task fixtures for hierarchy tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// Fixture is an abstract parent graph. Each edge is [child, parent] as
// indexes into Nodes.
type Fixture struct {
	Description string   `json:"description"`
	Nodes       []string `json:"nodes"`
	Edges       [][2]int `json:"edges"`
	HasCycles   bool     `json:"has_cycles,omitempty"`
	MaxDepth    int      `json:"max_depth,omitempty"`
}

// GeneratorConfig controls task generation.
type GeneratorConfig struct {
	Seed      int64     // 0 = current time
	IDPrefix  string    // default "T"
	BaseTime  time.Time // start of the first task
	ChildType bool      // mark every non-root task as child type
	Hints     bool      // set HasChildrenHint on every parent
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		IDPrefix: "T",
		BaseTime: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Hints:    true,
	}
}

// Generator creates fixtures with various parent topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = DefaultConfig().BaseTime
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "T"
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Chain is n0 <- n1 <- ... <- n{size-1}: every node's parent is the one
// before it.
func (g *Generator) Chain(size int) Fixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i, i - 1})
		}
	}
	return Fixture{
		Description: fmt.Sprintf("chain of %d", size),
		Nodes:       nodes,
		Edges:       edges,
		MaxDepth:    max(size-1, 0),
	}
}

// Star is one parent with spokes children.
func (g *Generator) Star(spokes int) Fixture {
	nodes := []string{"hub"}
	edges := make([][2]int, 0, spokes)
	for i := 1; i <= spokes; i++ {
		nodes = append(nodes, fmt.Sprintf("s%d", i))
		edges = append(edges, [2]int{i, 0})
	}
	return Fixture{Description: fmt.Sprintf("star of %d", spokes), Nodes: nodes, Edges: edges, MaxDepth: 1}
}

// Tree is a complete tree of the given depth where every parent has
// breadth children. Nodes are listed breadth first.
func (g *Generator) Tree(depth, breadth int) Fixture {
	depth = max(depth, 1)
	breadth = max(breadth, 1)

	nodes := []string{"n0"}
	var edges [][2]int
	level := []int{0}
	for d := 0; d < depth; d++ {
		var next []int
		for _, parent := range level {
			for b := 0; b < breadth; b++ {
				child := len(nodes)
				nodes = append(nodes, fmt.Sprintf("n%d", child))
				edges = append(edges, [2]int{child, parent})
				next = append(next, child)
			}
		}
		level = next
	}
	return Fixture{
		Description: fmt.Sprintf("tree depth=%d breadth=%d", depth, breadth),
		Nodes:       nodes,
		Edges:       edges,
		MaxDepth:    depth,
	}
}

// Cycle is n0 -> n1 -> ... -> n{size-1} -> n0 through parent links.
func (g *Generator) Cycle(size int) Fixture {
	nodes := make([]string, size)
	edges := make([][2]int, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}
	return Fixture{Description: fmt.Sprintf("cycle of %d", size), Nodes: nodes, Edges: edges, HasCycles: true}
}

// SelfLoop is one node that is its own parent.
func (g *Generator) SelfLoop() Fixture {
	return Fixture{Description: "self loop", Nodes: []string{"n0"}, Edges: [][2]int{{0, 0}}, HasCycles: true}
}

// RandomForest gives each node after the first a random earlier parent
// with probability density; the rest are roots.
func (g *Generator) RandomForest(size int, density float64) Fixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 && g.rng.Float64() < density {
			edges = append(edges, [2]int{i, g.rng.Intn(i)})
		}
	}
	return Fixture{Description: fmt.Sprintf("random forest of %d", size), Nodes: nodes, Edges: edges}
}

// ToTasks converts a fixture to tasks titled "Task <node>". Only the first
// edge of a node counts as its parent.
func (g *Generator) ToTasks(f Fixture) []*model.Task {
	parentOf := make(map[int]int, len(f.Edges))
	hasChildren := make(map[int]bool)
	for _, e := range f.Edges {
		if _, seen := parentOf[e[0]]; seen {
			continue
		}
		parentOf[e[0]] = e[1]
		hasChildren[e[1]] = true
	}

	tasks := make([]*model.Task, len(f.Nodes))
	for i, name := range f.Nodes {
		task := model.NewTask(fmt.Sprintf("%s-%s", g.cfg.IDPrefix, name), "Task "+name)
		start := g.cfg.BaseTime.Add(time.Duration(i) * 24 * time.Hour)
		due := start.Add(time.Duration(g.rng.Intn(5)+1) * 24 * time.Hour)
		task.Start, task.Due = &start, &due
		task.SetKind(model.KindIssue)
		if p, ok := parentOf[i]; ok {
			task.ParentID = fmt.Sprintf("%s-%s", g.cfg.IDPrefix, f.Nodes[p])
			if g.cfg.ChildType {
				task.SetKind(model.KindTask)
			}
		}
		if g.cfg.Hints && hasChildren[i] {
			task.HasChildrenHint = true
		}
		tasks[i] = task
	}
	return tasks
}

// ToJSONL renders tasks one JSON object per line.
func ToJSONL(tasks []*model.Task) string {
	var sb strings.Builder
	for _, t := range tasks {
		data, err := json.Marshal(t)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// QuickChain returns a default chain of tasks.
func QuickChain(size int) []*model.Task {
	g := NewDefault()
	return g.ToTasks(g.Chain(size))
}

// QuickTree returns a default complete tree of tasks.
func QuickTree(depth, breadth int) []*model.Task {
	g := NewDefault()
	return g.ToTasks(g.Tree(depth, breadth))
}

// QuickCycle returns tasks whose parent links form one cycle.
func QuickCycle(size int) []*model.Task {
	g := NewDefault()
	return g.ToTasks(g.Cycle(size))
}

// Titled builds a parentless issue task with the given id and title.
func Titled(id, title string) *model.Task {
	t := model.NewTask(id, title)
	t.SetKind(model.KindIssue)
	return t
}

// Child builds a child-type task under parentID.
func Child(id, title, parentID string) *model.Task {
	t := model.NewTask(id, title)
	t.SetKind(model.KindTask)
	t.ParentID = parentID
	return t
}

package tree

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// DetectParentCycles returns every group of tasks whose ParentID links form
// a cycle, including tasks that name themselves as parent. Members of each
// group and the groups themselves are in input order. Links to ids outside
// tasks are ignored.
func DetectParentCycles(tasks []*model.Task) [][]string {
	pos := make(map[string]int64, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t == nil || t.ID == "" {
			continue
		}
		if _, dup := pos[t.ID]; dup {
			continue
		}
		pos[t.ID] = int64(len(ids))
		ids = append(ids, t.ID)
	}

	g := simple.NewDirectedGraph()
	for i := range ids {
		g.AddNode(simple.Node(int64(i)))
	}

	var cycles [][]string
	for _, t := range tasks {
		if t == nil || t.ParentID == "" {
			continue
		}
		from, ok := pos[t.ID]
		if !ok {
			continue
		}
		to, ok := pos[t.ParentID]
		if !ok {
			continue
		}
		if from == to {
			// simple graphs reject self edges
			cycles = append(cycles, []string{t.ID})
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(from), g.Node(to)))
	}

	for _, component := range topo.TarjanSCC(g) {
		if len(component) < 2 {
			continue
		}
		members := make([]int64, len(component))
		for i, n := range component {
			members[i] = n.ID()
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		group := make([]string, len(members))
		for i, m := range members {
			group[i] = ids[m]
		}
		cycles = append(cycles, group)
	}

	sort.SliceStable(cycles, func(i, j int) bool {
		return pos[cycles[i][0]] < pos[cycles[j][0]]
	})
	return cycles
}

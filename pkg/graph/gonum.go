package graph

import (
	"slices"

	gonumgraph "gonum.org/v1/gonum/graph"
)

// FromGonum copies a gonum weighted undirected graph into a Graph.
// The returned slice maps dense node ids back to the gonum node ids, which are
// assigned in ascending gonum id order.
func FromGonum(g gonumgraph.WeightedUndirected) (*Graph, []int64, error) {
	nodes := gonumgraph.NodesOf(g.Nodes())
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	slices.Sort(ids)

	index := make(map[int64]uint64, len(ids))
	for i, id := range ids {
		index[id] = uint64(i)
	}

	b := NewBuilder(uint64(len(ids)))
	for i, id := range ids {
		to := g.From(id)
		for to.Next() {
			vid := to.Node().ID()
			j := index[vid]
			// each undirected edge is added once, from its lower endpoint
			if j < uint64(i) {
				continue
			}
			e := g.WeightedEdge(id, vid)
			if e == nil {
				continue
			}
			b.AddEdge(uint64(i), j, e.Weight())
		}
	}

	built, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return built, ids, nil
}

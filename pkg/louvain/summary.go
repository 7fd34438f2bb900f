package louvain

import (
	"cmp"
	"slices"

	"github.com/dd0wney/cluso-louvain/pkg/graph"
)

// Community describes one final community of a Result
type Community struct {
	ID             uint64   `json:"id"`
	Nodes          []uint64 `json:"nodes,omitempty"`
	Size           int      `json:"size"`
	Density        float64  `json:"density"`         // internal edges over possible pairs
	InternalWeight float64  `json:"internal_weight"` // weight of edges inside the community
	Degree         float64  `json:"degree"`          // total weighted degree of the members
}

// Summarize describes the final communities of res on the input graph g,
// largest first. Ties are ordered by id.
func Summarize(g graph.WeightedGraph, nodeWeights graph.NodeWeightFunc, res *Result) []Community {
	communities := make([]Community, res.CommunityCount)
	internalEdges := make([]float64, res.CommunityCount)

	for c, members := range res.Members() {
		communities[c] = Community{ID: uint64(c), Nodes: members, Size: len(members)}
	}

	for node, c := range res.Communities {
		source := uint64(node)
		community := &communities[c]
		community.Degree += 2 * nodeWeights.Of(source)

		g.ForEachRelationship(source, func(_, target uint64, w float64) bool {
			community.Degree += w
			if res.Communities[target] != c {
				return true
			}
			switch {
			case target == source:
				community.InternalWeight += w
			case target > source:
				// count each undirected edge from its lower endpoint
				community.InternalWeight += w
				internalEdges[c]++
			}
			return true
		})
	}

	for c := range communities {
		size := float64(communities[c].Size)
		if size > 1 {
			communities[c].Density = internalEdges[c] / (size * (size - 1) / 2)
		}
	}

	slices.SortStableFunc(communities, func(a, b Community) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return communities
}

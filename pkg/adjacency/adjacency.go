// Package adjacency holds the aggregated graph built between clustering levels.
package adjacency

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/dd0wney/cluso-louvain/pkg/memtrack"
)

// checkInterval is how many input nodes Rebuild scans between context checks
const checkInterval = 4096

// pairKey identifies an unordered pair of communities, smaller id first
type pairKey [2]uint64

func keyOf(a, b uint64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// SparseCommunityAdjacency is a symmetric weighted graph over community ids.
// Each community keeps a deduplicated, ordered neighbour set and a self-weight
// holding the mass contracted inside it. Self-loops are never reported as
// relationships; that mass is exposed through NodeWeight instead.
//
// Add and AddSelfWeight are not safe for concurrent use. Once built, the
// adjacency is read-only and may be traversed from any number of goroutines.
type SparseCommunityAdjacency struct {
	neighbors   []*roaring64.Bitmap
	weights     map[pairKey]float64
	selfWeights []float64

	tracker *memtrack.Tracker
	tracked int64
}

// New creates an empty adjacency over communityCount communities
func New(communityCount uint64, tracker *memtrack.Tracker) *SparseCommunityAdjacency {
	return &SparseCommunityAdjacency{
		neighbors:   make([]*roaring64.Bitmap, communityCount),
		weights:     make(map[pairKey]float64),
		selfWeights: make([]float64, communityCount),
		tracker:     tracker,
	}
}

// Add accumulates weight on the undirected pair (source, target).
// Adding to a pair twice sums the weights; a pair with source == target goes
// to the self-weight.
func (a *SparseCommunityAdjacency) Add(source, target uint64, weight float64) {
	if source == target {
		a.selfWeights[source] += weight
		return
	}
	a.neighborSet(source).Add(target)
	a.neighborSet(target).Add(source)
	a.weights[keyOf(source, target)] += weight
}

// AddSelfWeight adds weight to the mass contracted inside community c
func (a *SparseCommunityAdjacency) AddSelfWeight(c uint64, weight float64) {
	a.selfWeights[c] += weight
}

func (a *SparseCommunityAdjacency) neighborSet(c uint64) *roaring64.Bitmap {
	set := a.neighbors[c]
	if set == nil {
		set = roaring64.NewBitmap()
		a.neighbors[c] = set
	}
	return set
}

// Rebuild contracts g along communities into a graph with one node per community.
//
// Every visited relationship (s, t, w) contributes w/2: to the pair
// (c(s), c(t)) when the endpoints are in different communities, otherwise to
// the self-weight of their shared community. An undirected edge is visited
// from both endpoints, so the pair ends up with the full edge weight. Node
// weights of the members are added to their community's self-weight.
func Rebuild(
	ctx context.Context,
	g graph.WeightedGraph,
	nodeWeights graph.NodeWeightFunc,
	communities []uint64,
	communityCount uint64,
	tracker *memtrack.Tracker,
) (*SparseCommunityAdjacency, error) {
	n := g.NodeCount()
	if uint64(len(communities)) != n {
		return nil, fmt.Errorf("%w: %d community ids for %d nodes", graph.ErrInvalidInput, len(communities), n)
	}

	a := New(communityCount, tracker)
	var err error
	for node := uint64(0); node < n; node++ {
		if node%checkInterval == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		}

		cs := communities[node]
		if cs >= communityCount {
			return nil, fmt.Errorf("%w: node %d assigned to community %d of %d", graph.ErrNodeOutOfRange, node, cs, communityCount)
		}
		a.selfWeights[cs] += nodeWeights.Of(node)

		g.ForEachRelationship(node, func(_, t uint64, w float64) bool {
			if t >= n {
				err = fmt.Errorf("%w: relationship %d->%d", graph.ErrNodeOutOfRange, node, t)
				return false
			}
			a.Add(cs, communities[t], w/2)
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	a.tracked = a.SizeInBytes()
	a.tracker.Add(a.tracked)
	return a, nil
}

// NodeCount returns the number of communities
func (a *SparseCommunityAdjacency) NodeCount() uint64 {
	return uint64(len(a.selfWeights))
}

// ForEachRelationship visits the neighbouring communities of node in ascending order
func (a *SparseCommunityAdjacency) ForEachRelationship(node uint64, visit graph.RelationshipVisitor) {
	set := a.neighbors[node]
	if set == nil {
		return
	}
	it := set.Iterator()
	for it.HasNext() {
		target := it.Next()
		if !visit(node, target, a.weights[keyOf(node, target)]) {
			return
		}
	}
}

// WeightOf returns the aggregated weight between two distinct communities.
// It is symmetric and 0 for unrelated pairs and for source == target.
func (a *SparseCommunityAdjacency) WeightOf(source, target uint64) float64 {
	if source == target {
		return 0
	}
	return a.weights[keyOf(source, target)]
}

// ConcurrentCopy returns a; a built adjacency is only read
func (a *SparseCommunityAdjacency) ConcurrentCopy() graph.WeightedGraph {
	return a
}

// NodeWeight returns the self-weight of community c.
// Its method value is the NodeWeightFunc of the next level.
func (a *SparseCommunityAdjacency) NodeWeight(c uint64) float64 {
	return a.selfWeights[c]
}

// SelfWeight is an alias of NodeWeight
func (a *SparseCommunityAdjacency) SelfWeight(c uint64) float64 {
	return a.selfWeights[c]
}

// Degree returns the number of distinct neighbouring communities of c
func (a *SparseCommunityAdjacency) Degree(c uint64) uint64 {
	if set := a.neighbors[c]; set != nil {
		return set.GetCardinality()
	}
	return 0
}

// EdgeCount returns the number of distinct undirected community pairs
func (a *SparseCommunityAdjacency) EdgeCount() int {
	return len(a.weights)
}

// SizeInBytes estimates the memory held by the adjacency
func (a *SparseCommunityAdjacency) SizeInBytes() int64 {
	size := memtrack.Float64s(uint64(len(a.selfWeights))) + int64(len(a.neighbors))*8
	for _, set := range a.neighbors {
		if set != nil {
			size += int64(set.GetSizeInBytes())
		}
	}
	// two keys and a weight per map entry
	size += int64(len(a.weights)) * (2*memtrack.Uint64Bytes + memtrack.Float64Bytes)
	return size
}

// Release returns the tracked memory and drops the internal structures.
// The adjacency must not be used afterwards.
func (a *SparseCommunityAdjacency) Release() {
	a.tracker.Remove(a.tracked)
	a.tracked = 0
	a.neighbors = nil
	a.weights = nil
	a.selfWeights = nil
}

var (
	_ graph.WeightedGraph = (*SparseCommunityAdjacency)(nil)
	_ graph.Releaser      = (*SparseCommunityAdjacency)(nil)
)

package graph

import (
	"cmp"
	"math"
	"slices"
	"sort"
)

// Graph is an immutable undirected weighted graph in compressed sparse row form.
// Each undirected edge is stored under both endpoints; self-loops are stored once.
type Graph struct {
	offsets []uint64 // len nodeCount+1
	targets []uint64
	weights []float64
}

type edge struct {
	source uint64
	target uint64
	weight float64
}

// MaxNodeCount bounds the node ids a Builder accepts; ids must be below it
const MaxNodeCount = 1 << 32

// Builder collects undirected edges and produces a Graph.
// Parallel edges between the same pair are merged by summing their weights.
type Builder struct {
	nodeCount uint64
	edges     []edge
	err       error // first rejected edge, reported by Build
}

// NewBuilder creates a builder for a graph with at least nodeCount nodes
func NewBuilder(nodeCount uint64) *Builder {
	return &Builder{nodeCount: nodeCount}
}

// AddEdge adds an undirected edge. Nodes beyond the current count grow the graph.
// An id of MaxNodeCount or more is rejected when Build is called.
func (b *Builder) AddEdge(source, target uint64, weight float64) *Builder {
	if b.err != nil {
		return b
	}
	if source >= MaxNodeCount || target >= MaxNodeCount {
		b.err = relationshipError("AddEdge", source, target, weight, ErrNodeOutOfRange)
		return b
	}
	b.edges = append(b.edges, edge{source: source, target: target, weight: weight})
	if source >= b.nodeCount {
		b.nodeCount = source + 1
	}
	if target >= b.nodeCount {
		b.nodeCount = target + 1
	}
	return b
}

// NodeCount returns the number of nodes the built graph will have
func (b *Builder) NodeCount() uint64 {
	return b.nodeCount
}

// Build validates the collected edges and returns the graph
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.nodeCount > MaxNodeCount {
		return nil, nodeError("Build", b.nodeCount, 0, ErrNodeOutOfRange)
	}

	directed := make([]edge, 0, 2*len(b.edges))
	for _, e := range b.edges {
		if math.IsNaN(e.weight) {
			return nil, relationshipError("Build", e.source, e.target, e.weight, ErrNaNWeight)
		}
		if math.IsInf(e.weight, 0) {
			return nil, relationshipError("Build", e.source, e.target, e.weight, ErrInfiniteWeight)
		}
		if e.weight < 0 {
			return nil, relationshipError("Build", e.source, e.target, e.weight, ErrNegativeWeight)
		}
		directed = append(directed, e)
		if e.source != e.target {
			directed = append(directed, edge{source: e.target, target: e.source, weight: e.weight})
		}
	}

	slices.SortFunc(directed, func(a, b edge) int {
		if c := cmp.Compare(a.source, b.source); c != 0 {
			return c
		}
		return cmp.Compare(a.target, b.target)
	})

	g := &Graph{
		offsets: make([]uint64, b.nodeCount+1),
		targets: make([]uint64, 0, len(directed)),
		weights: make([]float64, 0, len(directed)),
	}

	for i := 0; i < len(directed); {
		e := directed[i]
		w := e.weight
		j := i + 1
		for j < len(directed) && directed[j].source == e.source && directed[j].target == e.target {
			w += directed[j].weight
			j++
		}
		g.targets = append(g.targets, e.target)
		g.weights = append(g.weights, w)
		g.offsets[e.source+1]++
		i = j
	}

	for i := uint64(1); i <= b.nodeCount; i++ {
		g.offsets[i] += g.offsets[i-1]
	}

	return g, nil
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() uint64 {
	return uint64(len(g.offsets) - 1)
}

// RelationshipCount returns the number of stored directed relationships
func (g *Graph) RelationshipCount() uint64 {
	return uint64(len(g.targets))
}

// Degree returns the number of distinct neighbours of node
func (g *Graph) Degree(node uint64) int {
	return int(g.offsets[node+1] - g.offsets[node])
}

// ForEachRelationship visits the neighbours of node in ascending id order
func (g *Graph) ForEachRelationship(node uint64, visit RelationshipVisitor) {
	start, end := g.offsets[node], g.offsets[node+1]
	for i := start; i < end; i++ {
		if !visit(node, g.targets[i], g.weights[i]) {
			return
		}
	}
}

// WeightOf returns the weight of source->target, or 0 if there is no such edge
func (g *Graph) WeightOf(source, target uint64) float64 {
	start, end := g.offsets[source], g.offsets[source+1]
	row := g.targets[start:end]
	i := sort.Search(len(row), func(i int) bool { return row[i] >= target })
	if i < len(row) && row[i] == target {
		return g.weights[start+uint64(i)]
	}
	return 0
}

// ConcurrentCopy returns g; the graph is immutable and safe for concurrent reads
func (g *Graph) ConcurrentCopy() WeightedGraph {
	return g
}

// SizeInBytes estimates the memory held by the graph arrays
func (g *Graph) SizeInBytes() int64 {
	return int64(len(g.offsets))*8 + int64(cap(g.targets))*8 + int64(cap(g.weights))*8
}

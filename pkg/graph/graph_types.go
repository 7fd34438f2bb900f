package graph

// RelationshipVisitor is called once per relationship reported by a graph.
// Returning false stops the iteration for the current node.
type RelationshipVisitor func(source, target uint64, weight float64) bool

// WeightedGraph is the read-only graph consumed by the clustering core.
//
// Node ids are dense in [0, NodeCount()). Undirected graphs report every
// edge from both endpoints; a self-loop is reported once.
type WeightedGraph interface {
	// NodeCount returns the number of nodes
	NodeCount() uint64
	// ForEachRelationship visits the weighted out-relationships of node
	ForEachRelationship(node uint64, visit RelationshipVisitor)
	// WeightOf returns the weight of source->target, or 0 if absent
	WeightOf(source, target uint64) float64
	// ConcurrentCopy returns a view that is safe to traverse from another goroutine
	ConcurrentCopy() WeightedGraph
}

// NodeWeightFunc returns the self-weight of a node.
// A nil NodeWeightFunc means every node weighs 0.
type NodeWeightFunc func(node uint64) float64

// Of returns the weight of node, treating a nil func as zero
func (f NodeWeightFunc) Of(node uint64) float64 {
	if f == nil {
		return 0
	}
	return f(node)
}

// ZeroNodeWeights is the default node weight function
func ZeroNodeWeights(uint64) float64 { return 0 }

// Releaser is implemented by graphs that hold tracked memory
type Releaser interface {
	Release()
}

package graph

// WeightedDegree returns k_i: the visited relationship weight of node plus twice its node weight.
// A self-loop is visited once and so counts its weight once.
func WeightedDegree(g WeightedGraph, nodeWeights NodeWeightFunc, node uint64) float64 {
	k := 2 * nodeWeights.Of(node)
	g.ForEachRelationship(node, func(_, _ uint64, w float64) bool {
		k += w
		return true
	})
	return k
}

// RelationshipWeight returns the sum of all visited relationship weights.
// For an undirected graph without self-loops this is twice the total edge weight.
func RelationshipWeight(g WeightedGraph) float64 {
	total := 0.0
	n := g.NodeCount()
	for node := uint64(0); node < n; node++ {
		g.ForEachRelationship(node, func(_, _ uint64, w float64) bool {
			total += w
			return true
		})
	}
	return total
}

// TotalMass returns m2, the sum of all weighted degrees.
// Coarsening a graph preserves its total mass.
func TotalMass(g WeightedGraph, nodeWeights NodeWeightFunc) float64 {
	total := RelationshipWeight(g)
	n := g.NodeCount()
	for node := uint64(0); node < n; node++ {
		total += 2 * nodeWeights.Of(node)
	}
	return total
}

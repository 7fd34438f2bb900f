package louvain

import (
	"context"
	"math"
	"testing"

	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const propertyNodes = 16

func randomGraph(edges []uint64) *graph.Graph {
	b := graph.NewBuilder(propertyNodes)
	for i, e := range edges {
		b.AddEdge(e%propertyNodes, (e/propertyNodes)%propertyNodes, float64(i%4)+0.5)
	}
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

// inputModularity evaluates the partition directly on g
func inputModularity(g graph.WeightedGraph, communities []uint64) float64 {
	n := g.NodeCount()
	m2 := graph.TotalMass(g, nil)
	k := make([]float64, n)
	for i := range n {
		k[i] = graph.WeightedDegree(g, nil, i)
	}

	q := 0.0
	for s := range n {
		for t := range n {
			if communities[s] == communities[t] {
				q += g.WeightOf(s, t) - k[s]*k[t]/m2
			}
		}
	}
	return q / m2
}

func distinct(ids []uint64) int {
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func clusterOnce(edges []uint64, maxLevel, concurrency int) (*graph.Graph, *Result, error) {
	g := randomGraph(edges)
	cfg := DefaultConfig()
	cfg.MaxLevel = maxLevel
	cfg.Concurrency = concurrency
	cfg.Seed = 5

	l, err := New(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := l.Run(context.Background(), g, nil)
	return g, res, err
}

func TestProperty_LevelInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	edgeGen := gen.SliceOf(gen.UInt64Range(0, propertyNodes*propertyNodes-1))

	properties.Property("dendrogram is bounded and counts shrink", prop.ForAll(
		func(edges []uint64, maxLevel, concurrency int) bool {
			_, res, err := clusterOnce(edges, maxLevel, concurrency)
			if err != nil || len(res.Dendrogram) > maxLevel {
				return false
			}
			previous := propertyNodes
			for _, level := range res.Dendrogram {
				count := distinct(level)
				if count > previous {
					return false
				}
				previous = count
			}
			return res.Levels == len(res.Modularities)
		},
		edgeGen,
		gen.IntRange(1, 5),
		gen.IntRange(1, 4),
	))

	properties.Property("modularity strictly increases across levels", prop.ForAll(
		func(edges []uint64, concurrency int) bool {
			_, res, err := clusterOnce(edges, 10, concurrency)
			if err != nil {
				return false
			}
			for i := 1; i < len(res.Modularities); i++ {
				if res.Modularities[i] <= res.Modularities[i-1] {
					return false
				}
			}
			return true
		},
		edgeGen,
		gen.IntRange(1, 4),
	))

	properties.Property("final communities are dense and match the reported modularity", prop.ForAll(
		func(edges []uint64) bool {
			g, res, err := clusterOnce(edges, 10, 2)
			if err != nil {
				return false
			}
			for _, c := range res.Communities {
				if c >= res.CommunityCount {
					return false
				}
			}
			if uint64(distinct(res.Communities)) != res.CommunityCount {
				return false
			}
			if graph.TotalMass(g, nil) == 0 {
				return res.FinalModularity() == 0
			}
			if res.Levels == 0 {
				// no level reduced the graph; nothing was reported
				return len(res.Modularities) == 0
			}
			return math.Abs(inputModularity(g, res.Communities)-res.FinalModularity()) < 1e-9
		},
		edgeGen,
	))

	properties.Property("sequential runs are reproducible", prop.ForAll(
		func(edges []uint64) bool {
			_, first, err := clusterOnce(edges, 10, 1)
			if err != nil {
				return false
			}
			_, second, err := clusterOnce(edges, 10, 1)
			if err != nil || len(first.Modularities) != len(second.Modularities) {
				return false
			}
			for i := range first.Modularities {
				if first.Modularities[i] != second.Modularities[i] {
					return false
				}
			}
			for i := range first.Communities {
				if first.Communities[i] != second.Communities[i] {
					return false
				}
			}
			return true
		},
		edgeGen,
	))

	properties.TestingRun(t)
}

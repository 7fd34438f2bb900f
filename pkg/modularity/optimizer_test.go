package modularity

import (
	"context"
	"errors"
	"testing"

	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/dd0wney/cluso-louvain/pkg/memtrack"
	"github.com/dd0wney/cluso-louvain/pkg/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

type testEdge struct {
	s, t uint64
	w    float64
}

func build(t *testing.T, n uint64, edges []testEdge) *graph.Graph {
	t.Helper()

	b := graph.NewBuilder(n)
	for _, e := range edges {
		b.AddEdge(e.s, e.t, e.w)
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func twoTriangles() []testEdge {
	return []testEdge{
		{0, 1, 1}, {1, 2, 1}, {0, 2, 1},
		{3, 4, 1}, {4, 5, 1}, {3, 5, 1},
	}
}

// ringOfCliques joins cliques of four nodes into a ring with light edges
func ringOfCliques(cliques uint64) (uint64, []testEdge) {
	var edges []testEdge
	for c := uint64(0); c < cliques; c++ {
		base := 4 * c
		for i := uint64(0); i < 4; i++ {
			for j := i + 1; j < 4; j++ {
				edges = append(edges, testEdge{base + i, base + j, 1})
			}
		}
		edges = append(edges, testEdge{base + 3, (base + 4) % (4 * cliques), 0.1})
	}
	return 4 * cliques, edges
}

// pairModularity evaluates (1/m2)·Σ_{s,t in the same community} [A_st - k_s·k_t/m2]
func pairModularity(g graph.WeightedGraph, communities []uint64) float64 {
	n := g.NodeCount()
	k := make([]float64, n)
	for i := uint64(0); i < n; i++ {
		k[i] = graph.WeightedDegree(g, nil, i)
	}
	m2 := graph.TotalMass(g, nil)

	q := 0.0
	for s := uint64(0); s < n; s++ {
		for t := uint64(0); t < n; t++ {
			if communities[s] != communities[t] {
				continue
			}
			q += g.WeightOf(s, t) - k[s]*k[t]/m2
		}
	}
	return q / m2
}

func gonumModularity(edges []testEdge, communities []uint64) float64 {
	gg := simple.NewWeightedUndirectedGraph(0, 0)
	for _, e := range edges {
		gg.SetWeightedEdge(gg.NewWeightedEdge(simple.Node(e.s), simple.Node(e.t), e.w))
	}

	groups := make(map[uint64][]gonumgraph.Node)
	var order []uint64
	for node, c := range communities {
		if _, ok := groups[c]; !ok {
			order = append(order, c)
		}
		groups[c] = append(groups[c], simple.Node(node))
	}
	parts := make([][]gonumgraph.Node, 0, len(order))
	for _, c := range order {
		parts = append(parts, groups[c])
	}
	return community.Q(gg, parts, 1)
}

func TestOptimize_TwoTriangles(t *testing.T) {
	g := build(t, 6, twoTriangles())

	out, err := Optimize(context.Background(), g, nil, Options{Concurrency: 1, MaxIterations: 10})
	require.NoError(t, err)

	c := out.Communities
	assert.Equal(t, c[0], c[1])
	assert.Equal(t, c[0], c[2])
	assert.Equal(t, c[3], c[4])
	assert.Equal(t, c[3], c[5])
	assert.NotEqual(t, c[0], c[3])

	assert.InDelta(t, 0.5, out.Modularity, 1e-9)
	assert.InDelta(t, gonumModularity(twoTriangles(), c), out.Modularity, 1e-9)
	assert.Equal(t, 2, out.Iterations)
}

func TestOptimize_MatchesPairFormula(t *testing.T) {
	n, edges := ringOfCliques(5)
	g := build(t, n, edges)

	for _, concurrency := range []int{1, 3} {
		out, err := Optimize(context.Background(), g, nil, Options{
			Concurrency:   concurrency,
			MaxIterations: 10,
			Seed:          7,
		})
		require.NoError(t, err)

		assert.InDelta(t, pairModularity(g, out.Communities), out.Modularity, 1e-9, "concurrency %d", concurrency)
		assert.InDelta(t, gonumModularity(edges, out.Communities), out.Modularity, 1e-9, "concurrency %d", concurrency)
		if out.Modularity <= 0.5 {
			t.Errorf("Expected the cliques to be found, modularity %f", out.Modularity)
		}
	}
}

func TestOptimize_Deterministic(t *testing.T) {
	n, edges := ringOfCliques(6)
	g := build(t, n, edges)
	opts := Options{Concurrency: 4, MaxIterations: 10, Seed: 42}

	first, err := Optimize(context.Background(), g, nil, opts)
	require.NoError(t, err)
	second, err := Optimize(context.Background(), g, nil, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Communities, second.Communities)
	assert.Equal(t, first.Modularity, second.Modularity)
	assert.Equal(t, first.Iterations, second.Iterations)
}

func TestOptimize_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		g    *graph.Graph
	}{
		{name: "no nodes", g: build(t, 0, nil)},
		{name: "no edges", g: build(t, 3, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Optimize(context.Background(), tt.g, nil, Options{Concurrency: 2, MaxIterations: 5})
			require.NoError(t, err)

			assert.Equal(t, 0.0, out.Modularity)
			assert.Equal(t, 0, out.Iterations)
			for i, c := range out.Communities {
				assert.Equal(t, uint64(i), c)
			}
			assert.Len(t, out.Communities, int(tt.g.NodeCount()))
		})
	}
}

func TestOptimize_ZeroIterations(t *testing.T) {
	g := build(t, 6, twoTriangles())

	out, err := Optimize(context.Background(), g, nil, Options{MaxIterations: 0})
	require.NoError(t, err)

	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, out.Communities)
	assert.InDelta(t, pairModularity(g, out.Communities), out.Modularity, 1e-12)
	assert.Equal(t, 0, out.Iterations)
}

func TestOptimize_NodeWeights(t *testing.T) {
	g := build(t, 6, twoTriangles())
	weights := func(uint64) float64 { return 1 }

	out, err := Optimize(context.Background(), g, weights, Options{Concurrency: 1, MaxIterations: 10})
	require.NoError(t, err)

	// m2 = 12 + 12; each triangle holds sIn = 6 + 6 and sTot = 12
	assert.InDelta(t, 0.5, out.Modularity, 1e-9)
	assert.Equal(t, out.Communities[0], out.Communities[2])
}

func TestOptimize_RandomNeighbor(t *testing.T) {
	n, edges := ringOfCliques(4)
	g := build(t, n, edges)

	out, err := Optimize(context.Background(), g, nil, Options{
		Concurrency:    2,
		MaxIterations:  10,
		RandomNeighbor: true,
		Seed:           3,
	})
	require.NoError(t, err)

	assert.Len(t, out.Communities, int(n))
	assert.InDelta(t, pairModularity(g, out.Communities), out.Modularity, 1e-9)
	identity := make([]uint64, n)
	for i := range identity {
		identity[i] = uint64(i)
	}
	assert.GreaterOrEqual(t, out.Modularity, pairModularity(g, identity))
}

func TestOptimize_Cancelled(t *testing.T) {
	g := build(t, 6, twoTriangles())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := Optimize(ctx, g, nil, Options{Concurrency: 2, MaxIterations: 10})
	assert.Nil(t, out)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimizer_SharedPoolAndTracker(t *testing.T) {
	pool, err := parallel.NewWorkerPool(2)
	require.NoError(t, err)
	defer pool.Close()
	tracker := memtrack.New(nil)

	n, edges := ringOfCliques(3)
	g := build(t, n, edges)

	o := New(g, nil, Options{Concurrency: 2, MaxIterations: 10, Pool: pool, Tracker: tracker})
	require.NoError(t, o.Compute(context.Background()))

	assert.Greater(t, tracker.InUse(), int64(0))
	communities := o.Communities()
	o.Release()

	assert.Equal(t, int64(0), tracker.InUse())
	assert.Greater(t, tracker.Peak(), int64(0))
	assert.Len(t, communities, int(n))
	assert.Greater(t, o.Iterations(), 0)
}

func TestBestTask_TiesGoToLowestIndex(t *testing.T) {
	tests := []struct {
		name        string
		improvement []bool
		modularity  []float64
		want        int // -1 for no winner
	}{
		{name: "all tie", improvement: []bool{true, true, true}, modularity: []float64{0.4, 0.4, 0.4}, want: 0},
		{name: "skips non-improving", improvement: []bool{false, true, true, true}, modularity: []float64{0.9, 0.3, 0.5, 0.5}, want: 2},
		{name: "highest wins", improvement: []bool{true, true, true}, modularity: []float64{0.1, 0.2, 0.15}, want: 1},
		{name: "no improvement", improvement: []bool{false, false}, modularity: []float64{0.7, 0.8}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Optimizer{}
			for i := range tt.improvement {
				o.tasks = append(o.tasks, &task{
					index:       i,
					improvement: tt.improvement[i],
					modularity:  tt.modularity[i],
				})
			}

			best := o.bestTask()
			if tt.want < 0 {
				assert.Nil(t, best)
				return
			}
			require.NotNil(t, best)
			assert.Equal(t, tt.want, best.index)
		})
	}
}

// newTestTasks initialises an optimizer's shared state and tasks without running rounds
func newTestTasks(t *testing.T, concurrency int) *Optimizer {
	t.Helper()

	n, edges := ringOfCliques(5)
	o := New(build(t, n, edges), nil, Options{Concurrency: concurrency, MaxIterations: 1, Seed: 7})
	require.NoError(t, o.initDegrees(context.Background()))
	o.initTasks()
	return o
}

func assertPermutation(t *testing.T, order []uint64) {
	t.Helper()

	seen := make([]bool, len(order))
	for _, node := range order {
		require.Less(t, node, uint64(len(order)))
		require.False(t, seen[node], "node %d visited twice", node)
		seen[node] = true
	}
}

func TestTaskRun_ShufflesOrderPerTaskAndRound(t *testing.T) {
	o := newTestTasks(t, 2)
	first, second := o.tasks[0], o.tasks[1]

	require.NoError(t, first.run())
	require.NoError(t, second.run())
	assertPermutation(t, first.order)
	assertPermutation(t, second.order)
	assert.NotEqual(t, first.order, second.order)

	previous := append([]uint64(nil), first.order...)
	require.NoError(t, first.run())
	assertPermutation(t, first.order)
	assert.NotEqual(t, previous, first.order)
}

func TestTaskRun_SingleTaskSweepsInOrder(t *testing.T) {
	o := newTestTasks(t, 1)
	only := o.tasks[0]

	require.NoError(t, only.run())
	for i, node := range only.order {
		assert.Equal(t, uint64(i), node)
	}
	assert.True(t, only.improvement)
}

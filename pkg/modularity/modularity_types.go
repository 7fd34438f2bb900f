// Package modularity runs the parallel local-search phase of one clustering level.
package modularity

import (
	"errors"
	"sync/atomic"

	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/memtrack"
	"github.com/dd0wney/cluso-louvain/pkg/parallel"
)

// ErrCancelled is returned when the context is done before optimisation finished.
// No partial assignment is reported alongside it.
var ErrCancelled = errors.New("clustering cancelled")

// Options configures an Optimizer
type Options struct {
	// Concurrency is the number of speculative tasks per round; values below 1 mean 1
	Concurrency int
	// MaxIterations caps the number of rounds
	MaxIterations int
	// RandomNeighbor moves each node to a random neighbouring community instead of the best one
	RandomNeighbor bool
	// Seed makes task node orders and random choices reproducible
	Seed int64
	// Pool runs the tasks; a private pool is created when nil
	Pool *parallel.WorkerPool
	// Tracker accounts for the per-task arrays (optional)
	Tracker *memtrack.Tracker
	// Logger receives per-round diagnostics at debug level (optional)
	Logger logging.Logger
}

// Outcome is the result of one optimisation
type Outcome struct {
	Communities []uint64
	Iterations  int
	Modularity  float64
}

// Optimizer finds a community assignment for the nodes of one graph that
// locally maximises modularity.
//
// Every round, Concurrency tasks sweep all nodes independently from the same
// starting assignment. The task with the highest modularity wins the round
// and its assignment is copied into every other task before the next one.
type Optimizer struct {
	graph       graph.WeightedGraph
	nodeWeights graph.NodeWeightFunc
	opts        Options
	logger      logging.Logger
	nodeCount   uint64

	// per node, shared read-only by all tasks
	degrees  []float64 // k_i
	selfLoop []float64 // A_ii
	m2       float64

	tasks       []*task
	communities []uint64
	modularity  float64
	iterations  int

	terminated atomic.Bool
	tracked    int64
}

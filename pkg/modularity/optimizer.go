package modularity

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/memtrack"
	"github.com/dd0wney/cluso-louvain/pkg/parallel"
	"golang.org/x/sync/errgroup"
)

// New creates an optimizer for g. Nothing is computed until Compute is called.
func New(g graph.WeightedGraph, nodeWeights graph.NodeWeightFunc, opts Options) *Optimizer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxIterations < 0 {
		opts.MaxIterations = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Optimizer{
		graph:       g,
		nodeWeights: nodeWeights,
		opts:        opts,
		logger:      logger.With(logging.Component("modularity")),
		nodeCount:   g.NodeCount(),
	}
}

// Optimize runs a new optimizer to completion and releases it
func Optimize(ctx context.Context, g graph.WeightedGraph, nodeWeights graph.NodeWeightFunc, opts Options) (*Outcome, error) {
	o := New(g, nodeWeights, opts)
	defer o.Release()

	if err := o.Compute(ctx); err != nil {
		return nil, err
	}
	return &Outcome{
		Communities: o.Communities(),
		Iterations:  o.Iterations(),
		Modularity:  o.Modularity(),
	}, nil
}

// Compute runs rounds until MaxIterations is reached, no task moves a node,
// the best modularity stops strictly improving, or ctx is done.
// A cancelled run returns an error wrapping ErrCancelled.
func (o *Optimizer) Compute(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { o.terminated.Store(true) })
	defer stop()

	if err := o.initDegrees(ctx); err != nil {
		return o.cancelled(ctx, err)
	}

	o.communities = make([]uint64, o.nodeCount)
	for i := range o.communities {
		o.communities[i] = uint64(i)
	}
	o.track(memtrack.Uint64s(o.nodeCount))

	if o.m2 == 0 {
		// no mass to move; every node stays alone
		o.modularity = 0
		return nil
	}
	o.modularity = o.identityModularity()
	if o.opts.MaxIterations == 0 {
		return nil
	}

	o.initTasks()

	pool := o.opts.Pool
	if pool == nil {
		var err error
		pool, err = parallel.NewWorkerPool(o.opts.Concurrency)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	batch := make([]func() error, len(o.tasks))
	for i, t := range o.tasks {
		batch[i] = t.run
	}

	for round := 0; round < o.opts.MaxIterations; round++ {
		if o.terminated.Load() || ctx.Err() != nil {
			return o.cancelled(ctx, ErrCancelled)
		}

		err := pool.RunBatch(ctx, batch)
		o.iterations++
		if err != nil || o.terminated.Load() || ctx.Err() != nil {
			return o.cancelled(ctx, err)
		}

		winner := o.bestTask()
		if winner == nil || winner.modularity <= o.modularity {
			o.logger.Debug("optimisation converged",
				logging.Round(round),
				logging.Modularity(o.modularity),
			)
			break
		}

		o.logger.Debug("round winner",
			logging.Round(round),
			logging.Task(winner.index),
			logging.Modularity(winner.modularity),
		)
		o.modularity = winner.modularity
		o.sync(winner)
	}

	return nil
}

// initDegrees computes k_i, A_ii and m2 over node ranges in parallel
func (o *Optimizer) initDegrees(ctx context.Context) error {
	o.degrees = make([]float64, o.nodeCount)
	o.selfLoop = make([]float64, o.nodeCount)
	o.track(2 * memtrack.Float64s(o.nodeCount))

	var eg errgroup.Group
	for _, r := range graph.Partition(o.nodeCount, o.opts.Concurrency) {
		view := o.graph.ConcurrentCopy()
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for node := r.Start; node < r.End; node++ {
				self := 2 * o.nodeWeights.Of(node)
				k := self
				view.ForEachRelationship(node, func(_, t uint64, w float64) bool {
					k += w
					if t == node {
						self += w
					}
					return true
				})
				o.degrees[node] = k
				o.selfLoop[node] = self
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	o.m2 = 0
	for _, k := range o.degrees {
		o.m2 += k
	}
	return nil
}

func (o *Optimizer) identityModularity() float64 {
	q := 0.0
	for i, k := range o.degrees {
		q += o.selfLoop[i]/o.m2 - (k/o.m2)*(k/o.m2)
	}
	return q
}

func (o *Optimizer) initTasks() {
	o.tasks = make([]*task, o.opts.Concurrency)
	for i := range o.tasks {
		rng := rand.New(rand.NewPCG(uint64(o.opts.Seed), uint64(i)))
		o.tasks[i] = newTask(o, i, rng)
		o.track(o.tasks[i].sizeInBytes())
	}
}

// bestTask returns the improving task with the highest modularity.
// Ties go to the lowest task index.
func (o *Optimizer) bestTask() *task {
	var best *task
	for _, t := range o.tasks {
		if !t.improvement {
			continue
		}
		if best == nil || t.modularity > best.modularity {
			best = t
		}
	}
	return best
}

// sync copies the winner's state into every other task and the shared result
func (o *Optimizer) sync(winner *task) {
	copy(o.communities, winner.communities)
	for _, t := range o.tasks {
		if t != winner {
			t.syncFrom(winner)
		}
	}
}

func (o *Optimizer) cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil || o.terminated.Load() {
		return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
	}
	return err
}

func (o *Optimizer) track(n int64) {
	o.opts.Tracker.Add(n)
	o.tracked += n
}

// Communities returns the community of every node.
// Ids are node ids of the representative, not dense.
func (o *Optimizer) Communities() []uint64 {
	return o.communities
}

// Iterations returns the number of rounds executed
func (o *Optimizer) Iterations() int {
	return o.iterations
}

// Modularity returns the modularity of Communities
func (o *Optimizer) Modularity() float64 {
	return o.modularity
}

// Release drops the per-task state and returns tracked memory.
// Communities remains valid.
func (o *Optimizer) Release() {
	o.opts.Tracker.Remove(o.tracked)
	o.tracked = 0
	o.tasks = nil
	o.degrees = nil
	o.selfLoop = nil
}

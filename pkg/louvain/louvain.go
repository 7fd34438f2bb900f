// Package louvain detects communities in weighted undirected graphs by
// repeatedly optimising modularity and contracting the graph, level by level.
package louvain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-louvain/pkg/adjacency"
	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/memtrack"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	"github.com/dd0wney/cluso-louvain/pkg/modularity"
	"github.com/dd0wney/cluso-louvain/pkg/parallel"
	"github.com/dd0wney/cluso-louvain/pkg/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Louvain runs multi-level clustering with a fixed configuration.
// Run may be called from several goroutines at once.
type Louvain struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
	tracker *memtrack.Tracker
	pool    *parallel.WorkerPool
	tracer  trace.Tracer
}

// Option configures a Louvain
type Option func(*Louvain)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(l *Louvain) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics records run, level and memory metrics into r
func WithMetrics(r *metrics.Registry) Option {
	return func(l *Louvain) {
		l.metrics = r
	}
}

// WithTracker accounts level arrays and coarse graphs in t instead of a per-run tracker
func WithTracker(t *memtrack.Tracker) Option {
	return func(l *Louvain) {
		l.tracker = t
	}
}

// WithPool runs the speculative tasks on p instead of a per-run pool
func WithPool(p *parallel.WorkerPool) Option {
	return func(l *Louvain) {
		l.pool = p
	}
}

// WithTracer sets the tracer used for run and level spans
func WithTracer(t trace.Tracer) Option {
	return func(l *Louvain) {
		if t != nil {
			l.tracer = t
		}
	}
}

// New validates cfg and creates a Louvain
func New(cfg Config, opts ...Option) (*Louvain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Louvain{
		cfg:    cfg,
		logger: logging.NewNopLogger(),
		tracer: tracing.GetTracer(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(logging.Component("louvain"))
	return l, nil
}

// Cluster runs Louvain with the default configuration overridden by the given parameters
func Cluster(
	ctx context.Context,
	g graph.WeightedGraph,
	nodeWeights graph.NodeWeightFunc,
	maxLevel, maxIterations, concurrency int,
	randomSeed int64,
) (*Result, error) {
	cfg := DefaultConfig()
	cfg.MaxLevel = maxLevel
	cfg.MaxIterations = maxIterations
	cfg.Concurrency = concurrency
	cfg.Seed = randomSeed

	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return l.Run(ctx, g, nodeWeights)
}

// Run clusters g. nodeWeights may be nil.
//
// The input graph is validated first and never modified. A cancelled run
// returns an error matching ErrCancelled and no result.
func (l *Louvain) Run(ctx context.Context, g graph.WeightedGraph, nodeWeights graph.NodeWeightFunc) (*Result, error) {
	if g == nil {
		return nil, graph.ErrNilGraph
	}

	runID := uuid.NewString()
	nodeCount := g.NodeCount()
	logger := l.logger.With(logging.RunID(runID))

	ctx, span := l.tracer.Start(ctx, "louvain.run", trace.WithAttributes(
		attribute.String("louvain.run_id", runID),
		attribute.Int64("louvain.nodes", int64(nodeCount)),
		attribute.Int("louvain.max_level", l.cfg.MaxLevel),
		attribute.Int("louvain.concurrency", l.cfg.Concurrency),
	))
	defer span.End()

	timer := logging.StartTimer(logger, "clustering finished", logging.Nodes(nodeCount))
	start := time.Now()

	tracker := l.tracker
	if tracker == nil {
		var gauge memtrack.Gauge
		if l.metrics != nil {
			gauge = l.metrics.TrackedBytes
		}
		tracker = memtrack.New(gauge)
	}
	if l.metrics != nil {
		l.metrics.StartRun(nodeCount)
	}

	r := &run{
		Louvain: l,
		logger:  logger,
		tracker: tracker,
		result:  &Result{RunID: runID},
	}
	err := r.execute(ctx, g, nodeWeights)

	status := metrics.StatusSuccess
	switch {
	case errors.Is(err, ErrCancelled):
		status = metrics.StatusCancelled
		timer.EndWarn("clustering cancelled", logging.Error(err))
	case err != nil:
		status = metrics.StatusFailed
		timer.EndError(err)
	default:
		timer.End(
			logging.ClusterLevel(r.result.Levels),
			logging.Communities(r.result.CommunityCount),
			logging.Modularity(r.result.FinalModularity()),
			logging.Bytes(tracker.Peak()),
		)
	}

	if l.metrics != nil {
		l.metrics.RecordRun(status, time.Since(start))
		l.metrics.RecordPeakBytes(tracker.Peak())
		if err == nil {
			l.metrics.RecordResult(r.result.CommunityCount, r.result.FinalModularity())
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("louvain.levels", r.result.Levels),
		attribute.Int64("louvain.communities", int64(r.result.CommunityCount)),
		attribute.Float64("louvain.modularity", r.result.FinalModularity()),
	)
	return r.result, nil
}

// run is the state of a single Run call
type run struct {
	*Louvain
	logger  logging.Logger
	tracker *memtrack.Tracker
	result  *Result

	// the graph of the current level, owned by the run unless it is the input graph
	coarse *adjacency.SparseCommunityAdjacency
}

func (r *run) execute(ctx context.Context, g graph.WeightedGraph, nodeWeights graph.NodeWeightFunc) error {
	if err := graph.Validate(ctx, g, nodeWeights, r.cfg.Concurrency); err != nil {
		return asCancelled(ctx, err)
	}
	defer r.releaseCoarse()

	nodeCount := g.NodeCount()
	mapping := identity(nodeCount)
	r.tracker.Add(memtrack.Uint64s(nodeCount))
	defer r.tracker.Remove(memtrack.Uint64s(nodeCount))

	r.result.Communities = mapping
	r.result.CommunityCount = nodeCount
	if r.cfg.MaxLevel == 0 {
		return nil
	}

	var current graph.WeightedGraph = g
	weights := nodeWeights

	if seed := r.cfg.InitialCommunities; len(seed) > 0 {
		if uint64(len(seed)) != nodeCount {
			return fmt.Errorf("%w: %d ids for %d nodes", ErrSeedLength, len(seed), nodeCount)
		}
		seeded, count := renumber(seed)
		copy(mapping, seeded)
		if err := r.contract(ctx, current, weights, seeded, count); err != nil {
			return err
		}
		current, weights = r.coarse, r.coarse.NodeWeight
		r.result.CommunityCount = count
		r.logger.Info("seeded start", logging.Communities(count))
	}

	if graph.TotalMass(current, weights) == 0 {
		// nothing to optimise: one level with every node on its own
		r.appendLevel(mapping, 0, 0)
		r.logger.Warn("graph has no mass, skipping optimisation", logging.Nodes(nodeCount))
		return nil
	}

	pool := r.pool
	if pool == nil {
		var err error
		pool, err = parallel.NewWorkerPool(r.cfg.Concurrency)
		if err != nil {
			return err
		}
		pool.WithLogger(r.logger)
		defer pool.Close()
	}

	for level := 0; level < r.cfg.MaxLevel; level++ {
		if ctx.Err() != nil {
			r.logger.Warn("cancelled before level", logging.ClusterLevel(level))
			return cancelled(ctx)
		}

		reduced, err := r.level(ctx, level, pool, current, weights, mapping)
		if err != nil {
			return err
		}
		if !reduced {
			break
		}
		current, weights = r.coarse, r.coarse.NodeWeight
	}

	return nil
}

// level optimises current, and when the community count shrinks records the
// level and contracts current into the next coarse graph.
func (r *run) level(
	ctx context.Context,
	level int,
	pool *parallel.WorkerPool,
	current graph.WeightedGraph,
	weights graph.NodeWeightFunc,
	mapping []uint64,
) (bool, error) {
	nodeCount := current.NodeCount()
	ctx, span := r.tracer.Start(ctx, "louvain.level", trace.WithAttributes(
		attribute.Int("louvain.level", level),
		attribute.Int64("louvain.nodes", int64(nodeCount)),
	))
	defer span.End()
	start := time.Now()

	out, err := modularity.Optimize(ctx, current, weights, modularity.Options{
		Concurrency:    r.cfg.Concurrency,
		MaxIterations:  r.cfg.MaxIterations,
		RandomNeighbor: r.cfg.RandomNeighbor,
		Seed:           r.cfg.Seed + int64(level),
		Pool:           pool,
		Tracker:        r.tracker,
		Logger:         r.logger.With(logging.ClusterLevel(level)),
	})
	if err != nil {
		span.RecordError(err)
		return false, asCancelled(ctx, err)
	}

	local, count := renumber(out.Communities)
	span.SetAttributes(
		attribute.Int64("louvain.communities", int64(count)),
		attribute.Float64("louvain.modularity", out.Modularity),
		attribute.Int("louvain.rounds", out.Iterations),
	)
	if count >= nodeCount {
		r.logger.Debug("no reduction, stopping",
			logging.ClusterLevel(level),
			logging.Communities(count),
		)
		return false, nil
	}

	for i, c := range mapping {
		mapping[i] = local[c]
	}
	r.appendLevel(mapping, out.Modularity, out.Iterations)
	r.result.CommunityCount = count

	r.logger.Info("level finished",
		logging.ClusterLevel(level),
		logging.Nodes(nodeCount),
		logging.Communities(count),
		logging.Modularity(out.Modularity),
		logging.Int("rounds", out.Iterations),
	)
	if r.metrics != nil {
		r.metrics.RecordLevel(level, out.Iterations, out.Modularity, time.Since(start))
	}

	if err := r.contract(ctx, current, weights, local, count); err != nil {
		return false, err
	}
	return true, nil
}

// contract builds the next coarse graph and releases the previous one
func (r *run) contract(ctx context.Context, g graph.WeightedGraph, weights graph.NodeWeightFunc, communities []uint64, count uint64) error {
	next, err := adjacency.Rebuild(ctx, g, weights, communities, count, r.tracker)
	if err != nil {
		return asCancelled(ctx, err)
	}
	r.releaseCoarse()
	r.coarse = next
	return nil
}

func (r *run) releaseCoarse() {
	if r.coarse != nil {
		r.coarse.Release()
		r.coarse = nil
	}
}

func (r *run) appendLevel(mapping []uint64, q float64, iterations int) {
	r.result.Dendrogram = append(r.result.Dendrogram, append([]uint64(nil), mapping...))
	r.result.Modularities = append(r.result.Modularities, q)
	r.result.Iterations = append(r.result.Iterations, iterations)
	r.result.Levels = len(r.result.Modularities)
}

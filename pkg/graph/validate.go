package graph

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// checkInterval is how many nodes a validation worker scans between context checks
const checkInterval = 4096

// Validate rejects negative, NaN or infinite weights and relationships pointing outside the graph.
// Node ranges are scanned in parallel, each on its own ConcurrentCopy of g.
func Validate(ctx context.Context, g WeightedGraph, nodeWeights NodeWeightFunc, concurrency int) error {
	if g == nil {
		return ErrNilGraph
	}

	n := g.NodeCount()
	eg, ctx := errgroup.WithContext(ctx)
	for _, r := range Partition(n, concurrency) {
		view := g.ConcurrentCopy()
		eg.Go(func() error {
			return validateRange(ctx, view, nodeWeights, n, r)
		})
	}
	return eg.Wait()
}

func validateRange(ctx context.Context, g WeightedGraph, nodeWeights NodeWeightFunc, n uint64, r Range) error {
	var err error
	for node := r.Start; node < r.End; node++ {
		if (node-r.Start)%checkInterval == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
		}

		if w := nodeWeights.Of(node); math.IsNaN(w) {
			return nodeError("Validate", node, w, ErrNaNWeight)
		} else if math.IsInf(w, 0) {
			return nodeError("Validate", node, w, ErrInfiniteWeight)
		} else if w < 0 {
			return nodeError("Validate", node, w, ErrNegativeWeight)
		}

		g.ForEachRelationship(node, func(s, t uint64, w float64) bool {
			switch {
			case t >= n:
				err = relationshipError("Validate", s, t, w, ErrNodeOutOfRange)
			case math.IsNaN(w):
				err = relationshipError("Validate", s, t, w, ErrNaNWeight)
			case math.IsInf(w, 0):
				err = relationshipError("Validate", s, t, w, ErrInfiniteWeight)
			case w < 0:
				err = relationshipError("Validate", s, t, w, ErrNegativeWeight)
			}
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

package louvain

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/dd0wney/cluso-louvain/pkg/modularity"
)

// Common sentinel errors
var (
	// ErrInvalidInput matches every validation failure, including graph.ValidationError
	ErrInvalidInput = graph.ErrInvalidInput
	// ErrCancelled is returned when the context is done before the run finished
	ErrCancelled = modularity.ErrCancelled
	// ErrSeedLength is returned when InitialCommunities does not cover every node
	ErrSeedLength = fmt.Errorf("%w: initial communities length does not match node count", ErrInvalidInput)
	// ErrInvalidConfig is returned by Config.Validate
	ErrInvalidConfig = fmt.Errorf("%w: invalid config", ErrInvalidInput)
)

// cancelled wraps the context cause in ErrCancelled
func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

// asCancelled turns context errors into ErrCancelled and passes anything else through
func asCancelled(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, ErrCancelled) {
		return err
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return cancelled(ctx)
	}
	return err
}

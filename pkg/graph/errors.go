package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNegativeWeight = fmt.Errorf("%w: negative weight", ErrInvalidInput)
	ErrNaNWeight      = fmt.Errorf("%w: weight is NaN", ErrInvalidInput)
	ErrInfiniteWeight = fmt.Errorf("%w: weight is infinite", ErrInvalidInput)
	ErrNodeOutOfRange = fmt.Errorf("%w: node id out of range", ErrInvalidInput)
	ErrNilGraph       = fmt.Errorf("%w: graph is nil", ErrInvalidInput)
)

// ValidationError describes the node or relationship that failed validation.
type ValidationError struct {
	Op     string  // Operation that failed (e.g., "Validate", "Build")
	Node   uint64  // Source node
	Target *uint64 // Target node for relationship errors, nil for node errors
	Value  float64 // Offending weight
	Cause  error   // Underlying sentinel
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Target != nil {
		return fmt.Sprintf("%s relationship %d->%d (weight %g): %v", e.Op, e.Node, *e.Target, e.Value, e.Cause)
	}
	return fmt.Sprintf("%s node %d (weight %g): %v", e.Op, e.Node, e.Value, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *ValidationError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

func relationshipError(op string, source, target uint64, weight float64, cause error) error {
	t := target
	return &ValidationError{Op: op, Node: source, Target: &t, Value: weight, Cause: cause}
}

func nodeError(op string, node uint64, weight float64, cause error) error {
	return &ValidationError{Op: op, Node: node, Value: weight, Cause: cause}
}

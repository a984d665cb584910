package dag

import (
	"errors"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNodeNotFound indicates the node was not found
	ErrNodeNotFound = errors.New("node not found")

	// ErrEmptyNodeID indicates a node was added without an ID
	ErrEmptyNodeID = errors.New("node ID cannot be empty")

	// ErrDuplicateNode indicates a duplicate node ID
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrSelfLoop indicates an edge from a node to itself
	ErrSelfLoop = errors.New("edge cannot point a node at itself")

	// ErrCyclicDependency indicates a cyclic dependency was detected
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// CycleError reports the nodes that lie on, or between, dependency cycles.
// Nodes are listed in declaration order.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return ErrCyclicDependency.Error() + ": " + strings.Join(e.Nodes, ", ")
}

// Unwrap lets errors.Is match ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

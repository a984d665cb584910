package plan

import (
	"errors"
	"fmt"
)

// =============================================================================
// Restart Strategy
// =============================================================================

// RestartStrategy classifies how an executor may recover from a failed task.
type RestartStrategy string

const (
	// RestartIsolatedRetry: nothing completed or in flight consumed the failed
	// task's output, so it can be retried on its own.
	RestartIsolatedRetry RestartStrategy = "isolated_retry"
	// RestartCascade: in-flight tasks consume the failed task's output and
	// must be restarted with it.
	RestartCascade RestartStrategy = "cascade_restart"
	// RestartEscalate: a completed task already consumed output the failed
	// task never finished producing; automatic recovery is unsafe.
	RestartEscalate RestartStrategy = "escalate"
)

// ErrInvalidRestartInput indicates inconsistent execution state.
var ErrInvalidRestartInput = errors.New("invalid restart input")

// RestartInput is the execution state at the moment a task failed.
type RestartInput struct {
	Failed     string
	Tasks      []TaskDefinition
	Completed  []string
	Dispatched []string
}

// RestartDecision is the classification plus the tasks it concerns.
type RestartDecision struct {
	Strategy RestartStrategy `json:"strategy"`
	// Restart lists the failed task followed by dispatched dependents that
	// must be restarted alongside it.
	Restart []string `json:"restart"`
	// Consumers lists completed tasks that already read the failed output.
	Consumers []string `json:"consumers,omitempty"`
}

// DeriveRestart classifies recovery for a failed task. Dependents are found
// transitively over RAW hazards, the same data-flow edges the critical path
// uses. It informs recovery but never performs it.
func DeriveRestart(in RestartInput) (RestartDecision, error) {
	completed, dispatched, err := validateRestart(in)
	if err != nil {
		return RestartDecision{}, err
	}

	hazards := DetectHazards(in.Tasks)
	g, err := constraintGraph(in.Tasks, hazards, func(t HazardType) bool { return t == HazardRAW })
	if err != nil {
		return RestartDecision{}, err
	}

	var consumers, inFlight []string
	for _, id := range g.Descendants(in.Failed) {
		switch {
		case completed[id]:
			consumers = append(consumers, id)
		case dispatched[id]:
			inFlight = append(inFlight, id)
		}
	}

	restart := append([]string{in.Failed}, inFlight...)
	switch {
	case len(consumers) > 0:
		return RestartDecision{Strategy: RestartEscalate, Restart: restart, Consumers: consumers}, nil
	case len(inFlight) > 0:
		return RestartDecision{Strategy: RestartCascade, Restart: restart}, nil
	default:
		return RestartDecision{Strategy: RestartIsolatedRetry, Restart: restart}, nil
	}
}

func validateRestart(in RestartInput) (map[string]bool, map[string]bool, error) {
	if err := Validate(Plan{Tasks: in.Tasks}); err != nil {
		return nil, nil, err
	}

	known := make(map[string]bool, len(in.Tasks))
	for _, t := range in.Tasks {
		known[t.ID] = true
	}
	if !known[in.Failed] {
		return nil, nil, fmt.Errorf("%w: failed task %q", ErrUnknownTask, in.Failed)
	}

	completed, err := idSet(in.Completed, known)
	if err != nil {
		return nil, nil, err
	}
	dispatched, err := idSet(in.Dispatched, known)
	if err != nil {
		return nil, nil, err
	}

	if completed[in.Failed] {
		return nil, nil, fmt.Errorf("%w: task %q is both failed and completed", ErrInvalidRestartInput, in.Failed)
	}
	for id := range dispatched {
		if completed[id] {
			return nil, nil, fmt.Errorf("%w: task %q is both completed and dispatched", ErrInvalidRestartInput, id)
		}
	}
	return completed, dispatched, nil
}

func idSet(ids []string, known map[string]bool) (map[string]bool, error) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTask, id)
		}
		set[id] = true
	}
	return set, nil
}

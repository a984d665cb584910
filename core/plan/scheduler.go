package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adalundhe/seam/core/dag"
)

// =============================================================================
// Waves
// =============================================================================

// WaveTask identifies a task inside a wave.
type WaveTask struct {
	ID string `json:"id" yaml:"id"`
}

// Wave is a set of tasks that may run concurrently. Waves are strictly
// sequential: wave i+1 must not start until wave i has fully completed.
type Wave struct {
	Tasks []WaveTask `json:"tasks" yaml:"tasks"`
}

// IDs returns the task ids of the wave.
func (w Wave) IDs() []string {
	ids := make([]string, len(w.Tasks))
	for i, t := range w.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// Result is the output of a scheduling call.
type Result struct {
	Waves        []Wave       `json:"waves"`
	Hazards      []Hazard     `json:"hazards"`
	CriticalPath CriticalPath `json:"critical_path"`
}

// WaveIndex maps every task id to the index of its wave.
func (r *Result) WaveIndex() map[string]int {
	index := make(map[string]int)
	for i, w := range r.Waves {
		for _, t := range w.Tasks {
			index[t.ID] = i
		}
	}
	return index
}

// =============================================================================
// Cycle Errors
// =============================================================================

// CycleError reports tasks whose ordering constraints cannot be satisfied.
type CycleError struct {
	TaskIDs []string
	Hazards []Hazard
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cannot schedule tasks, ordering constraints form a cycle: %s",
		strings.Join(e.TaskIDs, ", "))
}

// Unwrap lets errors.Is match dag.ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return dag.ErrCyclicDependency
}

// =============================================================================
// Scheduling
// =============================================================================

// Schedule validates the plan, derives hazards and groups tasks into waves.
// It either schedules every task or fails; no partial output is produced.
func Schedule(p Plan) (*Result, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	hazards := DetectHazards(p.Tasks)
	waves, err := BuildWaves(p.Tasks, hazards)
	if err != nil {
		return nil, err
	}

	critical, err := ComputeCriticalPath(p.Tasks, hazards)
	if err != nil {
		return nil, err
	}

	return &Result{
		Waves:        waves,
		Hazards:      hazardsOrEmpty(hazards),
		CriticalPath: critical,
	}, nil
}

// BuildWaves assigns each task to the earliest wave after all of its ordering
// predecessors. Every hazard is an edge task_a -> task_b, so tasks that share
// a hazard never land in the same wave.
func BuildWaves(tasks []TaskDefinition, hazards []Hazard) ([]Wave, error) {
	g, err := constraintGraph(tasks, hazards, nil)
	if err != nil {
		return nil, err
	}

	layers, err := g.Layers()
	if err != nil {
		return nil, asCycleError(err, hazards)
	}

	waves := make([]Wave, len(layers))
	for i, layer := range layers {
		waves[i].Tasks = make([]WaveTask, len(layer))
		for j, id := range layer {
			waves[i].Tasks[j] = WaveTask{ID: id}
		}
	}
	return waves, nil
}

// constraintGraph builds the ordering graph. When include is non-nil only the
// hazard types it accepts become edges.
func constraintGraph(tasks []TaskDefinition, hazards []Hazard, include func(HazardType) bool) (*dag.Graph, error) {
	g := dag.NewGraph()
	for _, t := range tasks {
		if err := g.AddNode(t.ID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
	}

	for _, h := range hazards {
		if include != nil && !include(h.Type) {
			continue
		}
		if err := g.AddEdge(h.TaskA, h.TaskB); err != nil {
			if errors.Is(err, dag.ErrNodeNotFound) {
				return nil, fmt.Errorf("%w: hazard %s %s->%s", ErrUnknownTask, h.Type, h.TaskA, h.TaskB)
			}
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
	}
	return g, nil
}

func asCycleError(err error, hazards []Hazard) error {
	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		return err
	}

	members := make(map[string]bool, len(cycle.Nodes))
	for _, id := range cycle.Nodes {
		members[id] = true
	}

	var involved []Hazard
	for _, h := range hazards {
		if members[h.TaskA] && members[h.TaskB] {
			involved = append(involved, h)
		}
	}
	return &CycleError{TaskIDs: cycle.Nodes, Hazards: involved}
}

func hazardsOrEmpty(hazards []Hazard) []Hazard {
	if hazards == nil {
		return []Hazard{}
	}
	return hazards
}

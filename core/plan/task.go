// Package plan schedules declared work items into dependency-safe waves.
//
// Tasks declare what they read, what they write and which named locks they
// hold. Hazards are derived purely from those declarations; nothing here
// inspects what a task actually does when it runs.
package plan

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// =============================================================================
// Task Definitions
// =============================================================================

// Touches is a task's declared read/write scope over named resources.
type Touches struct {
	Reads  []string `yaml:"reads,omitempty" json:"reads,omitempty"`
	Writes []string `yaml:"writes,omitempty" json:"writes,omitempty"`
}

// TaskDefinition is a unit of work with an explicit scope.
type TaskDefinition struct {
	ID      string   `yaml:"id" json:"id"`
	Touches Touches  `yaml:"touches" json:"touches"`
	Mutexes []string `yaml:"mutexes,omitempty" json:"mutexes,omitempty"`
}

func (t TaskDefinition) reads(resource string) bool {
	return slices.Contains(t.Touches.Reads, resource)
}

func (t TaskDefinition) writes(resource string) bool {
	return slices.Contains(t.Touches.Writes, resource)
}

// Plan is the input to a scheduling call. When Resources is non-nil every
// resource a task touches must appear in it.
type Plan struct {
	Resources []string         `yaml:"resources,omitempty" json:"resources,omitempty"`
	Tasks     []TaskDefinition `yaml:"tasks" json:"tasks"`
}

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInvalidPlan indicates the plan failed structural validation.
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrUnknownTask indicates a reference to a task that was not declared.
	ErrUnknownTask = errors.New("unknown task")
)

// ValidationError lists every structural problem found in a plan.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidPlan.Error() + ": " + strings.Join(e.Problems, "; ")
}

// Unwrap lets errors.Is match ErrInvalidPlan.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidPlan
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks a plan before scheduling. Tasks are never dropped or
// repaired: any problem rejects the whole plan.
func Validate(p Plan) error {
	var problems []string

	declared := resourceSet(p.Resources)
	seen := make(map[string]bool, len(p.Tasks))
	for i, task := range p.Tasks {
		if task.ID == "" {
			problems = append(problems, fmt.Sprintf("task #%d has an empty id", i+1))
			continue
		}
		if seen[task.ID] {
			problems = append(problems, fmt.Sprintf("duplicate task id %q", task.ID))
		}
		seen[task.ID] = true

		problems = append(problems, checkNames(task.ID, "reads", task.Touches.Reads, declared)...)
		problems = append(problems, checkNames(task.ID, "writes", task.Touches.Writes, declared)...)
		problems = append(problems, checkNames(task.ID, "mutexes", task.Mutexes, nil)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func resourceSet(resources []string) map[string]bool {
	if resources == nil {
		return nil
	}
	set := make(map[string]bool, len(resources))
	for _, r := range resources {
		set[r] = true
	}
	return set
}

func checkNames(taskID, field string, names []string, declared map[string]bool) []string {
	var problems []string
	for _, name := range names {
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("task %q has an empty name in %s", taskID, field))
		case declared != nil && !declared[name]:
			problems = append(problems, fmt.Sprintf("task %q %s undeclared resource %q", taskID, field, name))
		}
	}
	return problems
}

// TaskIDs returns task ids in declaration order.
func TaskIDs(tasks []TaskDefinition) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

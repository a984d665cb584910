package plan_test

import (
	"testing"

	"github.com/adalundhe/seam/core/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restartTasks() []plan.TaskDefinition {
	return []plan.TaskDefinition{
		task("T1", nil, []string{"auth"}),
		task("T2", []string{"auth"}, []string{"api"}),
		task("T3", []string{"api"}, []string{"web"}),
		task("T4", nil, []string{"docs"}),
	}
}

func TestDeriveRestart_EscalateWhenCompletedTaskConsumedOutput(t *testing.T) {
	decision, err := plan.DeriveRestart(plan.RestartInput{
		Failed:    "T1",
		Tasks:     restartTasks(),
		Completed: []string{"T2"},
	})
	require.NoError(t, err)

	assert.Equal(t, plan.RestartEscalate, decision.Strategy)
	assert.Equal(t, []string{"T2"}, decision.Consumers)
}

func TestDeriveRestart_CascadeWhenDependentsOnlyDispatched(t *testing.T) {
	decision, err := plan.DeriveRestart(plan.RestartInput{
		Failed:     "T1",
		Tasks:      restartTasks(),
		Completed:  []string{"T4"},
		Dispatched: []string{"T2", "T3"},
	})
	require.NoError(t, err)

	assert.Equal(t, plan.RestartCascade, decision.Strategy)
	assert.Equal(t, []string{"T1", "T2", "T3"}, decision.Restart)
	assert.Empty(t, decision.Consumers)
}

func TestDeriveRestart_IsolatedRetry(t *testing.T) {
	decision, err := plan.DeriveRestart(plan.RestartInput{
		Failed:     "T2",
		Tasks:      restartTasks(),
		Completed:  []string{"T1"},
		Dispatched: []string{"T4"},
	})
	require.NoError(t, err)

	assert.Equal(t, plan.RestartIsolatedRetry, decision.Strategy)
	assert.Equal(t, []string{"T2"}, decision.Restart)
}

func TestDeriveRestart_TransitiveConsumerEscalates(t *testing.T) {
	decision, err := plan.DeriveRestart(plan.RestartInput{
		Failed:     "T1",
		Tasks:      restartTasks(),
		Completed:  []string{"T3"},
		Dispatched: []string{"T2"},
	})
	require.NoError(t, err)

	assert.Equal(t, plan.RestartEscalate, decision.Strategy)
	assert.Equal(t, []string{"T3"}, decision.Consumers)
	assert.Equal(t, []string{"T1", "T2"}, decision.Restart)
}

func TestDeriveRestart_WriteConflictsAreNotConsumption(t *testing.T) {
	tasks := []plan.TaskDefinition{
		task("A", nil, []string{"x"}),
		task("B", nil, []string{"x"}),
	}

	decision, err := plan.DeriveRestart(plan.RestartInput{Failed: "A", Tasks: tasks, Completed: []string{"B"}})
	require.NoError(t, err)
	assert.Equal(t, plan.RestartIsolatedRetry, decision.Strategy)
}

func TestDeriveRestart_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input plan.RestartInput
		err   error
	}{
		{
			name:  "unknown failed task",
			input: plan.RestartInput{Failed: "nope", Tasks: restartTasks()},
			err:   plan.ErrUnknownTask,
		},
		{
			name:  "unknown completed task",
			input: plan.RestartInput{Failed: "T1", Tasks: restartTasks(), Completed: []string{"ghost"}},
			err:   plan.ErrUnknownTask,
		},
		{
			name:  "failed task already completed",
			input: plan.RestartInput{Failed: "T1", Tasks: restartTasks(), Completed: []string{"T1"}},
			err:   plan.ErrInvalidRestartInput,
		},
		{
			name: "completed and dispatched",
			input: plan.RestartInput{
				Failed: "T1", Tasks: restartTasks(),
				Completed: []string{"T2"}, Dispatched: []string{"T2"},
			},
			err: plan.ErrInvalidRestartInput,
		},
		{
			name: "duplicate task ids",
			input: plan.RestartInput{
				Failed: "T1",
				Tasks:  []plan.TaskDefinition{task("T1", nil, nil), task("T1", nil, nil)},
			},
			err: plan.ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.DeriveRestart(tt.input)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

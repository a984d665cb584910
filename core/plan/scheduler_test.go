package plan_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/adalundhe/seam/core/dag"
	"github.com/adalundhe/seam/core/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id string, reads, writes []string, mutexes ...string) plan.TaskDefinition {
	return plan.TaskDefinition{
		ID:      id,
		Touches: plan.Touches{Reads: reads, Writes: writes},
		Mutexes: mutexes,
	}
}

func waveIDs(waves []plan.Wave) [][]string {
	result := make([][]string, len(waves))
	for i, w := range waves {
		result[i] = w.IDs()
	}
	return result
}

func TestSchedule_LinearChain(t *testing.T) {
	p := plan.Plan{Tasks: []plan.TaskDefinition{
		task("T1", nil, []string{"auth"}),
		task("T2", []string{"auth"}, []string{"api"}),
		task("T3", []string{"api"}, []string{"web"}),
	}}

	result, err := plan.Schedule(p)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"T1"}, {"T2"}, {"T3"}}, waveIDs(result.Waves))
	assert.Equal(t, []string{"T1", "T2", "T3"}, result.CriticalPath.TaskIDs)
	assert.Equal(t, 3, result.CriticalPath.Length)
}

func TestSchedule_DisjointWritesShareAWave(t *testing.T) {
	p := plan.Plan{Tasks: []plan.TaskDefinition{
		task("A", nil, []string{"x"}),
		task("B", nil, []string{"y"}),
	}}

	result, err := plan.Schedule(p)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"A", "B"}}, waveIDs(result.Waves))
	assert.Empty(t, result.Hazards)
	assert.Equal(t, 1, result.CriticalPath.Length)
}

func TestSchedule_CycleProducesNoWaves(t *testing.T) {
	p := plan.Plan{Tasks: []plan.TaskDefinition{
		task("A", []string{"Y"}, []string{"X"}),
		task("B", []string{"X"}, []string{"Y"}),
	}}

	result, err := plan.Schedule(p)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, dag.ErrCyclicDependency))

	var cycle *plan.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"A", "B"}, cycle.TaskIDs)
	assert.Len(t, cycle.Hazards, 2)
	assert.Contains(t, err.Error(), "A, B")
}

func TestSchedule_WriteConflictsFollowDeclarationOrder(t *testing.T) {
	p := plan.Plan{Tasks: []plan.TaskDefinition{
		task("second", nil, []string{"shared"}),
		task("first", nil, []string{"shared"}),
	}}

	result, err := plan.Schedule(p)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"second"}, {"first"}}, waveIDs(result.Waves))
	// WAW is not data flow.
	assert.Equal(t, 1, result.CriticalPath.Length)
}

func TestSchedule_MutexSeparatesTasks(t *testing.T) {
	p := plan.Plan{Tasks: []plan.TaskDefinition{
		task("A", nil, []string{"a"}, "db"),
		task("B", nil, []string{"b"}, "db"),
		task("C", nil, []string{"c"}),
	}}

	result, err := plan.Schedule(p)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "C"}, {"B"}}, waveIDs(result.Waves))
}

func TestSchedule_EarliestWavePlacement(t *testing.T) {
	p := plan.Plan{Tasks: []plan.TaskDefinition{
		task("base", nil, []string{"core"}),
		task("mid", []string{"core"}, []string{"svc"}),
		task("top", []string{"svc"}, []string{"ui"}),
		task("side", []string{"core"}, []string{"docs"}),
	}}

	result, err := plan.Schedule(p)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"base"}, {"mid", "side"}, {"top"}}, waveIDs(result.Waves))
	assert.Equal(t, []string{"base", "mid", "top"}, result.CriticalPath.TaskIDs)
}

func TestSchedule_ValidationRejectsWholePlan(t *testing.T) {
	p := plan.Plan{
		Resources: []string{"auth"},
		Tasks: []plan.TaskDefinition{
			task("T1", nil, []string{"auth"}),
			task("T1", nil, []string{"auth"}),
			task("T2", []string{"billing"}, nil),
			task("", nil, nil),
		},
	}

	result, err := plan.Schedule(p)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, plan.ErrInvalidPlan)

	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
	assert.Contains(t, err.Error(), `duplicate task id "T1"`)
	assert.Contains(t, err.Error(), `undeclared resource "billing"`)
}

func TestSchedule_EmptyPlan(t *testing.T) {
	result, err := plan.Schedule(plan.Plan{})
	require.NoError(t, err)
	assert.Empty(t, result.Waves)
	assert.Equal(t, 0, result.CriticalPath.Length)
}

func TestBuildWaves_UnknownTaskInHazard(t *testing.T) {
	tasks := []plan.TaskDefinition{task("A", nil, []string{"x"})}
	hazards := []plan.Hazard{{Type: plan.HazardRAW, TaskA: "A", TaskB: "ghost", Resource: "x"}}

	_, err := plan.BuildWaves(tasks, hazards)
	assert.ErrorIs(t, err, plan.ErrUnknownTask)
}

func TestSchedule_WaveInvariantsHoldForRandomPlans(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	resources := []string{"r0", "r1", "r2", "r3", "r4", "r5"}
	locks := []string{"l0", "l1"}

	pick := func(pool []string, max int) []string {
		var out []string
		for _, name := range pool {
			if rng.IntN(len(pool)) < max {
				out = append(out, name)
			}
		}
		return out
	}

	scheduled := 0
	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(12)
		tasks := make([]plan.TaskDefinition, n)
		for i := range tasks {
			tasks[i] = task(fmt.Sprintf("t%d", i), pick(resources, 1), pick(resources, 1), pick(locks, 1)...)
		}

		result, err := plan.Schedule(plan.Plan{Tasks: tasks})
		if errors.Is(err, dag.ErrCyclicDependency) {
			continue
		}
		require.NoError(t, err, "round %d", round)
		scheduled++

		index := result.WaveIndex()
		seen := make(map[string]int)
		for _, w := range result.Waves {
			require.NotEmpty(t, w.Tasks)
			for _, id := range w.IDs() {
				seen[id]++
			}
		}
		require.Len(t, seen, n, "round %d", round)
		for id, count := range seen {
			require.Equal(t, 1, count, "task %s scheduled %d times", id, count)
		}

		for _, h := range result.Hazards {
			require.NotEqual(t, index[h.TaskA], index[h.TaskB], "round %d hazard %+v", round, h)
			require.Less(t, index[h.TaskA], index[h.TaskB], "round %d hazard %+v", round, h)
		}

		path := result.CriticalPath.TaskIDs
		for i := 1; i < len(path); i++ {
			require.Less(t, index[path[i-1]], index[path[i]])
		}
	}
	assert.Positive(t, scheduled)
}

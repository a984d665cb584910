package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/seam/core/plan"
)

var (
	restartFailed     string
	restartCompleted  []string
	restartDispatched []string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Schedule task plans into conflict-free waves",
	Long: `Commands for task plans. A plan file (YAML or JSON) lists tasks with the
resources they read and write and the named locks they hold:

  resources: [schema, api]
  tasks:
    - id: migrate
      touches: {writes: [schema]}
    - id: handler
      touches: {reads: [schema], writes: [api]}
      mutexes: [deploy]`,
}

var planWavesCmd = &cobra.Command{
	Use:   "waves <plan>",
	Short: "Group tasks into waves that can run concurrently",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanWaves,
}

var planCriticalPathCmd = &cobra.Command{
	Use:   "critical-path <plan>",
	Short: "Show the longest dependency chain through a plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanCriticalPath,
}

var planHazardsCmd = &cobra.Command{
	Use:   "hazards <plan>",
	Short: "List ordering hazards between tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanHazards,
}

var planRestartCmd = &cobra.Command{
	Use:   "restart <plan>",
	Short: "Decide how to recover from a failed task",
	Long: `Classify recovery for a failed task given what has completed and what is
in flight: isolated_retry, cascade_restart, or escalate.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanRestart,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planWavesCmd)
	planCmd.AddCommand(planCriticalPathCmd)
	planCmd.AddCommand(planHazardsCmd)
	planCmd.AddCommand(planRestartCmd)

	planRestartCmd.Flags().StringVar(&restartFailed, "failed", "", "ID of the failed task")
	planRestartCmd.Flags().StringSliceVar(&restartCompleted, "completed", nil, "IDs of completed tasks")
	planRestartCmd.Flags().StringSliceVar(&restartDispatched, "dispatched", nil, "IDs of tasks in flight")
	_ = planRestartCmd.MarkFlagRequired("failed")
}

// =============================================================================
// Waves
// =============================================================================

func runPlanWaves(cmd *cobra.Command, args []string) error {
	p, err := plan.LoadPlan(args[0])
	if err != nil {
		return err
	}

	result, err := plan.Schedule(p)
	if err != nil {
		return err
	}
	current.logger.Debug("plan scheduled", "tasks", len(p.Tasks), "waves", len(result.Waves), "hazards", len(result.Hazards))

	return formatWavesOutput(cmd.OutOrStdout(), result, resolveFormat(format, cmd.OutOrStdout()))
}

func formatWavesOutput(w io.Writer, r *plan.Result, f OutputFormat) error {
	switch f {
	case OutputJSON:
		waves := r.Waves
		if waves == nil {
			waves = []plan.Wave{}
		}
		return writeJSON(w, waves)
	case OutputPlain:
		for i, wave := range r.Waves {
			fmt.Fprintf(w, "%d %s\n", i+1, strings.Join(wave.IDs(), " "))
		}
		return nil
	default:
		tw := newTable(w, "WAVE", "TASKS")
		for i, wave := range r.Waves {
			fmt.Fprintf(tw, "%d\t%s\n", i+1, strings.Join(wave.IDs(), ", "))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(r.CriticalPath.TaskIDs) > 0 {
			fmt.Fprintf(w, "\ncritical path (%d): %s\n", r.CriticalPath.Length,
				strings.Join(r.CriticalPath.TaskIDs, " -> "))
		}
		return nil
	}
}

// =============================================================================
// Critical Path
// =============================================================================

func runPlanCriticalPath(cmd *cobra.Command, args []string) error {
	p, err := plan.LoadPlan(args[0])
	if err != nil {
		return err
	}

	result, err := plan.Schedule(p)
	if err != nil {
		return err
	}
	return formatCriticalPathOutput(cmd.OutOrStdout(), result.CriticalPath, resolveFormat(format, cmd.OutOrStdout()))
}

func formatCriticalPathOutput(w io.Writer, cp plan.CriticalPath, f OutputFormat) error {
	if cp.TaskIDs == nil {
		cp.TaskIDs = []string{}
	}

	switch f {
	case OutputJSON:
		return writeJSON(w, cp)
	case OutputPlain:
		fmt.Fprintf(w, "%d %s\n", cp.Length, strings.Join(cp.TaskIDs, " "))
		return nil
	default:
		tw := newTable(w, "STEP", "TASK")
		for i, id := range cp.TaskIDs {
			fmt.Fprintf(tw, "%d\t%s\n", i+1, id)
		}
		return tw.Flush()
	}
}

// =============================================================================
// Hazards
// =============================================================================

func runPlanHazards(cmd *cobra.Command, args []string) error {
	p, err := plan.LoadPlan(args[0])
	if err != nil {
		return err
	}
	if err := plan.Validate(p); err != nil {
		return err
	}

	hazards := plan.DetectHazards(p.Tasks)
	return formatHazardsOutput(cmd.OutOrStdout(), hazards, resolveFormat(format, cmd.OutOrStdout()))
}

func formatHazardsOutput(w io.Writer, hazards []plan.Hazard, f OutputFormat) error {
	if len(hazards) == 0 {
		writeEmpty(w, f, "No hazards found.", "[]")
		return nil
	}

	switch f {
	case OutputJSON:
		return writeJSON(w, hazards)
	case OutputPlain:
		for _, h := range hazards {
			fmt.Fprintf(w, "%s %s %s %s\n", h.Type, h.TaskA, h.TaskB, h.Resource)
		}
		return nil
	default:
		tw := newTable(w, "TYPE", "TASK A", "TASK B", "RESOURCE")
		for _, h := range hazards {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.Type, h.TaskA, h.TaskB, h.Resource)
		}
		return tw.Flush()
	}
}

// =============================================================================
// Restart
// =============================================================================

func runPlanRestart(cmd *cobra.Command, args []string) error {
	p, err := plan.LoadPlan(args[0])
	if err != nil {
		return err
	}
	if err := plan.Validate(p); err != nil {
		return err
	}

	decision, err := plan.DeriveRestart(plan.RestartInput{
		Failed:     restartFailed,
		Tasks:      p.Tasks,
		Completed:  restartCompleted,
		Dispatched: restartDispatched,
	})
	if err != nil {
		return err
	}
	return formatRestartOutput(cmd.OutOrStdout(), decision, resolveFormat(format, cmd.OutOrStdout()))
}

func formatRestartOutput(w io.Writer, d plan.RestartDecision, f OutputFormat) error {
	switch f {
	case OutputJSON:
		return writeJSON(w, d)
	case OutputPlain:
		fmt.Fprintf(w, "%s %s\n", d.Strategy, strings.Join(d.Restart, " "))
		return nil
	default:
		fmt.Fprintf(w, "strategy:  %s\n", d.Strategy)
		fmt.Fprintf(w, "restart:   %s\n", strings.Join(d.Restart, ", "))
		if len(d.Consumers) > 0 {
			fmt.Fprintf(w, "consumers: %s\n", strings.Join(d.Consumers, ", "))
		}
		return nil
	}
}

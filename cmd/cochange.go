package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/adalundhe/seam/core/cochange"
)

var (
	cochangeMinWeight float64
	cochangeLimit     int
	cochangeMaxFiles  int
)

var cochangeCmd = &cobra.Command{
	Use:   "cochange",
	Short: "Show files that change together",
	Long: `Mine the commit history for pairs of files changed in the same commits.
Each commit contributes 1/(n-1) to every pair of its n files, so wide
commits count for less than focused ones. Results are cached per repository
and extended incrementally on later runs.`,
	Args: cobra.NoArgs,
	RunE: runCochange,
}

func init() {
	rootCmd.AddCommand(cochangeCmd)

	cochangeCmd.Flags().Float64Var(&cochangeMinWeight, "min-weight", 0, "Only show pairs with at least this weight")
	cochangeCmd.Flags().IntVarP(&cochangeLimit, "limit", "n", 0, "Maximum number of pairs to show (0 for all)")
	cochangeCmd.Flags().IntVar(&cochangeMaxFiles, "max-commit-files", 0, "Skip commits touching more files than this")
}

func runCochange(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("max-commit-files") {
		current.config.History.MaxCommitFiles = cochangeMaxFiles
		if err := current.config.Validate(); err != nil {
			return err
		}
	}

	a, release, err := current.analyzer(nil)
	if err != nil {
		return err
	}
	defer release()

	g, err := a.CoChange(cmd.Context(), repoDir)
	if err != nil {
		return fmt.Errorf("co-change scan failed: %w", err)
	}

	g.Edges = strongestEdges(g.Edges, cochangeMinWeight, cochangeLimit)
	return formatCochangeOutput(cmd.OutOrStdout(), g, resolveFormat(format, cmd.OutOrStdout()))
}

// strongestEdges filters by weight and keeps the heaviest limit edges,
// preserving their pair order.
func strongestEdges(edges []cochange.Edge, minWeight float64, limit int) []cochange.Edge {
	out := make([]cochange.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Weight >= minWeight {
			out = append(out, e)
		}
	}
	if limit <= 0 || len(out) <= limit {
		return out
	}

	cutoff := kthLargest(out, limit)
	kept := out[:0]
	for _, e := range out {
		if len(kept) < limit && e.Weight >= cutoff {
			kept = append(kept, e)
		}
	}
	return kept
}

func kthLargest(edges []cochange.Edge, k int) float64 {
	weights := make([]float64, len(edges))
	for i, e := range edges {
		weights[i] = e.Weight
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))
	return weights[k-1]
}

func formatCochangeOutput(w io.Writer, g cochange.Graph, f OutputFormat) error {
	if f == OutputJSON {
		return writeJSON(w, g)
	}

	if !g.Available() {
		fmt.Fprintf(w, "No co-change signal: %s\n", g.Signal)
		return nil
	}
	if len(g.Edges) == 0 {
		fmt.Fprintf(w, "No co-changing files in %d commits.\n", g.TotalCommitsAnalyzed)
		return nil
	}

	if f == OutputPlain {
		for _, e := range g.Edges {
			fmt.Fprintf(w, "%s %s %s %d\n", e.Files[0], e.Files[1], formatFloat(e.Weight), e.CommitCount)
		}
		return nil
	}

	fmt.Fprintf(w, "%d commits analyzed\n\n", g.TotalCommitsAnalyzed)
	tw := newTable(w, "FILE A", "FILE B", "WEIGHT", "COMMITS")
	for _, e := range g.Edges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.Files[0], e.Files[1], formatFloat(e.Weight), e.CommitCount)
	}
	return tw.Flush()
}

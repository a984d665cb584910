package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adalundhe/seam/core/hotspot"
)

var (
	trendSamples  int
	trendDeadZone float64
	trendProxy    string
)

var trendCmd = &cobra.Command{
	Use:   "trend <file>...",
	Short: "Classify how a file's complexity is trending",
	Long: `Measure each file at revisions spread evenly over its history and fit a
line through the measurements. A relative slope inside the dead zone is
reported as stable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTrend,
}

func init() {
	rootCmd.AddCommand(trendCmd)

	trendCmd.Flags().IntVar(&trendSamples, "samples", 0, "Number of revisions to measure")
	trendCmd.Flags().Float64Var(&trendDeadZone, "dead-zone", 0, "Relative slope below which a trend is stable")
	trendCmd.Flags().StringVar(&trendProxy, "proxy", "", "Complexity measure (lines, indent)")
}

func runTrend(cmd *cobra.Command, args []string) error {
	cfg := current.config
	if cmd.Flags().Changed("samples") {
		cfg.Trend.Samples = trendSamples
	}
	if cmd.Flags().Changed("dead-zone") {
		cfg.Trend.DeadZone = trendDeadZone
	}
	if cmd.Flags().Changed("proxy") {
		cfg.Trend.Proxy = trendProxy
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a, release, err := current.analyzer(nil)
	if err != nil {
		return err
	}
	defer release()

	results, err := a.Trends(cmd.Context(), repoDir, args)
	if err != nil {
		return err
	}
	return formatTrendOutput(cmd.OutOrStdout(), results, resolveFormat(format, cmd.OutOrStdout()))
}

func formatTrendOutput(w io.Writer, results []hotspot.TrendResult, f OutputFormat) error {
	switch f {
	case OutputJSON:
		return writeJSON(w, results)
	case OutputPlain:
		for _, r := range results {
			fmt.Fprintf(w, "%s %s %s\n", r.File, r.Direction, formatFloat(r.RelativeSlope))
		}
		return nil
	default:
		tw := newTable(w, "FILE", "DIRECTION", "SLOPE", "RELATIVE", "SAMPLES")
		for _, r := range results {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.File, r.Direction,
				formatFloat(r.Slope), formatFloat(r.RelativeSlope), len(r.Samples))
		}
		return tw.Flush()
	}
}

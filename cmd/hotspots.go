package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adalundhe/seam/core/hotspot"
)

var hotspotsTop int

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Rank files by change frequency times size",
	Long: `Rank files by how often they changed multiplied by their current line
count. Files deleted since or stored as binary are left out.`,
	Args: cobra.NoArgs,
	RunE: runHotspots,
}

func init() {
	rootCmd.AddCommand(hotspotsCmd)

	hotspotsCmd.Flags().IntVarP(&hotspotsTop, "top", "n", 10, "Number of hotspots to show (0 for all)")
}

func runHotspots(cmd *cobra.Command, args []string) error {
	a, release, err := current.analyzer(nil)
	if err != nil {
		return err
	}
	defer release()

	hs, err := a.Hotspots(cmd.Context(), repoDir, hotspotsTop)
	if err != nil {
		return fmt.Errorf("hotspot analysis failed: %w", err)
	}
	return formatHotspotsOutput(cmd.OutOrStdout(), hs, resolveFormat(format, cmd.OutOrStdout()))
}

func formatHotspotsOutput(w io.Writer, hs []hotspot.Hotspot, f OutputFormat) error {
	if len(hs) == 0 {
		writeEmpty(w, f, "No hotspots found.", "[]")
		return nil
	}

	switch f {
	case OutputJSON:
		return writeJSON(w, hs)
	case OutputPlain:
		for _, h := range hs {
			fmt.Fprintf(w, "%d %s\n", h.Score, h.File)
		}
		return nil
	default:
		tw := newTable(w, "FILE", "CHANGES", "LINES", "SCORE")
		for _, h := range hs {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", truncateString(h.File, 80), h.ChangeFrequency, h.Lines, h.Score)
		}
		return tw.Flush()
	}
}

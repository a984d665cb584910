package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// =============================================================================
// Output Format Type
// =============================================================================

// OutputFormat represents the output format for commands.
type OutputFormat string

const (
	// OutputTable outputs as formatted table.
	OutputTable OutputFormat = "table"
	// OutputJSON outputs as JSON.
	OutputJSON OutputFormat = "json"
	// OutputPlain outputs as plain text.
	OutputPlain OutputFormat = "plain"
	// OutputAuto picks table on a terminal and JSON otherwise.
	OutputAuto OutputFormat = "auto"
)

func parseFormat(s string) OutputFormat {
	switch strings.ToLower(s) {
	case "json":
		return OutputJSON
	case "plain":
		return OutputPlain
	case "auto", "":
		return OutputAuto
	default:
		return OutputTable
	}
}

// resolveFormat turns auto into a concrete format for w.
func resolveFormat(s string, w io.Writer) OutputFormat {
	f := parseFormat(s)
	if f != OutputAuto {
		return f
	}
	if isTerminal(w) {
		return OutputTable
	}
	return OutputJSON
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// =============================================================================
// Writers
// =============================================================================

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	rules := make([]string, len(headers))
	for i, h := range headers {
		rules[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(rules, "\t"))
	return tw
}

// writeEmpty reports an empty result in the given format.
func writeEmpty(w io.Writer, f OutputFormat, message, emptyJSON string) {
	if f == OutputJSON {
		fmt.Fprintln(w, emptyJSON)
		return
	}
	fmt.Fprintln(w, message)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

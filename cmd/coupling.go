package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adalundhe/seam/core/config"
	"github.com/adalundhe/seam/core/coupling"
	"github.com/adalundhe/seam/core/registry"
	"github.com/adalundhe/seam/core/storage"
)

var (
	couplingHidden     bool
	couplingComponent  string
	couplingLevel      string
	couplingComponents string
	couplingStructural float64
	couplingBehavioral float64
)

var couplingCmd = &cobra.Command{
	Use:   "coupling",
	Short: "Classify file pairs by import structure and co-change",
	Long: `Compare the import structure with co-change history and classify every
pair that has either signal:

  explicit_module   imports each other and changes together, or same component
  stable_interface  imports each other but rarely changes together
  hidden_coupling   changes together without an import relationship
  unrelated         neither signal is significant

Thresholds default to the median of the observed weights.`,
	Args: cobra.NoArgs,
	RunE: runCoupling,
}

func init() {
	rootCmd.AddCommand(couplingCmd)

	couplingCmd.Flags().BoolVar(&couplingHidden, "hidden", false, "Only show hidden coupling, strongest first")
	couplingCmd.Flags().StringVar(&couplingComponent, "component", "", "Only show pairs involving this component")
	couplingCmd.Flags().StringVar(&couplingLevel, "level", "", "Matrix level (file, package, component)")
	couplingCmd.Flags().StringVar(&couplingComponents, "components", "", "Component manifest (default .seam/components.yaml)")
	couplingCmd.Flags().Float64Var(&couplingStructural, "structural-threshold", 0, "Structural significance threshold (0 calibrates)")
	couplingCmd.Flags().Float64Var(&couplingBehavioral, "behavioral-threshold", 0, "Behavioral significance threshold (0 calibrates)")
}

func runCoupling(cmd *cobra.Command, args []string) error {
	cfg := current.config
	if cmd.Flags().Changed("structural-threshold") {
		cfg.Coupling.StructuralThreshold = couplingStructural
	}
	if cmd.Flags().Changed("behavioral-threshold") {
		cfg.Coupling.BehavioralThreshold = couplingBehavioral
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	level := couplingLevel
	if level == "" {
		level = cfg.Coupling.Level
	}

	reg, err := loadRegistry(couplingComponents, level == config.LevelComponent || couplingComponent != "")
	if err != nil {
		return err
	}

	a, release, err := current.analyzer(reg)
	if err != nil {
		return err
	}
	defer release()

	m, err := a.Coupling(cmd.Context(), repoDir, level)
	if err != nil {
		return fmt.Errorf("coupling analysis failed: %w", err)
	}

	view, err := selectEntries(m, couplingHidden, couplingComponent)
	if err != nil {
		return err
	}
	return formatCouplingOutput(cmd.OutOrStdout(), view, resolveFormat(format, cmd.OutOrStdout()))
}

// loadRegistry reads the component manifest. The default manifest is
// optional unless required is set.
func loadRegistry(path string, required bool) (*registry.Registry, error) {
	explicit := path != ""
	if !explicit {
		path = storage.ResolveProjectDirs(repoDir).Components
	}

	reg, err := registry.LoadYAML(path)
	if err == nil {
		return reg, nil
	}
	if !explicit && !required && errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return nil, fmt.Errorf("load components: %w", err)
}

// selectEntries narrows the matrix to the requested view.
func selectEntries(m *coupling.Matrix, hidden bool, component string) (coupling.Matrix, error) {
	view := *m

	if component != "" {
		entries, err := m.ComponentCouplingProfile(component)
		if err != nil {
			return view, fmt.Errorf("component %q: %w", component, err)
		}
		view.Entries = entries
	}

	if hidden {
		strongest := m.FindHiddenCoupling()
		if component != "" {
			keep := make(map[[2]string]bool, len(view.Entries))
			for _, e := range view.Entries {
				keep[e.Pair] = true
			}
			filtered := strongest[:0]
			for _, e := range strongest {
				if keep[e.Pair] {
					filtered = append(filtered, e)
				}
			}
			strongest = filtered
		}
		view.Entries = strongest
	}

	if view.Entries == nil {
		view.Entries = []coupling.Entry{}
	}
	return view, nil
}

func formatCouplingOutput(w io.Writer, m coupling.Matrix, f OutputFormat) error {
	if f == OutputJSON {
		return writeJSON(w, m)
	}

	if len(m.Entries) == 0 {
		fmt.Fprintln(w, "No coupled pairs found.")
		return nil
	}

	if f == OutputPlain {
		for _, e := range m.Entries {
			fmt.Fprintf(w, "%s %s %s %s %s\n", e.Pair[0], e.Pair[1], e.Classification,
				formatFloat(e.StructuralWeight), formatFloat(e.BehavioralWeight))
		}
		return nil
	}

	fmt.Fprintf(w, "thresholds: structural %s, behavioral %s\n\n",
		formatFloat(m.StructuralThreshold), formatFloat(m.BehavioralThreshold))
	tw := newTable(w, "A", "B", "STRUCTURAL", "BEHAVIORAL", "CLASSIFICATION")
	for _, e := range m.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Pair[0], e.Pair[1],
			formatFloat(e.StructuralWeight), formatFloat(e.BehavioralWeight), e.Classification)
	}
	return tw.Flush()
}

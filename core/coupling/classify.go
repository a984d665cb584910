// Package coupling joins structural (import) and behavioural (co-change)
// evidence into a classified coupling matrix.
package coupling

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Classification is the relationship between two files or components.
type Classification string

const (
	// ExplicitModule: both signals are significant, or both members belong
	// to one declared component.
	ExplicitModule Classification = "explicit_module"

	// StableInterface: imported but rarely changed together.
	StableInterface Classification = "stable_interface"

	// HiddenCoupling: changed together with no import relationship.
	HiddenCoupling Classification = "hidden_coupling"

	Unrelated Classification = "unrelated"
)

// Classifications lists every classification in report order.
var Classifications = []Classification{ExplicitModule, StableInterface, HiddenCoupling, Unrelated}

// Thresholds are the significance cutoffs for each signal.
type Thresholds struct {
	Structural float64 `json:"structural_threshold"`
	Behavioral float64 `json:"behavioral_threshold"`
}

// Significant reports whether weight meets threshold. A zero weight is never
// significant, whatever the threshold.
func Significant(weight, threshold float64) bool {
	return weight > 0 && weight >= threshold
}

// Classify is a pure function of the two weights, the thresholds and whether
// the pair shares a declared component.
func Classify(structural, behavioral float64, t Thresholds, sameComponent bool) Classification {
	if sameComponent {
		return ExplicitModule
	}

	s := Significant(structural, t.Structural)
	b := Significant(behavioral, t.Behavioral)
	switch {
	case s && b:
		return ExplicitModule
	case s:
		return StableInterface
	case b:
		return HiddenCoupling
	default:
		return Unrelated
	}
}

// Calibrate returns the median of the nonzero values, or 0 when there are
// none. With an even count the two middle values are averaged.
func Calibrate(values []float64) float64 {
	nonzero := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			nonzero = append(nonzero, v)
		}
	}
	if len(nonzero) == 0 {
		return 0
	}
	sort.Float64s(nonzero)

	lower := stat.Quantile(0.5, stat.Empirical, nonzero, nil)
	if len(nonzero)%2 == 1 {
		return lower
	}
	return (lower + nonzero[len(nonzero)/2]) / 2
}

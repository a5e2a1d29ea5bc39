package stats

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// Params gathers every threshold the analyses use. Defaults reproduce the
// values of the published BUR study.
type Params struct {
	// MinSamples is the shortest phrase analysed; the study discards
	// phrases with fewer than six BUR values.
	MinSamples int `json:"min_samples"`

	// Alpha is the per-test significance level, FDRAlpha the target false
	// discovery rate of every correction family.
	Alpha    float64 `json:"alpha"`
	FDRAlpha float64 `json:"fdr_alpha"`

	// ConfidenceLevel sets the width of slope intervals.
	ConfidenceLevel float64 `json:"confidence_level"`

	// DWThreshold flags residual autocorrelation when Durbin-Watson drops below it.
	DWThreshold float64 `json:"dw_threshold"`

	// MaxFitIterations bounds the exponential optimiser.
	MaxFitIterations int `json:"max_fit_iterations"`

	// EndFraction is the share of the phrase treated as its ending.
	EndFraction float64 `json:"end_fraction"`

	// MinEffectSize is the Cohen's d an end surge must reach (0.8 is "large").
	MinEffectSize float64 `json:"min_effect_size"`

	// EdgeDelta is the BUR difference between an edge note and the middle
	// mean that counts as audibly higher.
	EdgeDelta float64 `json:"edge_delta"`

	// MinSurgeDelta is the predicted start-to-end BUR change a fitted curve
	// must show to count as a surge. The source study gives no derivation
	// for 0.456, so it stays tunable.
	MinSurgeDelta float64 `json:"min_surge_delta"`

	// MinCurveR2 gates exponential and logarithmic surges, which have no
	// reliable p-value of their own in the study.
	MinCurveR2 float64 `json:"min_curve_r2"`

	// WindowSizes and SeasonalPeriod drive the localized surge scan; MinTau
	// is the smallest |tau| a window needs to count as a surge.
	WindowSizes    []int   `json:"window_sizes"`
	SeasonalPeriod int     `json:"seasonal_period"`
	MinTau         float64 `json:"min_tau"`
}

// DefaultParams returns the study defaults
func DefaultParams() Params {
	return Params{
		MinSamples:       6,
		Alpha:            0.05,
		FDRAlpha:         0.05,
		ConfidenceLevel:  0.95,
		DWThreshold:      1.5,
		MaxFitIterations: 200,
		EndFraction:      0.25,
		MinEffectSize:    0.8,
		EdgeDelta:        0.4,
		MinSurgeDelta:    0.456,
		MinCurveR2:       0.8,
		WindowSizes:      []int{4, 6, 8},
		SeasonalPeriod:   4,
		MinTau:           0.4,
	}
}

// ZCritical is the two-sided standard normal critical value for Alpha
// (1.96 at the default 0.05).
func (p Params) ZCritical() float64 {
	return distuv.UnitNormal.Quantile(1 - p.Alpha/2)
}

// Validate rejects parameter sets no analysis can run with
func (p Params) Validate() error {
	switch {
	case p.MinSamples < 3:
		return fmt.Errorf("min samples must be at least 3, got %d", p.MinSamples)
	case p.Alpha <= 0 || p.Alpha >= 1:
		return fmt.Errorf("alpha must lie in (0,1), got %g", p.Alpha)
	case p.FDRAlpha <= 0 || p.FDRAlpha >= 1:
		return fmt.Errorf("fdr alpha must lie in (0,1), got %g", p.FDRAlpha)
	case p.ConfidenceLevel <= 0 || p.ConfidenceLevel >= 1:
		return fmt.Errorf("confidence level must lie in (0,1), got %g", p.ConfidenceLevel)
	case p.MaxFitIterations < 1:
		return fmt.Errorf("max fit iterations must be positive, got %d", p.MaxFitIterations)
	case p.EndFraction <= 0 || p.EndFraction >= 1:
		return fmt.Errorf("end fraction must lie in (0,1), got %g", p.EndFraction)
	case p.SeasonalPeriod < 1:
		return fmt.Errorf("seasonal period must be positive, got %d", p.SeasonalPeriod)
	case len(p.WindowSizes) == 0:
		return fmt.Errorf("at least one window size is required")
	}
	for _, w := range p.WindowSizes {
		if w < 2 {
			return fmt.Errorf("window sizes must be at least 2, got %d", w)
		}
	}
	return nil
}

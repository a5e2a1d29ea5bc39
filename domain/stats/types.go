package stats

import (
	"fmt"
	"math"

	"burtrend/domain/core"
)

// ============================================================================
// TEST AND MODEL VOCABULARY
// ============================================================================

// TestType names one statistical test of the battery
type TestType string

const (
	TestLinear       TestType = "linear"
	TestExponential  TestType = "exponential"
	TestLogarithmic  TestType = "logarithmic"
	TestQuadratic    TestType = "quadratic"
	TestMannKendall  TestType = "mann_kendall"
	TestModifiedMK   TestType = "modified_mann_kendall"
	TestSeasonalMK   TestType = "seasonal_mann_kendall"
	TestStepChange   TestType = "step_change"
	TestEndSurge     TestType = "end_surge"
	TestEdgeZ        TestType = "edge_z"
	TestNullBaseline TestType = "null_baseline"
)

// ModelKind names a fitted curve family
type ModelKind string

const (
	ModelLinear      ModelKind = "linear"
	ModelExponential ModelKind = "exponential"
	ModelLogarithmic ModelKind = "logarithmic"
	ModelQuadratic   ModelKind = "quadratic"
)

// ModelPriority is the tie-break order for best-model selection; simpler first
var ModelPriority = []ModelKind{ModelLinear, ModelLogarithmic, ModelExponential, ModelQuadratic}

// Rank returns the position of m in ModelPriority
func (m ModelKind) Rank() int {
	for i, k := range ModelPriority {
		if k == m {
			return i
		}
	}
	return len(ModelPriority)
}

// TestType maps a model onto the test whose p-values it pools
func (m ModelKind) TestType() TestType {
	return TestType(m)
}

// Direction is the sign of a fitted slope or growth coefficient
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
	NoChange Direction = "none"
)

// DirectionOf classifies the sign of v; exactly zero (or NaN) is no change
func DirectionOf(v float64) Direction {
	switch {
	case v > 0:
		return Increase
	case v < 0:
		return Decrease
	default:
		return NoChange
	}
}

// MKTrend is the Mann-Kendall trend label
type MKTrend string

const (
	TrendIncreasing MKTrend = "increasing"
	TrendDecreasing MKTrend = "decreasing"
	TrendNone       MKTrend = "no trend"
)

// Shape describes the curvature of a quadratic fit
type Shape string

const (
	ShapeU         Shape = "u_shaped"
	ShapeInvertedU Shape = "inverted_u"
	ShapeNone      Shape = "none"
)

// WarningCode explains why a result is not applicable
type WarningCode string

const (
	WarningLowN            WarningCode = "LOW_N"
	WarningNotConverged    WarningCode = "NOT_CONVERGED"
	WarningLowVariance     WarningCode = "LOW_VARIANCE"
	WarningNoSeasonalPairs WarningCode = "NO_SEASONAL_PAIRS"
)

// Err maps the warning onto the domain error behind it
func (w WarningCode) Err() error {
	switch w {
	case WarningLowN:
		return core.ErrInsufficientData
	case WarningNotConverged:
		return core.ErrNotConverged
	default:
		return core.ErrDegenerate
	}
}

// ============================================================================
// RESULTS
// ============================================================================

// Interval is a two-sided confidence interval
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies within the closed interval
func (i Interval) Contains(v float64) bool {
	return v >= i.Lower && v <= i.Upper
}

// Correction is the multiple-testing annotation attached by a sealed family
type Correction struct {
	FamilyID    core.FamilyID `json:"family_id"`
	FamilySize  int           `json:"family_size"`
	Method      string        `json:"method"`
	QValue      float64       `json:"q_value"`
	Significant bool          `json:"significant"`
}

// TrendResult is the outcome of one test on one phrase.
// INVARIANTS:
// - Applicable=false results carry a Reason and never enter a correction family
// - PValue lies in [0, 1] for applicable results
// - Correction is nil until the owning family has been corrected
type TrendResult struct {
	Test       TestType    `json:"test"`
	Applicable bool        `json:"applicable"`
	Reason     WarningCode `json:"reason,omitempty"`
	N          int         `json:"n"`
	Slope      float64     `json:"slope"`     // slope, growth rate or coefficient
	Statistic  float64     `json:"statistic"` // R² for fits, tau for rank tests
	PValue     float64     `json:"p_value"`
	Direction  Direction   `json:"direction"`
	CI         *Interval   `json:"ci,omitempty"`
	Correction *Correction `json:"correction,omitempty"`
}

// NotApplicable builds a placeholder result for a test that could not run
func NotApplicable(test TestType, n int, reason WarningCode) TrendResult {
	return TrendResult{
		Test:      test,
		N:         n,
		Reason:    reason,
		PValue:    math.NaN(),
		Direction: NoChange,
	}
}

// Err is nil for an applicable result. Otherwise it wraps the domain error
// named by Reason, so callers can match it with errors.Is.
func (r TrendResult) Err() error {
	if r.Applicable {
		return nil
	}
	return fmt.Errorf("%w: %s on %d values (%s)", r.Reason.Err(), r.Test, r.N, r.Reason)
}

// Annotate attaches the correction outcome
func (r *TrendResult) Annotate(c Correction) {
	r.Correction = &c
}

// Significant reports the corrected decision; false before correction
func (r TrendResult) Significant() bool {
	return r.Applicable && r.Correction != nil && r.Correction.Significant
}

// QValue returns the corrected p-value or NaN
func (r TrendResult) QValue() float64 {
	if r.Correction == nil {
		return math.NaN()
	}
	return r.Correction.QValue
}

// Window is one sliding window tested for a localized surge.
// Start and End are inclusive positions within the phrase.
type Window struct {
	Start       int         `json:"start"`
	End         int         `json:"end"`
	Size        int         `json:"size"`
	Applicable  bool        `json:"applicable"`
	Reason      WarningCode `json:"reason,omitempty"`
	Comparisons int         `json:"comparisons"`
	S           float64     `json:"s"`
	Tau         float64     `json:"tau"`
	Z           float64     `json:"z"`
	PValue      float64     `json:"p_value"`
	SensSlope   float64     `json:"sens_slope"`
	Direction   Direction   `json:"direction"`
	Correction  *Correction `json:"correction,omitempty"`
}

// Annotate attaches the correction outcome
func (w *Window) Annotate(c Correction) {
	w.Correction = &c
}

// QValue returns the corrected p-value or NaN
func (w Window) QValue() float64 {
	if w.Correction == nil {
		return math.NaN()
	}
	return w.Correction.QValue
}

// ============================================================================
// FDR FAMILIES
// ============================================================================

// FamilyKey declares one pool of p-values corrected together
type FamilyKey struct {
	Analysis string   `json:"analysis"`
	Test     TestType `json:"test"`
	Scope    string   `json:"scope"`
}

// ID returns the stable family identifier
func (k FamilyKey) ID() core.FamilyID {
	return core.ComputeFamilyID(k.Analysis, string(k.Test), k.Scope)
}

func (k FamilyKey) String() string {
	return k.Analysis + "/" + string(k.Test) + "/" + k.Scope
}

// FamilySummary is the audit record of a corrected family
type FamilySummary struct {
	ID         core.FamilyID `json:"id"`
	Key        FamilyKey     `json:"key"`
	Method     string        `json:"method"`
	Alpha      float64       `json:"alpha"`
	Size       int           `json:"size"`
	RawHits    int           `json:"raw_hits"`
	Rejections int           `json:"rejections"`
}

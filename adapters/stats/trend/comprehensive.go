package trend

import (
	"burtrend/adapters/stats/fit"
	"burtrend/domain/stats"
)

// Comprehensive is the full battery on one phrase
type Comprehensive struct {
	Linear      LinearTrendResult `json:"linear"`
	Exponential stats.TrendResult `json:"exponential"`
	Logarithmic stats.TrendResult `json:"logarithmic"`
	Quadratic   stats.TrendResult `json:"quadratic"`
	Step        StepResult        `json:"step"`
	EndSurge    EndSurgeResult    `json:"end_surge"`

	Fits    []fit.Fit     `json:"-"`
	Best    fit.Fit       `json:"best"`
	HasBest bool          `json:"has_best"`
	Surge   fit.SurgeCall `json:"surge"`
	Shape   stats.Shape   `json:"shape"`
}

// RunComprehensive fits every model and runs the step and end-surge detectors
func RunComprehensive(values []float64, p stats.Params) Comprehensive {
	c := Comprehensive{
		Linear:   LinearTrend(values, p),
		Step:     StepChange(values, p),
		EndSurge: EndSurge(values, p),
		Shape:    stats.ShapeNone,
	}

	n := len(values)
	if n < p.MinSamples {
		c.Exponential = stats.NotApplicable(stats.TestExponential, n, stats.WarningLowN)
		c.Logarithmic = stats.NotApplicable(stats.TestLogarithmic, n, stats.WarningLowN)
		c.Quadratic = stats.NotApplicable(stats.TestQuadratic, n, stats.WarningLowN)
		c.Surge = fit.SurgeCall{Direction: stats.NoChange}
		return c
	}

	exp := fit.Exponential(values, p.MaxFitIterations)
	lg := fit.Logarithmic(values)
	quad := fit.Quadratic(values)
	c.Fits = []fit.Fit{c.Linear.Fit, exp, lg, quad}

	c.Exponential = exp.Result()
	c.Logarithmic = lg.Result()
	c.Quadratic = quad.Result()
	if quad.OK {
		c.Shape = quad.Shape
	}

	c.Best, c.HasBest = fit.SelectBest(c.Fits...)
	c.Surge, _ = fit.ClassifyPhrase(c.Fits, p)
	return c
}

// Results lists every correctable result of the battery in a fixed order
func (c *Comprehensive) Results() []*stats.TrendResult {
	return []*stats.TrendResult{
		&c.Linear.TrendResult,
		&c.Exponential,
		&c.Logarithmic,
		&c.Quadratic,
		&c.Step.TrendResult,
		&c.EndSurge.TrendResult,
	}
}

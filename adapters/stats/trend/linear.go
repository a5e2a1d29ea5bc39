// Package trend runs the per-phrase trend test battery: linear regression
// with slope interval and Durbin-Watson, Mann-Kendall (original and Hamed-Rao
// modified), Sen's slope, step change and end surge detection, plus the
// phrase-structure and variation statistics.
package trend

import (
	"burtrend/adapters/stats/fit"
	"burtrend/domain/stats"
)

// LinearTrendResult extends the linear fit with its slope interval and a
// residual autocorrelation check. Autocorrelation is reported, not corrected.
type LinearTrendResult struct {
	stats.TrendResult
	Intercept      float64 `json:"intercept"`
	StdErr         float64 `json:"std_err"`
	DurbinWatson   float64 `json:"durbin_watson"`
	Autocorrelated bool    `json:"autocorrelated"`
	Fit            fit.Fit `json:"-"`
}

// LinearTrend regresses BUR on position
func LinearTrend(values []float64, p stats.Params) LinearTrendResult {
	n := len(values)
	if n < p.MinSamples {
		return LinearTrendResult{TrendResult: stats.NotApplicable(stats.TestLinear, n, stats.WarningLowN)}
	}

	f := fit.Linear(values)
	out := LinearTrendResult{TrendResult: f.Result(), Fit: f}
	if !f.OK {
		return out
	}

	ci := fit.SlopeInterval(f, p.ConfidenceLevel)
	out.CI = &ci
	out.Intercept = f.Params[0]
	out.StdErr = f.StdErr
	out.DurbinWatson = fit.DurbinWatson(f.Residuals)
	out.Autocorrelated = out.DurbinWatson < p.DWThreshold
	return out
}

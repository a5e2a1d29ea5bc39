package trend

import (
	"math"

	"burtrend/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// VariationResult is the spread of BUR within one phrase
type VariationResult struct {
	Applicable bool              `json:"applicable"`
	Reason     stats.WarningCode `json:"reason,omitempty"`
	N          int               `json:"n"`
	Mean       float64           `json:"mean"`
	StdDev     float64           `json:"std_dev"`
	Min        float64           `json:"min"`
	Max        float64           `json:"max"`
}

// Variation computes the sample standard deviation (n-1 denominator)
func Variation(values []float64, p stats.Params) VariationResult {
	n := len(values)
	if n < p.MinSamples || n < 2 {
		return VariationResult{Reason: stats.WarningLowN, N: n, StdDev: math.NaN(), Mean: math.NaN()}
	}
	mean, _ := mstats.Mean(values)
	sd, _ := mstats.StandardDeviationSample(values)
	lo, _ := mstats.Min(values)
	hi, _ := mstats.Max(values)
	return VariationResult{Applicable: true, N: n, Mean: mean, StdDev: sd, Min: lo, Max: hi}
}

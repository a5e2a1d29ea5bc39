package trend

import (
	"math"

	"burtrend/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// EdgeLabel compares an edge note with the middle of the phrase
type EdgeLabel string

const (
	EdgeHigher  EdgeLabel = "higher"
	EdgeLower   EdgeLabel = "lower"
	EdgeSimilar EdgeLabel = "similar"
)

// StructureCategory summarises which edges sit above the middle
type StructureCategory string

const (
	BothHigher      StructureCategory = "both_higher"
	BeginningHigher StructureCategory = "beginning_higher"
	EndHigher       StructureCategory = "end_higher"
	NoneHigher      StructureCategory = "none_higher"

	SigBoth      StructureCategory = "sig_both"
	SigBeginning StructureCategory = "sig_beginning"
	SigEnd       StructureCategory = "sig_end"
	SigNone      StructureCategory = "sig_none"
)

// StructureResult describes the first and last BUR against the phrase middle
type StructureResult struct {
	Applicable bool              `json:"applicable"`
	Reason     stats.WarningCode `json:"reason,omitempty"`
	N          int               `json:"n"`

	First      float64 `json:"first"`
	Last       float64 `json:"last"`
	MiddleMean float64 `json:"middle_mean"`
	MiddleStd  float64 `json:"middle_std"`

	FirstDelta float64   `json:"first_delta"`
	LastDelta  float64   `json:"last_delta"`
	Beginning  EdgeLabel `json:"beginning"`
	End        EdgeLabel `json:"end"`

	FirstZ      float64 `json:"first_z"`
	LastZ       float64 `json:"last_z"`
	FirstSignif bool    `json:"first_significant"`
	LastSignif  bool    `json:"last_significant"`

	Category       StructureCategory `json:"category"`
	SignifCategory StructureCategory `json:"significance_category"`
}

// PhraseStructure measures how far the first and last values depart from
// the mean of the middle values. An edge is "higher" when it exceeds the
// middle mean by more than EdgeDelta. Its z-score uses the middle's sample
// standard deviation and is significant beyond the two-sided critical value;
// a middle without spread gives z = 0.
func PhraseStructure(values []float64, p stats.Params) StructureResult {
	n := len(values)
	if n < p.MinSamples || n < 4 {
		return StructureResult{Reason: stats.WarningLowN, N: n, Category: NoneHigher, SignifCategory: SigNone}
	}

	middle := values[1 : n-1]
	mean, _ := mstats.Mean(middle)
	std, err := mstats.StandardDeviationSample(middle)
	if err != nil || math.IsNaN(std) {
		std = 0
	}

	res := StructureResult{
		Applicable: true,
		N:          n,
		First:      values[0],
		Last:       values[n-1],
		MiddleMean: mean,
		MiddleStd:  std,
	}
	res.FirstDelta = res.First - mean
	res.LastDelta = res.Last - mean
	res.Beginning = edgeLabel(res.FirstDelta, p.EdgeDelta)
	res.End = edgeLabel(res.LastDelta, p.EdgeDelta)

	if std > 0 {
		res.FirstZ = res.FirstDelta / std
		res.LastZ = res.LastDelta / std
	}
	zc := p.ZCritical()
	res.FirstSignif = math.Abs(res.FirstZ) > zc
	res.LastSignif = math.Abs(res.LastZ) > zc

	res.Category = categorize(res.Beginning == EdgeHigher, res.End == EdgeHigher,
		BothHigher, BeginningHigher, EndHigher, NoneHigher)
	res.SignifCategory = categorize(res.FirstSignif, res.LastSignif,
		SigBoth, SigBeginning, SigEnd, SigNone)
	return res
}

func edgeLabel(delta, threshold float64) EdgeLabel {
	switch {
	case delta > threshold:
		return EdgeHigher
	case delta < -threshold:
		return EdgeLower
	default:
		return EdgeSimilar
	}
}

func categorize(begin, end bool, both, onlyBegin, onlyEnd, none StructureCategory) StructureCategory {
	switch {
	case begin && end:
		return both
	case begin:
		return onlyBegin
	case end:
		return onlyEnd
	default:
		return none
	}
}

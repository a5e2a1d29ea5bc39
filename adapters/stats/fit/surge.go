package fit

import (
	"math"

	"burtrend/domain/stats"
)

// SurgeCall is the verdict of a fitted curve on whether the phrase surges
type SurgeCall struct {
	Kind      stats.ModelKind `json:"kind"`
	Start     float64         `json:"predicted_start"`
	End       float64         `json:"predicted_end"`
	Delta     float64         `json:"delta"`
	Gate      bool            `json:"gate"`
	Direction stats.Direction `json:"direction"`
}

// Qualifies reports a surge in either direction
func (c SurgeCall) Qualifies() bool {
	return c.Direction != stats.NoChange
}

// ClassifySurge compares the predicted BUR at the first and last position.
// Linear fits must be significant at Alpha; the curved models, whose
// p-values are less trustworthy at these lengths, must explain more than
// MinCurveR2 of the variance. A surge additionally needs a predicted change
// of at least MinSurgeDelta. Quadratic fits are not classified.
func ClassifySurge(f Fit, p stats.Params) SurgeCall {
	call := SurgeCall{Kind: f.Kind, Direction: stats.NoChange}
	if !f.OK || f.N < 2 || f.Kind == stats.ModelQuadratic {
		call.Start, call.End, call.Delta = math.NaN(), math.NaN(), math.NaN()
		return call
	}

	call.Start = f.Predict(0)
	call.End = f.Predict(float64(f.N - 1))
	call.Delta = call.End - call.Start

	if f.Kind == stats.ModelLinear {
		call.Gate = f.PValue < p.Alpha
	} else {
		call.Gate = f.R2 > p.MinCurveR2
	}
	if !call.Gate {
		return call
	}
	switch {
	case call.Delta >= p.MinSurgeDelta:
		call.Direction = stats.Increase
	case call.Delta <= -p.MinSurgeDelta:
		call.Direction = stats.Decrease
	}
	return call
}

// ClassifyPhrase returns the first qualifying surge in model priority order
func ClassifyPhrase(fits []Fit, p stats.Params) (SurgeCall, bool) {
	byKind := make(map[stats.ModelKind]Fit, len(fits))
	for _, f := range fits {
		byKind[f.Kind] = f
	}
	for _, kind := range stats.ModelPriority {
		f, ok := byKind[kind]
		if !ok {
			continue
		}
		if call := ClassifySurge(f, p); call.Qualifies() {
			return call, true
		}
	}
	return SurgeCall{Direction: stats.NoChange}, false
}

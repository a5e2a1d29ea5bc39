// Package profiling describes the shape of a BUR distribution: location,
// spread, quartiles, skewness, kurtosis and IQR outliers.
package profiling

import (
	"math"

	"burtrend/domain/core"
	"burtrend/internal/errors"

	"github.com/montanaflynn/stats"
)

// TukeyFence is the IQR multiple beyond which a value is an outlier
const TukeyFence = 1.5

// Profile summarises one set of BUR values
type Profile struct {
	Label    string  `json:"label"`
	N        int     `json:"n"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"` // sample
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"` // adjusted Fisher-Pearson
	Kurtosis float64 `json:"kurtosis"` // excess, 0 for a normal distribution
	Outliers int     `json:"outliers"`
}

// IQR is the interquartile range
func (p Profile) IQR() float64 { return p.Q75 - p.Q25 }

// Describe profiles values. Skewness needs three values and kurtosis four;
// below that, or without spread, they are 0.
func Describe(label string, values []float64) (Profile, error) {
	if len(values) == 0 {
		return Profile{}, errors.WithCode(errors.CodeInvalidInput, core.ErrInsufficientData)
	}

	p := Profile{Label: label, N: len(values)}
	var err error
	if p.Mean, err = stats.Mean(values); err != nil {
		return p, errors.Wrap(err, "mean")
	}
	if p.Median, err = stats.Median(values); err != nil {
		return p, errors.Wrap(err, "median")
	}
	p.Min, _ = stats.Min(values)
	p.Max, _ = stats.Max(values)
	if p.Q25, err = quartile(values, 25); err != nil {
		return p, errors.Wrap(err, "first quartile")
	}
	if p.Q75, err = quartile(values, 75); err != nil {
		return p, errors.Wrap(err, "third quartile")
	}
	if len(values) > 1 {
		p.StdDev, _ = stats.StandardDeviationSample(values)
	}

	p.Skewness, p.Kurtosis = moments(values, p.Mean)
	p.Outliers = countOutliers(values, p.Q25, p.Q75)
	return p, nil
}

// quartile interpolates like stats.Percentile, which rejects the lower
// quartile of fewer than four values; short sets use the nearest rank.
func quartile(values []float64, percent float64) (float64, error) {
	if len(values) < 4 {
		return stats.PercentileNearestRank(values, percent)
	}
	return stats.Percentile(values, percent)
}

// moments returns the bias-corrected sample skewness G1 and excess kurtosis G2
func moments(values []float64, mean float64) (skew, kurt float64) {
	n := float64(len(values))
	var m2, m3, m4 float64
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2, m3, m4 = m2/n, m3/n, m4/n
	if m2 == 0 {
		return 0, 0
	}

	if n >= 3 {
		g1 := m3 / math.Pow(m2, 1.5)
		skew = g1 * math.Sqrt(n*(n-1)) / (n - 2)
	}
	if n >= 4 {
		g2 := m4/(m2*m2) - 3
		kurt = ((n+1)*g2 + 6) * (n - 1) / ((n - 2) * (n - 3))
	}
	return skew, kurt
}

func countOutliers(values []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lo, hi := q25-TukeyFence*iqr, q75+TukeyFence*iqr
	n := 0
	for _, v := range values {
		if v < lo || v > hi {
			n++
		}
	}
	return n
}

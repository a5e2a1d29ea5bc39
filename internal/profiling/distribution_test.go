package profiling

import (
	"testing"

	"burtrend/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeSymmetric(t *testing.T) {
	p, err := Describe("ramp", []float64{1, 2, 3, 4, 5})
	require.NoError(t, err)

	assert.Equal(t, "ramp", p.Label)
	assert.Equal(t, 5, p.N)
	assert.InDelta(t, 3.0, p.Mean, 1e-12)
	assert.InDelta(t, 3.0, p.Median, 1e-12)
	assert.InDelta(t, 1.5811388300841898, p.StdDev, 1e-12)
	assert.InDelta(t, 0.0, p.Skewness, 1e-12)
	assert.InDelta(t, -1.2, p.Kurtosis, 1e-12)
	assert.Equal(t, 0, p.Outliers)
	assert.Equal(t, 1.0, p.Min)
	assert.Equal(t, 5.0, p.Max)
}

func TestDescribeOutlierAndSkew(t *testing.T) {
	p, err := Describe("spike", []float64{1, 1, 1, 1, 1, 1, 1, 10})
	require.NoError(t, err)

	assert.Equal(t, 1, p.Outliers)
	assert.Greater(t, p.Skewness, 2.0)
	assert.Equal(t, 0.0, p.IQR())
}

func TestDescribeDegenerate(t *testing.T) {
	p, err := Describe("flat", []float64{1.4, 1.4, 1.4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.StdDev)
	assert.Equal(t, 0.0, p.Skewness)
	assert.Equal(t, 0.0, p.Kurtosis)

	one, err := Describe("single", []float64{2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, one.StdDev)

	_, err = Describe("empty", nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestDescribeShortQuartiles(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		q25, q75 float64
	}{
		{"two", []float64{1.2, 1.8}, 1.2, 1.8},
		{"three", []float64{1.6, 1.0, 2.2}, 1.0, 2.2},
		{"four interpolates", []float64{1, 2, 3, 4}, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Describe(tt.name, tt.values)
			require.NoError(t, err)
			assert.InDelta(t, tt.q25, p.Q25, 1e-12)
			assert.InDelta(t, tt.q75, p.Q75, 1e-12)
			assert.Equal(t, 0, p.Outliers)
		})
	}
}

package phrase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtistName(t *testing.T) {
	tests := []struct {
		soloID string
		want   string
	}{
		{"JohnColtrane_GiantSteps_FINAL", "John Coltrane"},
		{"CharlieParker", "Charlie Parker"},
		{"JJJohnson_Walkin", "J J Johnson"},
		{"miles_davis", "miles"},
		{"", ""},
		{"_Untitled", ""},
	}
	for _, tt := range tests {
		t.Run(tt.soloID, func(t *testing.T) {
			assert.Equal(t, tt.want, ArtistName(tt.soloID))
		})
	}
}

func TestBuilderOrdersKeysAndKeepsRowOrder(t *testing.T) {
	b := NewBuilder()
	b.Add(Key{"B_solo", "1"}, 1.5)
	b.Add(Key{"A_solo", "10"}, 2.0)
	b.Add(Key{"A_solo", "2"}, 1.1)
	b.Add(Key{"A_solo", "2"}, 1.2)
	b.Add(Key{"A_solo", "10"}, 2.1)

	got := b.Phrases()
	require.Len(t, got, 3)

	assert.Equal(t, Key{"A_solo", "2"}, got[0].Key())
	assert.Equal(t, []float64{1.1, 1.2}, got[0].Values())
	assert.Equal(t, Key{"A_solo", "10"}, got[1].Key())
	assert.Equal(t, []float64{2.0, 2.1}, got[1].Values())
	assert.Equal(t, Key{"B_solo", "1"}, got[2].Key())
	assert.Equal(t, "B", got[2].Artist())
}

func TestPhraseIsImmutable(t *testing.T) {
	src := []float64{1, 2, 3}
	p := New(Key{"X_y", "1"}, src)
	src[0] = 99

	v := p.Values()
	assert.Equal(t, 1.0, v[0])

	v[1] = 42
	assert.Equal(t, []float64{1, 2, 3}, p.Values())
	assert.Equal(t, []float64{3, 2, 1}, p.Reversed().Values())
}

func TestFilterMinLength(t *testing.T) {
	phrases := []Phrase{
		New(Key{"A", "1"}, make([]float64, 5)),
		New(Key{"A", "2"}, make([]float64, 6)),
		New(Key{"A", "3"}, make([]float64, 12)),
	}
	kept, dropped := FilterMinLength(phrases, 6)
	assert.Len(t, kept, 2)
	require.Len(t, dropped, 1)
	assert.Equal(t, "1", dropped[0].Key().SegmentID)
}

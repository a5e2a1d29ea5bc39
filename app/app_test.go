package app

import (
	"context"
	"math"
	"testing"

	"burtrend/domain/phrase"
	"burtrend/domain/stats"
	"burtrend/internal/errors"
	"burtrend/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing
type MockPhraseSource struct {
	mock.Mock
}

func (m *MockPhraseSource) Load(ctx context.Context) ([]phrase.Phrase, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]phrase.Phrase), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTableWriter struct {
	mock.Mock
}

func (m *MockTableWriter) WriteTable(ctx context.Context, table ports.Table) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

// ramp builds a strictly monotone phrase with a small zigzag so that the
// residuals do not vanish
func ramp(solo, seg string, n int, start, step float64) phrase.Phrase {
	values := make([]float64, n)
	for i := range values {
		values[i] = start + step*float64(i) + 0.01*math.Pow(-1, float64(i))
	}
	return phrase.New(phrase.Key{SoloID: solo, SegmentID: seg}, values)
}

// zigzag alternates between two levels and carries no trend
func zigzag(solo, seg string, n int) phrase.Phrase {
	values := make([]float64, n)
	for i := range values {
		values[i] = 1.0 + 0.2*float64(i%2)
	}
	return phrase.New(phrase.Key{SoloID: solo, SegmentID: seg}, values)
}

// trendCorpus has two rising phrases by Art Pepper, one falling and one flat
// phrase by Chet Baker, and one phrase too short to analyse
func trendCorpus() ports.StaticSource {
	return ports.StaticSource{
		ramp("ArtPepper_Solo1", "1", 8, 1.0, 0.1),
		ramp("ArtPepper_Solo1", "2", 10, 1.2, 0.08),
		ramp("ChetBaker_Solo2", "1", 8, 2.0, -0.1),
		zigzag("ChetBaker_Solo2", "2", 8),
		phrase.New(phrase.Key{SoloID: "ChetBaker_Solo2", SegmentID: "3"}, []float64{1, 2, 3}),
	}
}

func TestMapPhrasesKeepsOrder(t *testing.T) {
	corpus := trendCorpus()
	lengths := func(p phrase.Phrase) int { return p.Len() }

	seq, err := MapPhrases(context.Background(), NewRunner(1), corpus, lengths)
	require.NoError(t, err)
	par, err := MapPhrases(context.Background(), NewRunner(4), corpus, lengths)
	require.NoError(t, err)

	assert.Equal(t, []int{8, 10, 8, 8, 3}, seq)
	assert.Equal(t, seq, par)
}

func TestMapPhrasesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MapPhrases(ctx, NewRunner(1), trendCorpus(), func(p phrase.Phrase) int { return 0 })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunnerClampsWorkers(t *testing.T) {
	assert.Equal(t, 1, NewRunner(0).Workers)
	assert.Equal(t, 1, NewRunner(-3).Workers)
	assert.Equal(t, 8, NewRunner(8).Workers)
}

func TestTallySorted(t *testing.T) {
	tally := NewTally()
	tally.Add("Chet Baker", "increase")
	tally.Add("Art Pepper")
	tally.Add("Art Pepper", "increase", "decrease")
	tally.Add("Bill Evans")
	tally.Add("Bill Evans")
	tally.Observe("Art Pepper", "tau", 0.5)
	tally.Observe("Art Pepper", "tau", 0.3)

	sorted := tally.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "Art Pepper", sorted[0].Artist)
	assert.Equal(t, "Bill Evans", sorted[1].Artist)
	assert.Equal(t, "Chet Baker", sorted[2].Artist)

	assert.Equal(t, 1, sorted[0].Count("increase"))
	assert.InDelta(t, 50.0, sorted[0].Percent("increase"), 1e-12)
	assert.InDelta(t, 0.4, sorted[0].Mean("tau"), 1e-12)
	assert.Equal(t, 0.0, sorted[1].Percent("increase"))
	assert.Equal(t, 3, tally.Len())
}

func TestPercentEmptyTotal(t *testing.T) {
	assert.Equal(t, 0.0, Percent(0, 0))
	assert.Equal(t, 25.0, Percent(1, 4))
}

func TestLoadPhrasesErrors(t *testing.T) {
	t.Run("source failure keeps its code", func(t *testing.T) {
		src := new(MockPhraseSource)
		src.On("Load", mock.Anything).Return(nil, errors.IOError("data.csv", assert.AnError))

		_, err := NewSurgeService(src, stats.DefaultParams(), NewRunner(1)).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
		src.AssertExpectations(t)
	})

	t.Run("only short phrases", func(t *testing.T) {
		src := new(MockPhraseSource)
		src.On("Load", mock.Anything).Return([]phrase.Phrase{
			phrase.New(phrase.Key{SoloID: "ArtPepper_1", SegmentID: "1"}, []float64{1, 2}),
		}, nil)

		_, err := NewVariationService(src, stats.DefaultParams(), NewRunner(1), false).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})
}

func TestPublishWritesEveryTable(t *testing.T) {
	rep, err := NewSurgeService(trendCorpus(), stats.DefaultParams(), NewRunner(1)).Run(context.Background())
	require.NoError(t, err)

	w := new(MockTableWriter)
	w.On("WriteTable", mock.Anything, mock.AnythingOfType("ports.Table")).Return(nil)
	require.NoError(t, Publish(context.Background(), rep, w))
	w.AssertNumberOfCalls(t, "WriteTable", len(rep.Tables()))
}

func TestPublishStopsOnError(t *testing.T) {
	rep, err := NewSurgeService(trendCorpus(), stats.DefaultParams(), NewRunner(1)).Run(context.Background())
	require.NoError(t, err)

	w := new(MockTableWriter)
	w.On("WriteTable", mock.Anything, mock.Anything).Return(errors.IOError("out.csv", assert.AnError)).Once()
	err = Publish(context.Background(), rep, w)
	require.Error(t, err)
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
	w.AssertNumberOfCalls(t, "WriteTable", 1)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "", ff(math.NaN()))
	assert.Equal(t, "0.5", ff(0.5))
	assert.Equal(t, "12.35", fpct(12.345678))
	assert.Equal(t, "", qvalue(nil))
	assert.Equal(t, []string{"id", "seg_id", "artist", "n_values", "slope"}, withKeyColumns("slope"))
}

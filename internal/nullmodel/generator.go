// Package nullmodel generates trend-free synthetic phrases whose BUR
// distribution and lengths match an observed corpus. Running the real
// analyses on them shows how often pure noise passes the same tests.
package nullmodel

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"burtrend/domain/phrase"
	"burtrend/internal/errors"

	mstats "github.com/montanaflynn/stats"
)

// SoloID is the solo identifier carried by every synthetic phrase
const SoloID = "Null_Sim_FINAL"

type Config struct {
	Phrases int
	Seed    int64

	// Gaussian BUR distribution
	Mean float64
	Std  float64

	// Optional clipping to the observed BUR range
	Clip    bool
	ClipMin float64
	ClipMax float64

	// Lengths is sampled with replacement when set; otherwise lengths are
	// uniform on [MinLen, MaxLen].
	Lengths []int
	MinLen  int
	MaxLen  int
}

// DefaultConfig matches the BUR corpus the study was run on
func DefaultConfig() Config {
	return Config{
		Phrases: 1000,
		Seed:    42,
		Mean:    1.41,
		Std:     0.57,
		ClipMin: 0.48,
		ClipMax: 2.67,
		MinLen:  6,
		MaxLen:  20,
	}
}

// FromPhrases fits the generator to one set of observed phrases, taking
// both the BUR distribution and the lengths from it.
func FromPhrases(cfg Config, phrases []phrase.Phrase) (Config, error) {
	var all []float64
	lengths := make([]int, 0, len(phrases))
	for _, p := range phrases {
		all = append(all, p.Values()...)
		lengths = append(lengths, p.Len())
	}
	return Fit(cfg, all, lengths)
}

// Fit sets the Gaussian from values (population mean and standard deviation,
// and their range as the clip bounds) and the length distribution from
// lengths. The two may come from different phrase sets: every observed BUR
// value shapes the distribution while only analysed phrases give lengths.
func Fit(cfg Config, values []float64, lengths []int) (Config, error) {
	if len(values) == 0 {
		return cfg, errors.InvalidInput("cannot fit a null model to an empty corpus")
	}
	if len(lengths) == 0 {
		return cfg, errors.InvalidInput("cannot fit null model lengths without phrases")
	}

	mean, err := mstats.Mean(values)
	if err != nil {
		return cfg, errors.Wrap(err, "null model mean")
	}
	std, err := mstats.StandardDeviationPopulation(values)
	if err != nil {
		return cfg, errors.Wrap(err, "null model standard deviation")
	}
	lo, _ := mstats.Min(values)
	hi, _ := mstats.Max(values)

	cfg.Mean, cfg.Std = mean, std
	cfg.ClipMin, cfg.ClipMax = lo, hi
	cfg.Lengths = append([]int(nil), lengths...)
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Phrases <= 0:
		return errors.ValidationError("phrases must be > 0")
	case c.Std < 0 || math.IsNaN(c.Std):
		return errors.ValidationError("standard deviation must be >= 0")
	case c.Clip && c.ClipMin >= c.ClipMax:
		return errors.ValidationError(fmt.Sprintf("clip range [%g, %g] is empty", c.ClipMin, c.ClipMax))
	}
	if len(c.Lengths) == 0 {
		if c.MinLen < 1 || c.MinLen > c.MaxLen {
			return errors.ValidationError(fmt.Sprintf("invalid length range [%d, %d]", c.MinLen, c.MaxLen))
		}
	}
	for _, l := range c.Lengths {
		if l < 1 {
			return errors.ValidationError("observed lengths must be positive")
		}
	}
	return nil
}

// Generate draws cfg.Phrases independent phrases. Values are i.i.d.
// N(Mean, Std²), clipped when requested; the same seed always yields the
// same phrases.
func Generate(cfg Config) ([]phrase.Phrase, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	out := make([]phrase.Phrase, cfg.Phrases)
	for i := range out {
		n := cfg.drawLength(rng)
		values := make([]float64, n)
		for j := range values {
			v := rng.NormFloat64()*cfg.Std + cfg.Mean
			if cfg.Clip {
				v = math.Max(cfg.ClipMin, math.Min(cfg.ClipMax, v))
			}
			values[j] = v
		}
		out[i] = phrase.New(phrase.Key{SoloID: SoloID, SegmentID: strconv.Itoa(i)}, values)
	}
	return out, nil
}

func (c Config) drawLength(rng *rand.Rand) int {
	if len(c.Lengths) > 0 {
		return c.Lengths[rng.Intn(len(c.Lengths))]
	}
	return c.MinLen + rng.Intn(c.MaxLen-c.MinLen+1)
}

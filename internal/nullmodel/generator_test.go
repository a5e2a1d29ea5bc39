package nullmodel

import (
	"testing"

	"burtrend/domain/phrase"
	"burtrend/internal/errors"

	mstats "github.com/montanaflynn/stats"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Phrases = 50

	a, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for i := range a {
		av, bv := a[i].Values(), b[i].Values()
		if len(av) != len(bv) {
			t.Fatalf("phrase %d length differs: %d vs %d", i, len(av), len(bv))
		}
		for j := range av {
			if av[j] != bv[j] {
				t.Fatalf("phrase %d value %d differs", i, j)
			}
		}
	}
}

func TestGenerateMatchesDistribution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Phrases = 2000

	phrases, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var all []float64
	for _, p := range phrases {
		if p.Len() < cfg.MinLen || p.Len() > cfg.MaxLen {
			t.Fatalf("length %d outside [%d, %d]", p.Len(), cfg.MinLen, cfg.MaxLen)
		}
		if p.Artist() != "Null" {
			t.Fatalf("unexpected artist %q", p.Artist())
		}
		all = append(all, p.Values()...)
	}

	mean, _ := mstats.Mean(all)
	std, _ := mstats.StandardDeviationPopulation(all)
	if mean < 1.39 || mean > 1.43 {
		t.Errorf("mean %.4f too far from 1.41", mean)
	}
	if std < 0.55 || std > 0.59 {
		t.Errorf("std %.4f too far from 0.57", std)
	}
}

func TestGenerateClips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Phrases = 500
	cfg.Clip = true

	phrases, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, p := range phrases {
		for _, v := range p.Values() {
			if v < cfg.ClipMin || v > cfg.ClipMax {
				t.Fatalf("value %v escaped clip range", v)
			}
		}
	}
}

func TestFromPhrases(t *testing.T) {
	observed := []phrase.Phrase{
		phrase.New(phrase.Key{SoloID: "A_x", SegmentID: "1"}, []float64{1, 2, 3, 4, 5, 6}),
		phrase.New(phrase.Key{SoloID: "A_x", SegmentID: "2"}, []float64{1, 2, 3, 4, 5, 6, 7, 8}),
	}
	cfg, err := FromPhrases(DefaultConfig(), observed)
	if err != nil {
		t.Fatalf("FromPhrases failed: %v", err)
	}
	if cfg.ClipMin != 1 || cfg.ClipMax != 8 {
		t.Errorf("unexpected clip range [%v, %v]", cfg.ClipMin, cfg.ClipMax)
	}
	if len(cfg.Lengths) != 2 {
		t.Fatalf("expected 2 lengths, got %d", len(cfg.Lengths))
	}

	cfg.Phrases = 100
	phrases, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, p := range phrases {
		if p.Len() != 6 && p.Len() != 8 {
			t.Fatalf("length %d not drawn from observed lengths", p.Len())
		}
	}

	if _, err := FromPhrases(DefaultConfig(), nil); errors.GetCode(err) != errors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT for empty corpus, got %v", err)
	}
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no phrases", func(c *Config) { c.Phrases = 0 }},
		{"negative std", func(c *Config) { c.Std = -1 }},
		{"empty clip range", func(c *Config) { c.Clip = true; c.ClipMax = c.ClipMin }},
		{"inverted lengths", func(c *Config) { c.MinLen = 10; c.MaxLen = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := Generate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFitSeparatesValuesAndLengths(t *testing.T) {
	cfg, err := Fit(DefaultConfig(), []float64{1, 1, 3, 3}, []int{7, 9})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if cfg.Mean != 2 || cfg.Std != 1 {
		t.Errorf("expected N(2, 1), got N(%v, %v)", cfg.Mean, cfg.Std)
	}
	if len(cfg.Lengths) != 2 || cfg.Lengths[0] != 7 || cfg.Lengths[1] != 9 {
		t.Errorf("unexpected lengths %v", cfg.Lengths)
	}

	if _, err := Fit(DefaultConfig(), []float64{1, 2}, nil); errors.GetCode(err) != errors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT without lengths, got %v", err)
	}
}

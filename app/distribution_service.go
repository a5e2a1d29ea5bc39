package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"burtrend/internal/errors"
	"burtrend/internal/logger"
	"burtrend/internal/profiling"
	"burtrend/ports"
)

// DistributionService profiles the BUR distribution of the whole corpus and
// of every artist. All phrases are used regardless of length.
type DistributionService struct {
	source ports.PhraseSource
}

// DistributionReport holds the corpus profile followed by one per artist
type DistributionReport struct {
	RunInfo
	Corpus  profiling.Profile   `json:"corpus"`
	Artists []profiling.Profile `json:"artists"`
}

// AnalysisDistribution tags distribution runs
const AnalysisDistribution = "distribution"

func NewDistributionService(source ports.PhraseSource) *DistributionService {
	return &DistributionService{source: source}
}

// Run executes the analysis
func (s *DistributionService) Run(ctx context.Context) (*DistributionReport, error) {
	started := time.Now()
	phrases, err := s.source.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load phrases")
	}

	var all []float64
	byArtist := make(map[string][]float64)
	for _, p := range phrases {
		all = append(all, p.Values()...)
		byArtist[p.Artist()] = append(byArtist[p.Artist()], p.Values()...)
	}

	rep := &DistributionReport{}
	if rep.Corpus, err = profiling.Describe("all", all); err != nil {
		return nil, err
	}
	for artist, values := range byArtist {
		prof, err := profiling.Describe(artist, values)
		if err != nil {
			return nil, errors.Wrapf(err, "profile %s", artist)
		}
		rep.Artists = append(rep.Artists, prof)
	}
	sort.Slice(rep.Artists, func(i, j int) bool {
		if rep.Artists[i].N != rep.Artists[j].N {
			return rep.Artists[i].N > rep.Artists[j].N
		}
		return rep.Artists[i].Label < rep.Artists[j].Label
	})
	rep.RunInfo = newRunInfo(AnalysisDistribution, len(phrases), 0, started)

	logger.Info("distribution profile complete",
		"phrases", len(phrases), "values", rep.Corpus.N, "artists", len(rep.Artists))
	return rep, nil
}

func (r *DistributionReport) Title() string { return "BUR distribution" }

func (r *DistributionReport) Highlights() []string {
	c := r.Corpus
	return []string{
		fmt.Sprintf("BUR values: %d in %d phrases by %d artists", c.N, r.Phrases, len(r.Artists)),
		fmt.Sprintf("Mean %.3f, sd %.3f, median %.3f, range %.2f to %.2f", c.Mean, c.StdDev, c.Median, c.Min, c.Max),
		fmt.Sprintf("Skewness %.3f, excess kurtosis %.3f, %d IQR outliers", c.Skewness, c.Kurtosis, c.Outliers),
	}
}

func (r *DistributionReport) Tables() []ports.Table {
	t := ports.Table{
		Name: "bur_distribution",
		Columns: []string{"artist", "n_values", "mean", "sd", "median", "q25", "q75",
			"min", "max", "skewness", "excess_kurtosis", "outliers"},
	}
	for _, p := range append([]profiling.Profile{r.Corpus}, r.Artists...) {
		t.Append(p.Label, fint(p.N), ff(p.Mean), ff(p.StdDev), ff(p.Median), ff(p.Q25), ff(p.Q75),
			ff(p.Min), ff(p.Max), ff(p.Skewness), ff(p.Kurtosis), fint(p.Outliers))
	}
	return []ports.Table{t}
}

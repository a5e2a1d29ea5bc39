package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"burtrend/domain/stats"
	"burtrend/internal/errors"
	"burtrend/internal/logger"
	"burtrend/internal/nullmodel"
	"burtrend/ports"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// NullKind names the analysis a null model is run through
type NullKind string

const (
	NullMannKendall NullKind = "mann-kendall"
	NullLocalized   NullKind = "localized"
	NullSurge       NullKind = "surge"
	NullStructure   NullKind = "structure"
)

// NullKinds lists the supported kinds in display order
var NullKinds = []NullKind{NullMannKendall, NullLocalized, NullSurge, NullStructure}

// ParseNullKind validates a kind name
func ParseNullKind(s string) (NullKind, error) {
	for _, k := range NullKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.InvalidInputf("unknown null model kind %q", s)
}

// NullModelOptions configures a null-model run
type NullModelOptions struct {
	Kind        NullKind
	Simulations int
	Generator   nullmodel.Config

	// FitObserved matches the generator to the source phrases (BUR mean,
	// sd, range and lengths) instead of using Generator as given.
	FitObserved bool

	// CompareObserved runs the same analysis on the source phrases to
	// obtain the observed rate. Observed, when set, takes precedence.
	CompareObserved bool
	Observed        *float64
}

// NullModelService measures how often trend-free synthetic phrases pass an
// analysis. Every simulation runs the real analysis service unchanged.
type NullModelService struct {
	source ports.PhraseSource
	params stats.Params
	runner *Runner
	opts   NullModelOptions
}

// NullSimulation is one synthetic corpus and its outcome
type NullSimulation struct {
	Seed    int64   `json:"seed"`
	Phrases int     `json:"phrases"`
	Rate    float64 `json:"significant_pct"`
	RawRate float64 `json:"raw_significant_pct"`
}

// NullModelReport is the distribution of significant rates under the null
type NullModelReport struct {
	RunInfo
	Kind        NullKind         `json:"kind"`
	Generator   nullmodel.Config `json:"generator"`
	Simulations []NullSimulation `json:"simulations"`

	Mean    float64 `json:"mean_pct"`
	SD      float64 `json:"sd_pct"`
	Min     float64 `json:"min_pct"`
	Max     float64 `json:"max_pct"`
	RawMean float64 `json:"raw_mean_pct"`

	// Observed comparison; Z and P are NaN without an observed rate or
	// when the simulated rates do not vary.
	Observed *float64 `json:"observed_pct,omitempty"`
	Z        float64  `json:"z"`
	P        float64  `json:"p"`
}

func NewNullModelService(source ports.PhraseSource, params stats.Params, runner *Runner, opts NullModelOptions) *NullModelService {
	if opts.Simulations <= 0 {
		opts.Simulations = 1
	}
	return &NullModelService{source: source, params: params, runner: runner, opts: opts}
}

// Run executes the simulations
func (s *NullModelService) Run(ctx context.Context) (*NullModelReport, error) {
	started := time.Now()
	gen := s.opts.Generator
	observed := s.opts.Observed

	needSource := s.opts.FitObserved || (s.opts.CompareObserved && observed == nil)
	if needSource {
		if s.source == nil {
			return nil, errors.InvalidInput("null model comparison needs observed phrases")
		}
		all, err := s.source.Load(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load phrases")
		}
		phrases, _, err := analysable(all, s.params)
		if err != nil {
			return nil, err
		}
		if s.opts.FitObserved {
			// BUR distribution from every observed value, lengths from the
			// phrases long enough to analyse
			var values []float64
			for _, p := range all {
				values = append(values, p.Values()...)
			}
			lengths := make([]int, len(phrases))
			for i, p := range phrases {
				lengths[i] = p.Len()
			}

			clip := gen.Clip
			if gen, err = nullmodel.Fit(gen, values, lengths); err != nil {
				return nil, err
			}
			gen.Clip = clip
			gen.Phrases = len(phrases)
		}
		if s.opts.CompareObserved && observed == nil {
			rate, _, err := s.rates(ctx, ports.StaticSource(phrases))
			if err != nil {
				return nil, errors.Wrap(err, "observed rate")
			}
			observed = &rate
		}
	}

	logger.Info("null model started",
		"kind", string(s.opts.Kind), "simulations", s.opts.Simulations, "phrases", gen.Phrases,
		"mean", gen.Mean, "std", gen.Std)

	rep := &NullModelReport{Kind: s.opts.Kind, Generator: gen, Observed: observed}
	rates := make([]float64, 0, s.opts.Simulations)
	raws := make([]float64, 0, s.opts.Simulations)
	for i := 0; i < s.opts.Simulations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg := gen
		cfg.Seed = gen.Seed + int64(i)
		phrases, err := nullmodel.Generate(cfg)
		if err != nil {
			return nil, err
		}
		rate, raw, err := s.rates(ctx, ports.StaticSource(phrases))
		if err != nil {
			return nil, errors.Wrapf(err, "simulation %d", i+1)
		}
		rep.Simulations = append(rep.Simulations, NullSimulation{Seed: cfg.Seed, Phrases: len(phrases), Rate: rate, RawRate: raw})
		rates = append(rates, rate)
		raws = append(raws, raw)
		logger.Debug("null simulation done", "simulation", i+1, "seed", cfg.Seed, "significant_pct", rate)
	}

	rep.Mean, _ = mstats.Mean(rates)
	rep.Min, _ = mstats.Min(rates)
	rep.Max, _ = mstats.Max(rates)
	rep.RawMean, _ = mstats.Mean(raws)
	rep.SD = 0
	if len(rates) > 1 {
		rep.SD, _ = mstats.StandardDeviationSample(rates)
	}
	rep.Z, rep.P = math.NaN(), math.NaN()
	if observed != nil {
		rep.Z, rep.P = CompareToNull(*observed, rep.Mean, rep.SD)
	}
	rep.RunInfo = newRunInfo(AnalysisNullModel, gen.Phrases, 0, started)

	logger.Info("null model complete",
		"kind", string(s.opts.Kind), "mean_pct", rep.Mean, "sd_pct", rep.SD, "z", rep.Z, "runtime_ms", rep.RuntimeMs)
	return rep, nil
}

// rates runs the configured analysis on source and returns the significant
// and raw significant percentages of phrases
func (s *NullModelService) rates(ctx context.Context, source ports.PhraseSource) (float64, float64, error) {
	switch s.opts.Kind {
	case NullMannKendall:
		rep, err := NewMannKendallService(source, s.params, s.runner).Run(ctx)
		if err != nil {
			return 0, 0, err
		}
		m := rep.Modified
		return rep.SignificantRate(), Percent(m.RawIncrease+m.RawDecrease, len(rep.Phrases)), nil

	case NullLocalized:
		rep, err := NewLocalizedService(source, s.params, s.runner, WindowsBest).Run(ctx)
		if err != nil {
			return 0, 0, err
		}
		return rep.SignificantRate(), rep.RawRate(), nil

	case NullSurge:
		rep, err := NewComprehensiveService(source, s.params, s.runner).Run(ctx)
		if err != nil {
			return 0, 0, err
		}
		return rep.SurgeRate(), rep.RawLinearRate(s.params.Alpha), nil

	case NullStructure:
		rep, err := NewStructureService(source, s.params, s.runner, SigModeBoth).Run(ctx)
		if err != nil {
			return 0, 0, err
		}
		rate := rep.SignificantRate()
		return rate, rate, nil
	}
	return 0, 0, errors.InternalError(fmt.Sprintf("null model kind %q has no analysis", s.opts.Kind))
}

// CompareToNull standardises an observed rate against the null distribution
// and returns z with its two-sided normal p-value. Both are NaN when the
// null distribution has no spread.
func CompareToNull(observed, mean, sd float64) (z, p float64) {
	if sd <= 0 || math.IsNaN(sd) {
		return math.NaN(), math.NaN()
	}
	z = (observed - mean) / sd
	return z, 2 * distuv.UnitNormal.Survival(math.Abs(z))
}

// Verdict places the observed rate against mean ± 2 sd of the null
func (r *NullModelReport) Verdict() string {
	if r.Observed == nil {
		return ""
	}
	obs := *r.Observed
	switch {
	case r.Mean+2*r.SD < obs:
		return "observed rate is above the null range: evidence of systematic BUR trends"
	case r.Mean-2*r.SD > obs:
		return "observed rate is below the null range: phrases are more stable than noise"
	default:
		return "observed rate is indistinguishable from trend-free noise"
	}
}

func (r *NullModelReport) Title() string {
	return fmt.Sprintf("Null model simulation (%s)", r.Kind)
}

func (r *NullModelReport) Highlights() []string {
	out := []string{
		fmt.Sprintf("Simulations: %d of %d trend-free phrases (BUR ~ N(%.3f, %.3f))",
			len(r.Simulations), r.Generator.Phrases, r.Generator.Mean, r.Generator.Std),
		fmt.Sprintf("Before correction: %.2f%% significant on average", r.RawMean),
		fmt.Sprintf("Significant under the null: %.2f%% ± %.2f%%", r.Mean, r.SD),
		fmt.Sprintf("Range: %.2f%% to %.2f%%", r.Min, r.Max),
	}
	if r.Observed != nil {
		out = append(out, fmt.Sprintf("Observed: %.2f%%", *r.Observed))
		if !math.IsNaN(r.Z) {
			out = append(out, fmt.Sprintf("z = %.2f, p = %.4g", r.Z, r.P))
		} else {
			out = append(out, "z undefined: simulated rates do not vary")
		}
		out = append(out, r.Verdict())
	}
	return out
}

func (r *NullModelReport) Tables() []ports.Table {
	sims := ports.Table{
		Name:    "null_model_" + nullTableSuffix(r.Kind),
		Columns: []string{"simulation", "seed", "phrases", "significant_pct", "raw_significant_pct"},
		Detail:  true,
	}
	for i, sim := range r.Simulations {
		sims.Append(fint(i+1), fmt.Sprint(sim.Seed), fint(sim.Phrases), ff(sim.Rate), ff(sim.RawRate))
	}

	summary := ports.Table{Name: "null_model_summary", Columns: []string{"statistic", "value"}}
	summary.Append("kind", string(r.Kind))
	summary.Append("simulations", fint(len(r.Simulations)))
	summary.Append("mean_pct", ff(r.Mean))
	summary.Append("sd_pct", ff(r.SD))
	summary.Append("min_pct", ff(r.Min))
	summary.Append("max_pct", ff(r.Max))
	summary.Append("raw_mean_pct", ff(r.RawMean))
	if r.Observed != nil {
		summary.Append("observed_pct", ff(*r.Observed))
		summary.Append("z", ff(r.Z))
		summary.Append("p", ff(r.P))
	}
	return []ports.Table{sims, summary}
}

func nullTableSuffix(k NullKind) string {
	switch k {
	case NullMannKendall:
		return "mann_kendall"
	default:
		return string(k)
	}
}

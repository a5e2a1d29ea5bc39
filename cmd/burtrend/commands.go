package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"burtrend/adapters/csvdata"
	"burtrend/adapters/excel"
	"burtrend/adapters/report"
	"burtrend/app"
	"burtrend/internal/logger"
	"burtrend/internal/nullmodel"
	"burtrend/ports"

	"github.com/spf13/cobra"
)

func (o *options) source() *csvdata.Reader {
	return csvdata.NewReader(o.cfg.Data.InputFile).WithDelimiter(o.cfg.DelimiterRune())
}

func (o *options) runner() *app.Runner {
	return app.NewRunner(o.cfg.Run.Workers)
}

// publish prints the highlights and summary tables, writes every table as
// CSV and, when enabled, to an XLSX workbook and an HTML summary
func (o *options) publish(ctx context.Context, name string, rep app.Report) error {
	dir := o.cfg.Output.Dir
	console := report.NewConsole(os.Stdout, o.cfg.Output.Top)
	if err := console.Summary(rep.Title(), rep.Highlights()); err != nil {
		return err
	}

	writers := ports.MultiWriter{csvdata.NewWriter(dir), ports.SummaryOnly{Next: console}}

	var wb *excel.Workbook
	if o.cfg.Output.XLSX {
		var err error
		if wb, err = excel.NewWorkbook(filepath.Join(dir, name+".xlsx")); err != nil {
			return err
		}
		defer wb.Close()
		writers = append(writers, wb)
	}

	var doc *report.Document
	if o.cfg.Output.HTML {
		doc = report.NewDocument(rep.Title())
		doc.Bullets(rep.Highlights()...)
		writers = append(writers, ports.SummaryOnly{Next: doc})
	}

	if err := app.Publish(ctx, rep, writers); err != nil {
		return err
	}
	if wb != nil {
		if err := wb.Save(); err != nil {
			return err
		}
	}
	if doc != nil {
		path := filepath.Join(dir, name+"_summary.html")
		if err := doc.Save(path); err != nil {
			return err
		}
		logger.Info("summary written", "path", path)
	}
	return nil
}

func newSurgeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "surge",
		Short: "Linear BUR trend per phrase with FDR correction",
		Long: `Regress BUR on position for every phrase, report slope, confidence
interval, R², Durbin-Watson and the Benjamini-Hochberg corrected p-value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := app.NewSurgeService(o.source(), o.cfg.Params(), o.runner()).Run(cmd.Context())
			if err != nil {
				return err
			}
			return o.publish(cmd.Context(), "bur_surge", rep)
		},
	}
}

func newComprehensiveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "comprehensive",
		Short: "Linear, exponential, logarithmic and quadratic fits plus step and end-surge tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := app.NewComprehensiveService(o.source(), o.cfg.Params(), o.runner()).Run(cmd.Context())
			if err != nil {
				return err
			}
			return o.publish(cmd.Context(), "comprehensive_trend", rep)
		},
	}
}

func newMannKendallCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "mann-kendall",
		Aliases: []string{"mk"},
		Short:   "Original and modified Mann-Kendall tests with Sen's slope",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := app.NewMannKendallService(o.source(), o.cfg.Params(), o.runner()).Run(cmd.Context())
			if err != nil {
				return err
			}
			return o.publish(cmd.Context(), "mann_kendall", rep)
		},
	}
}

func newLocalizedCmd(o *options) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "localized",
		Short: "Sliding-window seasonal Mann-Kendall scan for local surges",
		Long: `Scan every phrase with windows of BUR_WINDOW_SIZES using the seasonal
Mann-Kendall test. With --mode all every window enters one FDR family; with
--mode best only the strongest window of each phrase does.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.ParseWindowMode(mode)
			if err != nil {
				return err
			}
			rep, err := app.NewLocalizedService(o.source(), o.cfg.Params(), o.runner(), m).Run(cmd.Context())
			if err != nil {
				return err
			}
			return o.publish(cmd.Context(), "localized_surge_"+string(m), rep)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(app.WindowsAll), "Windows to correct: all or best")
	return cmd
}

func newStructureCmd(o *options) *cobra.Command {
	var sigMode string

	cmd := &cobra.Command{
		Use:   "structure",
		Short: "Compare the first and last BUR of each phrase with its middle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.ParseSigMode(sigMode)
			if err != nil {
				return err
			}
			rep, err := app.NewStructureService(o.source(), o.cfg.Params(), o.runner(), m).Run(cmd.Context())
			if err != nil {
				return err
			}
			return o.publish(cmd.Context(), "phrase_structure", rep)
		},
	}

	cmd.Flags().StringVar(&sigMode, "sig-mode", string(app.SigModeBoth), "Rank artists by phrases with both or any significant edge")
	return cmd
}

func newVariationCmd(o *options) *cobra.Command {
	var ascending bool

	cmd := &cobra.Command{
		Use:   "variation",
		Short: "Within-phrase BUR standard deviation per phrase and artist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := app.NewVariationService(o.source(), o.cfg.Params(), o.runner(), ascending).Run(cmd.Context())
			if err != nil {
				return err
			}
			return o.publish(cmd.Context(), "bur_variation", rep)
		},
	}

	cmd.Flags().BoolVar(&ascending, "ascending", false, "Rank artists from lowest to highest variation")
	return cmd
}

func newNullModelCmd(o *options) *cobra.Command {
	var (
		kind        string
		simulations int
		phrases     int
		seed        int64
		observed    float64
		fit         bool
		compare     bool
		clip        bool
	)

	cmd := &cobra.Command{
		Use:   "null-model",
		Short: "Run an analysis on trend-free synthetic phrases",
		Long: `Generate Gaussian BUR phrases without any trend, run the chosen analysis
on them --simulations times and report how often noise comes out significant.

Kinds: mann-kendall, localized, surge, structure.

Example: burtrend null-model --kind localized --simulations 100 --compare`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := app.ParseNullKind(kind)
			if err != nil {
				return err
			}

			gen := nullmodel.DefaultConfig()
			gen.Seed = o.cfg.Run.Seed
			if cmd.Flags().Changed("seed") {
				gen.Seed = seed
			}
			if phrases > 0 {
				gen.Phrases = phrases
			}
			gen.Clip = clip || o.cfg.Run.ClipNull || k == app.NullSurge

			sims := o.cfg.Run.Simulations
			if cmd.Flags().Changed("simulations") {
				sims = simulations
			}

			opts := app.NullModelOptions{
				Kind:            k,
				Simulations:     sims,
				Generator:       gen,
				FitObserved:     fit,
				CompareObserved: compare,
			}
			if cmd.Flags().Changed("observed") {
				opts.Observed = &observed
			}

			rep, err := app.NewNullModelService(o.source(), o.cfg.Params(), o.runner(), opts).Run(cmd.Context())
			if err != nil {
				return err
			}
			return o.publish(cmd.Context(), "null_model_"+string(k), rep)
		},
	}

	f := cmd.Flags()
	f.StringVar(&kind, "kind", string(app.NullMannKendall), "Analysis to simulate: mann-kendall, localized, surge or structure")
	f.IntVar(&simulations, "simulations", 100, "Number of simulated corpora (overrides BUR_SIMULATIONS)")
	f.IntVar(&phrases, "phrases", 0, "Phrases per simulation when not fitted to the input")
	f.Int64Var(&seed, "seed", 42, "Base seed; simulation i uses seed+i (overrides BUR_SEED)")
	f.Float64Var(&observed, "observed", 0, "Observed significant percentage to compare against")
	f.BoolVar(&fit, "fit", true, "Match BUR mean, sd, range and phrase lengths to the input data")
	f.BoolVar(&compare, "compare", false, "Run the analysis on the input data for the observed percentage")
	f.BoolVar(&clip, "clip", false, "Clip synthetic BUR to the observed range")
	return cmd
}

func newHistogramCmd(o *options) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Write one BUR histogram PNG per performer and profile the distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = filepath.Join(o.cfg.Output.Dir, "histograms")
			}
			phrases, err := o.source().Load(cmd.Context())
			if err != nil {
				return err
			}
			paths, err := report.NewHistogramWriter(dir).Write(cmd.Context(), phrases)
			if err != nil {
				return err
			}
			logger.Info("histograms written", "dir", dir, "files", len(paths))

			rep, err := app.NewDistributionService(ports.StaticSource(phrases)).Run(cmd.Context())
			if err != nil {
				return err
			}
			return o.publish(cmd.Context(), "bur_distribution", rep)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Output directory for PNGs (default <output>/histograms)")
	return cmd
}

func newCleanCmd(o *options) *cobra.Command {
	var (
		raw       string
		out       string
		minValues int
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Drop phrases with too few BUR values from a raw CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = o.cfg.Data.InputFile
			}
			if !cmd.Flags().Changed("min-values") {
				minValues = o.cfg.Analysis.MinSamples
			}

			delim := o.cfg.DelimiterRune()
			table, err := csvdata.NewReader(raw).WithDelimiter(delim).ReadTable(cmd.Context())
			if err != nil {
				return err
			}
			cleaned, st, err := table.Clean(minValues)
			if err != nil {
				return err
			}
			if err := cleaned.Save(cmd.Context(), out, delim); err != nil {
				return err
			}

			console := report.NewConsole(os.Stdout, 0)
			return console.Summary("Data cleaning", []string{
				fmt.Sprintf("Minimum BUR values per phrase: %d", st.MinValues),
				fmt.Sprintf("Rows: %d -> %d (removed %d, %.1f%%)", st.OriginalRows, st.CleanedRows, st.RowsRemoved(), st.RowsRemovedPct()),
				fmt.Sprintf("Phrases: %d -> %d (removed %d, %.1f%%)", st.OriginalPhrases, st.CleanedPhrases, st.PhrasesRemoved(), st.PhrasesRemovedPct()),
				fmt.Sprintf("Saved to %s", out),
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&raw, "raw", "data/phrasebur_raw.csv", "Raw input CSV")
	f.StringVar(&out, "output-file", "", "Cleaned CSV (default BUR_INPUT)")
	f.IntVar(&minValues, "min-values", 6, "Minimum BUR values per phrase (default BUR_MIN_SAMPLES)")
	return cmd
}

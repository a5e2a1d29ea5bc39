package main

import (
	"fmt"
	"os"

	"burtrend/internal/config"
	"burtrend/internal/errors"
	"burtrend/internal/logger"

	"github.com/spf13/cobra"
)

// options holds the global flags; cfg is filled in before any subcommand runs
type options struct {
	envFile   string
	input     string
	delimiter string
	output    string
	top       int
	xlsx      bool
	html      bool
	workers   int
	logLevel  string
	logFormat string

	cfg *config.Config
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "burtrend",
		Short: "Beat-upbeat ratio trend analysis for jazz solo phrases",
		Long: `burtrend tests whether the swing (beat-upbeat ratio) of jazz soloists
drifts within phrases: linear and curved surges, Mann-Kendall trends,
localized surges, phrase-edge structure and variation, each corrected for
multiple testing with Benjamini-Hochberg FDR.

Settings come from the environment (BUR_*, see .env) and can be overridden
with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.envFile, "env", ".env", "Environment file to load (ignored when missing)")
	pf.StringVarP(&opts.input, "input", "i", "", "Input CSV (overrides BUR_INPUT)")
	pf.StringVar(&opts.delimiter, "delimiter", "", "Input CSV delimiter (overrides BUR_DELIMITER)")
	pf.StringVarP(&opts.output, "output", "o", "", "Output directory (overrides BUR_OUTPUT_DIR)")
	pf.IntVar(&opts.top, "top", 0, "Rows shown per console table, 0 for all (overrides BUR_TOP)")
	pf.BoolVar(&opts.xlsx, "xlsx", false, "Also write an XLSX workbook")
	pf.BoolVar(&opts.html, "html", false, "Also write an HTML summary")
	pf.IntVar(&opts.workers, "workers", 0, "Parallel workers for the per-phrase pass (overrides BUR_WORKERS)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		newSurgeCmd(opts),
		newComprehensiveCmd(opts),
		newMannKendallCmd(opts),
		newLocalizedCmd(opts),
		newStructureCmd(opts),
		newVariationCmd(opts),
		newNullModelCmd(opts),
		newHistogramCmd(opts),
		newCleanCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		if errors.IsAppError(err) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", errors.GetCode(err), err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and starts the logger
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Data.InputFile = o.input
	}
	if flags.Changed("delimiter") {
		cfg.Data.Delimiter = o.delimiter
	}
	if flags.Changed("output") {
		cfg.Output.Dir = o.output
	}
	if flags.Changed("top") {
		cfg.Output.Top = o.top
	}
	if flags.Changed("xlsx") {
		cfg.Output.XLSX = o.xlsx
	}
	if flags.Changed("html") {
		cfg.Output.HTML = o.html
	}
	if flags.Changed("workers") {
		cfg.Run.Workers = o.workers
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("failed to initialise logger: %w", err)
	}
	logger.Debug("configuration loaded",
		"input", cfg.Data.InputFile, "output", cfg.Output.Dir, "workers", cfg.Run.Workers)
	o.cfg = cfg
	return nil
}

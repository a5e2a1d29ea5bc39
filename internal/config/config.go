package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"burtrend/domain/stats"
	"burtrend/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Output   OutputConfig
	Analysis AnalysisConfig
	Run      RunConfig
	Log      LogConfig
}

// DataConfig locates the input dataset
type DataConfig struct {
	InputFile string `validate:"required"`
	Delimiter string `validate:"required"`
}

// OutputConfig controls exports
type OutputConfig struct {
	Dir  string `validate:"required"`
	XLSX bool
	HTML bool
	Top  int `validate:"gte=0"`
}

// AnalysisConfig mirrors stats.Params so every threshold can be set from the environment
type AnalysisConfig struct {
	MinSamples       int     `validate:"gte=3"`
	Alpha            float64 `validate:"gt=0,lt=1"`
	FDRAlpha         float64 `validate:"gt=0,lt=1"`
	ConfidenceLevel  float64 `validate:"gt=0,lt=1"`
	DWThreshold      float64 `validate:"gte=0,lte=4"`
	MaxFitIterations int     `validate:"gte=1"`
	EndFraction      float64 `validate:"gt=0,lt=1"`
	MinEffectSize    float64 `validate:"gte=0"`
	EdgeDelta        float64 `validate:"gte=0"`
	MinSurgeDelta    float64 `validate:"gte=0"`
	MinCurveR2       float64 `validate:"gte=0,lte=1"`
	WindowSizes      []int   `validate:"min=1,dive,gte=2"`
	SeasonalPeriod   int     `validate:"gte=1"`
	MinTau           float64 `validate:"gte=0,lte=1"`
}

// RunConfig holds execution and null-model settings
type RunConfig struct {
	Workers     int `validate:"gte=0"`
	Simulations int `validate:"gte=1"`
	Seed        int64
	ClipNull    bool
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

// Load reads an optional .env file, then environment variables, and validates
// the result. Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to read env file"))
	}

	config := &Config{
		Data:     loadDataConfig(),
		Output:   loadOutputConfig(),
		Analysis: loadAnalysisConfig(),
		Run:      loadRunConfig(),
		Log:      loadLogConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	p := stats.DefaultParams()
	return &Config{
		Data:     DataConfig{InputFile: "data/phrasebur_filtered.csv", Delimiter: ";"},
		Output:   OutputConfig{Dir: "outputs", Top: 20},
		Analysis: analysisFromParams(p),
		Run:      RunConfig{Workers: 1, Seed: 42, Simulations: 100},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

func loadDataConfig() DataConfig {
	d := Default().Data
	return DataConfig{
		InputFile: getEnvOrDefault("BUR_INPUT", d.InputFile),
		Delimiter: getEnvOrDefault("BUR_DELIMITER", d.Delimiter),
	}
}

func loadOutputConfig() OutputConfig {
	d := Default().Output
	return OutputConfig{
		Dir:  getEnvOrDefault("BUR_OUTPUT_DIR", d.Dir),
		XLSX: getEnvBoolOrDefault("BUR_XLSX", d.XLSX),
		HTML: getEnvBoolOrDefault("BUR_HTML", d.HTML),
		Top:  getEnvIntOrDefault("BUR_TOP", d.Top),
	}
}

func loadAnalysisConfig() AnalysisConfig {
	d := Default().Analysis
	return AnalysisConfig{
		MinSamples:       getEnvIntOrDefault("BUR_MIN_SAMPLES", d.MinSamples),
		Alpha:            getEnvFloatOrDefault("BUR_ALPHA", d.Alpha),
		FDRAlpha:         getEnvFloatOrDefault("BUR_FDR_ALPHA", d.FDRAlpha),
		ConfidenceLevel:  getEnvFloatOrDefault("BUR_CONFIDENCE_LEVEL", d.ConfidenceLevel),
		DWThreshold:      getEnvFloatOrDefault("BUR_DW_THRESHOLD", d.DWThreshold),
		MaxFitIterations: getEnvIntOrDefault("BUR_MAX_FIT_ITERATIONS", d.MaxFitIterations),
		EndFraction:      getEnvFloatOrDefault("BUR_END_FRACTION", d.EndFraction),
		MinEffectSize:    getEnvFloatOrDefault("BUR_MIN_EFFECT_SIZE", d.MinEffectSize),
		EdgeDelta:        getEnvFloatOrDefault("BUR_EDGE_DELTA", d.EdgeDelta),
		MinSurgeDelta:    getEnvFloatOrDefault("BUR_MIN_SURGE_DELTA", d.MinSurgeDelta),
		MinCurveR2:       getEnvFloatOrDefault("BUR_MIN_CURVE_R2", d.MinCurveR2),
		WindowSizes:      getEnvIntsOrDefault("BUR_WINDOW_SIZES", d.WindowSizes),
		SeasonalPeriod:   getEnvIntOrDefault("BUR_SEASONAL_PERIOD", d.SeasonalPeriod),
		MinTau:           getEnvFloatOrDefault("BUR_MIN_TAU", d.MinTau),
	}
}

func loadRunConfig() RunConfig {
	d := Default().Run
	return RunConfig{
		Workers:     getEnvIntOrDefault("BUR_WORKERS", d.Workers),
		Seed:        int64(getEnvIntOrDefault("BUR_SEED", int(d.Seed))),
		Simulations: getEnvIntOrDefault("BUR_SIMULATIONS", d.Simulations),
		ClipNull:    getEnvBoolOrDefault("BUR_CLIP_NULL", d.ClipNull),
	}
}

func loadLogConfig() LogConfig {
	d := Default().Log
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", d.Level)),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", d.Format)),
	}
}

var validate = validator.New()

// Validate checks struct constraints, then the derived analysis parameters
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.ConfigInvalid(fmt.Sprintf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return errors.ConfigInvalid(err.Error())
	}
	if utf8.RuneCountInString(c.Data.Delimiter) != 1 {
		return errors.ConfigInvalid(fmt.Sprintf("delimiter must be a single character, got %q", c.Data.Delimiter))
	}
	if err := c.Params().Validate(); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// Params maps the analysis section onto stats.Params
func (c *Config) Params() stats.Params {
	a := c.Analysis
	return stats.Params{
		MinSamples:       a.MinSamples,
		Alpha:            a.Alpha,
		FDRAlpha:         a.FDRAlpha,
		ConfidenceLevel:  a.ConfidenceLevel,
		DWThreshold:      a.DWThreshold,
		MaxFitIterations: a.MaxFitIterations,
		EndFraction:      a.EndFraction,
		MinEffectSize:    a.MinEffectSize,
		EdgeDelta:        a.EdgeDelta,
		MinSurgeDelta:    a.MinSurgeDelta,
		MinCurveR2:       a.MinCurveR2,
		WindowSizes:      append([]int(nil), a.WindowSizes...),
		SeasonalPeriod:   a.SeasonalPeriod,
		MinTau:           a.MinTau,
	}
}

// DelimiterRune returns the input delimiter as a rune
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Data.Delimiter)
	return r
}

func analysisFromParams(p stats.Params) AnalysisConfig {
	return AnalysisConfig{
		MinSamples:       p.MinSamples,
		Alpha:            p.Alpha,
		FDRAlpha:         p.FDRAlpha,
		ConfidenceLevel:  p.ConfidenceLevel,
		DWThreshold:      p.DWThreshold,
		MaxFitIterations: p.MaxFitIterations,
		EndFraction:      p.EndFraction,
		MinEffectSize:    p.MinEffectSize,
		EdgeDelta:        p.EdgeDelta,
		MinSurgeDelta:    p.MinSurgeDelta,
		MinCurveR2:       p.MinCurveR2,
		WindowSizes:      p.WindowSizes,
		SeasonalPeriod:   p.SeasonalPeriod,
		MinTau:           p.MinTau,
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvIntsOrDefault parses a comma-separated list such as "4,6,8"
func getEnvIntsOrDefault(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

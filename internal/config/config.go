// Package config loads persistent defaults for dirsizes from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/idelchi/dirsizes/internal/dirsize"
)

// EnvPrefix prefixes every environment override, e.g. DIRSIZES_WORKERS.
const EnvPrefix = "DIRSIZES"

// Config keys, shared with the command-line flag names.
const (
	KeyWorkers         = "workers"
	KeyMaxDepth        = "max-depth"
	KeyExclude         = "exclude"
	KeyDedupeHardlinks = "dedupe-hardlinks"
	KeyEngine          = "engine"
	KeyTop             = "top"
	KeyOutput          = "output"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
)

// Outputs lists the accepted output formats.
//
//nolint:gochecknoglobals // Config constant
var Outputs = []string{"table", "json", "csv", "paths"}

// Config holds persistent defaults. Command-line flags take precedence.
type Config struct {
	Workers         int      `mapstructure:"workers"`
	MaxDepth        *int     `mapstructure:"max-depth"`
	Exclude         []string `mapstructure:"exclude"`
	DedupeHardlinks bool     `mapstructure:"dedupe-hardlinks"`
	Engine          string   `mapstructure:"engine"`
	Top             int      `mapstructure:"top"`
	Output          string   `mapstructure:"output"`
	LogLevel        string   `mapstructure:"log-level"`
	LogFormat       string   `mapstructure:"log-format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workers:         dirsize.DefaultWorkers(),
		Exclude:         []string{},
		DedupeHardlinks: true,
		Engine:          string(dirsize.EngineDepthFirst),
		Top:             0,
		Output:          "table",
		LogLevel:        "warn",
		LogFormat:       "text",
	}
}

// Load reads cfgFile, or the first dirsizes.yaml found in the default
// locations when cfgFile is empty, and applies DIRSIZES_* environment overrides.
// A missing default file is not an error; a missing explicit file is.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	v.SetDefault(KeyWorkers, cfg.Workers)
	v.SetDefault(KeyExclude, cfg.Exclude)
	v.SetDefault(KeyDedupeHardlinks, cfg.DedupeHardlinks)
	v.SetDefault(KeyEngine, cfg.Engine)
	v.SetDefault(KeyTop, cfg.Top)
	v.SetDefault(KeyOutput, cfg.Output)
	v.SetDefault(KeyLogLevel, cfg.LogLevel)
	v.SetDefault(KeyLogFormat, cfg.LogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("dirsizes")
		v.SetConfigType("yaml")

		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// max-depth has no default, so AutomaticEnv alone would not surface it to Unmarshal.
	if err := v.BindEnv(KeyMaxDepth); err != nil {
		return nil, fmt.Errorf("binding %s environment: %w", KeyMaxDepth, err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.MaxDepth != nil && *c.MaxDepth < 0 {
		return fmt.Errorf("%s cannot be negative (got %d)", KeyMaxDepth, *c.MaxDepth)
	}

	if c.Workers < 1 {
		return fmt.Errorf("%s must be at least 1 (got %d)", KeyWorkers, c.Workers)
	}

	if c.Top < 0 {
		return fmt.Errorf("%s cannot be negative (got %d)", KeyTop, c.Top)
	}

	if _, err := dirsize.ParseEngine(c.Engine); err != nil {
		return err
	}

	if !slices.Contains(Outputs, strings.ToLower(c.Output)) {
		return fmt.Errorf("invalid output format %q: must be one of %v", c.Output, Outputs)
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%s %q is not valid (use text or json)", KeyLogFormat, c.LogFormat)
	}

	return nil
}

// ScanOptions converts the configuration into scan options.
func (c *Config) ScanOptions() (dirsize.Options, error) {
	engine, err := dirsize.ParseEngine(c.Engine)
	if err != nil {
		return dirsize.Options{}, err
	}

	opts := dirsize.Options{
		Excludes:        c.Exclude,
		DedupeHardlinks: c.DedupeHardlinks,
		Workers:         c.Workers,
		Engine:          engine,
	}

	if c.MaxDepth != nil {
		opts.MaxDepth = dirsize.Depth(*c.MaxDepth)
	}

	return opts, opts.Validate()
}

func searchPaths() []string {
	var paths []string

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "dirsizes"))
	}

	return append(paths, ".")
}

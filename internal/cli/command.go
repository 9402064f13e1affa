package cli

import (
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/dirsizes/internal/config"
	"github.com/idelchi/dirsizes/internal/dirsize"
	"github.com/idelchi/dirsizes/internal/integration"
	"github.com/idelchi/dirsizes/internal/logging"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// flagValues holds the raw flag values. Only flags the user set override the config.
type flagValues struct {
	cfgFile     string
	maxDepth    int
	excludes    []string
	workers     int
	noDedupe    bool
	engine      string
	top         int
	filter      string
	output      string
	csvFile     string
	debug       bool
	logFormat   string
	version     bool
	integration bool
}

// Command builds the root command.
func (c CLI) Command() *cobra.Command {
	var values flagValues

	cmd := &cobra.Command{
		Use:   "dirsizes [flags] [root]",
		Short: "Report the total size of each immediate subdirectory",
		Long: heredoc.Doc(`
			dirsizes sums the file sizes below every immediate subdirectory of root
			and lists them largest first.

			Subtrees are scanned concurrently. Symbolic links are never followed,
			and hard-linked files are counted once per subdirectory unless
			--no-dedupe is given. Press Ctrl+C to stop early; subdirectories that
			finished are still reported and the status reads "stopped".

			Defaults can be stored in dirsizes.yaml (in the user config directory
			or the working directory) and overridden with DIRSIZES_* variables.
			Flags given on the command line always win.

			The '--init' flag prints a zsh function that pipes '--output paths'
			into 'fzf' and changes into the selected directory.
		`),
		Example: heredoc.Doc(`
			dirsizes ~/projects
			dirsizes -d 2 -x node_modules -x '*.tmp' /srv
			dirsizes -t 10 -o json . | jq '.results[0]'
			dirsizes --csv sizes.csv /var
		`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if values.version {
				fmt.Fprintln(cmd.OutOrStdout(), c.version)

				return nil
			}

			if values.integration {
				rendered, err := integration.Render()
				if err != nil {
					return fmt.Errorf("rendering integration script: %w", err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), rendered)

				return nil
			}

			options, err := resolve(cmd.Flags(), values, args)
			if err != nil {
				return err
			}

			return logic(cmd.Context(), options, cmd.OutOrStdout())
		},
	}

	bindFlags(cmd.Flags(), &values)

	return cmd
}

// bindFlags registers every flag on flags, storing the values in values.
func bindFlags(flags *pflag.FlagSet, values *flagValues) {
	flags.SortFlags = false

	flags.IntVarP(&values.maxDepth, config.KeyMaxDepth, "d", 0,
		"Maximum depth below each subdirectory (0=direct files only, default unlimited)")
	flags.StringSliceVarP(&values.excludes, config.KeyExclude, "x", nil,
		"Glob patterns matched against entry names to skip (e.g. node_modules,*.tmp)")
	flags.IntVarP(&values.workers, config.KeyWorkers, "w", dirsize.DefaultWorkers(), "Number of concurrent subtree scans")
	flags.BoolVar(&values.noDedupe, "no-dedupe", false, "Count every hard link instead of once per inode")
	flags.StringVar(&values.engine, config.KeyEngine, string(dirsize.EngineDepthFirst),
		"Walk engine: depth-first or parallel")
	flags.IntVarP(&values.top, config.KeyTop, "t", 0, "Number of subdirectories to display (0=all)")
	flags.StringVarP(&values.filter, "filter", "f", "", "Only show subdirectories whose name or path contains this text")
	flags.StringVarP(&values.output, config.KeyOutput, "o", "table", "Output format: table, json, csv or paths")
	flags.StringVar(&values.csvFile, "csv", "", "Also write all results to this CSV file")
	flags.StringVar(&values.cfgFile, "config", "", "Path to a config file")
	flags.BoolVar(&values.debug, "debug", false, "Enable debug output")
	flags.StringVar(&values.logFormat, config.KeyLogFormat, "text", "Log format: text or json")
	flags.BoolVarP(&values.version, "version", "v", false, "Show version and exit")
	flags.BoolVarP(&values.integration, "init", "i", false, "Output init script for shell usage")
}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command().Execute()
}

// resolve layers the changed flags over the loaded config and sets up logging.
func resolve(flags *pflag.FlagSet, values flagValues, args []string) (Options, error) {
	cfg, err := config.Load(values.cfgFile)
	if err != nil {
		return Options{}, err
	}

	if flags.Changed(config.KeyMaxDepth) {
		if values.maxDepth < 0 {
			return Options{}, errors.New("depth cannot be negative")
		}

		cfg.MaxDepth = &values.maxDepth
	}

	if flags.Changed(config.KeyExclude) {
		cfg.Exclude = values.excludes
	}

	if flags.Changed(config.KeyWorkers) {
		cfg.Workers = values.workers
	}

	if flags.Changed("no-dedupe") {
		cfg.DedupeHardlinks = !values.noDedupe
	}

	if flags.Changed(config.KeyEngine) {
		cfg.Engine = values.engine
	}

	if flags.Changed(config.KeyTop) {
		cfg.Top = values.top
	}

	if flags.Changed(config.KeyOutput) {
		cfg.Output = values.output
	}

	if flags.Changed(config.KeyLogFormat) {
		cfg.LogFormat = values.logFormat
	}

	if values.debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}

	scan, err := cfg.ScanOptions()
	if err != nil {
		return Options{}, err
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, nil)

	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	return Options{
		Root:    root,
		Scan:    scan,
		Output:  cfg.Output,
		Top:     cfg.Top,
		Filter:  values.filter,
		CSVFile: values.csvFile,
		Debug:   values.debug,
	}, nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/idelchi/dirsizes/internal/dirsize"
	"github.com/idelchi/dirsizes/internal/logging"
)

// Options is a fully resolved invocation.
type Options struct {
	Root    string
	Scan    dirsize.Options
	Output  string
	Top     int
	Filter  string
	CSVFile string
	Debug   bool
}

// visible applies the filter and, unless all is set, the top limit.
func (o Options) visible(report *dirsize.Report, all bool) []dirsize.Result {
	results := report.Filter(o.Filter)

	if !all && o.Top > 0 && len(results) > o.Top {
		results = results[:o.Top]
	}

	return results
}

// render writes the report to stdout in the selected format, and to the CSV file if requested.
func (o Options) render(report *dirsize.Report, stdout io.Writer) error {
	if o.CSVFile != "" {
		if err := writeCSVFile(o.CSVFile, report.Results); err != nil {
			return err
		}

		logging.L("cli").Info("saved CSV", logging.KeyPath, o.CSVFile, "rows", len(report.Results))
	}

	switch strings.ToLower(o.Output) {
	case "json":
		return PrintJSON(report, o.visible(report, false), stdout)
	case "table":
		return PrintTable(report, o.visible(report, false), stdout)
	case "csv":
		return PrintCSV(o.visible(report, true), stdout)
	case "paths":
		return PrintPaths(o.visible(report, false), stdout)
	default:
		return fmt.Errorf("unknown output format: %s", o.Output)
	}
}

func writeCSVFile(path string, results []dirsize.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}

	if err := PrintCSV(results, f); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing CSV file: %w", err)
	}

	return nil
}

func logic(ctx context.Context, options Options, stdout io.Writer) error {
	enableProgress := strings.ToLower(options.Output) == "table" &&
		!options.Debug &&
		isatty.IsTerminal(os.Stderr.Fd())

	orch := dirsize.New(logging.L("orchestrator"))

	// Interrupts stop the scan; whatever finished is still reported.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	defer close(done)
	defer signal.Stop(sigs)

	go func() {
		select {
		case sig := <-sigs:
			logging.L("cli").Info("stopping scan", "signal", sig.String())
			orch.RequestCancel()
		case <-done:
		}
	}()

	hooks := dirsize.Hooks{
		Sink: dirsize.SinkFunc(func(report *dirsize.Report) error {
			// Clear the status line before anything reaches the terminal.
			if enableProgress {
				fmt.Fprint(os.Stderr, "\r\033[2K\r")
			}

			return options.render(report, stdout)
		}),
	}

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(os.Stderr, "\033[?25l")
		defer fmt.Fprint(os.Stderr, "\033[?25h")

		hooks.Progress = func(p dirsize.Progress) {
			msg := fmt.Sprintf("Scanning… %d/%d subdirectories, %s",
				p.Completed, p.Total, humanize.IBytes(uint64(p.Bytes))) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(os.Stderr, "\r\033[2K%s\r", msg)
		}
	}

	_, err := orch.Run(ctx, options.Root, options.Scan, hooks)

	if enableProgress {
		fmt.Fprint(os.Stderr, "\r\033[2K\r")
	}

	return err
}

package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/dirsizes/internal/dirsize"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// CSVHeader is the header row of the CSV export.
//
//nolint:gochecknoglobals // Config constant
var CSVHeader = []string{"folder", "bytes", "human_readable", "absolute_path"}

// jsonReport is the machine-readable view of a scan.
type jsonReport struct {
	Root        string               `json:"root"`
	Status      string               `json:"status"`
	TotalBytes  int64                `json:"total_bytes"`
	Enumerated  int                  `json:"enumerated"`
	Results     []dirsize.Result     `json:"results"`
	Diagnostics []dirsize.Diagnostic `json:"diagnostics,omitempty"`
	Elapsed     string               `json:"elapsed"`
}

// PrintJSON outputs the report in JSON format, listing only the given results.
func PrintJSON(report *dirsize.Report, results []dirsize.Result, writer io.Writer) error {
	if results == nil {
		results = []dirsize.Result{}
	}

	data, err := json.MarshalIndent(jsonReport{
		Root:        report.Root,
		Status:      report.Status(),
		TotalBytes:  report.Total(),
		Enumerated:  report.Enumerated,
		Results:     results,
		Diagnostics: report.Diagnostics,
		Elapsed:     report.Elapsed.String(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintTable outputs the report in human-readable table format.
// Percentages are relative to the total of all results, not only the listed ones.
func PrintTable(report *dirsize.Report, results []dirsize.Result, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)
	total := report.Total()

	fmt.Fprintf(w, "\nLargest subdirectories of '%s':\t\t\t\n", report.Root)

	for i, res := range results {
		pct := 0.0
		if total > 0 {
			pct = 100.0 * float64(res.Bytes) / float64(total)
		}

		marker := ""
		if res.Partial {
			marker = " (partial)"
		}

		fmt.Fprintf(w, "  %d) %s\t%s\t(%.1f%%)%s\t%s\n", i+1, res.Name, FormatSize(res.Bytes), pct, marker, res.Path)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "  (none)\t\t\t")
	}

	fmt.Fprintln(w, "\nStats:\t\t\t")
	fmt.Fprintf(w, "Status:\t%s\n", report.Status())
	fmt.Fprintf(w, "Subdirectories:\t%d of %d scanned\n", len(report.Results), report.Enumerated)
	fmt.Fprintf(w, "Total size:\t%s (%s bytes)\n", FormatSize(total), humanize.Comma(total))
	fmt.Fprintf(w, "Diagnostics:\t%d\n", len(report.Diagnostics))
	fmt.Fprintf(w, "\nElapsed:\t%v\n", report.Elapsed)

	return w.Flush()
}

// PrintCSV writes one row per result with the CSVHeader columns.
func PrintCSV(results []dirsize.Result, writer io.Writer) error {
	w := csv.NewWriter(writer)

	if err := w.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, res := range results {
		abs, err := filepath.Abs(res.Path)
		if err != nil {
			abs = res.Path
		}

		record := []string{res.Name, strconv.FormatInt(res.Bytes, 10), FormatSize(res.Bytes), abs}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", res.Path, err)
		}
	}

	w.Flush()

	return w.Error()
}

// PrintPaths writes one absolute path per line, for piping into pickers such as fzf.
func PrintPaths(results []dirsize.Result, writer io.Writer) error {
	for _, res := range results {
		abs, err := filepath.Abs(res.Path)
		if err != nil {
			abs = res.Path
		}

		if _, err := fmt.Fprintln(writer, abs); err != nil {
			return err
		}
	}

	return nil
}

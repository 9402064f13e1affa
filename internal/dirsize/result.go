package dirsize

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Result is the size of one immediate subdirectory.
type Result struct {
	// Name is the subdirectory's base name.
	Name string `json:"name"`
	// Path is the subdirectory path as enumerated under the root.
	Path string `json:"path"`
	// Bytes is the summed logical size of the counted files.
	Bytes int64 `json:"bytes"`
	// Partial is set when cancellation stopped the walk before it finished.
	Partial bool `json:"partial,omitempty"`

	index int
}

// Progress is emitted once per finished subtree.
type Progress struct {
	// Completed is the number of subtrees finished so far, including this one.
	Completed int
	// Total is the number of subdirectories enumerated.
	Total int
	// Bytes is the running sum over completed subtrees.
	Bytes int64
	// Result is the subtree that just finished.
	Result Result
}

// Report is the outcome of one scan.
type Report struct {
	// Root is the cleaned scan root.
	Root string `json:"root"`
	// Results is ordered by Bytes, largest first.
	Results []Result `json:"results"`
	// Diagnostics lists every skipped failure, in arrival order.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	// Enumerated is the number of immediate subdirectories found.
	Enumerated int `json:"enumerated"`
	// Cancelled is set when the scan was stopped before every subtree finished.
	Cancelled bool `json:"cancelled"`
	// Elapsed is the wall time of the scan.
	Elapsed time.Duration `json:"elapsed"`
}

// Total returns the sum of all result sizes.
func (r *Report) Total() int64 {
	var total int64
	for _, res := range r.Results {
		total += res.Bytes
	}

	return total
}

// Status returns "stopped" for a cancelled scan and "done" otherwise.
func (r *Report) Status() string {
	if r.Cancelled {
		return "stopped"
	}

	return "done"
}

// Filter returns the results whose name or path contains query, case-insensitively.
// An empty query returns all results.
func (r *Report) Filter(query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return r.Results
	}

	filtered := make([]Result, 0, len(r.Results))
	for _, res := range r.Results {
		if strings.Contains(strings.ToLower(res.Name), query) || strings.Contains(strings.ToLower(res.Path), query) {
			filtered = append(filtered, res)
		}
	}

	return filtered
}

// Sink consumes the ordered results of a finished scan.
type Sink interface {
	Deliver(report *Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(report *Report) error

// Deliver calls f(report).
func (f SinkFunc) Deliver(report *Report) error {
	return f(report)
}

// SortResults orders results by Bytes, largest first. Equal sizes keep their relative order.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Bytes > results[j].Bytes
	})
}

func newResult(path string, index int) Result {
	return Result{
		Name:  filepath.Base(path),
		Path:  path,
		index: index,
	}
}

package dirsize

import (
	"fmt"
	"runtime"
	"strings"
)

// Engine selects how a single subtree is walked.
type Engine string

const (
	// EngineDepthFirst walks a subtree on the calling goroutine in directory listing order.
	EngineDepthFirst Engine = "depth-first"
	// EngineParallel walks a subtree with fastwalk. Entry order is unspecified.
	EngineParallel Engine = "parallel"
)

// Engines lists the accepted engine names.
//
//nolint:gochecknoglobals // Config constant
var Engines = []Engine{EngineDepthFirst, EngineParallel}

// ParseEngine resolves an engine name, case-insensitively. Empty selects EngineDepthFirst.
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(s))) {
	case "", EngineDepthFirst:
		return EngineDepthFirst, nil
	case EngineParallel:
		return EngineParallel, nil
	default:
		return "", fmt.Errorf("%w: unknown engine %q (use %s or %s)", ErrInvalidOptions, s, EngineDepthFirst, EngineParallel)
	}
}

// Options configures one scan. It must not be modified while a scan is running.
type Options struct {
	// MaxDepth bounds recursion below each subdirectory. Nil means unbounded,
	// 0 counts only the files directly inside the subdirectory.
	MaxDepth *int
	// Excludes holds glob patterns matched against bare entry names.
	Excludes []string
	// DedupeHardlinks counts a file reachable through several hard links once per subtree.
	DedupeHardlinks bool
	// Workers is the number of subtrees scanned concurrently.
	Workers int
	// Engine selects the subtree walker.
	Engine Engine
}

// DefaultOptions returns unbounded-depth options with hardlink dedup enabled.
func DefaultOptions() Options {
	return Options{
		DedupeHardlinks: true,
		Workers:         DefaultWorkers(),
		Engine:          EngineDepthFirst,
	}
}

// DefaultWorkers returns twice the CPU count, but at least 4.
func DefaultWorkers() int {
	return max(4, 2*runtime.NumCPU())
}

// Depth returns a pointer to n, for use as Options.MaxDepth.
func Depth(n int) *int {
	return &n
}

// Validate reports the first invalid setting, wrapped in ErrInvalidOptions.
func (o Options) Validate() error {
	if o.MaxDepth != nil && *o.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth cannot be negative (got %d)", ErrInvalidOptions, *o.MaxDepth)
	}

	if o.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1 (got %d)", ErrInvalidOptions, o.Workers)
	}

	if _, err := ParseEngine(string(o.Engine)); err != nil {
		return err
	}

	return nil
}

// descend reports whether a directory found at depth may be entered.
func (o Options) descend(depth int) bool {
	return o.MaxDepth == nil || depth < *o.MaxDepth
}

// snapshot copies the slices held by o so a running task cannot observe later edits.
func (o Options) snapshot() Options {
	o.Excludes = append([]string(nil), o.Excludes...)
	if o.MaxDepth != nil {
		o.MaxDepth = Depth(*o.MaxDepth)
	}

	return o
}

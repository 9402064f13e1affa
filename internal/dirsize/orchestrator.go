package dirsize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond"

	"github.com/idelchi/dirsizes/internal/logging"
)

// State is the lifecycle position of an Orchestrator.
type State int32

const (
	StateIdle State = iota
	StateEnumerating
	StateDispatching
	StateCancelling
	StateAggregating
	StateSorted
	StateDelivered
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnumerating:
		return "enumerating"
	case StateDispatching:
		return "dispatching"
	case StateCancelling:
		return "cancelling"
	case StateAggregating:
		return "aggregating"
	case StateSorted:
		return "sorted"
	case StateDelivered:
		return "delivered"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Hooks receives events from a running scan. Every field is optional.
type Hooks struct {
	// Progress is called once per finished subtree, always from the goroutine running Run.
	Progress func(Progress)
	// Diagnostic is called for every skipped failure. Calls are serialized
	// but may come from worker goroutines.
	Diagnostic func(Diagnostic)
	// Sink receives the sorted report before Run returns.
	Sink Sink
}

// ScanTask is one subdirectory queued for scanning.
type ScanTask struct {
	Index   int
	Path    string
	Options Options
}

// Run scans the task's subtree.
func (t ScanTask) Run(ctx context.Context, report func(Diagnostic)) Result {
	res := ScanSubtree(ctx, t.Path, t.Options, report)
	res.index = t.Index

	return res
}

// runTask executes one queued task on a pool worker.
//
//nolint:gochecknoglobals // Replaced in tests
var runTask = func(ctx context.Context, task ScanTask, report func(Diagnostic)) Result {
	return task.Run(ctx, report)
}

// Orchestrator fans subtree scans out over a bounded worker pool.
// One Orchestrator runs at most one scan at a time.
type Orchestrator struct {
	log   *slog.Logger
	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New returns an idle Orchestrator. A nil logger selects the "orchestrator" component logger.
func New(log *slog.Logger) *Orchestrator {
	if log == nil {
		log = logging.L("orchestrator")
	}

	return &Orchestrator{log: log}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.log.Debug("state changed", "state", s.String())
}

// RequestCancel asks the running scan to stop. Tasks not yet started are
// dropped and running walks return at their next check. Calling it without
// a running scan, or more than once, has no effect.
func (o *Orchestrator) RequestCancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
}

// Run sizes every immediate subdirectory of root.
//
// Only ErrRootNotFound, ErrInvalidOptions and ErrScanInProgress abort a scan;
// every other failure becomes a Diagnostic. A root that is not a directory is
// reported as RootUnreadable and yields an empty report.
// A cancelled scan still returns a sorted report, with Cancelled set.
func (o *Orchestrator) Run(ctx context.Context, root string, opts Options, hooks Hooks) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateEnumerating)) {
		return nil, ErrScanInProgress
	}
	defer o.setState(StateIdle)

	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
		cancel()
	}()

	stop := context.AfterFunc(ctx, func() {
		if o.state.CompareAndSwap(int32(StateDispatching), int32(StateCancelling)) {
			o.log.Debug("state changed", "state", StateCancelling.String())
		}
	})
	defer stop()

	start := time.Now()
	opts = opts.snapshot()
	root = filepath.Clean(root)
	diags := newCollector(o.log, hooks.Diagnostic)

	subdirs, err := ListSubdirs(root)

	switch {
	case errors.Is(err, ErrRootNotFound):
		return nil, err
	case err != nil:
		diags.add(Diagnostic{Kind: RootUnreadable, Path: root, Err: err})
	}

	o.log.Debug("enumerated subdirectories", logging.KeyPath, root, "count", len(subdirs))

	report := &Report{Root: root, Enumerated: len(subdirs)}

	if len(subdirs) > 0 {
		o.setState(StateDispatching)

		// Cancelled while enumerating: the AfterFunc found no dispatch to interrupt.
		if ctx.Err() != nil {
			o.setState(StateCancelling)
		}

		report.Results, report.Cancelled = o.dispatch(ctx, subdirs, opts, hooks.Progress, diags)
	}

	o.setState(StateAggregating)

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].index < report.Results[j].index
	})
	SortResults(report.Results)
	o.setState(StateSorted)

	report.Diagnostics = diags.list()
	report.Elapsed = time.Since(start)

	o.log.Info("scan finished",
		logging.KeyPath, root,
		"subdirectories", report.Enumerated,
		"results", len(report.Results),
		"diagnostics", len(report.Diagnostics),
		"cancelled", report.Cancelled,
		logging.KeyElapsed, report.Elapsed,
	)

	if hooks.Sink != nil {
		if err := hooks.Sink.Deliver(report); err != nil {
			return report, fmt.Errorf("delivering results: %w", err)
		}
	}

	o.setState(StateDelivered)

	return report, nil
}

// outcome is what one pool task hands back to the collecting goroutine.
type outcome struct {
	result Result
	ran    bool
}

// dispatch runs one task per subdirectory on a pool of opts.Workers and
// collects results in completion order. It reports whether the scan was cut short.
func (o *Orchestrator) dispatch(
	ctx context.Context,
	subdirs []string,
	opts Options,
	progress func(Progress),
	diags *collector,
) ([]Result, bool) {
	outcomes := make(chan outcome, len(subdirs))
	pool := pond.New(opts.Workers, len(subdirs))

	submitted := 0

	for i, dir := range subdirs {
		if ctx.Err() != nil {
			break
		}

		task := ScanTask{Index: i, Path: dir, Options: opts}

		pool.Submit(func() {
			oc := outcome{result: newResult(task.Path, task.Index)}

			defer func() {
				if r := recover(); r != nil {
					o.log.Error("scan task panicked", logging.KeyPath, task.Path, "panic", r, "stack", string(debug.Stack()))
					diags.add(Diagnostic{Kind: SubdirUnreadable, Path: task.Path, Err: fmt.Errorf("panic: %v", r)})
					oc.ran = true
				}

				outcomes <- oc
			}()

			// Queued tasks that start after cancellation never run.
			if ctx.Err() != nil {
				return
			}

			oc.result = runTask(ctx, task, diags.add)
			oc.ran = true
		})

		submitted++
	}

	o.log.Debug("dispatched scan tasks", "submitted", submitted, "workers", opts.Workers)

	go func() {
		pool.StopAndWait()
		close(outcomes)
	}()

	var (
		results   = make([]Result, 0, submitted)
		bytes     int64
		truncated bool
	)

	for oc := range outcomes {
		if !oc.ran {
			continue
		}

		results = append(results, oc.result)
		bytes += oc.result.Bytes
		truncated = truncated || oc.result.Partial

		if progress != nil {
			progress(Progress{
				Completed: len(results),
				Total:     len(subdirs),
				Bytes:     bytes,
				Result:    oc.result,
			})
		}
	}

	return results, truncated || len(results) < len(subdirs)
}

// ListSubdirs returns the immediate subdirectories of root in listing order,
// skipping symbolic links. A listing failure after root was found returns the
// entries read so far together with the error.
func ListSubdirs(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}

		return nil, err
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	entries, err := readDir(root)

	subdirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink != 0 || !entry.IsDir() {
			continue
		}

		subdirs = append(subdirs, filepath.Join(root, entry.Name()))
	}

	return subdirs, err
}

// collector gathers diagnostics from concurrent walks using a mutex.
type collector struct {
	mu    sync.Mutex
	log   *slog.Logger
	hook  func(Diagnostic)
	diags []Diagnostic
}

func newCollector(log *slog.Logger, hook func(Diagnostic)) *collector {
	return &collector{log: log, hook: hook}
}

// add records d, logs it and forwards it to the hook.
func (c *collector) add(d Diagnostic) {
	c.log.Warn("skipped unreadable path", logging.KeyKind, d.Kind.String(), logging.KeyPath, d.Path, logging.KeyError, d.Err)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.diags = append(c.diags, d)
	if c.hook != nil {
		c.hook(d)
	}
}

func (c *collector) list() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Diagnostic(nil), c.diags...)
}

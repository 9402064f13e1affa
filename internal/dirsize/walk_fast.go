package dirsize

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// calculateDepth returns the depth of a path relative to the root.
func calculateDepth(path, root string) int {
	relPath := strings.TrimPrefix(path, root)

	relPath = strings.TrimPrefix(relPath, string(filepath.Separator))
	if relPath == "" {
		return 0
	}

	return strings.Count(relPath, string(filepath.Separator)) + 1
}

// walkParallel walks root with fastwalk, which lists directories on several
// goroutines. The tracker stays private to this walk but needs a lock here.
//
//nolint:varnamelen // d is standard for DirEntry
func walkParallel(ctx context.Context, root string, opts Options, report func(Diagnostic)) (int64, bool) {
	var (
		total     atomic.Int64
		cancelled atomic.Bool
		mu        sync.Mutex
		tracker   *DedupTracker
	)

	if opts.DedupeHardlinks {
		tracker = NewDedupTracker()
	}

	if ctx.Err() != nil {
		return 0, true
	}

	root = filepath.Clean(root)

	conf := &fastwalk.Config{
		Follow: false, // Don't follow symlinks
	}

	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			cancelled.Store(true)

			return fs.SkipAll
		}

		if err != nil {
			kind := EntryUnreadable
			if d == nil || d.IsDir() {
				kind = SubdirUnreadable
			}

			report(Diagnostic{Kind: kind, Path: path, Err: err})

			return nil
		}

		depth := calculateDepth(path, root)
		if depth == 0 {
			return nil
		}

		if IsExcluded(d.Name(), opts.Excludes) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}

			return nil
		}

		typ := d.Type()

		switch {
		case typ&fs.ModeSymlink != 0:
			return nil
		case typ.IsDir():
			// The entry sits inside a directory at depth-1.
			if !opts.descend(depth - 1) {
				return fastwalk.SkipDir
			}

			return nil
		case !typ.IsRegular():
			return nil
		}

		info, err := d.Info()
		if err != nil {
			report(Diagnostic{Kind: EntryUnreadable, Path: path, Err: err})

			return nil //nolint:nilerr // Intentionally skip errors during walk
		}

		if tracker == nil {
			total.Add(countFile(info, nil))

			return nil
		}

		mu.Lock()
		n := countFile(info, tracker)
		mu.Unlock()

		total.Add(n)

		return nil
	})

	if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) && !cancelled.Load() {
		report(Diagnostic{Kind: SubdirUnreadable, Path: root, Err: walkErr})
	}

	return total.Load(), cancelled.Load()
}

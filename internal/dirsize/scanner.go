package dirsize

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
)

// ScanSubtree sums the logical size of the regular files under path.
//
// The walk is cooperative: when ctx is cancelled it stops at the next entry
// and returns the sum so far with Partial set. Failures to list a directory
// or read an entry are passed to report and skipped. report may be nil; with
// EngineParallel it is called from several goroutines.
func ScanSubtree(ctx context.Context, path string, opts Options, report func(Diagnostic)) Result {
	if report == nil {
		report = func(Diagnostic) {}
	}

	res := newResult(path, 0)

	switch opts.Engine {
	case EngineParallel:
		res.Bytes, res.Partial = walkParallel(ctx, path, opts, report)
	default:
		res.Bytes, res.Partial = walkDepthFirst(ctx, path, opts, report)
	}

	return res
}

// dirFrame is one open directory on the depth-first stack.
type dirFrame struct {
	path    string
	depth   int
	entries []fs.DirEntry
	next    int
}

// walkDepthFirst visits entries in the order the filesystem lists them,
// descending into each directory before moving on to its next sibling.
// An explicit stack keeps goroutine stack growth independent of tree depth.
func walkDepthFirst(ctx context.Context, root string, opts Options, report func(Diagnostic)) (int64, bool) {
	var (
		total   int64
		tracker *DedupTracker
	)

	if opts.DedupeHardlinks {
		tracker = NewDedupTracker()
	}

	if ctx.Err() != nil {
		return 0, true
	}

	entries, err := readDir(root)
	if err != nil {
		report(Diagnostic{Kind: SubdirUnreadable, Path: root, Err: err})
	}

	stack := []*dirFrame{{path: root, entries: entries}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]

			continue
		}

		entry := top.entries[top.next]
		top.next++

		if ctx.Err() != nil {
			return total, true
		}

		name := entry.Name()
		if IsExcluded(name, opts.Excludes) {
			continue
		}

		entryPath := filepath.Join(top.path, name)
		typ := entry.Type()

		switch {
		case typ&fs.ModeSymlink != 0:
			continue
		case typ.IsDir():
			if !opts.descend(top.depth) {
				continue
			}

			if ctx.Err() != nil {
				return total, true
			}

			children, err := readDir(entryPath)
			if err != nil {
				report(Diagnostic{Kind: SubdirUnreadable, Path: entryPath, Err: err})
			}

			if len(children) > 0 {
				stack = append(stack, &dirFrame{path: entryPath, depth: top.depth + 1, entries: children})
			}
		case typ.IsRegular():
			info, err := entry.Info()
			if err != nil {
				report(Diagnostic{Kind: EntryUnreadable, Path: entryPath, Err: err})

				continue
			}

			total += countFile(info, tracker)
		}
	}

	return total, false
}

// countFile returns the bytes info contributes, or 0 for a non-regular file
// or one whose inode tracker has already seen. tracker may be nil.
func countFile(info fs.FileInfo, tracker *DedupTracker) int64 {
	if !info.Mode().IsRegular() {
		return 0
	}

	if tracker != nil {
		if key, ok := inodeKey(info); ok && !tracker.ShouldCount(key) {
			return 0
		}
	}

	return max(info.Size(), 0)
}

// readDir lists a directory for the depth-first walk and ListSubdirs.
//
//nolint:gochecknoglobals // Replaced in tests
var readDir = readDirUnsorted

// readDirUnsorted lists dir without the name sort os.ReadDir applies.
// Entries read before a failure are returned along with the error.
func readDirUnsorted(dir string) ([]fs.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.ReadDir(-1)
}

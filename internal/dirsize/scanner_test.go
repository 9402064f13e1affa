package dirsize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

// writeFile creates path (and its parents) holding size bytes.
func writeFile(t *testing.T, path string, size int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// symlink creates a symlink or skips the test where that is not permitted.
func symlink(t *testing.T, target, link string) {
	t.Helper()

	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

// diagRecorder collects diagnostics from concurrent walks.
type diagRecorder struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (r *diagRecorder) add(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

func (r *diagRecorder) list() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Diagnostic(nil), r.diags...)
}

func scanOpts(engine Engine) Options {
	opts := DefaultOptions()
	opts.Engine = engine

	return opts
}

// forEachEngine runs fn once per engine as a subtest.
func forEachEngine(t *testing.T, fn func(t *testing.T, engine Engine)) {
	t.Helper()

	for _, engine := range Engines {
		t.Run(string(engine), func(t *testing.T) {
			fn(t, engine)
		})
	}
}

func TestScanSubtreeSumsAllFiles(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.bin"), 100)
		writeFile(t, filepath.Join(dir, "nested", "b.bin"), 250)
		writeFile(t, filepath.Join(dir, "nested", "deeper", "c.bin"), 40)
		writeFile(t, filepath.Join(dir, "empty.bin"), 0)

		if err := os.MkdirAll(filepath.Join(dir, "empty-dir"), 0o755); err != nil {
			t.Fatal(err)
		}

		res := ScanSubtree(context.Background(), dir, scanOpts(engine), nil)

		if res.Bytes != 390 {
			t.Fatalf("Bytes = %d, want 390", res.Bytes)
		}
		if res.Partial {
			t.Fatal("uncancelled scan should not be partial")
		}
		if res.Name != filepath.Base(dir) || res.Path != dir {
			t.Fatalf("unexpected identity %q %q", res.Name, res.Path)
		}
	})
}

func TestScanSubtreeExcludesByName(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.tmp"), 500)
		writeFile(t, filepath.Join(dir, "b.log"), 200)

		opts := scanOpts(engine)
		opts.Excludes = []string{"*.tmp"}

		if got := ScanSubtree(context.Background(), dir, opts, nil).Bytes; got != 200 {
			t.Fatalf("Bytes = %d, want 200", got)
		}
	})
}

func TestScanSubtreePrunesExcludedDirectories(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "keep.txt"), 10)
		writeFile(t, filepath.Join(dir, "node_modules", "big.js"), 1000)
		writeFile(t, filepath.Join(dir, "node_modules", "inner", "huge.js"), 5000)
		writeFile(t, filepath.Join(dir, "src", "node_modules", "x.js"), 300)

		opts := scanOpts(engine)
		opts.Excludes = []string{"node_modules"}

		if got := ScanSubtree(context.Background(), dir, opts, nil).Bytes; got != 10 {
			t.Fatalf("Bytes = %d, want 10", got)
		}
	})
}

func TestScanSubtreeMaxDepth(t *testing.T) {
	tests := []struct {
		name  string
		depth *int
		want  int64
	}{
		{"zero counts direct files only", Depth(0), 1},
		{"one includes children", Depth(1), 11},
		{"two includes grandchildren", Depth(2), 111},
		{"unbounded", nil, 1111},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forEachEngine(t, func(t *testing.T, engine Engine) {
				dir := t.TempDir()
				writeFile(t, filepath.Join(dir, "f"), 1)
				writeFile(t, filepath.Join(dir, "a", "f"), 10)
				writeFile(t, filepath.Join(dir, "a", "b", "f"), 100)
				writeFile(t, filepath.Join(dir, "a", "b", "c", "f"), 1000)

				opts := scanOpts(engine)
				opts.MaxDepth = tt.depth

				if got := ScanSubtree(context.Background(), dir, opts, nil).Bytes; got != tt.want {
					t.Fatalf("Bytes = %d, want %d", got, tt.want)
				}
			})
		})
	}
}

func TestScanSubtreeSkipsSymlinks(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		outside := t.TempDir()
		writeFile(t, filepath.Join(outside, "target", "payload"), 4096)
		writeFile(t, filepath.Join(outside, "file"), 777)

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "own"), 5)
		symlink(t, filepath.Join(outside, "target"), filepath.Join(dir, "link-to-dir"))
		symlink(t, filepath.Join(outside, "file"), filepath.Join(dir, "link-to-file"))
		// A cycle back to the subtree itself.
		symlink(t, dir, filepath.Join(dir, "loop"))

		if got := ScanSubtree(context.Background(), dir, scanOpts(engine), nil).Bytes; got != 5 {
			t.Fatalf("Bytes = %d, want 5", got)
		}
	})
}

func TestScanSubtreeHardlinkDedup(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("inode identity is not available on windows")
	}

	forEachEngine(t, func(t *testing.T, engine Engine) {
		dir := t.TempDir()
		orig := filepath.Join(dir, "orig")
		writeFile(t, orig, 300)

		if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.Link(orig, filepath.Join(dir, "sub", "alias")); err != nil {
			t.Skipf("hardlinks unavailable: %v", err)
		}

		opts := scanOpts(engine)

		opts.DedupeHardlinks = true
		if got := ScanSubtree(context.Background(), dir, opts, nil).Bytes; got != 300 {
			t.Fatalf("dedup on: Bytes = %d, want 300", got)
		}

		opts.DedupeHardlinks = false
		if got := ScanSubtree(context.Background(), dir, opts, nil).Bytes; got != 600 {
			t.Fatalf("dedup off: Bytes = %d, want 600", got)
		}
	})
}

func TestScanSubtreeMissingPathReportsDiagnostic(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		missing := filepath.Join(t.TempDir(), "gone")

		var rec diagRecorder
		res := ScanSubtree(context.Background(), missing, scanOpts(engine), rec.add)

		if res.Bytes != 0 {
			t.Fatalf("Bytes = %d, want 0", res.Bytes)
		}

		diags := rec.list()
		if len(diags) == 0 {
			t.Fatal("expected a diagnostic for the missing path")
		}
		if diags[0].Kind != SubdirUnreadable || diags[0].Path != missing {
			t.Fatalf("unexpected diagnostic %v", diags[0])
		}
	})
}

func TestScanSubtreeUnreadableDirectoryIsSkipped(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}

	forEachEngine(t, func(t *testing.T, engine Engine) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "ok"), 20)
		writeFile(t, filepath.Join(dir, "locked", "secret"), 900)
		writeFile(t, filepath.Join(dir, "sibling", "ok"), 30)

		locked := filepath.Join(dir, "locked")
		if err := os.Chmod(locked, 0o000); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

		var rec diagRecorder
		res := ScanSubtree(context.Background(), dir, scanOpts(engine), rec.add)

		if res.Bytes != 50 {
			t.Fatalf("Bytes = %d, want 50", res.Bytes)
		}

		found := false
		for _, d := range rec.list() {
			if d.Path == locked && d.Kind == SubdirUnreadable {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected diagnostic for %s, got %v", locked, rec.list())
		}
	})
}

func TestScanSubtreeCancelledReturnsPartial(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a"), 10)
		writeFile(t, filepath.Join(dir, "b", "c"), 10)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := ScanSubtree(ctx, dir, scanOpts(engine), nil)
		if !res.Partial {
			t.Fatal("cancelled scan should be partial")
		}
		if res.Bytes != 0 {
			t.Fatalf("Bytes = %d, want 0 for a scan cancelled before it started", res.Bytes)
		}
	})
}

func TestScanSubtreeCancelledMidWalkNeverExceedsFullSize(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		dir := t.TempDir()
		for i := 0; i < 200; i++ {
			writeFile(t, filepath.Join(dir, fmt.Sprintf("d%02d", i%20), fmt.Sprintf("f%03d", i)), 64)
		}

		opts := scanOpts(engine)
		full := ScanSubtree(context.Background(), dir, opts, nil).Bytes

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan Result, 1)

		go func() {
			done <- ScanSubtree(ctx, dir, opts, nil)
		}()

		cancel()

		res := <-done
		if res.Bytes > full {
			t.Fatalf("partial Bytes %d exceeds full size %d", res.Bytes, full)
		}
		if !res.Partial && res.Bytes != full {
			t.Fatalf("finished walk reported %d, want %d", res.Bytes, full)
		}
	})
}

func TestCalculateDepth(t *testing.T) {
	root := filepath.Join("srv", "data")
	tests := []struct {
		path string
		want int
	}{
		{root, 0},
		{filepath.Join(root, "a"), 1},
		{filepath.Join(root, "a", "b"), 2},
		{filepath.Join(root, "a", "b", "c.go"), 3},
	}

	for _, tt := range tests {
		if got := calculateDepth(tt.path, root); got != tt.want {
			t.Errorf("calculateDepth(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestScanSubtreeVanishedFileIsEntryUnreadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory entries carry their info on windows")
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gone"), 500)
	writeFile(t, filepath.Join(dir, "kept"), 70)
	writeFile(t, filepath.Join(dir, "sub", "also-kept"), 7)

	original := readDir
	t.Cleanup(func() { readDir = original })

	// Remove the file after it was listed but before its size is read.
	readDir = func(name string) ([]fs.DirEntry, error) {
		entries, err := original(name)
		if name == dir {
			if rmErr := os.Remove(filepath.Join(dir, "gone")); rmErr != nil {
				t.Fatal(rmErr)
			}
		}

		return entries, err
	}

	var rec diagRecorder
	res := ScanSubtree(context.Background(), dir, scanOpts(EngineDepthFirst), rec.add)

	if res.Bytes != 77 {
		t.Fatalf("Bytes = %d, want 77", res.Bytes)
	}

	diags := rec.list()
	if len(diags) != 1 || diags[0].Kind != EntryUnreadable || diags[0].Path != filepath.Join(dir, "gone") {
		t.Fatalf("expected one entry-unreadable diagnostic for the removed file, got %v", diags)
	}
	if !errors.Is(diags[0].Err, fs.ErrNotExist) {
		t.Fatalf("diagnostic error = %v, want not-exist", diags[0].Err)
	}
}

func TestScanSubtreeUnlistableNestedDirectoryIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok"), 20)
	writeFile(t, filepath.Join(dir, "denied", "secret"), 900)
	writeFile(t, filepath.Join(dir, "sibling", "ok"), 30)

	denied := filepath.Join(dir, "denied")

	original := readDir
	t.Cleanup(func() { readDir = original })

	readDir = func(name string) ([]fs.DirEntry, error) {
		if name == denied {
			return nil, fs.ErrPermission
		}

		return original(name)
	}

	var rec diagRecorder
	res := ScanSubtree(context.Background(), dir, scanOpts(EngineDepthFirst), rec.add)

	if res.Bytes != 50 {
		t.Fatalf("Bytes = %d, want 50", res.Bytes)
	}

	diags := rec.list()
	if len(diags) != 1 || diags[0].Kind != SubdirUnreadable || diags[0].Path != denied {
		t.Fatalf("expected one subdir-unreadable diagnostic for %s, got %v", denied, diags)
	}
}

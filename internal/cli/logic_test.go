package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/idelchi/dirsizes/internal/dirsize"
	"github.com/idelchi/dirsizes/internal/logging"
)

func TestLogicLogsDiagnosticsAsOrchestrator(t *testing.T) {
	var logs bytes.Buffer

	logging.Init("json", "warn", &logs)
	t.Cleanup(func() { logging.Init("text", "warn", nil) })

	file := filepath.Join(t.TempDir(), "not-a-dir")
	writeSized(t, file, 1)

	var stdout bytes.Buffer

	opts := Options{Root: file, Scan: dirsize.DefaultOptions(), Output: "paths"}
	if err := logic(context.Background(), opts, &stdout); err != nil {
		t.Fatalf("logic: %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, `"component":"orchestrator"`) || !strings.Contains(out, `"kind":"root-unreadable"`) {
		t.Fatalf("expected a root-unreadable warning from the orchestrator component, got:\n%s", out)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no paths, got %q", stdout.String())
	}
}

package dirsize

import (
	"errors"
	"fmt"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist.
	ErrRootNotFound = errors.New("root not found")
	// ErrNotDirectory is returned by ListSubdirs when the root is not a directory.
	// Run records it as a RootUnreadable diagnostic.
	ErrNotDirectory = errors.New("root is not a directory")
	// ErrInvalidOptions wraps every Options validation failure.
	ErrInvalidOptions = errors.New("invalid scan options")
	// ErrScanInProgress is returned by Run while another scan is active on the same Orchestrator.
	ErrScanInProgress = errors.New("scan already in progress")
)

// DiagnosticKind classifies a non-fatal scan failure.
type DiagnosticKind int

const (
	// RootUnreadable means the root exists but could not be listed.
	RootUnreadable DiagnosticKind = iota + 1
	// SubdirUnreadable means a directory inside a subtree could not be opened or listed.
	SubdirUnreadable
	// EntryUnreadable means metadata for a single entry could not be read.
	EntryUnreadable
)

func (k DiagnosticKind) String() string {
	switch k {
	case RootUnreadable:
		return "root-unreadable"
	case SubdirUnreadable:
		return "subdir-unreadable"
	case EntryUnreadable:
		return "entry-unreadable"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
}

// Diagnostic records a failure that was skipped over during a scan.
type Diagnostic struct {
	Kind DiagnosticKind
	Path string
	Err  error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %v", d.Kind, d.Path, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// MarshalText renders the diagnostic for JSON output, where Err would otherwise be lost.
func (d Diagnostic) MarshalText() ([]byte, error) {
	return []byte(d.Error()), nil
}

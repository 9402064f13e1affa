package dirsize

// InodeKey identifies the storage behind a file within one device.
type InodeKey struct {
	Dev uint64
	Ino uint64
}

// DedupTracker remembers which inodes have already been counted.
// It is not safe for concurrent use; every subtree walk owns its own.
type DedupTracker struct {
	seen map[InodeKey]struct{}
}

// NewDedupTracker returns an empty tracker.
func NewDedupTracker() *DedupTracker {
	return &DedupTracker{seen: make(map[InodeKey]struct{}, 128)}
}

// ShouldCount returns true the first time key is offered and false afterwards.
func (t *DedupTracker) ShouldCount(key InodeKey) bool {
	if _, ok := t.seen[key]; ok {
		return false
	}

	t.seen[key] = struct{}{}

	return true
}

// Len returns the number of distinct keys seen.
func (t *DedupTracker) Len() int {
	return len(t.seen)
}

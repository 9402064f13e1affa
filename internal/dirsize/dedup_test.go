package dirsize

import "testing"

func TestDedupTrackerCountsFirstSightingOnly(t *testing.T) {
	tr := NewDedupTracker()
	a := InodeKey{Dev: 1, Ino: 42}

	if !tr.ShouldCount(a) {
		t.Fatal("first sighting should be counted")
	}
	if tr.ShouldCount(a) {
		t.Fatal("second sighting should not be counted")
	}
	if tr.ShouldCount(InodeKey{Dev: 1, Ino: 42}) {
		t.Fatal("equal key should not be counted again")
	}
}

func TestDedupTrackerDistinguishesDevices(t *testing.T) {
	tr := NewDedupTracker()

	if !tr.ShouldCount(InodeKey{Dev: 1, Ino: 7}) {
		t.Fatal("dev 1 ino 7 should be counted")
	}
	if !tr.ShouldCount(InodeKey{Dev: 2, Ino: 7}) {
		t.Fatal("same inode on another device should be counted")
	}
	if got := tr.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}

func TestDedupTrackersAreIndependent(t *testing.T) {
	key := InodeKey{Dev: 3, Ino: 9}

	first, second := NewDedupTracker(), NewDedupTracker()
	first.ShouldCount(key)

	if !second.ShouldCount(key) {
		t.Fatal("a fresh tracker must not share state with another")
	}
}

//go:build !windows && !plan9

package dirsize

import (
	"io/fs"
	"syscall"
)

// inodeKey extracts the device and inode numbers from lstat information.
func inodeKey(info fs.FileInfo) (InodeKey, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return InodeKey{}, false
	}

	// Dev and Ino widths differ between platforms.
	return InodeKey{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true //nolint:unconvert,gosec // platform-dependent widths
}

//go:build windows || plan9

package dirsize

import "io/fs"

// inodeKey reports no identity: lstat info here carries no file index,
// so every file is counted.
func inodeKey(fs.FileInfo) (InodeKey, bool) {
	return InodeKey{}, false
}

// Package dirsize reports the total size of each immediate subdirectory of a root.
//
// Every subdirectory is walked independently on a bounded worker pool. A walk
// never follows symbolic links, optionally counts hardlinked files once,
// honors a depth limit and glob exclusions, and stops early when its context
// is cancelled, returning whatever it has summed so far. Results are sorted
// by size, largest first, with ties kept in enumeration order.
package dirsize

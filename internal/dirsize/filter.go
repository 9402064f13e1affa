package dirsize

import "path"

// IsExcluded reports whether name matches any of the shell glob patterns.
// Matching is against the bare entry name. A malformed pattern matches nothing.
func IsExcluded(name string, patterns []string) bool {
	for _, p := range patterns {
		// path.Match rather than filepath.Match: names carry no separators,
		// and '\' must stay an escape on every platform.
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}

	return false
}

package model

import "strings"

const duplicatePrefix = "_"

// HasDuplicates reports whether any dimension name appears more than once.
func HasDuplicates(dims []string) bool {
	_, ok := FirstDuplicate(dims)
	return ok
}

// FirstDuplicate returns the position of the first repeated dimension name.
func FirstDuplicate(dims []string) (int, bool) {
	seen := make(map[string]bool, len(dims))
	for i, d := range dims {
		if seen[d] {
			return i, true
		}
		seen[d] = true
	}
	return 0, false
}

// RenameDuplicates returns a copy of dims where every repeated name gets a
// leading underscore until it is unique, e.g. REGION,REGION becomes
// REGION,_REGION.
func RenameDuplicates(dims []string) []string {
	out := make([]string, len(dims))
	copy(out, dims)
	for {
		i, ok := FirstDuplicate(out)
		if !ok {
			return out
		}
		out[i] = duplicatePrefix + out[i]
	}
}

func trimDuplicatePrefix(dim string) string {
	return strings.TrimLeft(dim, duplicatePrefix)
}

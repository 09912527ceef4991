// Package util contains helper functions used around the code.
package util

import "sort"

// In returns true if s is found in ss, false otherwise
func In(ss []string, s string) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}

	return false
}

// UniqueSorted returns the non empty strings of ss sorted and without repetitions.
func UniqueSorted(ss []string) []string {
	out := make([]string, 0, len(ss))

	for _, s := range ss {
		if s != "" && !In(out, s) {
			out = append(out, s)
		}
	}

	sort.Strings(out)

	return out
}

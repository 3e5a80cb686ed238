package utility

import (
	"sort"
	"strings"
)

// FindMatchingURL resolves a symbolic image ref against uploaded file names.
// Exact name first, then case-insensitive, then (for refs without an extension)
// any name that is the ref plus an extension, so "figure1" finds "Figure1.PNG".
func FindMatchingURL(ref string, uploaded map[string]string) (string, bool) {
	if ref == "" || len(uploaded) == 0 {
		return "", false
	}
	if url, ok := uploaded[ref]; ok {
		return url, true
	}

	names := make([]string, 0, len(uploaded))
	for name := range uploaded {
		names = append(names, name)
	}
	sort.Strings(names)

	lower := strings.ToLower(ref)
	for _, name := range names {
		if strings.ToLower(name) == lower {
			return uploaded[name], true
		}
	}

	if !strings.Contains(ref, ".") {
		prefix := lower + "."
		for _, name := range names {
			if strings.HasPrefix(strings.ToLower(name), prefix) {
				return uploaded[name], true
			}
		}
	}
	return "", false
}

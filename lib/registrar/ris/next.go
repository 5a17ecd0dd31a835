package ris

import (
	"slices"
	"time"
)

// Next returns the window that is open at now, or else the earliest one
// that opens after now.
func Next(windows []Window, now time.Time) (Window, bool) {
	sorted := slices.Clone(windows)
	slices.SortFunc(sorted, func(a, b Window) int {
		return a.Start.Compare(b.Start)
	})
	for _, w := range sorted {
		if now.Before(w.Stop) {
			return w, true
		}
	}
	return Window{}, false
}

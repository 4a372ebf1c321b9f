package booking

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the window has positive duration.
func (w Window) Valid() bool {
	return w.Start.Before(w.End)
}

// Overlaps reports whether two half-open windows intersect. Windows that
// merely touch (one ends exactly when the other starts) do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Entry is the minimal booking shape needed for conflict detection.
type Entry struct {
	ID    string
	Title string
	Start time.Time
	End   time.Time
}

// Window returns the entry's time window.
func (e Entry) Window() Window {
	return Window{Start: e.Start, End: e.End}
}

// FindConflicts returns the entries whose windows overlap the candidate
// window, preserving the order of the input. An entry whose ID equals
// excludeID is never reported, so a booking cannot conflict with itself.
func FindConflicts(existing []Entry, candidate Window, excludeID string) []Entry {
	var conflicts []Entry
	for _, entry := range existing {
		if excludeID != "" && entry.ID == excludeID {
			continue
		}
		if entry.Window().Overlaps(candidate) {
			conflicts = append(conflicts, entry)
		}
	}
	return conflicts
}

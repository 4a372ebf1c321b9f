package booking

import (
	"testing"
	"time"
)

func mustUTC(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2025, 3, 15, hour, minute, 0, 0, time.UTC)
}

func TestWindowValid(t *testing.T) {
	t.Parallel()

	valid := Window{Start: mustUTC(t, 10, 0), End: mustUTC(t, 11, 0)}
	if !valid.Valid() {
		t.Fatalf("expected window %v to be valid", valid)
	}

	inverted := Window{Start: mustUTC(t, 11, 0), End: mustUTC(t, 10, 0)}
	if inverted.Valid() {
		t.Fatalf("expected inverted window to be invalid")
	}

	empty := Window{Start: mustUTC(t, 10, 0), End: mustUTC(t, 10, 0)}
	if empty.Valid() {
		t.Fatalf("expected zero-length window to be invalid")
	}
}

func TestWindowOverlaps(t *testing.T) {
	t.Parallel()

	base := Window{Start: mustUTC(t, 10, 0), End: mustUTC(t, 11, 0)}

	cases := []struct {
		name  string
		other Window
		want  bool
	}{
		{"identical", Window{mustUTC(t, 10, 0), mustUTC(t, 11, 0)}, true},
		{"partial overlap from the right", Window{mustUTC(t, 10, 30), mustUTC(t, 11, 30)}, true},
		{"partial overlap from the left", Window{mustUTC(t, 9, 30), mustUTC(t, 10, 30)}, true},
		{"fully contained", Window{mustUTC(t, 10, 15), mustUTC(t, 10, 45)}, true},
		{"fully containing", Window{mustUTC(t, 9, 0), mustUTC(t, 12, 0)}, true},
		{"touching at end", Window{mustUTC(t, 11, 0), mustUTC(t, 12, 0)}, false},
		{"touching at start", Window{mustUTC(t, 9, 0), mustUTC(t, 10, 0)}, false},
		{"disjoint", Window{mustUTC(t, 12, 0), mustUTC(t, 13, 0)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := base.Overlaps(tc.other); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", base, tc.other, got, tc.want)
			}
			// Overlap is symmetric.
			if got := tc.other.Overlaps(base); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.other, base, got, tc.want)
			}
		})
	}
}

func TestFindConflicts(t *testing.T) {
	t.Parallel()

	existing := []Entry{
		{ID: "b1", Title: "Standup", Start: mustUTC(t, 9, 0), End: mustUTC(t, 9, 30)},
		{ID: "b2", Title: "Design review", Start: mustUTC(t, 10, 0), End: mustUTC(t, 11, 0)},
		{ID: "b3", Title: "1:1", Start: mustUTC(t, 11, 0), End: mustUTC(t, 11, 30)},
	}

	candidate := Window{Start: mustUTC(t, 10, 30), End: mustUTC(t, 11, 30)}

	conflicts := FindConflicts(existing, candidate, "")
	if len(conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d: %+v", len(conflicts), conflicts)
	}
	if conflicts[0].ID != "b2" || conflicts[1].ID != "b3" {
		t.Fatalf("expected conflicts ordered b2, b3; got %+v", conflicts)
	}
}

func TestFindConflictsExcludesSelf(t *testing.T) {
	t.Parallel()

	existing := []Entry{
		{ID: "b1", Title: "Design review", Start: mustUTC(t, 10, 0), End: mustUTC(t, 11, 0)},
	}

	conflicts := FindConflicts(existing, existing[0].Window(), "b1")
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts when excluding the booking itself, got %+v", conflicts)
	}
}

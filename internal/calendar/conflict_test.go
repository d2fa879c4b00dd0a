package calendar

import (
	"testing"
)

func conflictIDs(intervals []Interval) []string {
	ids := make([]string, len(intervals))
	for i, iv := range intervals {
		ids[i] = iv.ID
	}
	return ids
}

func TestFindConflicts(t *testing.T) {
	t.Parallel()

	existing := []Interval{
		mustInterval(t, "morning", "v1", at(0, 8), at(0, 12), StatusActive),
		mustInterval(t, "noon", "v1", at(0, 11), at(0, 14), StatusPending),
		mustInterval(t, "done", "v1", at(0, 9), at(0, 10), StatusCompleted),
		mustInterval(t, "cancelled", "v1", at(0, 9), at(0, 10), StatusCancelled),
		mustInterval(t, "other", "v2", at(0, 9), at(0, 10), StatusActive),
	}

	tests := []struct {
		name      string
		candidate Candidate
		want      []string
	}{
		{
			name:      "overlaps both blocking",
			candidate: Candidate{ResourceID: "v1", Start: at(0, 9), End: at(0, 13)},
			want:      []string{"morning", "noon"},
		},
		{
			name:      "touching end is free",
			candidate: Candidate{ResourceID: "v1", Start: at(0, 14), End: at(0, 16)},
		},
		{
			name:      "touching start is free",
			candidate: Candidate{ResourceID: "v1", Start: at(0, 6), End: at(0, 8)},
		},
		{
			name:      "exclude self",
			candidate: Candidate{ResourceID: "v1", Start: at(0, 8), End: at(0, 10), ExcludeID: "morning"},
		},
		{
			name:      "other resource",
			candidate: Candidate{ResourceID: "v2", Start: at(0, 8), End: at(0, 12)},
			want:      []string{"other"},
		},
		{
			name:      "unknown resource",
			candidate: Candidate{ResourceID: "v3", Start: at(0, 0), End: at(1, 0)},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := conflictIDs(FindConflicts(tc.candidate, existing))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestFindConflictsOrdering(t *testing.T) {
	t.Parallel()

	existing := []Interval{
		mustInterval(t, "c", "v", at(0, 10), at(0, 11), StatusActive),
		mustInterval(t, "b", "v", at(0, 8), at(0, 9), StatusActive),
		mustInterval(t, "a", "v", at(0, 10), at(0, 12), StatusPending),
	}
	got := conflictIDs(FindConflicts(Candidate{ResourceID: "v", Start: at(0, 0), End: at(1, 0)}, existing))
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestFindConflictsSymmetric(t *testing.T) {
	t.Parallel()

	pairs := []struct{ a, b Interval }{
		{mustInterval(t, "a", "v", at(0, 8), at(0, 12), StatusActive), mustInterval(t, "b", "v", at(0, 10), at(0, 14), StatusActive)},
		{mustInterval(t, "a", "v", at(0, 8), at(0, 12), StatusActive), mustInterval(t, "b", "v", at(0, 12), at(0, 14), StatusActive)},
		{mustInterval(t, "a", "v", at(0, 8), at(2, 0), StatusPending), mustInterval(t, "b", "v", at(1, 1), at(1, 2), StatusActive)},
	}
	for _, p := range pairs {
		ab := len(FindConflicts(Candidate{ResourceID: "v", Start: p.a.Start, End: p.a.End}, []Interval{p.b})) > 0
		ba := len(FindConflicts(Candidate{ResourceID: "v", Start: p.b.Start, End: p.b.End}, []Interval{p.a})) > 0
		if ab != ba {
			t.Fatalf("conflict not symmetric for %v / %v", p.a, p.b)
		}
	}
}

func TestFindAvailable(t *testing.T) {
	t.Parallel()

	existing := []Interval{
		mustInterval(t, "r1", "v1", at(0, 8), at(0, 12), StatusActive),
		mustInterval(t, "r2", "v2", at(0, 12), at(0, 14), StatusPending),
		mustInterval(t, "r3", "v3", at(0, 9), at(0, 10), StatusCancelled),
	}
	resources := []string{"v4", "v3", "v2", "v1"}
	candidate := Candidate{ResourceID: "ignored", Start: at(0, 10), End: at(0, 12)}

	got := FindAvailable(candidate, resources, existing)
	want := []string{"v4", "v3", "v2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	// A resource is available exactly when it has no conflicts.
	for _, resource := range resources {
		c := candidate
		c.ResourceID = resource
		free := len(FindConflicts(c, existing)) == 0
		listed := false
		for _, id := range got {
			if id == resource {
				listed = true
			}
		}
		if free != listed {
			t.Fatalf("%s: conflict-free=%v but available=%v", resource, free, listed)
		}
	}
}

func TestFindAvailableExcludesEditedBooking(t *testing.T) {
	t.Parallel()

	existing := []Interval{mustInterval(t, "r1", "v1", at(0, 8), at(0, 12), StatusActive)}
	candidate := Candidate{Start: at(0, 9), End: at(0, 11), ExcludeID: "r1"}

	got := FindAvailable(candidate, []string{"v1"}, existing)
	if len(got) != 1 || got[0] != "v1" {
		t.Fatalf("expected v1 to be available when editing its own booking, got %v", got)
	}
}

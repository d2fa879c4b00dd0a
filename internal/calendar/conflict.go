package calendar

import (
	"sort"
	"time"
)

// Candidate describes a booking that is being proposed or edited.
type Candidate struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	// ExcludeID skips the booking being edited so it never conflicts with
	// itself.
	ExcludeID string
}

// FindConflicts returns the blocking bookings of the candidate's resource
// that overlap the candidate range, ordered by start then id.
//
// The result reflects the supplied snapshot only. Stores that accept the
// booking must repeat the check when committing.
func FindConflicts(candidate Candidate, existing []Interval) []Interval {
	var conflicts []Interval
	for _, iv := range existing {
		if iv.ResourceID != candidate.ResourceID {
			continue
		}
		if conflictsWith(candidate, iv) {
			conflicts = append(conflicts, iv)
		}
	}
	sortByStart(conflicts)
	return conflicts
}

// FindAvailable returns the resources with no blocking booking overlapping
// the candidate range. The candidate's ResourceID is ignored; resources keep
// their input order.
func FindAvailable(candidate Candidate, resources []string, existing []Interval) []string {
	busy := make(map[string]struct{})
	for _, iv := range existing {
		if _, already := busy[iv.ResourceID]; already {
			continue
		}
		if conflictsWith(candidate, iv) {
			busy[iv.ResourceID] = struct{}{}
		}
	}

	available := make([]string, 0, len(resources))
	for _, resource := range resources {
		if _, taken := busy[resource]; taken {
			continue
		}
		available = append(available, resource)
	}
	return available
}

// conflictsWith applies every conflict rule except the resource match.
func conflictsWith(candidate Candidate, iv Interval) bool {
	if candidate.ExcludeID != "" && iv.ID == candidate.ExcludeID {
		return false
	}
	if !iv.Status.Blocking() {
		return false
	}
	return iv.Overlaps(candidate.Start, candidate.End)
}

func sortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].ID < intervals[j].ID
		}
		return intervals[i].Start.Before(intervals[j].Start)
	})
}

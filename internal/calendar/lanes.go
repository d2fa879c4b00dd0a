package calendar

import (
	"sort"
	"time"
)

// LaneAssignment maps interval ids to the lane they are drawn in. It is only
// meaningful for the window it was computed against.
type LaneAssignment map[string]int

// Count returns the number of lanes in use.
func (a LaneAssignment) Count() int {
	count := 0
	for _, lane := range a {
		if lane+1 > count {
			count = lane + 1
		}
	}
	return count
}

// Lane returns the lane of the interval id and whether it was placed.
func (a LaneAssignment) Lane(id string) (int, bool) {
	lane, ok := a[id]
	return lane, ok
}

// clampedInterval is an interval projected onto a window.
type clampedInterval struct {
	id    string
	start time.Time
	end   time.Time
}

// AssignLanes places every blocking interval visible in [windowStart,
// windowEnd) into the lowest lane whose previous occupant has ended.
//
// Intervals are ordered by clamped start, clamped end and id so repeated
// renders of the same snapshot produce the same lanes. The greedy first-fit
// over start-ordered intervals uses as many lanes as the largest set of
// mutually overlapping intervals.
func AssignLanes(intervals []Interval, windowStart, windowEnd time.Time) LaneAssignment {
	visible := visibleIntervals(intervals, windowStart, windowEnd)
	assignment := make(LaneAssignment, len(visible))
	if len(visible) == 0 {
		return assignment
	}

	// laneEnds[i] is the clamped end of the last interval placed in lane i.
	laneEnds := make([]time.Time, 0, 4)
	for _, iv := range visible {
		lane := -1
		for i, end := range laneEnds {
			if !end.After(iv.start) {
				lane = i
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, iv.end)
		} else {
			laneEnds[lane] = iv.end
		}
		assignment[iv.id] = lane
	}
	return assignment
}

func visibleIntervals(intervals []Interval, windowStart, windowEnd time.Time) []clampedInterval {
	visible := make([]clampedInterval, 0, len(intervals))
	seen := make(map[string]struct{}, len(intervals))
	for _, iv := range intervals {
		if !iv.Status.Blocking() {
			continue
		}
		if _, dup := seen[iv.ID]; dup {
			continue
		}
		start, end, ok := clamp(iv.Start, iv.End, windowStart, windowEnd)
		if !ok {
			continue
		}
		seen[iv.ID] = struct{}{}
		visible = append(visible, clampedInterval{id: iv.ID, start: start, end: end})
	}

	sort.Slice(visible, func(i, j int) bool {
		a, b := visible[i], visible[j]
		if !a.start.Equal(b.start) {
			return a.start.Before(b.start)
		}
		if !a.end.Equal(b.end) {
			return a.end.Before(b.end)
		}
		return a.id < b.id
	})
	return visible
}

// MaxConcurrent returns the largest number of blocking intervals that share a
// single instant within the window. A correct lane assignment uses exactly
// this many lanes.
func MaxConcurrent(intervals []Interval, windowStart, windowEnd time.Time) int {
	type event struct {
		at    time.Time
		delta int
	}
	visible := visibleIntervals(intervals, windowStart, windowEnd)
	events := make([]event, 0, len(visible)*2)
	for _, iv := range visible {
		events = append(events, event{at: iv.start, delta: 1}, event{at: iv.end, delta: -1})
	}
	// Ends sort before starts at the same instant: touching is not overlapping.
	sort.Slice(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		return events[i].delta < events[j].delta
	})

	current, peak := 0, 0
	for _, e := range events {
		current += e.delta
		if current > peak {
			peak = current
		}
	}
	return peak
}

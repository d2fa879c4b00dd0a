package calendar

import (
	"testing"
	"time"
)

func layoutSegments(t *testing.T, window Window, intervals ...Interval) []Segment {
	t.Helper()
	lanes := AssignLanes(intervals, window.Start(), window.End)
	return SegmentIntervals(intervals, lanes, window)
}

func TestSegmentIntervalsAcrossRows(t *testing.T) {
	t.Parallel()

	w := MonthWindow(2024, time.May, time.UTC)
	// Grid starts Mon Apr 29. Thursday of row 0 through Tuesday of row 2.
	start := time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 14, 17, 0, 0, 0, time.UTC)
	iv := mustInterval(t, "trip", "v", start, end, StatusActive)

	segments := layoutSegments(t, w, iv)

	want := []Segment{
		{Row: 0, StartCol: 3, EndCol: 6, IntervalID: "trip"},
		{Row: 1, StartCol: 0, EndCol: 6, IntervalID: "trip"},
		{Row: 2, StartCol: 0, EndCol: 1, IntervalID: "trip"},
	}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(segments), segments)
	}
	for i := range want {
		if segments[i] != want[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, segments[i], want[i])
		}
	}
}

func TestSegmentIntervalsSingleDay(t *testing.T) {
	t.Parallel()

	w := WeekWindow(monday, time.UTC)
	segments := layoutSegments(t, w, mustInterval(t, "r", "v", at(2, 9), at(2, 17), StatusPending))

	if len(segments) != 1 {
		t.Fatalf("expected one segment, got %+v", segments)
	}
	if s := segments[0]; s.StartCol != 2 || s.EndCol != 2 || s.Span() != 1 {
		t.Fatalf("unexpected segment %+v", s)
	}
}

func TestSegmentIntervalsEndOnBoundary(t *testing.T) {
	t.Parallel()

	w := WeekWindow(monday, time.UTC)
	// Ends at Wednesday midnight, so Wednesday's cell is not covered.
	segments := layoutSegments(t, w, mustInterval(t, "r", "v", at(0, 12), at(2, 0), StatusActive))

	if len(segments) != 1 || segments[0].StartCol != 0 || segments[0].EndCol != 1 {
		t.Fatalf("expected columns 0-1, got %+v", segments)
	}
}

func TestSegmentIntervalsClampedToWindow(t *testing.T) {
	t.Parallel()

	w := WeekWindow(monday, time.UTC)
	segments := layoutSegments(t, w, mustInterval(t, "r", "v", at(-3, 0), at(10, 0), StatusActive))

	if len(segments) != 1 {
		t.Fatalf("expected one segment, got %+v", segments)
	}
	if s := segments[0]; s.StartCol != 0 || s.EndCol != 6 {
		t.Fatalf("expected full-width segment, got %+v", s)
	}
}

func TestSegmentIntervalsOutsideWindow(t *testing.T) {
	t.Parallel()

	w := WeekWindow(monday, time.UTC)
	segments := layoutSegments(t, w,
		mustInterval(t, "before", "v", at(-2, 0), at(0, 0), StatusActive),
		mustInterval(t, "after", "v", at(7, 0), at(8, 0), StatusActive),
	)
	if len(segments) != 0 {
		t.Fatalf("expected no segments, got %+v", segments)
	}
}

func TestSegmentIntervalsWithoutLane(t *testing.T) {
	t.Parallel()

	w := WeekWindow(monday, time.UTC)
	iv := mustInterval(t, "r", "v", at(1, 0), at(2, 0), StatusActive)
	if segments := SegmentIntervals([]Interval{iv}, LaneAssignment{}, w); len(segments) != 0 {
		t.Fatalf("expected unlaned interval to be skipped, got %+v", segments)
	}
}

func TestSegmentIntervalsSkipsNonBlockingDuplicate(t *testing.T) {
	t.Parallel()

	w := WeekWindow(monday, time.UTC)
	cancelled := mustInterval(t, "x", "v", at(0, 0), at(5, 0), StatusCancelled)
	active := mustInterval(t, "x", "v", at(5, 8), at(5, 9), StatusActive)

	segments := layoutSegments(t, w, cancelled, active)
	if len(segments) != 1 {
		t.Fatalf("expected one segment, got %+v", segments)
	}
	got := segments[0]
	if got.IntervalID != "x" || got.StartCol != 5 || got.EndCol != 5 || got.Lane != 0 {
		t.Fatalf("expected the active Saturday booking only, got %+v", got)
	}

	if segments := layoutSegments(t, w, cancelled); len(segments) != 0 {
		t.Fatalf("expected cancelled interval to be hidden, got %+v", segments)
	}
}

func TestSegmentIntervalsRowCoverage(t *testing.T) {
	t.Parallel()

	w := MonthWindow(2024, time.May, time.UTC)
	intervals := []Interval{
		mustInterval(t, "a", "v", time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC), time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC), StatusActive),
		mustInterval(t, "b", "v", time.Date(2024, time.May, 10, 6, 0, 0, 0, time.UTC), time.Date(2024, time.May, 11, 6, 0, 0, 0, time.UTC), StatusPending),
	}
	lanes := AssignLanes(intervals, w.Start(), w.End)
	segments := SegmentIntervals(intervals, lanes, w)

	for _, iv := range intervals {
		first, last, _ := cellRange(w, iv)
		covered := 0
		for _, s := range segments {
			if s.IntervalID != iv.ID {
				continue
			}
			if s.Lane != lanes[iv.ID] {
				t.Fatalf("segment lane %d differs from assigned lane %d", s.Lane, lanes[iv.ID])
			}
			covered += s.Span()
		}
		if want := last - first + 1; covered != want {
			t.Fatalf("%s: segments cover %d cells, want %d", iv.ID, covered, want)
		}
	}

	for i := 1; i < len(segments); i++ {
		if segments[i-1].Row > segments[i].Row {
			t.Fatalf("segments not ordered by row: %+v", segments)
		}
	}
}

func TestDensityFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		span int
		want LabelDensity
	}{
		{span: 1, want: LabelGlyph},
		{span: 2, want: LabelCompact},
		{span: 3, want: LabelFull},
		{span: 7, want: LabelFull},
	}
	for _, tc := range tests {
		s := Segment{StartCol: 0, EndCol: tc.span - 1}
		if got := DensityFor(s); got != tc.want {
			t.Fatalf("span %d: got %s, want %s", tc.span, got, tc.want)
		}
	}
}

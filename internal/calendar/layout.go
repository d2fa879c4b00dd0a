package calendar

// Layout is everything a renderer needs to draw bookings on a window grid.
type Layout struct {
	Window    Window
	Lanes     LaneAssignment
	LaneCount int
	Segments  []Segment
	// RowLaneCounts holds, per row, one more than the highest lane drawn in
	// that row, or zero for empty rows.
	RowLaneCounts []int
}

// BuildLayout assigns lanes across the whole window and segments the
// intervals into grid rows.
func BuildLayout(intervals []Interval, window Window) Layout {
	lanes := AssignLanes(intervals, window.Start(), window.End)
	segments := SegmentIntervals(intervals, lanes, window)

	rowLanes := make([]int, window.Rows())
	for _, s := range segments {
		if s.Row < len(rowLanes) && s.Lane+1 > rowLanes[s.Row] {
			rowLanes[s.Row] = s.Lane + 1
		}
	}

	return Layout{
		Window:        window,
		Lanes:         lanes,
		LaneCount:     lanes.Count(),
		Segments:      segments,
		RowLaneCounts: rowLanes,
	}
}

// SegmentsFor returns the segments drawn for one interval.
func (l Layout) SegmentsFor(id string) []Segment {
	var out []Segment
	for _, s := range l.Segments {
		if s.IntervalID == id {
			out = append(out, s)
		}
	}
	return out
}

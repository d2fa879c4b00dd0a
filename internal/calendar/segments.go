package calendar

import "sort"

// Segment is the part of one interval's bar drawn within a single grid row.
// StartCol and EndCol are inclusive.
type Segment struct {
	Row        int
	StartCol   int
	EndCol     int
	Lane       int
	IntervalID string
}

// Span returns the number of cells covered by the segment.
func (s Segment) Span() int {
	return s.EndCol - s.StartCol + 1
}

// SegmentIntervals cuts every laned blocking interval into per-row segments
// of the window grid. Non-blocking intervals, intervals without a lane and
// intervals with nothing visible in the window produce no segments.
func SegmentIntervals(intervals []Interval, lanes LaneAssignment, window Window) []Segment {
	if window.RowWidth <= 0 || len(window.Cells) == 0 {
		return nil
	}

	segments := make([]Segment, 0, len(intervals))
	emitted := make(map[string]struct{}, len(intervals))
	for _, iv := range intervals {
		if !iv.Status.Blocking() {
			continue
		}
		lane, ok := lanes.Lane(iv.ID)
		if !ok {
			continue
		}
		if _, dup := emitted[iv.ID]; dup {
			continue
		}
		first, last, ok := cellRange(window, iv)
		if !ok {
			continue
		}
		emitted[iv.ID] = struct{}{}
		segments = append(segments, rowSegments(window, first, last, lane, iv.ID)...)
	}

	sort.Slice(segments, func(i, j int) bool {
		a, b := segments[i], segments[j]
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		if a.Lane != b.Lane {
			return a.Lane < b.Lane
		}
		if a.StartCol != b.StartCol {
			return a.StartCol < b.StartCol
		}
		return a.IntervalID < b.IntervalID
	})
	return segments
}

// cellRange returns the first and last cell indexes touched by the
// interval's clamped range. The end bound is exclusive, so an interval
// ending exactly on a cell boundary does not reach into the next cell.
func cellRange(window Window, iv Interval) (int, int, bool) {
	start, end, ok := window.Clamp(iv.Start, iv.End)
	if !ok {
		return 0, 0, false
	}
	first := window.CellOf(start)
	last := window.CellOf(end)
	if last < 0 {
		// end == window.End
		last = len(window.Cells) - 1
	} else if window.Cells[last].Equal(end) {
		last--
	}
	if first < 0 || last < first {
		return 0, 0, false
	}
	return first, last, true
}

func rowSegments(window Window, first, last, lane int, id string) []Segment {
	firstRow, lastRow := window.RowOf(first), window.RowOf(last)
	out := make([]Segment, 0, lastRow-firstRow+1)
	for row := firstRow; row <= lastRow; row++ {
		startCol := 0
		if row == firstRow {
			startCol = window.ColOf(first)
		}
		endCol := window.RowWidth - 1
		if row == lastRow {
			endCol = window.ColOf(last)
		}
		out = append(out, Segment{
			Row:        row,
			StartCol:   startCol,
			EndCol:     endCol,
			Lane:       lane,
			IntervalID: id,
		})
	}
	return out
}

// LabelDensity describes how much text fits on a segment bar.
type LabelDensity string

const (
	// LabelFull shows resource and holder.
	LabelFull LabelDensity = "full"
	// LabelCompact shows the resource only.
	LabelCompact LabelDensity = "compact"
	// LabelGlyph shows a placeholder glyph.
	LabelGlyph LabelDensity = "glyph"
)

// DensityFor picks the label density for a segment from its column span.
func DensityFor(s Segment) LabelDensity {
	switch span := s.Span(); {
	case span >= 3:
		return LabelFull
	case span == 2:
		return LabelCompact
	default:
		return LabelGlyph
	}
}

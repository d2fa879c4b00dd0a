package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// View identifies the grid shape of a window.
type View string

const (
	// ViewMonth is six rows of seven day cells.
	ViewMonth View = "month"
	// ViewWeek is a single row of seven day cells.
	ViewWeek View = "week"
	// ViewDay is a single row of twenty-four hour cells.
	ViewDay View = "day"
	// ViewCustom is any window built through NewWindow.
	ViewCustom View = "custom"
)

const (
	daysPerWeek    = 7
	monthGridRows  = 6
	monthGridCells = monthGridRows * daysPerWeek
	hoursPerDay    = 24
)

// ErrInvalidWindow indicates the window cells are not contiguous and ordered.
var ErrInvalidWindow = errors.New("calendar: invalid window")

// Window is the contiguous span of calendar cells currently rendered,
// partitioned into rows of RowWidth cells.
type Window struct {
	View     View
	RowWidth int
	// Cells holds the start instant of every cell in chronological order.
	Cells []time.Time
	// End is the exclusive end of the last cell.
	End time.Time
}

// NewWindow validates cell boundaries and builds a custom window.
func NewWindow(starts []time.Time, end time.Time, rowWidth int) (Window, error) {
	if rowWidth <= 0 {
		return Window{}, fmt.Errorf("%w: row width must be positive", ErrInvalidWindow)
	}
	if len(starts) == 0 || len(starts)%rowWidth != 0 {
		return Window{}, fmt.Errorf("%w: %d cells do not fill rows of %d", ErrInvalidWindow, len(starts), rowWidth)
	}
	cells := make([]time.Time, len(starts))
	for i, start := range starts {
		cells[i] = start.UTC()
		if i > 0 && !cells[i-1].Before(cells[i]) {
			return Window{}, fmt.Errorf("%w: cell %d does not follow cell %d", ErrInvalidWindow, i, i-1)
		}
	}
	end = end.UTC()
	if !cells[len(cells)-1].Before(end) {
		return Window{}, fmt.Errorf("%w: end must follow the last cell", ErrInvalidWindow)
	}
	return Window{View: ViewCustom, RowWidth: rowWidth, Cells: cells, End: end}, nil
}

// MonthWindow returns the 42 day grid covering the given month. The grid
// starts on the Monday on or before the first day of the month.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	loc = locationOrUTC(loc)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return dayWindow(ViewMonth, mondayOnOrBefore(first), monthGridCells)
}

// WeekWindow returns the Monday-start week containing ref.
func WeekWindow(ref time.Time, loc *time.Location) Window {
	loc = locationOrUTC(loc)
	return dayWindow(ViewWeek, mondayOnOrBefore(startOfDay(ref, loc)), daysPerWeek)
}

// DayWindow returns the twenty-four hour cells of the day containing ref.
// On days with a daylight saving shift the last cell absorbs the difference
// so the window still ends at the next local midnight.
func DayWindow(ref time.Time, loc *time.Location) Window {
	loc = locationOrUTC(loc)
	day := startOfDay(ref, loc)
	next := day.AddDate(0, 0, 1)

	cells := make([]time.Time, 0, hoursPerDay)
	for h := 0; h < hoursPerDay; h++ {
		cell := day.Add(time.Duration(h) * time.Hour)
		if !cell.Before(next) {
			cell = next.Add(-time.Duration(hoursPerDay-h) * time.Minute)
		}
		cells = append(cells, cell.UTC())
	}
	return Window{View: ViewDay, RowWidth: hoursPerDay, Cells: cells, End: next.UTC()}
}

func dayWindow(view View, first time.Time, count int) Window {
	cells := make([]time.Time, count)
	for i := range cells {
		cells[i] = first.AddDate(0, 0, i).UTC()
	}
	return Window{
		View:     view,
		RowWidth: daysPerWeek,
		Cells:    cells,
		End:      first.AddDate(0, 0, count).UTC(),
	}
}

// Start returns the first instant of the window.
func (w Window) Start() time.Time {
	if len(w.Cells) == 0 {
		return time.Time{}
	}
	return w.Cells[0]
}

// Rows returns the number of rows in the grid.
func (w Window) Rows() int {
	if w.RowWidth <= 0 {
		return 0
	}
	return len(w.Cells) / w.RowWidth
}

// CellEnd returns the exclusive end of cell i.
func (w Window) CellEnd(i int) time.Time {
	if i+1 < len(w.Cells) {
		return w.Cells[i+1]
	}
	return w.End
}

// CellOf returns the index of the cell containing t, or -1 when t lies
// outside the window.
func (w Window) CellOf(t time.Time) int {
	if len(w.Cells) == 0 || t.Before(w.Cells[0]) || !t.Before(w.End) {
		return -1
	}
	// First cell starting after t, minus one.
	return sort.Search(len(w.Cells), func(i int) bool { return w.Cells[i].After(t) }) - 1
}

// Clamp restricts [start, end) to the window. ok is false when nothing of
// the range remains visible.
func (w Window) Clamp(start, end time.Time) (time.Time, time.Time, bool) {
	return clamp(start, end, w.Start(), w.End)
}

func clamp(start, end, windowStart, windowEnd time.Time) (time.Time, time.Time, bool) {
	s := maxTime(start, windowStart)
	e := minTime(end, windowEnd)
	if !s.Before(e) {
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}

// RowOf returns the row index of cell i.
func (w Window) RowOf(i int) int { return i / w.RowWidth }

// ColOf returns the column of cell i within its row.
func (w Window) ColOf(i int) int { return i % w.RowWidth }

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func mondayOnOrBefore(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % daysPerWeek
	return day.AddDate(0, 0, -offset)
}

package event

import "time"

const (
	GridWeeks = 6
	GridCells = GridWeeks * 7
)

// Day is one cell of a month grid. Cells of adjacent months have InMonth unset and no events.
type Day struct {
	Date    time.Time `json:"date"`
	Day     int       `json:"day"`
	InMonth bool      `json:"in_month"`
	IsToday bool      `json:"is_today,omitempty"`
	Events  []Event   `json:"events"`
}

type MonthGrid struct {
	Year  int               `json:"year"`
	Month time.Month        `json:"month"`
	Weeks [GridWeeks][7]Day `json:"weeks"`
}

// Days returns the grid cells in order.
func (g MonthGrid) Days() []Day {
	days := make([]Day, 0, GridCells)
	for _, week := range g.Weeks {
		days = append(days, week[:]...)
	}
	return days
}

// BuildMonthGrid lays out the given month on a 6x7 grid, weeks starting on Sunday,
// and buckets events onto the cell of their day in loc. Events outside the month are dropped.
func BuildMonthGrid(year int, month time.Month, events []Event, loc *time.Location, today time.Time) MonthGrid {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := int(first.Weekday()) // Sunday = 0
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byDay := make(map[int][]Event, daysInMonth)
	for _, evt := range events {
		d := evt.Date.In(loc)
		if d.Year() == first.Year() && d.Month() == first.Month() {
			byDay[d.Day()] = append(byDay[d.Day()], evt)
		}
	}

	ty, tm, td := today.In(loc).Date()
	grid := MonthGrid{Year: first.Year(), Month: first.Month()}
	start := first.AddDate(0, 0, -offset)
	for i := 0; i < GridCells; i++ {
		date := start.AddDate(0, 0, i)
		cell := Day{
			Date:    date,
			Day:     date.Day(),
			InMonth: date.Month() == first.Month(),
			Events:  []Event{},
		}
		if cell.InMonth {
			if evts, ok := byDay[cell.Day]; ok {
				cell.Events = evts
			}
		}
		y, m, d := date.Date()
		cell.IsToday = y == ty && m == tm && d == td
		grid.Weeks[i/7][i%7] = cell
	}
	return grid
}

// monthRange returns the first instant of the month and the first instant of the next one, in loc.
func monthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return first, first.AddDate(0, 1, 0)
}

// dayRange returns the start and end of the day of t, in loc.
func dayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

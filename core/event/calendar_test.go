package event

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/core/record"
)

func newEvent(id, title string, date time.Time) Event {
	return Event{System: record.System{ID: id}, Title: title, Date: date, Type: TypeMeeting}
}

func TestBuildMonthGrid(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)

	t.Run("month starting on saturday", func(t *testing.T) {
		events := []Event{
			newEvent("1", "Cleanup", time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)),
			newEvent("2", "Meeting", time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)),
			newEvent("3", "Next month", time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)),
		}
		today := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
		grid := BuildMonthGrid(2025, time.March, events, time.UTC, today)

		days := grid.Days()
		require.Len(t, days, GridCells)
		assert.Equal(t, 2025, grid.Year)
		assert.Equal(t, time.March, grid.Month)

		// Feb 23 - Mar 1
		assert.Equal(t, time.Date(2025, 2, 23, 0, 0, 0, 0, time.UTC), days[0].Date)
		assert.False(t, days[0].InMonth)
		assert.Equal(t, time.Saturday, days[6].Date.Weekday())
		assert.Equal(t, 1, days[6].Day)
		assert.True(t, days[6].InMonth)

		// Mar 15
		mid := days[6+14]
		assert.Equal(t, 15, mid.Day)
		if assert.Len(t, mid.Events, 2) {
			assert.Equal(t, "1", mid.Events[0].ID)
			assert.Equal(t, "2", mid.Events[1].ID)
		}

		// Apr 1 is on the grid but its events are not
		apr1 := days[6+31]
		assert.Equal(t, time.April, apr1.Date.Month())
		assert.False(t, apr1.InMonth)
		assert.Empty(t, apr1.Events)
		assert.NotNil(t, apr1.Events)

		assert.Equal(t, time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC), days[GridCells-1].Date)

		var todays []int
		for i, d := range days {
			if d.IsToday {
				todays = append(todays, i)
			}
		}
		assert.Equal(t, []int{6 + 19}, todays)
	})

	t.Run("month starting on sunday", func(t *testing.T) {
		grid := BuildMonthGrid(2026, time.February, nil, time.UTC, time.Time{})
		days := grid.Days()
		assert.Equal(t, 1, days[0].Day)
		assert.True(t, days[0].InMonth)
		assert.True(t, days[27].InMonth)
		assert.False(t, days[28].InMonth)
		assert.Equal(t, 1, days[28].Day)
		assert.Equal(t, days[7], grid.Weeks[1][0])
	})

	t.Run("events are bucketed in the grid location", func(t *testing.T) {
		events := []Event{
			newEvent("1", "Late February in UTC", time.Date(2025, 2, 28, 22, 0, 0, 0, time.UTC)),
			newEvent("2", "April in EAT", time.Date(2025, 3, 31, 22, 30, 0, 0, time.UTC)),
		}
		grid := BuildMonthGrid(2025, time.March, events, eat, time.Time{})
		days := grid.Days()

		if assert.Len(t, days[6].Events, 1) {
			assert.Equal(t, "1", days[6].Events[0].ID)
		}
		for _, d := range days {
			for _, evt := range d.Events {
				assert.NotEqual(t, "2", evt.ID)
			}
		}
	})

	t.Run("month overflow is normalized", func(t *testing.T) {
		grid := BuildMonthGrid(2024, 13, nil, nil, time.Time{})
		assert.Equal(t, 2025, grid.Year)
		assert.Equal(t, time.January, grid.Month)
	})
}

func TestWriteICS(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	events := []Event{
		{
			System:      record.System{ID: "b"},
			Title:       "Board meeting; budget, rules",
			Date:        time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC),
			Location:    "Hall A",
			Description: "Agenda:\nbudget",
			Type:        TypeMeeting,
		},
		{
			System: record.System{ID: "a"},
			Title:  "Cleanup",
			Date:   time.Date(2025, 3, 8, 9, 0, 0, 0, time.FixedZone("EAT", 3*60*60)),
			Type:   TypeVolunteer,
		},
	}

	var buf bytes.Buffer
	err := WriteICS(&buf, events, ICSOptions{CalendarName: "Jamii Events", Domain: "jamii.test", ReminderMinutes: 30}, now)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Contains(t, out, "X-WR-CALNAME:Jamii Events\r\n")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(out, "TRIGGER:-PT30M"))

	// oldest first, in UTC
	first := strings.Index(out, "UID:a@jamii.test")
	second := strings.Index(out, "UID:b@jamii.test")
	assert.True(t, first >= 0 && second > first)
	assert.Contains(t, out, "DTSTART:20250308T060000Z\r\nDTEND:20250308T070000Z\r\n")
	assert.Contains(t, out, "DTSTAMP:20250301T080000Z\r\n")

	assert.Contains(t, out, `SUMMARY:Board meeting\; budget\, rules`+"\r\n")
	assert.Contains(t, out, `DESCRIPTION:Agenda:\nbudget`+"\r\n")
	assert.Contains(t, out, "LOCATION:Hall A\r\n")
	assert.Contains(t, out, "CATEGORIES:VOLUNTEER\r\n")
	assert.Equal(t, 1, strings.Count(out, "LOCATION:"))

	// input order untouched
	assert.Equal(t, "b", events[0].ID)

	t.Run("no reminder", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteICS(&buf, events[:1], ICSOptions{Domain: "jamii.test"}, now))
		assert.NotContains(t, buf.String(), "VALARM")
		assert.NotContains(t, buf.String(), "X-WR-CALNAME")
	})

	t.Run("long lines are folded", func(t *testing.T) {
		long := Event{
			System:   record.System{ID: "c"},
			Title:    strings.TrimSpace(strings.Repeat("Community garden planting day ", 5)),
			Date:     now,
			Location: strings.Repeat("Plot 7, behind the north gate ", 4),
		}
		var buf bytes.Buffer
		require.NoError(t, WriteICS(&buf, []Event{long}, ICSOptions{Domain: "jamii.test"}, now))

		for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n") {
			assert.LessOrEqual(t, len(line), 75, line)
		}
		unfolded := strings.ReplaceAll(buf.String(), "\r\n ", "")
		assert.Contains(t, unfolded, "SUMMARY:"+long.Title+"\r\n")
		assert.Contains(t, unfolded, `LOCATION:Plot 7\, behind the north gate Plot 7\,`)
	})
}

package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/storage/database/inmem"
)

func TestService_Query(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	svc := NewService(inmemdb.NewRecordClient(inmemdb.Open()), eat)
	ctx := context.Background()

	schedule := func(title, typ, location string, date time.Time) Event {
		evt, err := svc.Create(ctx, NewEvent{Title: title, Type: typ, Location: location, Date: date})
		require.NoError(t, err)
		return evt
	}
	// 23:30 EAT on Mar 14 is still Mar 14 in the calendar location
	lateNight := schedule("Night watch", TypeVolunteer, "Main gate", time.Date(2025, 3, 14, 20, 30, 0, 0, time.UTC))
	meeting := schedule("Board meeting", TypeMeeting, "Hall A", time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC))
	party := schedule("Spring party", TypeSocial, "Garden", time.Date(2025, 3, 22, 14, 0, 0, 0, time.UTC))

	ids := func(events []Event) []string {
		out := make([]string, 0, len(events))
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all, latest first", want: []string{party.ID, meeting.ID, lateNight.ID}},
		{name: "All type", filter: Filter{Type: "All"}, want: []string{party.ID, meeting.ID, lateNight.ID}},
		{name: "type", filter: Filter{Type: TypeMeeting}, want: []string{meeting.ID}},
		{name: "location", filter: Filter{Location: "hall"}, want: []string{meeting.ID}},
		{name: "day in calendar location", filter: Filter{Date: time.Date(2025, 3, 14, 0, 0, 0, 0, eat)}, want: []string{lateNight.ID}},
		{name: "next day", filter: Filter{Date: time.Date(2025, 3, 15, 12, 0, 0, 0, eat)}, want: []string{meeting.ID}},
		{name: "no match", filter: Filter{Type: TypeWorkshop}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(events))
		})
	}

	t.Run("upcoming", func(t *testing.T) {
		events, err := svc.Upcoming(ctx, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), 1)
		require.NoError(t, err)
		assert.Equal(t, []string{meeting.ID}, ids(events))
	})

	t.Run("month grid", func(t *testing.T) {
		svc.nowFunc = func() time.Time { return time.Date(2025, 3, 15, 9, 0, 0, 0, eat) }
		defer func() { svc.nowFunc = time.Now }()

		grid, err := svc.MonthGrid(ctx, 2025, time.March)
		require.NoError(t, err)
		days := grid.Days()
		assert.Equal(t, []string{lateNight.ID}, ids(days[6+13].Events))
		assert.Equal(t, []string{meeting.ID}, ids(days[6+14].Events))
		assert.True(t, days[6+14].IsToday)
		assert.Equal(t, []string{party.ID}, ids(days[6+21].Events))
	})

	t.Run("update & delete", func(t *testing.T) {
		title := "AGM"
		updated, err := svc.Update(ctx, meeting.ID, UpdateEvent{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "AGM", updated.Title)
		assert.Equal(t, "AGM", updated.Name)
		assert.Equal(t, meeting.Date, updated.Date)

		_, err = svc.Update(ctx, "nope", UpdateEvent{Title: &title})
		assert.Equal(t, ErrNotFound, err)

		require.NoError(t, svc.Delete(ctx, meeting.ID))
		_, err = svc.Get(ctx, meeting.ID)
		assert.Equal(t, ErrNotFound, err)
		assert.Equal(t, ErrNotFound, svc.Delete(ctx, meeting.ID))
	})
}

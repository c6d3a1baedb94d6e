package activity

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inmemdb "github.com/trezcool/jamii/storage/database/inmem"
)

func newTestService(now time.Time) *Service {
	svc := NewService(inmemdb.NewRecordClient(inmemdb.Open()))
	svc.nowFunc = func() time.Time { return now }
	return svc
}

func TestService_CreateDefaults(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	act, err := svc.Create(ctx, NewActivity{Name: "Water cut", Type: TypeMaintenance})
	require.NoError(t, err)
	assert.NotEmpty(t, act.ID)
	assert.Equal(t, StatusActive, act.Status)
	assert.True(t, act.Date.Equal(now))

	yesterday := now.AddDate(0, 0, -1)
	act, err = svc.Create(ctx, NewActivity{Name: "Poll closed", Type: TypePoll, Status: StatusClosed, Date: &yesterday})
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, act.Status)
	assert.True(t, act.Date.Equal(yesterday))
}

func TestService_QueryAndCount(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	seed := []struct {
		typ, status string
		daysAgo     int
	}{
		{TypePost, StatusActive, 3},
		{TypePost, StatusResolved, 2},
		{TypeEvent, StatusActive, 1},
		{TypePoll, StatusActive, 0},
		{TypePost, StatusActive, 4},
	}
	for _, s := range seed {
		date := now.AddDate(0, 0, -s.daysAgo)
		_, err := svc.Create(ctx, NewActivity{Name: s.typ, Type: s.typ, Status: s.status, Date: &date})
		require.NoError(t, err)
	}

	all, err := svc.Query(ctx, Filter{Type: "All"})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Date.After(all[i-1].Date), "activities are newest first")
	}

	posts, err := svc.Query(ctx, Filter{Type: TypePost, Status: StatusActive})
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, TypePoll, recent[0].Type)

	counts, err := svc.CountByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TypeCount{{Type: TypePost, Count: 3}, {Type: TypeEvent, Count: 1}, {Type: TypePoll, Count: 1}}, counts)
}

func TestService_UpdateDelete(t *testing.T) {
	svc := newTestService(time.Now())
	ctx := context.Background()

	act, err := svc.Create(ctx, NewActivity{Name: "Lift broken", Type: TypeMaintenance})
	require.NoError(t, err)

	resolved := StatusResolved
	updated, err := svc.Update(ctx, act.ID, UpdateActivity{Status: &resolved})
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, updated.Status)
	assert.Equal(t, "Lift broken", updated.Name)
	assert.True(t, updated.Date.Equal(act.Date), "date is kept when not provided")

	_, err = svc.Update(ctx, "missing", UpdateActivity{Status: &resolved})
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	require.NoError(t, svc.Delete(ctx, act.ID))
	_, err = svc.Get(ctx, act.ID)
	assert.Equal(t, ErrNotFound, errors.Cause(err))
	assert.Equal(t, ErrNotFound, errors.Cause(svc.Delete(ctx, act.ID)))
}

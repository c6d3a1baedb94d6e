package event

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

var ErrNotFound = errors.New("event not found")

type Service struct {
	client  record.Client
	loc     *time.Location
	nowFunc func() time.Time
}

// NewService returns an event Service bucketing days in loc (UTC when nil).
func NewService(client record.Client, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{client: client, loc: loc, nowFunc: time.Now}
}

func (svc *Service) Location() *time.Location { return svc.loc }

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Event, error) {
	params := record.FetchParams{
		Fields:  fields,
		OrderBy: []core.DBOrdering{{Field: "date", Ascending: false}},
	}
	if filter.Type != "" && filter.Type != "All" {
		params.Where = append(params.Where, record.Where("type", record.Equals, filter.Type))
	}
	if filter.Location != "" {
		params.Where = append(params.Where, record.Where("location", record.Contains, filter.Location))
	}
	if !filter.Date.IsZero() {
		start, end := dayRange(filter.Date, svc.loc)
		params.WhereGroups = append(params.WhereGroups, record.WhereGroup{
			Operator: record.And,
			Conditions: []record.Condition{
				record.Where("date", record.GreaterThanOrEqual, start.UTC()),
				record.Where("date", record.LessThanOrEqual, end.UTC()),
			},
		})
	}
	return svc.fetch(ctx, params)
}

func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	rec, err := svc.client.GetRecordByID(ctx, Table, id, fields...)
	if err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return Event{}, ErrNotFound
		}
		return Event{}, errors.Wrapf(err, "fetching event %s", id)
	}
	var evt Event
	return evt, record.Decode(rec, &evt)
}

func (svc *Service) Create(ctx context.Context, ne NewEvent) (Event, error) {
	results, err := svc.client.CreateRecords(ctx, Table, ne.record())
	if err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}
	rec, err := record.FirstSuccess(results)
	if err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}
	var evt Event
	return evt, record.Decode(rec, &evt)
}

func (svc *Service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	if _, err := svc.Get(ctx, id); err != nil {
		return Event{}, err
	}
	results, err := svc.client.UpdateRecords(ctx, Table, ue.record(id))
	if err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	rec, err := record.FirstSuccess(results)
	if err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	var evt Event
	return evt, record.Decode(rec, &evt)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if err := svc.client.DeleteRecords(ctx, Table, ids...); err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return ErrNotFound
		}
		return errors.Wrap(err, "deleting events")
	}
	return nil
}

// Upcoming returns at most limit events dated from `from` onwards, soonest first (all when limit <= 0).
func (svc *Service) Upcoming(ctx context.Context, from time.Time, limit int) ([]Event, error) {
	params := record.FetchParams{
		Fields:  fields,
		Where:   []record.Condition{record.Where("date", record.GreaterThanOrEqual, from.UTC())},
		OrderBy: []core.DBOrdering{{Field: "date", Ascending: true}},
	}
	if limit > 0 {
		params.Paging = &record.PagingInfo{Limit: limit}
	}
	return svc.fetch(ctx, params)
}

// Between returns the events dated in [from, to), soonest first.
func (svc *Service) Between(ctx context.Context, from, to time.Time) ([]Event, error) {
	return svc.fetch(ctx, record.FetchParams{
		Fields: fields,
		WhereGroups: []record.WhereGroup{{
			Operator: record.And,
			Conditions: []record.Condition{
				record.Where("date", record.GreaterThanOrEqual, from.UTC()),
				record.Where("date", record.LessThan, to.UTC()),
			},
		}},
		OrderBy: []core.DBOrdering{{Field: "date", Ascending: true}},
	})
}

// MonthGrid fetches the events of the given month and lays them out on a calendar grid.
func (svc *Service) MonthGrid(ctx context.Context, year int, month time.Month) (MonthGrid, error) {
	from, to := monthRange(year, month, svc.loc)
	events, err := svc.Between(ctx, from, to)
	if err != nil {
		return MonthGrid{}, errors.Wrap(err, "fetching month events")
	}
	return BuildMonthGrid(year, month, events, svc.loc, svc.nowFunc()), nil
}

func (svc *Service) fetch(ctx context.Context, params record.FetchParams) ([]Event, error) {
	recs, err := svc.client.FetchRecords(ctx, Table, params)
	if err != nil {
		return nil, errors.Wrap(err, "fetching events")
	}
	return record.DecodeAll[Event](recs)
}

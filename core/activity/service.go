package activity

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

var ErrNotFound = errors.New("activity not found")

type Service struct {
	client  record.Client
	nowFunc func() time.Time
}

func NewService(client record.Client) *Service {
	return &Service{client: client, nowFunc: time.Now}
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Activity, error) {
	params := record.FetchParams{
		Fields:  fields,
		OrderBy: []core.DBOrdering{{Field: "date", Ascending: false}},
	}
	if isSet(filter.Type) {
		params.Where = append(params.Where, record.Where("type", record.Equals, filter.Type))
	}
	if isSet(filter.Status) {
		params.Where = append(params.Where, record.Where("status", record.Equals, filter.Status))
	}
	if filter.Limit > 0 {
		params.Paging = &record.PagingInfo{Limit: filter.Limit, Offset: filter.Offset}
	}

	recs, err := svc.client.FetchRecords(ctx, Table, params)
	if err != nil {
		return nil, errors.Wrap(err, "fetching activities")
	}
	return record.DecodeAll[Activity](recs)
}

func (svc *Service) Get(ctx context.Context, id string) (Activity, error) {
	rec, err := svc.client.GetRecordByID(ctx, Table, id, fields...)
	if err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return Activity{}, ErrNotFound
		}
		return Activity{}, errors.Wrapf(err, "fetching activity %s", id)
	}
	var act Activity
	return act, record.Decode(rec, &act)
}

func (svc *Service) Create(ctx context.Context, na NewActivity) (Activity, error) {
	results, err := svc.client.CreateRecords(ctx, Table, na.record(svc.nowFunc().UTC()))
	if err != nil {
		return Activity{}, errors.Wrap(err, "creating activity")
	}
	rec, err := record.FirstSuccess(results)
	if err != nil {
		return Activity{}, errors.Wrap(err, "creating activity")
	}
	var act Activity
	return act, record.Decode(rec, &act)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateActivity) (Activity, error) {
	if _, err := svc.Get(ctx, id); err != nil {
		return Activity{}, err
	}
	results, err := svc.client.UpdateRecords(ctx, Table, ua.record(id))
	if err != nil {
		return Activity{}, errors.Wrap(err, "updating activity")
	}
	rec, err := record.FirstSuccess(results)
	if err != nil {
		return Activity{}, errors.Wrap(err, "updating activity")
	}
	var act Activity
	return act, record.Decode(rec, &act)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if err := svc.client.DeleteRecords(ctx, Table, ids...); err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return ErrNotFound
		}
		return errors.Wrap(err, "deleting activities")
	}
	return nil
}

// CountByType returns the number of activities of each type, most frequent first.
func (svc *Service) CountByType(ctx context.Context) ([]TypeCount, error) {
	recs, err := svc.client.FetchRecords(ctx, Table, record.FetchParams{
		GroupBy:     []string{"type"},
		Aggregators: []record.Aggregator{{Field: record.FieldID, Function: record.Count, Alias: "count"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "counting activities by type")
	}
	counts, err := record.DecodeAll[TypeCount](recs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Type < counts[j].Type
	})
	return counts, nil
}

// Recent returns the n latest activities.
func (svc *Service) Recent(ctx context.Context, n int) ([]Activity, error) {
	return svc.Query(ctx, Filter{Limit: n})
}

func isSet(value string) bool {
	return value != "" && value != "All"
}

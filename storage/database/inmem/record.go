package inmemdb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/record"
)

type recordClient struct {
	db *recordTables
}

var _ record.Client = (*recordClient)(nil)

func NewRecordClient(db *DB) record.Client {
	return &recordClient{db: db.records}
}

func (cl *recordClient) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cl.db.RLock()
	t := cl.db.table(table, false)
	var all []record.Record
	if t != nil {
		all = t.all()
	}
	cl.db.RUnlock()

	recs := make([]record.Record, 0, len(all))
	for _, rec := range all {
		if matchAll(rec, params.Where) && matchGroups(rec, params.WhereGroups) {
			recs = append(recs, rec)
		}
	}

	aggregated := len(params.GroupBy) > 0 || len(params.Aggregators) > 0
	if aggregated {
		recs = aggregate(recs, params.GroupBy, params.Aggregators)
	}

	if len(params.OrderBy) > 0 {
		sort.SliceStable(recs, func(i, j int) bool {
			for _, ord := range params.OrderBy {
				c := compare(recs[i][ord.Field], recs[j][ord.Field])
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}

	if p := params.Paging; p != nil {
		start := p.Offset
		if start > len(recs) {
			start = len(recs)
		}
		end := len(recs)
		if p.Limit > 0 && start+p.Limit < end {
			end = start + p.Limit
		}
		recs = recs[start:end]
	}

	if !aggregated {
		for i, rec := range recs {
			recs[i] = rec.Copy(params.Fields...)
		}
	}
	return recs, nil
}

func (cl *recordClient) GetRecordByID(ctx context.Context, table, id string, fields ...string) (record.Record, error) {
	cl.db.RLock()
	defer cl.db.RUnlock()

	if t := cl.db.table(table, false); t != nil {
		if rec, ok := t.rows[id]; ok {
			return rec.Copy(fields...), nil
		}
	}
	return nil, record.ErrNotFound
}

func (cl *recordClient) CreateRecords(ctx context.Context, table string, records ...record.Record) ([]record.Result, error) {
	cl.db.Lock()
	defer cl.db.Unlock()

	t := cl.db.table(table, true)
	now := NowFunc().UTC()
	results := make([]record.Result, 0, len(records))
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			id = uuid.NewString()
		}
		if _, exists := t.rows[id]; exists {
			results = append(results, record.Result{Message: fmt.Sprintf("record %s already exists", id), Duplicate: true})
			continue
		}
		stored := record.Stamp(ctx, rec, id, now)
		t.rows[id] = stored
		t.order = append(t.order, id)
		results = append(results, record.Result{Success: true, Record: stored.Copy()})
	}
	return results, nil
}

func (cl *recordClient) UpdateRecords(ctx context.Context, table string, records ...record.Record) ([]record.Result, error) {
	cl.db.Lock()
	defer cl.db.Unlock()

	t := cl.db.table(table, false)
	now := NowFunc().UTC()
	results := make([]record.Result, 0, len(records))
	for _, rec := range records {
		id := rec.ID()
		var orig record.Record
		if t != nil {
			orig = t.rows[id]
		}
		if orig == nil {
			results = append(results, record.Result{Message: fmt.Sprintf("record %q not found", id)})
			continue
		}
		updated := orig.Copy()
		for k, v := range record.StampUpdate(ctx, rec, now) {
			if k == record.FieldID || k == record.FieldCreatedOn || k == record.FieldCreatedBy {
				continue
			}
			updated[k] = v
		}
		t.rows[id] = updated
		results = append(results, record.Result{Success: true, Record: updated.Copy()})
	}
	return results, nil
}

func (cl *recordClient) DeleteRecords(ctx context.Context, table string, ids ...string) error {
	cl.db.Lock()
	defer cl.db.Unlock()

	t := cl.db.table(table, false)
	if t == nil {
		return errors.Wrapf(record.ErrNotFound, "table %s", table)
	}
	var missing []string
	for _, id := range ids {
		if _, ok := t.rows[id]; !ok {
			missing = append(missing, id)
			continue
		}
		t.remove(id)
	}
	if len(missing) > 0 {
		return errors.Wrap(record.ErrNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func aggregate(recs []record.Record, groupBy []string, aggs []record.Aggregator) []record.Record {
	type group struct {
		key  record.Record
		recs []record.Record
	}
	var (
		groups []*group
		index  = make(map[string]*group)
	)
	for _, rec := range recs {
		parts := make([]string, len(groupBy))
		for i, f := range groupBy {
			parts[i] = fmt.Sprintf("%v", rec[f])
		}
		k := strings.Join(parts, "\x00")
		g, ok := index[k]
		if !ok {
			g = &group{key: make(record.Record, len(groupBy))}
			for _, f := range groupBy {
				g.key[f] = rec[f]
			}
			index[k] = g
			groups = append(groups, g)
		}
		g.recs = append(g.recs, rec)
	}
	if len(groupBy) == 0 && len(groups) == 0 {
		groups = append(groups, &group{key: record.Record{}})
	}

	out := make([]record.Record, 0, len(groups))
	for _, g := range groups {
		row := g.key.Copy()
		for _, a := range aggs {
			row[a.Alias] = apply(a, g.recs)
		}
		out = append(out, row)
	}
	return out
}

func apply(a record.Aggregator, recs []record.Record) interface{} {
	switch a.Function {
	case record.Count:
		n := int64(0)
		for _, rec := range recs {
			if a.Field == "" || a.Field == "*" || rec[a.Field] != nil {
				n++
			}
		}
		return n
	case record.Sum:
		var sum float64
		for _, rec := range recs {
			if f, ok := toFloat(rec[a.Field]); ok {
				sum += f
			}
		}
		return sum
	case record.Min, record.Max:
		var best interface{}
		for _, rec := range recs {
			v := rec[a.Field]
			if v == nil {
				continue
			}
			c := compare(v, best)
			if best == nil || (a.Function == record.Min && c < 0) || (a.Function == record.Max && c > 0) {
				best = v
			}
		}
		return best
	}
	return nil
}

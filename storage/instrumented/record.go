// Package instrumented decorates a record.Client with prometheus metrics and change notifications.
package instrumented

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

// Operations
const (
	opFetch  = "fetch"
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

var NowFunc = time.Now // mockable

type recordClient struct {
	next     record.Client
	notifier record.Notifier
	logger   core.Logger
}

var _ record.Client = (*recordClient)(nil)

// NewRecordClient wraps next. notifier may be nil.
func NewRecordClient(next record.Client, notifier record.Notifier, logger core.Logger) record.Client {
	return &recordClient{next: next, notifier: notifier, logger: logger}
}

func observe(table, op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if errors.Cause(err) == record.ErrNotFound {
			outcome = "not_found"
		}
	}
	operationsCounter.WithLabelValues(table, op, outcome).Inc()
	operationDuration.WithLabelValues(table, op).Observe(time.Since(start).Seconds())
}

func (cl *recordClient) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	start := time.Now()
	recs, err := cl.next.FetchRecords(ctx, table, params)
	observe(table, opFetch, start, err)
	return recs, err
}

func (cl *recordClient) GetRecordByID(ctx context.Context, table, id string, fields ...string) (record.Record, error) {
	start := time.Now()
	rec, err := cl.next.GetRecordByID(ctx, table, id, fields...)
	observe(table, opGet, start, err)
	return rec, err
}

func (cl *recordClient) CreateRecords(ctx context.Context, table string, records ...record.Record) ([]record.Result, error) {
	start := time.Now()
	results, err := cl.next.CreateRecords(ctx, table, records...)
	observe(table, opCreate, start, err)
	if err == nil {
		cl.notify(ctx, table, record.Created, succeeded(results))
	}
	return results, err
}

func (cl *recordClient) UpdateRecords(ctx context.Context, table string, records ...record.Record) ([]record.Result, error) {
	start := time.Now()
	results, err := cl.next.UpdateRecords(ctx, table, records...)
	observe(table, opUpdate, start, err)
	if err == nil {
		cl.notify(ctx, table, record.Updated, succeeded(results))
	}
	return results, err
}

func (cl *recordClient) DeleteRecords(ctx context.Context, table string, ids ...string) error {
	start := time.Now()
	err := cl.next.DeleteRecords(ctx, table, ids...)
	observe(table, opDelete, start, err)
	if err == nil {
		cl.notify(ctx, table, record.Deleted, ids)
	}
	return err
}

func (cl *recordClient) notify(ctx context.Context, table string, op record.ChangeOp, ids []string) {
	if cl.notifier == nil || len(ids) == 0 {
		return
	}
	change := record.Change{
		Table: table,
		Op:    op,
		IDs:   ids,
		Actor: record.Actor(ctx),
		At:    NowFunc().UTC(),
	}
	if err := cl.notifier.Notify(ctx, change); err != nil {
		notifyFailedCounter.WithLabelValues(table).Inc()
		cl.logger.Warn("publishing record change: "+err.Error(), err, map[string]interface{}{
			"table": table,
			"op":    op,
			"ids":   ids,
		})
	}
}

func succeeded(results []record.Result) []string {
	ids := make([]string, 0, len(results))
	for _, res := range results {
		if res.Success {
			ids = append(ids, res.Record.ID())
		}
	}
	return ids
}

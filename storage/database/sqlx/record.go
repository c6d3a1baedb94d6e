package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/record"
)

var NowFunc = time.Now // mockable

type recordClient struct {
	db *sqlx.DB
}

var _ record.Client = (*recordClient)(nil)

func NewRecordClient(db *sqlx.DB) record.Client {
	return &recordClient{db: db}
}

func (cl *recordClient) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	qb, err := buildSelect(table, params)
	if err != nil {
		return nil, err
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	rows, err := cl.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s records", table)
	}
	defer func() { _ = rows.Close() }()

	recs := make([]record.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "fetching %s records", table)
	}
	return recs, nil
}

func (cl *recordClient) GetRecordByID(ctx context.Context, table, id string, fields ...string) (record.Record, error) {
	qb, err := buildSelect(table, record.FetchParams{Fields: fields})
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Where(sq.Eq{`"id"`: id}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rec, err := scanRecord(cl.db.QueryRowxContext(ctx, query, args...))
	return rec, trapNoRowsErr(err)
}

func (cl *recordClient) CreateRecords(ctx context.Context, table string, records ...record.Record) ([]record.Result, error) {
	tbl, err := ident(table)
	if err != nil {
		return nil, err
	}

	now := NowFunc().UTC()
	results := make([]record.Result, 0, len(records))
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			id = uuid.NewString()
		}
		values, err := setMap(record.Stamp(ctx, rec, id, now))
		if err != nil {
			results = append(results, record.Result{Message: err.Error()})
			continue
		}
		query, args, err := psql.Insert(tbl).SetMap(values).Suffix("RETURNING *").ToSql()
		if err != nil {
			results = append(results, record.Result{Message: err.Error()})
			continue
		}
		created, err := scanRecord(cl.db.QueryRowxContext(ctx, query, args...))
		if err != nil {
			results = append(results, record.Result{Message: err.Error(), Duplicate: isUniqueViolation(err)})
			continue
		}
		results = append(results, record.Result{Success: true, Record: created})
	}
	return results, nil
}

func (cl *recordClient) UpdateRecords(ctx context.Context, table string, records ...record.Record) ([]record.Result, error) {
	tbl, err := ident(table)
	if err != nil {
		return nil, err
	}

	now := NowFunc().UTC()
	results := make([]record.Result, 0, len(records))
	for _, rec := range records {
		id := rec.ID()
		values, err := setMap(
			record.StampUpdate(ctx, rec, now),
			record.FieldID, record.FieldCreatedOn, record.FieldCreatedBy,
		)
		if err != nil {
			results = append(results, record.Result{Message: err.Error()})
			continue
		}
		query, args, err := psql.Update(tbl).SetMap(values).Where(sq.Eq{`"id"`: id}).Suffix("RETURNING *").ToSql()
		if err != nil {
			results = append(results, record.Result{Message: err.Error()})
			continue
		}
		updated, err := scanRecord(cl.db.QueryRowxContext(ctx, query, args...))
		if err != nil {
			results = append(results, record.Result{Message: trapNoRowsErr(err).Error()})
			continue
		}
		results = append(results, record.Result{Success: true, Record: updated})
	}
	return results, nil
}

func (cl *recordClient) DeleteRecords(ctx context.Context, table string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	tbl, err := ident(table)
	if err != nil {
		return err
	}
	query, args, err := psql.Delete(tbl).Where(sq.Eq{`"id"`: ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := cl.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "deleting %s records", table)
	}
	if n, err := res.RowsAffected(); err == nil && int(n) < len(ids) {
		return errors.Wrapf(record.ErrNotFound, "deleted %d of %d %s records", n, len(ids), table)
	}
	return nil
}

type mapScanner interface {
	MapScan(dest map[string]interface{}) error
}

func scanRecord(row mapScanner) (record.Record, error) {
	rec := make(map[string]interface{})
	if err := row.MapScan(rec); err != nil {
		return nil, err
	}
	for k, v := range rec {
		if b, ok := v.([]byte); ok {
			rec[k] = string(b)
		}
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code.Name() == "unique_violation"
}

func trapNoRowsErr(err error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return record.ErrNotFound
	}
	return err
}

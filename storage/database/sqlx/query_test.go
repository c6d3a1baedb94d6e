package sqlxrepos

import (
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		params   record.FetchParams
		wantSQL  string
		wantArgs []interface{}
		wantErr  bool
	}{
		{
			name:    "all columns",
			table:   "event",
			wantSQL: `SELECT * FROM "event"`,
		},
		{
			name:    "fields always carry id",
			table:   "event",
			params:  record.FetchParams{Fields: []string{"title", "date"}},
			wantSQL: `SELECT "id", "title", "date" FROM "event"`,
		},
		{
			name:  "where equals and paging",
			table: "activity",
			params: record.FetchParams{
				Where:   []record.Condition{record.Where("type", record.Equals, "Event")},
				OrderBy: []core.DBOrdering{{Field: "date"}},
				Paging:  &record.PagingInfo{Limit: 10, Offset: 20},
			},
			wantSQL:  `SELECT * FROM "activity" WHERE ("type" = $1) ORDER BY "date" DESC LIMIT 10 OFFSET 20`,
			wantArgs: []interface{}{"Event"},
		},
		{
			name:  "equals many is IN",
			table: "activity",
			params: record.FetchParams{
				Where: []record.Condition{record.Where("status", record.Equals, "Active", "Closed")},
			},
			wantSQL:  `SELECT * FROM "activity" WHERE ("status" IN ($1,$2))`,
			wantArgs: []interface{}{"Active", "Closed"},
		},
		{
			name:  "or group of contains",
			table: "resource",
			params: record.FetchParams{
				WhereGroups: []record.WhereGroup{{
					Operator: record.Or,
					Conditions: []record.Condition{
						record.Where("title", record.Contains, "50%"),
						record.Where("description", record.Contains, "50%"),
					},
				}},
			},
			wantSQL:  `SELECT * FROM "resource" WHERE (((CAST("title" AS TEXT) ILIKE $1) OR (CAST("description" AS TEXT) ILIKE $2)))`,
			wantArgs: []interface{}{`%50\%%`, `%50\%%`},
		},
		{
			name:  "group by with count",
			table: "resource",
			params: record.FetchParams{
				GroupBy:     []string{"category"},
				Aggregators: []record.Aggregator{{Field: "id", Function: record.Count, Alias: "count"}},
				OrderBy:     []core.DBOrdering{{Field: "count"}},
			},
			wantSQL: `SELECT "category", COUNT("id") AS "count" FROM "resource" GROUP BY "category" ORDER BY "count" DESC`,
		},
		{
			name:    "bad table",
			table:   `event"; DROP TABLE users; --`,
			wantErr: true,
		},
		{
			name:    "bad field",
			table:   "event",
			params:  record.FetchParams{Fields: []string{"title AS x"}},
			wantErr: true,
		},
		{
			name:  "bad operator",
			table: "event",
			params: record.FetchParams{
				Where: []record.Condition{record.Where("title", "like", "x")},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qb, err := buildSelect(tt.table, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			query, args, err := qb.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestSetMap(t *testing.T) {
	values, err := setMap(record.Record{"id": "1", "title": "T", "created_on": "x"}, "id", "created_on")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{`"title"`: "T"}, values)

	_, err = setMap(record.Record{"id": "1"}, "id")
	assert.Equal(t, errNoColumns, err)

	_, err = setMap(record.Record{"Title": "T"})
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(errors.Wrap(&pq.Error{Code: "23505"}, "inserting")))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}

package sqlxrepos

import (
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	identRegex   = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	likeEscaper  = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	errBadIdent  = errors.New("invalid identifier")
	errNoColumns = errors.New("no columns to write")
)

// ident checks name against the identifier whitelist and quotes it.
func ident(name string) (string, error) {
	if !identRegex.MatchString(name) {
		return "", errors.Wrapf(errBadIdent, "%q", name)
	}
	return pq.QuoteIdentifier(name), nil
}

func idents(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		q, err := ident(name)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// buildSelect translates fetch params into a SELECT statement on table.
func buildSelect(table string, params record.FetchParams) (sq.SelectBuilder, error) {
	tbl, err := ident(table)
	if err != nil {
		return sq.SelectBuilder{}, err
	}

	var columns []string
	if len(params.GroupBy) > 0 || len(params.Aggregators) > 0 {
		groupCols, err := idents(params.GroupBy)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		columns = append(columns, groupCols...)
		for _, agg := range params.Aggregators {
			expr, err := aggregateExpr(agg)
			if err != nil {
				return sq.SelectBuilder{}, err
			}
			columns = append(columns, expr)
		}
	} else if len(params.Fields) > 0 {
		fields := params.Fields
		if !core.StringInSlice(record.FieldID, fields) {
			fields = append([]string{record.FieldID}, fields...)
		}
		if columns, err = idents(fields); err != nil {
			return sq.SelectBuilder{}, err
		}
	} else {
		columns = []string{"*"}
	}

	qb := psql.Select(columns...).From(tbl)

	where, err := whereClause(params)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	if where != nil {
		qb = qb.Where(where)
	}
	if len(params.GroupBy) > 0 {
		groupCols, _ := idents(params.GroupBy)
		qb = qb.GroupBy(groupCols...)
	}
	for _, ord := range params.OrderBy {
		col, err := ident(ord.Field) // columns or aggregate aliases
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		qb = qb.OrderBy(core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if p := params.Paging; p != nil {
		if p.Limit > 0 {
			qb = qb.Limit(uint64(p.Limit))
		}
		if p.Offset > 0 {
			qb = qb.Offset(uint64(p.Offset))
		}
	}
	return qb, nil
}

func aggregateExpr(agg record.Aggregator) (string, error) {
	alias, err := ident(agg.Alias)
	if err != nil {
		return "", err
	}
	col := "*"
	if agg.Field != "" && agg.Field != "*" {
		if col, err = ident(agg.Field); err != nil {
			return "", err
		}
	}
	switch agg.Function {
	case record.Count, record.Sum, record.Min, record.Max:
		return fmt.Sprintf("%s(%s) AS %s", strings.ToUpper(string(agg.Function)), col, alias), nil
	}
	return "", errors.Errorf("invalid aggregator function %q", agg.Function)
}

func whereClause(params record.FetchParams) (sq.Sqlizer, error) {
	and := sq.And{}
	for _, cond := range params.Where {
		expr, err := condition(cond)
		if err != nil {
			return nil, err
		}
		and = append(and, expr)
	}
	for _, group := range params.WhereGroups {
		if len(group.Conditions) == 0 {
			continue
		}
		exprs := make([]sq.Sqlizer, 0, len(group.Conditions))
		for _, cond := range group.Conditions {
			expr, err := condition(cond)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
		}
		if group.Operator == record.Or {
			and = append(and, sq.Or(exprs))
		} else {
			and = append(and, sq.And(exprs))
		}
	}
	if len(and) == 0 {
		return nil, nil
	}
	return and, nil
}

func condition(cond record.Condition) (sq.Sqlizer, error) {
	col, err := ident(cond.Field)
	if err != nil {
		return nil, err
	}
	if len(cond.Values) == 0 {
		return nil, errors.Errorf("no values for condition on %q", cond.Field)
	}
	first := cond.Values[0]

	switch cond.Operator {
	case record.Equals:
		if len(cond.Values) == 1 {
			return sq.Eq{col: first}, nil
		}
		return sq.Eq{col: cond.Values}, nil
	case record.NotEquals:
		var ne sq.Sqlizer = sq.NotEq{col: first}
		if len(cond.Values) > 1 {
			ne = sq.NotEq{col: cond.Values}
		}
		return sq.Or{sq.Eq{col: nil}, ne}, nil
	case record.Contains:
		or := make(sq.Or, 0, len(cond.Values))
		for _, v := range cond.Values {
			pattern := "%" + likeEscaper.Replace(fmt.Sprintf("%v", v)) + "%"
			or = append(or, sq.ILike{"CAST(" + col + " AS TEXT)": pattern})
		}
		return or, nil
	case record.GreaterThan:
		return sq.Gt{col: first}, nil
	case record.GreaterThanOrEqual:
		return sq.GtOrEq{col: first}, nil
	case record.LessThan:
		return sq.Lt{col: first}, nil
	case record.LessThanOrEqual:
		return sq.LtOrEq{col: first}, nil
	}
	return nil, errors.Errorf("invalid operator %q on %q", cond.Operator, cond.Field)
}

// setMap returns the record as a column -> value map with quoted column names.
func setMap(rec record.Record, skip ...string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		if core.StringInSlice(k, skip) {
			continue
		}
		col, err := ident(k)
		if err != nil {
			return nil, err
		}
		out[col] = v
	}
	if len(out) == 0 {
		return nil, errNoColumns
	}
	return out, nil
}

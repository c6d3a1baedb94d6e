// Package record defines the record client every domain service is built on:
// flat records stored in named tables, fetched with where conditions, where groups,
// ordering, paging, grouping and aggregation.
package record

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
)

// System fields carried by every record.
const (
	FieldID         = "id"
	FieldName       = "name"
	FieldTags       = "tags"
	FieldOwner      = "owner"
	FieldCreatedOn  = "created_on"
	FieldCreatedBy  = "created_by"
	FieldModifiedOn = "modified_on"
	FieldModifiedBy = "modified_by"
)

var SystemFields = []string{
	FieldID, FieldName, FieldTags, FieldOwner, FieldCreatedOn, FieldCreatedBy, FieldModifiedOn, FieldModifiedBy,
}

var (
	// errors
	ErrNotFound  = errors.New("record not found")
	ErrFailed    = errors.New("request failed")
	ErrDuplicate = errors.New("duplicate record")
)

type Operator string

// Condition operators
const (
	Equals             Operator = "equals"
	NotEquals          Operator = "notEquals"
	Contains           Operator = "contains" // case-insensitive substring
	GreaterThan        Operator = "greaterThan"
	GreaterThanOrEqual Operator = "greaterThanOrEqual"
	LessThan           Operator = "lessThan"
	LessThanOrEqual    Operator = "lessThanOrEqual"
)

func (op Operator) Valid() bool {
	switch op {
	case Equals, NotEquals, Contains, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		return true
	}
	return false
}

type GroupOperator string

const (
	And GroupOperator = "and"
	Or  GroupOperator = "or"
)

type Function string

// Aggregator functions
const (
	Count Function = "count"
	Sum   Function = "sum"
	Min   Function = "min"
	Max   Function = "max"
)

type (
	// Record is a flat field -> value mapping.
	Record map[string]interface{}

	// Condition matches a field against its values.
	// Equals and Contains match when any value matches; NotEquals when none does;
	// comparison operators use the first value.
	Condition struct {
		Field    string
		Operator Operator
		Values   []interface{}
	}

	// WhereGroup joins its conditions with Operator.
	WhereGroup struct {
		Operator   GroupOperator
		Conditions []Condition
	}

	PagingInfo struct {
		Limit  int
		Offset int
	}

	Aggregator struct {
		Field    string
		Function Function
		Alias    string
	}

	// FetchParams describes a fetch. Where conditions and every where group are ANDed together.
	FetchParams struct {
		Fields      []string
		Where       []Condition
		WhereGroups []WhereGroup
		OrderBy     []core.DBOrdering
		Paging      *PagingInfo
		GroupBy     []string
		Aggregators []Aggregator
	}

	// Result reports the outcome of creating or updating one record.
	Result struct {
		Success   bool
		Record    Record
		Message   string
		Duplicate bool // rejected by a unique constraint
	}

	Client interface {
		FetchRecords(ctx context.Context, table string, params FetchParams) ([]Record, error)
		GetRecordByID(ctx context.Context, table, id string, fields ...string) (Record, error)
		CreateRecords(ctx context.Context, table string, records ...Record) ([]Result, error)
		// UpdateRecords only sets the fields present on each record, which must carry its id.
		UpdateRecords(ctx context.Context, table string, records ...Record) ([]Result, error)
		DeleteRecords(ctx context.Context, table string, ids ...string) error
	}
)

func Where(field string, op Operator, values ...interface{}) Condition {
	return Condition{Field: field, Operator: op, Values: values}
}

func (rec Record) ID() string {
	id, _ := rec[FieldID].(string)
	return id
}

// Copy returns a shallow copy of rec restricted to fields (all fields when empty).
func (rec Record) Copy(fields ...string) Record {
	out := make(Record, len(rec))
	if len(fields) == 0 {
		for k, v := range rec {
			out[k] = v
		}
		return out
	}
	out[FieldID] = rec[FieldID]
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

// FirstSuccess returns the record of the first successful result.
// When none succeeded, the error wraps ErrDuplicate if every failure was a duplicate, ErrFailed otherwise.
func FirstSuccess(results []Result) (Record, error) {
	msgs := make([]string, 0, len(results))
	cause, dups := ErrFailed, 0
	for _, res := range results {
		if res.Success {
			return res.Record, nil
		}
		if res.Duplicate {
			dups++
		}
		if res.Message != "" {
			msgs = append(msgs, res.Message)
		}
	}
	if dups > 0 && dups == len(results) {
		cause = ErrDuplicate
	}
	if len(msgs) > 0 {
		return nil, errors.Wrap(cause, strings.Join(msgs, "; "))
	}
	return nil, cause
}

// Validate checks that params only use known operators and aggregate functions.
func (p FetchParams) Validate() error {
	check := func(conds []Condition) error {
		for _, c := range conds {
			if !c.Operator.Valid() {
				return errors.Errorf("invalid operator %q on %q", c.Operator, c.Field)
			}
			if len(c.Values) == 0 {
				return errors.Errorf("no values for condition on %q", c.Field)
			}
		}
		return nil
	}
	if err := check(p.Where); err != nil {
		return err
	}
	for _, g := range p.WhereGroups {
		if g.Operator != And && g.Operator != Or {
			return errors.Errorf("invalid where group operator %q", g.Operator)
		}
		if err := check(g.Conditions); err != nil {
			return err
		}
	}
	for _, a := range p.Aggregators {
		switch a.Function {
		case Count, Sum, Min, Max:
		default:
			return errors.Errorf("invalid aggregator function %q", a.Function)
		}
		if a.Alias == "" {
			return errors.Errorf("missing alias for %s(%s)", a.Function, a.Field)
		}
	}
	return nil
}

type actorKey struct{}

// WithActor returns a context carrying the ID of the user performing record mutations.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// Actor returns the user ID set by WithActor, if any.
func Actor(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

// Stamp sets the system fields of a record about to be created.
func Stamp(ctx context.Context, rec Record, id string, now time.Time) Record {
	out := rec.Copy()
	actor := Actor(ctx)
	out[FieldID] = id
	out[FieldCreatedOn] = now
	out[FieldModifiedOn] = now
	if actor != "" {
		if _, ok := out[FieldOwner]; !ok {
			out[FieldOwner] = actor
		}
		out[FieldCreatedBy] = actor
		out[FieldModifiedBy] = actor
	}
	return out
}

// StampUpdate sets the modification system fields of a record about to be updated.
func StampUpdate(ctx context.Context, rec Record, now time.Time) Record {
	out := rec.Copy()
	out[FieldModifiedOn] = now
	if actor := Actor(ctx); actor != "" {
		out[FieldModifiedBy] = actor
	}
	return out
}

// System holds the system fields of a decoded record.
type System struct {
	ID         string    `json:"id" record:"id"`
	Name       string    `json:"name" record:"name"`
	Tags       string    `json:"tags,omitempty" record:"tags"`
	Owner      string    `json:"owner,omitempty" record:"owner"`
	CreatedOn  time.Time `json:"created_on" record:"created_on"`
	CreatedBy  string    `json:"created_by,omitempty" record:"created_by"`
	ModifiedOn time.Time `json:"modified_on" record:"modified_on"`
	ModifiedBy string    `json:"modified_by,omitempty" record:"modified_by"`
}

// Fields returns the system fields followed by the given fields.
func Fields(fields ...string) []string {
	out := make([]string, 0, len(SystemFields)+len(fields))
	out = append(out, SystemFields...)
	return append(out, fields...)
}

package inmemdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/jamii/core/record"
)

func matchAll(rec record.Record, conds []record.Condition) bool {
	for _, c := range conds {
		if !match(rec, c) {
			return false
		}
	}
	return true
}

func matchGroups(rec record.Record, groups []record.WhereGroup) bool {
	for _, g := range groups {
		if len(g.Conditions) == 0 {
			continue
		}
		if g.Operator == record.Or {
			ok := false
			for _, c := range g.Conditions {
				if match(rec, c) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		} else if !matchAll(rec, g.Conditions) {
			return false
		}
	}
	return true
}

func match(rec record.Record, c record.Condition) bool {
	v := rec[c.Field]
	switch c.Operator {
	case record.Equals:
		for _, want := range c.Values {
			if compare(v, want) == 0 && v != nil {
				return true
			}
		}
		return false
	case record.NotEquals:
		for _, want := range c.Values {
			if v != nil && compare(v, want) == 0 {
				return false
			}
		}
		return true
	case record.Contains:
		if v == nil {
			return false
		}
		s := strings.ToLower(fmt.Sprintf("%v", v))
		for _, want := range c.Values {
			if strings.Contains(s, strings.ToLower(fmt.Sprintf("%v", want))) {
				return true
			}
		}
		return false
	}

	if v == nil || len(c.Values) == 0 {
		return false
	}
	cmp := compare(v, c.Values[0])
	switch c.Operator {
	case record.GreaterThan:
		return cmp > 0
	case record.GreaterThanOrEqual:
		return cmp >= 0
	case record.LessThan:
		return cmp < 0
	case record.LessThanOrEqual:
		return cmp <= 0
	}
	return false
}

// compare orders two field values: nil first, then times, numbers, bools and strings.
func compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

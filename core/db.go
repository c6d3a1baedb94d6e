package core

import "strings"

// DBOrdering sorts query results on one field.
type DBOrdering struct {
	Field     string
	Ascending bool
}

// ParseOrderings reads a comma separated list of fields, each optionally prefixed by "-" for descending order.
func ParseOrderings(s string) []DBOrdering {
	var out []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		name := strings.TrimPrefix(field, "-")
		if name == "" {
			continue
		}
		out = append(out, DBOrdering{Field: name, Ascending: name == field})
	}
	return out
}

// String renders the ordering as an SQL ORDER BY term.
func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}

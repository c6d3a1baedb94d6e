package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/jamii/core/record"
	"github.com/trezcool/jamii/core/user"
)

var NowFunc = time.Now // mockable

type (
	DB struct {
		user    *userTable
		records *recordTables
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	recordTables struct {
		sync.RWMutex
		tables map[string]*recordTable
	}

	// recordTable keeps insertion order so that unordered fetches are stable.
	recordTable struct {
		rows  map[string]record.Record
		order []string
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		records: &recordTables{tables: make(map[string]*recordTable)},
	}
}

// table returns the named table, creating it if create is set. Callers must hold the lock.
func (rt *recordTables) table(name string, create bool) *recordTable {
	t, ok := rt.tables[name]
	if !ok && create {
		t = &recordTable{rows: make(map[string]record.Record)}
		rt.tables[name] = t
	}
	return t
}

func (t *recordTable) all() []record.Record {
	recs := make([]record.Record, 0, len(t.order))
	for _, id := range t.order {
		recs = append(recs, t.rows[id])
	}
	return recs
}

func (t *recordTable) remove(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Package storage opens the configured storage backend.
package storage

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/storage/database"
	"github.com/trezcool/jamii/storage/database/inmem"
	"github.com/trezcool/jamii/storage/database/sqlx"
	"github.com/trezcool/jamii/storage/instrumented"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Store struct {
	Users   user.Repository
	Records record.Client

	db *sql.DB // nil for the memory backend
}

// Open sets up the backend named by conf.Storage.Backend. Record mutations are reported to notifier.
func Open(ctx context.Context, conf *core.Config, notifier record.Notifier, logger core.Logger) (*Store, error) {
	var st Store

	switch conf.Storage.Backend {
	case BackendMemory, "":
		db := inmemdb.Open()
		st.Users = inmemdb.NewUserRepository(db)
		st.Records = inmemdb.NewRecordClient(db)

	case BackendPostgres:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		dbx := sqlx.NewDb(db, conf.Database.Engine)
		st.db = db
		st.Users = sqlxrepos.NewUserRepository(dbx)
		st.Records = sqlxrepos.NewRecordClient(dbx)

	default:
		return nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
	}

	st.Records = instrumented.NewRecordClient(st.Records, notifier, logger)
	return &st, nil
}

func (st *Store) Close() error {
	if st.db == nil {
		return nil
	}
	return st.db.Close()
}

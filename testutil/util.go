package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/jamii/core/record"
	"github.com/trezcool/jamii/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// CreateRecord inserts rec into table and returns the stored record.
func CreateRecord(t *testing.T, client record.Client, table string, rec record.Record) record.Record {
	results, err := client.CreateRecords(context.Background(), table, rec)
	if err != nil {
		t.Fatalf("createRecord() failed: %v", err)
	}
	created, err := record.FirstSuccess(results)
	if err != nil {
		t.Fatalf("createRecord() failed: %v", err)
	}
	return created
}

package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}
	exists := err == nil

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
	}
	usr.Username = uname
	usr.Email = email
	usr.Roles = roles
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr.UpdatedAt = now
	if exists {
		if err = cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email, usr); err != nil {
			return err
		}
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err
	}

	if err = cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email); err != nil {
		return err
	}
	usr.CreatedAt = now
	_, err = cli.usrRepo.CreateUser(ctx, usr)
	return err
}

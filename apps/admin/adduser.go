package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	role := user.RoleAcademicAdmin
	if isAdmin {
		role = user.RoleAdmin
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, user.NewUser{
			Email:     email,
			Password:  pwd,
			FirstName: "Admin",
			LastName:  "User",
			Role:      role,
		})
		return err
	}

	usr.Role = role
	usr.IsActive = true
	_, err = cli.usrSvc.SetPassword(ctx, usr, pwd)
	return err
}

package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
)

func setup(t *testing.T) *commandLine {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return &commandLine{
		usrSvc: user.NewService(dummydb.NewUserRepository(db)),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotCommand string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version", "fix": // pass
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "defaults to up", args: []string{"migrate"}},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErrStr != "" {
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
				return
			}
			if err != nil {
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}

	if gotCommand != "version" {
		t.Errorf("last goose command = %q; want version", gotCommand)
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-email", "boss@test.cd"}, pwd: "passwd123"},
		{name: "create admin", args: []string{"adduser", "-email", "root@test.cd", "-admin"}, pwd: "passwd123"},
		{name: "update existing", args: []string{"adduser", "-email", "boss@test.cd", "-admin"}, pwd: "changed123"},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte(tt.pwd), nil }

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(append([]string{"admin"}, tt.args...)); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	boss, err := cli.usrSvc.GetByEmail(ctx, "boss@test.cd")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	if boss.Role != user.RoleAdmin || !boss.IsActive {
		t.Errorf("unexpected user: %+v", boss)
	}
	if err = boss.CheckPassword("changed123"); err != nil {
		t.Error("failed to update password")
	}

	root, err := cli.usrSvc.GetByEmail(ctx, "root@test.cd")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	if root.Role != user.RoleAdmin {
		t.Errorf("role = %q; want admin", root.Role)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	usr, err := cli.usrSvc.Create(ctx, user.NewUser{
		Email:     "awe@test.cd",
		Password:  "original123",
		FirstName: "User",
		LastName:  "Awe",
		Role:      user.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", usr.Email}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: "whatever1", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwd: "changed123"},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte(tt.pwd), nil }

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if err == nil {
				refreshed, err := cli.usrSvc.GetByID(ctx, usr.ID)
				if err != nil {
					t.Fatalf("GetByID() failed: %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

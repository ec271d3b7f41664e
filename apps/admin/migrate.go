package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/trezcool/academia/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	command := "up"
	arguments := make([]string, 0)
	if len(args) > 0 {
		command = args[0]
		arguments = append(arguments, args[1:]...)
	}
	goose.SetBaseFS(appfs.FS)
	return gooseRunFunc(command, cli.db, "migrations", arguments...)
}

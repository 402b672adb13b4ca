package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/store"
)

func runDB(args []string) error {
	if len(args) == 0 {
		return errs.New(errs.CodeInvalidInput, "usage: db init")
	}
	switch args[0] {
	case "init":
		return runDBInit(args[1:])
	default:
		return errs.New(errs.CodeInvalidInput, "unknown db subcommand %q", args[0])
	}
}

func runDBInit(args []string) error {
	fs := flag.NewFlagSet("db init", flag.ExitOnError)
	_ = fs.Parse(args)

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "store ready at %s\n", a.paths.DBPath)
	return nil
}

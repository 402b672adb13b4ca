package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/logging"
)

var version = "dev"

func main() {
	logging.Setup()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(int(errs.CodeInvalidInput))
	}

	code := dispatch(os.Args[1], os.Args[2:])
	os.Exit(int(code))
}

func dispatch(cmd string, args []string) (code errs.Code) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered", "command", cmd, "panic", r)
			code = errs.CodeGeneric
		}
	}()

	var err error
	switch cmd {
	case "version":
		fmt.Println(version)
		return errs.CodeOK
	}

	logging.PrintBanner(cmd, version, strings.Join(args, " "))

	switch cmd {
	case "db":
		err = runDB(args)
	case "project":
		err = runProject(args)
	case "agent":
		err = runAgent(args)
	case "session":
		err = runSession(args)
	case "send":
		err = runSend(args)
	case "broadcast":
		err = runBroadcast(args)
	default:
		printUsage()
		return errs.CodeInvalidInput
	}

	if err != nil {
		slog.Error("command failed", "command", cmd, "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return errs.CodeOf(err)
	}
	return errs.CodeOK
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: multiagents <db|project|agent|session|send|broadcast|version> [flags]")
}

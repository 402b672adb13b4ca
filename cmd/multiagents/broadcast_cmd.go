package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/router"
	"github.com/multiagents/multiagents/internal/store"
)

func runBroadcast(args []string) error {
	if len(args) == 0 {
		return errs.New(errs.CodeInvalidInput, "usage: broadcast <oneshot|repl> [flags]")
	}
	switch args[0] {
	case "oneshot":
		return runBroadcastDispatch(args[1:], store.BroadcastOneshot)
	case "repl":
		return runBroadcastDispatch(args[1:], store.BroadcastRepl)
	default:
		return errs.New(errs.CodeInvalidInput, "unknown broadcast subcommand %q", args[0])
	}
}

func runBroadcastDispatch(args []string, mode store.BroadcastMode) error {
	fs := flag.NewFlagSet("broadcast "+string(mode), flag.ExitOnError)
	project := fs.String("project", "", "project name")
	targetsExpr := fs.String("targets", "@all", "target expression: @role|@all|<agent>|<conversation_id>,...")
	message := fs.String("message", "", "message text")
	timeoutMS := fs.Int("timeout-ms", 120_000, "per-target timeout in milliseconds (oneshot mode only)")
	format := fs.String("format", "text", "output format: text|json")
	_ = fs.Parse(args)

	if *message == "" {
		return errs.New(errs.CodeInvalidInput, "broadcast requires --message")
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	p, err := a.store.GetProjectByName(ctx, *project)
	if err != nil {
		return err
	}

	targets, err := router.Expand(ctx, a.store, p.ID, *targetsExpr)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errs.New(errs.CodeInvalidInput, "target expression %q resolved to no targets", *targetsExpr)
	}

	result, err := a.broadcasts.Dispatch(ctx, p.ID, targets, *message, mode, time.Duration(*timeoutMS)*time.Millisecond)
	if err != nil {
		return err
	}

	if *format == "json" {
		if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(os.Stdout, "broadcast_id=%s\n", result.BroadcastID)
		for _, tr := range result.Targets {
			fmt.Fprintf(os.Stdout, "%s\t%s\t%dms\n", tr.AgentName, tr.Outcome, tr.DurMS)
		}
	}

	if result.ExitCode != errs.CodeOK {
		return errs.New(result.ExitCode, "broadcast: all targets failed")
	}
	return nil
}

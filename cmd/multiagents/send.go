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

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	project := fs.String("project", "", "project name")
	to := fs.String("to", "@all", "target expression: @role|@all|<agent>|<conversation_id>")
	message := fs.String("message", "", "message text")
	timeoutMS := fs.Int("timeout-ms", 120_000, "per-target timeout in milliseconds")
	format := fs.String("format", "text", "output format: text|json")
	_ = fs.Parse(args)

	if *message == "" {
		return errs.New(errs.CodeInvalidInput, "send requires --message")
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

	targets, err := router.Expand(ctx, a.store, p.ID, *to)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errs.New(errs.CodeInvalidInput, "target expression %q resolved to no targets", *to)
	}

	result, err := a.broadcasts.Dispatch(ctx, p.ID, targets, *message, store.BroadcastOneshot, time.Duration(*timeoutMS)*time.Millisecond)
	if err != nil {
		return err
	}

	if *format == "json" {
		if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
			return err
		}
	} else {
		for _, tr := range result.Targets {
			fmt.Fprintf(os.Stdout, "%s\t%s\t%dms\n", tr.AgentName, tr.Outcome, tr.DurMS)
		}
	}

	if result.ExitCode != errs.CodeOK {
		return errs.New(result.ExitCode, "send: all targets failed")
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/session"
	"github.com/multiagents/multiagents/internal/store"
)

// sessionCleanupTTL is the idle window after which an active session is
// marked expired (spec §6 "session cleanup ... applies 24 h TTL").
const sessionCleanupTTL = 24 * time.Hour

func runSession(args []string) error {
	if len(args) == 0 {
		return errs.New(errs.CodeInvalidInput, "usage: session <start|list|resume|cleanup> [flags]")
	}
	switch args[0] {
	case "start":
		return runSessionStart(args[1:])
	case "list":
		return runSessionList(args[1:])
	case "resume":
		return runSessionResume(args[1:])
	case "cleanup":
		return runSessionCleanup(args[1:])
	default:
		return errs.New(errs.CodeInvalidInput, "unknown session subcommand %q", args[0])
	}
}

func runSessionStart(args []string) error {
	fs := flag.NewFlagSet("session start", flag.ExitOnError)
	project := fs.String("project", "", "project name")
	agentName := fs.String("agent", "", "agent name")
	_ = fs.Parse(args)

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	agent, err := lookupAgent(ctx, a, *project, *agentName)
	if err != nil {
		return err
	}

	sess, err := a.sessions.Resolve(ctx, agent, "")
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "conversation_id=%s\n", sess.ID)
	return nil
}

func runSessionList(args []string) error {
	fs := flag.NewFlagSet("session list", flag.ExitOnError)
	project := fs.String("project", "", "project name")
	agentName := fs.String("agent", "", "agent name")
	providerKey := fs.String("provider", "", "provider key")
	format := fs.String("format", "text", "output format: text|json")
	_ = fs.Parse(args)

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

	sessions, err := a.store.ListSessions(ctx, p.ID, store.SessionListFilter{
		Agent: *agentName, ProviderKey: *providerKey,
	})
	if err != nil {
		return err
	}

	if *format == "json" {
		return json.NewEncoder(os.Stdout).Encode(sessions)
	}
	for _, s := range sessions {
		lastActive := "never"
		if s.LastActivity != nil {
			lastActive = humanize.Time(*s.LastActivity)
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\tlast active %s\n", s.ID, s.ProviderKey, s.Status, lastActive)
	}
	return nil
}

func runSessionResume(args []string) error {
	fs := flag.NewFlagSet("session resume", flag.ExitOnError)
	conversationID := fs.String("conversation-id", "", "conversation id")
	timeoutMS := fs.Int("timeout-ms", int(session.DefaultResumeTimeout/time.Millisecond), "resolution timeout in milliseconds")
	_ = fs.Parse(args)

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutMS)*time.Millisecond)
	defer cancel()

	sess, err := a.sessions.Resolve(ctx, nil, *conversationID)
	if err != nil {
		if ctx.Err() != nil {
			return errs.New(errs.CodeTimeout, "session resume timed out")
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "conversation_id=%s status=%s\n", sess.ID, sess.Status)
	return nil
}

func runSessionCleanup(args []string) error {
	fs := flag.NewFlagSet("session cleanup", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report without mutating")
	format := fs.String("format", "text", "output format: text|json")
	_ = fs.Parse(args)

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	idleSeconds := int64(sessionCleanupTTL / time.Second)

	var expired int64
	if !*dryRun {
		expired, err = a.store.CleanupExpiredSessions(ctx, idleSeconds)
		if err != nil {
			return err
		}
	}

	if *format == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{"expired": expired, "dry_run": *dryRun})
	}
	fmt.Fprintf(os.Stdout, "expired=%s dry_run=%t\n", humanize.Comma(expired), *dryRun)
	return nil
}

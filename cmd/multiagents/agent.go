package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/eventlog"
	"github.com/multiagents/multiagents/internal/provider"
	"github.com/multiagents/multiagents/internal/session"
	"github.com/multiagents/multiagents/internal/store"
	"github.com/multiagents/multiagents/internal/tmux"
	"github.com/multiagents/multiagents/internal/validate"
)

func runAgent(args []string) error {
	if len(args) == 0 {
		return errs.New(errs.CodeInvalidInput, "usage: agent <add|run|attach|stop> [flags]")
	}
	switch args[0] {
	case "add":
		return runAgentAdd(args[1:])
	case "run":
		return runAgentRun(args[1:])
	case "attach":
		return runAgentAttach(args[1:])
	case "stop":
		return runAgentStop(args[1:])
	default:
		return errs.New(errs.CodeInvalidInput, "unknown agent subcommand %q", args[0])
	}
}

func runAgentAdd(args []string) error {
	fs := flag.NewFlagSet("agent add", flag.ExitOnError)
	project := fs.String("project", "", "project name")
	name := fs.String("name", "", "agent name")
	role := fs.String("role", "", "agent role")
	providerKey := fs.String("provider", "", "provider key (claude-like|cursor-like|gemini-like)")
	model := fs.String("model", "", "provider model identifier")
	_ = fs.Parse(args)

	if err := validate.ValidateName(*name); err != nil {
		return errs.New(errs.CodeInvalidInput, "%v", err)
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

	agent, err := a.store.CreateAgent(ctx, store.CreateAgentParams{
		ProjectID: p.ID, Name: *name, Role: *role, ProviderKey: *providerKey, Model: *model,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "agent_id=%s\n", agent.ID)
	return nil
}

func lookupAgent(ctx context.Context, a *app, projectName, agentName string) (*store.Agent, error) {
	p, err := a.store.GetProjectByName(ctx, projectName)
	if err != nil {
		return nil, err
	}
	return a.store.GetAgentByName(ctx, p.ID, agentName)
}

// runAgentRun implements the REPL startup sequence: ensure the project's
// multiplexer session, ensure the agent's window running the provider's
// REPL command, pipe pane output to the per-role log unless disabled,
// and emit a start event.
func runAgentRun(args []string) error {
	fs := flag.NewFlagSet("agent run", flag.ExitOnError)
	project := fs.String("project", "", "project name")
	agentName := fs.String("agent", "", "agent name")
	noLogs := fs.Bool("no-logs", false, "do not pipe the pane to the event log")
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

	key := provider.Key(agent.ProviderKey)
	tmpl, ok := a.registry[key]
	if !ok {
		return errs.New(errs.CodeProviderUnavailable, "unknown provider %q", agent.ProviderKey)
	}

	sess, err := a.sessions.Resolve(ctx, agent, "")
	if err != nil {
		return err
	}

	renderCtx := provider.Context{
		SessionID: session.NativeToken(key, sess), ChatID: session.NativeToken(key, sess),
		SystemPrompt: agent.SystemPrompt,
	}
	command := shellCommand(tmpl.Command, tmpl.RenderReplArgs(renderCtx))

	if err := a.tmux.EnsureWindow(ctx, *project, agent.Role, agent.Name, command); err != nil {
		return err
	}

	if !*noLogs {
		logPath := filepath.Join(a.paths.LogsDir, *project, agent.Role+".ndjson")
		if err := a.tmux.EnablePanePipe(ctx, *project, agent.Role, agent.Name, logPath); err != nil {
			return err
		}
	}

	if err := a.log.Append(*project, agent.Role, eventlog.Record{
		ProjectID: *project, AgentRole: agent.Role, AgentID: agent.ID,
		Provider: agent.ProviderKey, SessionID: sess.ID,
		Direction: eventlog.DirectionSystem, Event: eventlog.EventStart,
	}); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "conversation_id=%s\n", sess.ID)
	return nil
}

func runAgentAttach(args []string) error {
	fs := flag.NewFlagSet("agent attach", flag.ExitOnError)
	project := fs.String("project", "", "project name")
	_ = fs.Parse(args)

	argv := tmux.AttachCommand(*project)
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return errs.New(errs.CodeMultiplexerError, "tmux binary not found: %v", err)
	}

	if !isTerminal(os.Stdout) {
		fmt.Fprintf(os.Stderr, "not attached to a terminal; run: %s\n", strings.Join(argv, " "))
		return nil
	}

	return syscall.Exec(path, argv, os.Environ())
}

func runAgentStop(args []string) error {
	fs := flag.NewFlagSet("agent stop", flag.ExitOnError)
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

	warning, err := a.tmux.StopWindow(ctx, *project, agent.Role, agent.Name)
	if err != nil {
		return err
	}
	if warning {
		fmt.Fprintf(os.Stderr, "warning: window for %s was already gone\n", agent.Name)
		return nil
	}

	// A window that was stopped cleanly (not already gone, handled above)
	// carries exit_code 0: the stop itself succeeded, and no provider
	// process exit code survives killing a tmux window (spec §4.1, §8).
	stoppedCleanly := 0
	return a.log.Append(*project, agent.Role, eventlog.Record{
		ProjectID: *project, AgentRole: agent.Role, AgentID: agent.ID,
		Provider: agent.ProviderKey,
		Direction: eventlog.DirectionSystem, Event: eventlog.EventEnd,
		ExitCode: &stoppedCleanly,
	})
}

func shellCommand(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(command))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

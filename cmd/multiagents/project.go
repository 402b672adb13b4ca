package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/multiagents/multiagents/internal/config"
	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/store"
	"github.com/multiagents/multiagents/internal/validate"
)

func runProject(args []string) error {
	if len(args) == 0 {
		return errs.New(errs.CodeInvalidInput, "usage: project <add|sync> [flags]")
	}
	switch args[0] {
	case "add":
		return runProjectAdd(args[1:])
	case "sync":
		return runProjectSync(args[1:])
	default:
		return errs.New(errs.CodeInvalidInput, "unknown project subcommand %q", args[0])
	}
}

func runProjectAdd(args []string) error {
	fs := flag.NewFlagSet("project add", flag.ExitOnError)
	name := fs.String("name", "", "project name")
	_ = fs.Parse(args)

	if err := validate.ValidateName(*name); err != nil {
		return errs.New(errs.CodeInvalidInput, "%v", err)
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.store.CreateProject(context.Background(), *name)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "project_id=%s\n", p.ID)
	return nil
}

// runProjectSync drives spec.md §1's declarative pipeline end to end: an
// external collaborator produces a configuration snapshot file, and this
// command is the one caller of config.Load and
// store.EnsureProjectFromConfig that turns it into persisted
// projects/agents (spec §4.2).
func runProjectSync(args []string) error {
	fs := flag.NewFlagSet("project sync", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a project configuration snapshot (YAML)")
	_ = fs.Parse(args)

	if *configPath == "" {
		return errs.New(errs.CodeInvalidInput, "project sync requires --config")
	}

	snap, err := config.Load(*configPath)
	if err != nil {
		return errs.New(errs.CodeMissingConfig, "load config %q: %v", *configPath, err)
	}
	if err := validate.ValidateName(snap.ProjectName); err != nil {
		return errs.New(errs.CodeInvalidInput, "%v", err)
	}

	specs := make([]store.AgentConfigSpec, len(snap.Agents))
	for i, a := range snap.Agents {
		specs[i] = store.AgentConfigSpec{
			Name: a.Name, Role: a.Role, ProviderKey: a.ProviderKey,
			Model: a.Model, AllowedTools: a.AllowedTools, SystemPrompt: a.SystemPrompt,
		}
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.store.EnsureProjectFromConfig(context.Background(), snap.ProjectName, specs)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "project_id=%s agents=%d\n", p.ID, len(specs))
	return nil
}

// Package config resolves the on-disk locations the core reads and writes
// (config dir, store path, logs dir) and loads the configuration snapshot
// the core consumes. Schema validation and interactive `config init`/
// `config validate` authoring are external collaborators (spec §1); this
// package only has to turn a snapshot file plus the process environment
// into the structured value store.EnsureProjectFromConfig expects.
package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AgentSpec is one agent entry in a project's configuration snapshot.
type AgentSpec struct {
	Name          string   `koanf:"name"`
	Role          string   `koanf:"role"`
	ProviderKey   string   `koanf:"provider"`
	Model         string   `koanf:"model"`
	AllowedTools  []string `koanf:"allowed_tools"`
	SystemPrompt  string   `koanf:"system_prompt"`
}

// Snapshot is the structured value the core consumes from the external
// configuration loader: a project name plus its declared agents. The core
// never parses the author-facing config file format itself.
type Snapshot struct {
	ProjectName string      `koanf:"project"`
	Agents      []AgentSpec `koanf:"agents"`
}

// Paths holds the resolved on-disk locations for one invocation, following
// the XDG-style priority chains in spec §6.
type Paths struct {
	ConfigDir string
	DBPath    string
	LogsDir   string
}

// ResolvePaths applies the priority chains:
//
//	config dir: MULTI_AGENTS_CONFIG_DIR -> MULTI_AGENTS_HOME/config ->
//	            XDG_CONFIG_HOME/multi-agents -> $HOME/.config/multi-agents -> ./config
//	store path: MULTI_AGENTS_DB -> MULTI_AGENTS_HOME/multi-agents.sqlite3 ->
//	            XDG_DATA_HOME/multi-agents/multi-agents.sqlite3 ->
//	            $HOME/.local/share/multi-agents/multi-agents.sqlite3 ->
//	            ./data/multi-agents.sqlite3
//	logs:       analogous chain ending in ./logs
func ResolvePaths(getenv func(string) string) Paths {
	if getenv == nil {
		getenv = os.Getenv
	}
	home := getenv("MULTI_AGENTS_HOME")
	userHome := getenv("HOME")

	configDir := firstNonEmpty(
		getenv("MULTI_AGENTS_CONFIG_DIR"),
		joinIfSet(home, "config"),
		joinIfSet(getenv("XDG_CONFIG_HOME"), "multi-agents"),
		joinIfSet(userHome, ".config", "multi-agents"),
		"./config",
	)

	dbPath := firstNonEmpty(
		getenv("MULTI_AGENTS_DB"),
		joinIfSet(home, "multi-agents.sqlite3"),
		joinIfSet(getenv("XDG_DATA_HOME"), "multi-agents", "multi-agents.sqlite3"),
		joinIfSet(userHome, ".local", "share", "multi-agents", "multi-agents.sqlite3"),
		"./data/multi-agents.sqlite3",
	)

	logsDir := firstNonEmpty(
		getenv("MULTI_AGENTS_LOGS_DIR"),
		joinIfSet(home, "logs"),
		joinIfSet(getenv("XDG_DATA_HOME"), "multi-agents", "logs"),
		joinIfSet(userHome, ".local", "share", "multi-agents", "logs"),
		"./logs",
	)

	return Paths{ConfigDir: configDir, DBPath: dbPath, LogsDir: logsDir}
}

func joinIfSet(base string, parts ...string) string {
	if base == "" {
		return ""
	}
	return filepath.Join(append([]string{base}, parts...)...)
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// Load reads a YAML configuration snapshot from path, layered under one
// environment override: MULTI_AGENTS_PROJECT replaces the project name.
// No other MULTI_AGENTS_* variable is read (see envTransform). The
// environment value wins over the file value, matching the priority order
// path resolution already uses.
func Load(path string) (Snapshot, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Snapshot{}, err
	}

	if err := k.Load(env.Provider("MULTI_AGENTS_", ".", envTransform), nil); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := k.Unmarshal("", &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// envTransform maps MULTI_AGENTS_PROJECT to the "project" key, leaving
// nested agent definitions to the file layer (environment overrides only
// make sense for scalar, project-wide settings).
func envTransform(s string) string {
	switch s {
	case "MULTI_AGENTS_PROJECT":
		return "project"
	default:
		return ""
	}
}

// Merge layers an in-memory override map on top of a loaded snapshot.
// Only the "project" key is applied; agent entries are returned unchanged.
func Merge(base Snapshot, overrides map[string]any) (Snapshot, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"project": base.ProjectName,
	}, "."), nil); err != nil {
		return Snapshot{}, err
	}
	if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
		return Snapshot{}, err
	}
	merged := base
	if v := k.String("project"); v != "" {
		merged.ProjectName = v
	}
	return merged, nil
}

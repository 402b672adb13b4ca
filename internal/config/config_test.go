package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiagents/multiagents/internal/config"
)

func TestResolvePaths_ExplicitOverrides(t *testing.T) {
	env := map[string]string{
		"MULTI_AGENTS_CONFIG_DIR": "/explicit/config",
		"MULTI_AGENTS_DB":         "/explicit/db.sqlite3",
		"MULTI_AGENTS_LOGS_DIR":   "/explicit/logs",
	}
	paths := config.ResolvePaths(func(k string) string { return env[k] })
	assert.Equal(t, "/explicit/config", paths.ConfigDir)
	assert.Equal(t, "/explicit/db.sqlite3", paths.DBPath)
	assert.Equal(t, "/explicit/logs", paths.LogsDir)
}

func TestResolvePaths_HomeFallback(t *testing.T) {
	env := map[string]string{
		"MULTI_AGENTS_HOME": "/home/work/.multi-agents",
	}
	paths := config.ResolvePaths(func(k string) string { return env[k] })
	assert.Equal(t, filepath.Join("/home/work/.multi-agents", "config"), paths.ConfigDir)
	assert.Equal(t, filepath.Join("/home/work/.multi-agents", "multi-agents.sqlite3"), paths.DBPath)
}

func TestResolvePaths_FinalFallbackIsRelative(t *testing.T) {
	paths := config.ResolvePaths(func(k string) string { return "" })
	assert.Equal(t, "./config", paths.ConfigDir)
	assert.Equal(t, "./data/multi-agents.sqlite3", paths.DBPath)
	assert.Equal(t, "./logs", paths.LogsDir)
}

func TestLoad_ParsesAgents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	content := `
project: demo
agents:
  - name: backend
    role: engineer
    provider: claude-like
    model: sonnet
    allowed_tools: ["Read", "Write"]
    system_prompt: "You write Go."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	snap, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", snap.ProjectName)
	require.Len(t, snap.Agents, 1)
	assert.Equal(t, "backend", snap.Agents[0].Name)
	assert.Equal(t, []string{"Read", "Write"}, snap.Agents[0].AllowedTools)
}

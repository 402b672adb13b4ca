package tmux_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiagents/multiagents/internal/tmux"
)

func requireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux binary not available in test environment")
	}
}

func uniqueProject(t *testing.T) string {
	t.Helper()
	return "multiagents-test-" + t.Name()
}

func cleanupSession(t *testing.T, project string) {
	t.Helper()
	t.Cleanup(func() {
		_ = exec.Command("tmux", "kill-session", "-t", tmux.SessionName(project)).Run()
	})
}

func TestEnsureWindow_Idempotent(t *testing.T) {
	requireTmux(t)
	project := uniqueProject(t)
	cleanupSession(t, project)

	d := tmux.New()
	ctx := context.Background()

	require.NoError(t, d.EnsureWindow(ctx, project, "backend", "backend", "sleep 60"))
	require.NoError(t, d.EnsureWindow(ctx, project, "backend", "backend", "sleep 60"))

	out, err := exec.Command("tmux", "list-windows", "-t", tmux.SessionName(project), "-F", "#{window_name}").Output()
	require.NoError(t, err)
	assert.Equal(t, "backend:backend\n", string(out))
}

func TestStopWindow_MissingIsSuccessWithWarning(t *testing.T) {
	requireTmux(t)
	project := uniqueProject(t)
	cleanupSession(t, project)

	d := tmux.New()
	ctx := context.Background()
	require.NoError(t, d.EnsureSession(ctx, project))

	warning, err := d.StopWindow(ctx, project, "backend", "ghost")
	require.NoError(t, err)
	assert.True(t, warning)
}

func TestStopWindow_DoesNotKillSession(t *testing.T) {
	requireTmux(t)
	project := uniqueProject(t)
	cleanupSession(t, project)

	d := tmux.New()
	ctx := context.Background()
	require.NoError(t, d.EnsureWindow(ctx, project, "backend", "backend", "sleep 60"))

	warning, err := d.StopWindow(ctx, project, "backend", "backend")
	require.NoError(t, err)
	assert.False(t, warning)

	err = exec.Command("tmux", "has-session", "-t", tmux.SessionName(project)).Run()
	assert.NoError(t, err, "session should still exist after stopping a window")
}

func TestEnablePanePipe_NoDuplicate(t *testing.T) {
	requireTmux(t)
	project := uniqueProject(t)
	cleanupSession(t, project)

	d := tmux.New()
	ctx := context.Background()
	require.NoError(t, d.EnsureWindow(ctx, project, "backend", "backend", "sleep 60"))

	path := filepath.Join(t.TempDir(), "backend.ndjson")
	require.NoError(t, d.EnablePanePipe(ctx, project, "backend", "backend", path))
	require.NoError(t, d.EnablePanePipe(ctx, project, "backend", "backend", path))

	out, err := exec.Command("tmux", "list-panes", "-t",
		tmux.SessionName(project)+":"+tmux.WindowName("backend", "backend"), "-F", "#{pane_pipe}").Output()
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(out))
}

func TestSendKeys(t *testing.T) {
	requireTmux(t)
	project := uniqueProject(t)
	cleanupSession(t, project)

	d := tmux.New()
	ctx := context.Background()
	require.NoError(t, d.EnsureWindow(ctx, project, "backend", "backend", "sh"))
	require.NoError(t, d.SendKeys(ctx, project, "backend", "backend", "echo hi"))
	time.Sleep(200 * time.Millisecond)
}

func TestAttachCommand(t *testing.T) {
	assert.Equal(t, []string{"tmux", "attach-session", "-t", "proj:demo"}, tmux.AttachCommand("demo"))
}

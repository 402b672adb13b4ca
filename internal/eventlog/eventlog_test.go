package eventlog_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiagents/multiagents/internal/eventlog"
)

func TestAppend_CreatesFileAndDirectories(t *testing.T) {
	dir := t.TempDir()
	w := eventlog.NewWriter(dir)

	exitCode := 0
	err := w.Append("demo", "backend", eventlog.Record{
		Level: "info", ProjectID: "p1", AgentRole: "backend", AgentID: "a1",
		Provider: "claude-like", Direction: eventlog.DirectionSystem,
		Event: eventlog.EventEnd, ExitCode: &exitCode,
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "demo", "backend.ndjson")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec eventlog.Record
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &rec)) // strip trailing newline
	assert.Equal(t, "p1", rec.ProjectID)
	assert.NotEmpty(t, rec.TS)
}

func TestAppend_StripsANSI(t *testing.T) {
	dir := t.TempDir()
	w := eventlog.NewWriter(dir)

	err := w.Append("demo", "backend", eventlog.Record{
		ProjectID: "p1", AgentRole: "backend", AgentID: "a1", Provider: "claude-like",
		Direction: eventlog.DirectionAgent, Event: eventlog.EventStdoutLine,
		Text: "\x1b[31mhello\x1b[0m",
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "demo", "backend.ndjson")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec eventlog.Record
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &rec))
	assert.Equal(t, "hello", rec.Text)
}

func TestAppend_OneLinePerRecordValidJSON(t *testing.T) {
	dir := t.TempDir()
	w := eventlog.NewWriter(dir)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append("demo", "backend", eventlog.Record{
			ProjectID: "p1", AgentRole: "backend", AgentID: "a1", Provider: "claude-like",
			Direction: eventlog.DirectionAgent, Event: eventlog.EventStdoutLine, Text: "line",
		}))
	}

	path := filepath.Join(dir, "demo", "backend.ndjson")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var rec eventlog.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		count++
	}
	assert.Equal(t, 5, count)
}

func TestAppend_ConcurrentWritesSerialize(t *testing.T) {
	dir := t.TempDir()
	w := eventlog.NewWriter(dir)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Append("demo", "backend", eventlog.Record{
				ProjectID: "p1", AgentRole: "backend", AgentID: "a1", Provider: "claude-like",
				Direction: eventlog.DirectionAgent, Event: eventlog.EventStdoutLine, Text: "x",
			})
		}()
	}
	wg.Wait()

	path := filepath.Join(dir, "demo", "backend.ndjson")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		require.True(t, json.Valid(scanner.Bytes()))
		count++
	}
	assert.Equal(t, 20, count)
}

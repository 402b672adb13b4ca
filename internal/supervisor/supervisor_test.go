package supervisor_test

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiagents/multiagents/internal/eventlog"
	"github.com/multiagents/multiagents/internal/supervisor"
)

func routedLine(t *testing.T, role, broadcastID string) []byte {
	t.Helper()
	rec := eventlog.Record{
		AgentRole: role, BroadcastID: broadcastID,
		Direction: eventlog.DirectionSystem, Event: eventlog.EventRouted,
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	return b
}

func TestRoutedSummary_Scenario6(t *testing.T) {
	var lines [][]byte
	counts := map[string]struct {
		role    string
		n       int
		bcastID string
	}{
		"backend_b1":  {"backend", 18, "b1"},
		"frontend_b1": {"frontend", 9, "b1"},
	}
	_ = counts

	add := func(role, bcast string, n int) {
		for i := 0; i < n; i++ {
			lines = append(lines, routedLine(t, role, bcast))
		}
	}
	// b1: 20 events, b2: 10 events, totals backend:18 frontend:9 devops:3
	add("backend", "b1", 13)
	add("frontend", "b1", 6)
	add("devops", "b1", 1)
	add("backend", "b2", 5)
	add("frontend", "b2", 3)
	add("devops", "b2", 2)

	summary := supervisor.RoutedSummary(lines)
	assert.Equal(t, 30, summary.Total)
	assert.Equal(t, 2, summary.UniqueBroadcasts)
	assert.Equal(t, map[string]int{"backend": 18, "frontend": 9, "devops": 3}, summary.PerRole)
	require.Len(t, summary.TopRoles, 3)
	assert.Equal(t, "backend", summary.TopRoles[0].Role)
	assert.Equal(t, 18, summary.TopRoles[0].Count)
	assert.Equal(t, "frontend", summary.TopRoles[1].Role)
	assert.Equal(t, "devops", summary.TopRoles[2].Role)
}

func TestRoutedSummary_IgnoresMalformedAndNonRoutedRecords(t *testing.T) {
	lines := [][]byte{
		[]byte(`not json`),
		routedLine(t, "backend", "b1"),
		mustMarshalStart(t),
	}
	summary := supervisor.RoutedSummary(lines)
	assert.Equal(t, 1, summary.Total)
}

func mustMarshalStart(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(eventlog.Record{AgentRole: "backend", Event: eventlog.EventStart, Direction: eventlog.DirectionSystem})
	require.NoError(t, err)
	return b
}

func TestRoutedSummary_PureUnderPermutation(t *testing.T) {
	var lines [][]byte
	for i := 0; i < 30; i++ {
		role := []string{"backend", "frontend", "devops"}[i%3]
		bcast := []string{"b1", "b2"}[i%2]
		lines = append(lines, routedLine(t, role, bcast))
	}

	base := supervisor.RoutedSummary(lines)

	shuffled := append([][]byte(nil), lines...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	permuted := supervisor.RoutedSummary(shuffled)

	assert.Equal(t, base.Total, permuted.Total)
	assert.Equal(t, base.UniqueBroadcasts, permuted.UniqueBroadcasts)
	assert.Equal(t, base.PerRole, permuted.PerRole)
}

func TestRoutedSummary_TopRolesCappedAtTen(t *testing.T) {
	var lines [][]byte
	for i := 0; i < 15; i++ {
		role := string(rune('a' + i))
		lines = append(lines, routedLine(t, role, "b1"))
	}
	summary := supervisor.RoutedSummary(lines)
	assert.LessOrEqual(t, len(summary.TopRoles), 10)
}

// Package supervisor derives per-role and per-broadcast statistics from
// event logs via a pure routed_summary function (spec §4.10).
package supervisor

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/multiagents/multiagents/internal/eventlog"
)

// RoleCount pairs a role with its routed-event count, used for the
// top_roles ranking.
type RoleCount struct {
	Role  string
	Count int
}

// Summary is routed_summary's return value (spec §4.10).
// P95LatencyPerBroadcast is keyed by broadcast id; routed events without
// a broadcast id or a dur_ms do not contribute to it.
type Summary struct {
	Total                  int
	PerRole                map[string]int
	UniqueBroadcasts       int
	P95LatencyPerBroadcast map[string]float64
	TopRoles               []RoleCount
}

// RoutedSummary computes Summary from a stream of decoded NDJSON lines.
// It is deterministic, ignores malformed records, and never raises on
// missing optional fields (spec §4.10, §8 "routed_summary is pure").
func RoutedSummary(lines [][]byte) Summary {
	perRole := make(map[string]int)
	broadcastSeen := make(map[string]bool)
	latencies := make(map[string][]float64)

	for _, line := range lines {
		var rec eventlog.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Event != eventlog.EventRouted {
			continue
		}

		perRole[rec.AgentRole]++

		if rec.BroadcastID != "" {
			broadcastSeen[rec.BroadcastID] = true
			if rec.DurMS != nil {
				latencies[rec.BroadcastID] = append(latencies[rec.BroadcastID], float64(*rec.DurMS))
			}
		}
	}

	p95 := make(map[string]float64, len(latencies))
	for bid, values := range latencies {
		p95[bid] = percentile95(values)
	}

	total := 0
	roles := make([]RoleCount, 0, len(perRole))
	for role, count := range perRole {
		total += count
		roles = append(roles, RoleCount{Role: role, Count: count})
	}

	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Count != roles[j].Count {
			return roles[i].Count > roles[j].Count
		}
		return roles[i].Role < roles[j].Role
	})
	if len(roles) > 10 {
		roles = roles[:10]
	}

	return Summary{
		Total:                  total,
		PerRole:                perRole,
		UniqueBroadcasts:       len(broadcastSeen),
		P95LatencyPerBroadcast: p95,
		TopRoles:               roles,
	}
}

// percentile95 returns the 95th percentile of values using the
// nearest-rank method, or 0 for an empty input.
func percentile95(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

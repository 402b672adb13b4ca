// Package router implements the Message Router: it expands target
// specifications (@all, @role, bare agent names, conversation ids) into
// a deduplicated, insertion-ordered list of agents (spec §4.8).
package router

import (
	"context"
	"errors"
	"strings"

	"github.com/multiagents/multiagents/internal/store"
)

// Target is one resolved destination: either an Agent (for @all/@role/
// bare-name matches) or a bare conversation id (when the literal target
// doesn't match any agent name).
type Target struct {
	Agent          *store.Agent
	ConversationID string // set only when Agent is nil
}

// Expand resolves a comma-separated target expression against a
// project's agents, in the order spec.md §4.8 describes: @all expands
// to every agent, @<role> to every agent with that role, a bare name is
// looked up by (project, name) and falls back to being treated as a
// conversation id if no agent matches. Duplicates collapse; agents come
// in agent insertion order whatever order the expression names them in,
// followed by literal conversation ids in first-occurrence order.
func Expand(ctx context.Context, s *store.Store, projectID, expr string) ([]Target, error) {
	var out []Target
	seenAgent := make(map[string]bool)
	seenConv := make(map[string]bool)

	for _, raw := range strings.Split(expr, ",") {
		part := strings.TrimSpace(raw)
		if part == "" {
			continue
		}

		switch {
		case part == "@all":
			agents, err := s.ListAgents(ctx, projectID)
			if err != nil {
				return nil, err
			}
			for _, a := range agents {
				if !seenAgent[a.ID] {
					seenAgent[a.ID] = true
					out = append(out, Target{Agent: a})
				}
			}

		case strings.HasPrefix(part, "@"):
			role := strings.TrimPrefix(part, "@")
			agents, err := s.ListAgentsByRole(ctx, projectID, role)
			if err != nil {
				return nil, err
			}
			for _, a := range agents {
				if !seenAgent[a.ID] {
					seenAgent[a.ID] = true
					out = append(out, Target{Agent: a})
				}
			}

		default:
			agent, err := s.GetAgentByName(ctx, projectID, part)
			if err == nil {
				if !seenAgent[agent.ID] {
					seenAgent[agent.ID] = true
					out = append(out, Target{Agent: agent})
				}
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			if !seenConv[part] {
				seenConv[part] = true
				out = append(out, Target{ConversationID: part})
			}
		}
	}

	agents, err := s.ListAgents(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ordered := make([]Target, 0, len(out))
	for _, a := range agents {
		if seenAgent[a.ID] {
			ordered = append(ordered, Target{Agent: a})
		}
	}
	for _, t := range out {
		if t.Agent == nil {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/multiagents/multiagents/internal/timefmt"
)

// CreateAgentParams is the input to CreateAgent; AllowedTools preserves
// caller order since the provider adapter renders {allowed_tools} as an
// ordered token sequence, not a set.
type CreateAgentParams struct {
	ProjectID    string
	Name         string
	Role         string
	ProviderKey  string
	Model        string
	AllowedTools []string
	SystemPrompt string
}

// CreateAgent inserts a new agent. (project_id, name) uniqueness is
// enforced by the schema (invariant 2).
func (s *Store) CreateAgent(ctx context.Context, p CreateAgentParams) (*Agent, error) {
	a := &Agent{
		ID:           newRowID(),
		ProjectID:    p.ProjectID,
		Name:         p.Name,
		Role:         p.Role,
		ProviderKey:  p.ProviderKey,
		Model:        p.Model,
		AllowedTools: p.AllowedTools,
		SystemPrompt: p.SystemPrompt,
		CreatedAt:    timefmt.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (id, project_id, name, role, provider_key, model, allowed_tools, system_prompt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.Name, a.Role, a.ProviderKey, a.Model,
		marshalTools(a.AllowedTools), a.SystemPrompt, nowStr())
	if err != nil {
		return nil, storeErr(err, "create agent")
	}
	return a, nil
}

// UpdateAgent applies a config-sync update to an existing agent's mutable
// fields (role, provider, model, allowed tools, system prompt). Name and
// project_id never change after creation.
func (s *Store) UpdateAgent(ctx context.Context, agentID string, p CreateAgentParams) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE agents SET role = ?, provider_key = ?, model = ?, allowed_tools = ?, system_prompt = ?
		 WHERE id = ?`,
		p.Role, p.ProviderKey, p.Model, marshalTools(p.AllowedTools), p.SystemPrompt, agentID)
	if err != nil {
		return storeErr(err, "update agent")
	}
	return nil
}

// GetAgentByName looks up an agent within a project by its unique name.
func (s *Store) GetAgentByName(ctx context.Context, projectID, name string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, role, provider_key, model, allowed_tools, system_prompt, created_at
		 FROM agents WHERE project_id = ? AND name = ?`, projectID, name)
	return scanAgent(row)
}

// GetAgent looks up an agent by id.
func (s *Store) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, role, provider_key, model, allowed_tools, system_prompt, created_at
		 FROM agents WHERE id = ?`, agentID)
	return scanAgent(row)
}

// ListAgents returns every agent in a project in insertion order (rowid
// order), which the Message Router relies on when expanding @all/@role.
func (s *Store) ListAgents(ctx context.Context, projectID string) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, role, provider_key, model, allowed_tools, system_prompt, created_at
		 FROM agents WHERE project_id = ? ORDER BY rowid ASC`, projectID)
	if err != nil {
		return nil, storeErr(err, "list agents")
	}
	defer rows.Close()
	return scanAgents(rows)
}

// ListAgentsByRole returns every agent in a project with the given role,
// in insertion order.
func (s *Store) ListAgentsByRole(ctx context.Context, projectID, role string) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, role, provider_key, model, allowed_tools, system_prompt, created_at
		 FROM agents WHERE project_id = ? AND role = ? ORDER BY rowid ASC`, projectID, role)
	if err != nil {
		return nil, storeErr(err, "list agents by role")
	}
	defer rows.Close()
	return scanAgents(rows)
}

func scanAgent(row *sql.Row) (*Agent, error) {
	var a Agent
	var tools, createdAt string
	if err := row.Scan(&a.ID, &a.ProjectID, &a.Name, &a.Role, &a.ProviderKey, &a.Model, &tools, &a.SystemPrompt, &createdAt); err != nil {
		return nil, storeErr(err, "scan agent")
	}
	a.AllowedTools = unmarshalTools(tools)
	a.CreatedAt, _ = timefmt.Parse(createdAt)
	return &a, nil
}

func scanAgents(rows *sql.Rows) ([]*Agent, error) {
	var out []*Agent
	for rows.Next() {
		var a Agent
		var tools, createdAt string
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Name, &a.Role, &a.ProviderKey, &a.Model, &tools, &a.SystemPrompt, &createdAt); err != nil {
			return nil, storeErr(err, "scan agent row")
		}
		a.AllowedTools = unmarshalTools(tools)
		a.CreatedAt, _ = timefmt.Parse(createdAt)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate agents")
	}
	return out, nil
}

// EnsureProjectFromConfig idempotently creates/updates a project and its
// agents from a configuration snapshot, in a single transaction (spec
// §4.2). Existing agents are updated in place; new ones are created.
func (s *Store) EnsureProjectFromConfig(ctx context.Context, projectName string, agents []AgentConfigSpec) (*Project, error) {
	var project *Project

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		project, err = ensureProjectTx(ctx, tx, projectName)
		if err != nil {
			return err
		}

		for _, spec := range agents {
			existing, err := getAgentByNameTx(ctx, tx, project.ID, spec.Name)
			if err != nil && err != ErrNotFound {
				return err
			}
			if existing == nil {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO agents (id, project_id, name, role, provider_key, model, allowed_tools, system_prompt, created_at)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					newRowID(), project.ID, spec.Name, spec.Role, spec.ProviderKey, spec.Model,
					marshalTools(spec.AllowedTools), spec.SystemPrompt, nowStr()); err != nil {
					return storeErr(err, "create agent from config")
				}
			} else {
				if _, err := tx.ExecContext(ctx,
					`UPDATE agents SET role = ?, provider_key = ?, model = ?, allowed_tools = ?, system_prompt = ? WHERE id = ?`,
					spec.Role, spec.ProviderKey, spec.Model, marshalTools(spec.AllowedTools), spec.SystemPrompt, existing.ID); err != nil {
					return storeErr(err, "update agent from config")
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// AgentConfigSpec is the per-agent shape ensure_project_from_config reads
// from a configuration snapshot (internal/config.AgentSpec, restated here
// to keep the store package decoupled from the config loader).
type AgentConfigSpec struct {
	Name         string
	Role         string
	ProviderKey  string
	Model        string
	AllowedTools []string
	SystemPrompt string
}

func ensureProjectTx(ctx context.Context, tx *sql.Tx, name string) (*Project, error) {
	row := tx.QueryRowContext(ctx, `SELECT id, name, created_at FROM projects WHERE name = ?`, name)
	var p Project
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &createdAt)
	if err == nil {
		p.CreatedAt, _ = timefmt.Parse(createdAt)
		return &p, nil
	}
	if err != sql.ErrNoRows {
		return nil, storeErr(err, "lookup project")
	}

	p = Project{ID: newRowID(), Name: name, CreatedAt: timefmt.Now()}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, nowStr()); err != nil {
		return nil, storeErr(err, "create project from config")
	}
	return &p, nil
}

func getAgentByNameTx(ctx context.Context, tx *sql.Tx, projectID, name string) (*Agent, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, project_id, name, role, provider_key, model, allowed_tools, system_prompt, created_at
		 FROM agents WHERE project_id = ? AND name = ?`, projectID, name)
	var a Agent
	var tools, createdAt string
	err := row.Scan(&a.ID, &a.ProjectID, &a.Name, &a.Role, &a.ProviderKey, &a.Model, &tools, &a.SystemPrompt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr(err, "scan agent")
	}
	a.AllowedTools = unmarshalTools(tools)
	a.CreatedAt, _ = timefmt.Parse(createdAt)
	return &a, nil
}

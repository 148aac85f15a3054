package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
)

const agentColumns = `id, project_id, name, program, model, task_description, inception_at, last_active_at`

// InsertAgent creates a new identity. A (project, name) collision surfaces
// as a unique-constraint error the registry turns into a retry (generated
// names) or a resume (caller-chosen names).
func (s *Store) InsertAgent(ctx context.Context, agent core.Agent) (core.Agent, error) {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	now := s.now()
	if agent.InceptionAt.IsZero() {
		agent.InceptionAt = now
	}
	if agent.LastActiveAt.IsZero() {
		agent.LastActiveAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (`+agentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.Project, agent.Name, agent.Program, agent.Model,
		agent.TaskDescription, formatTime(agent.InceptionAt), formatTime(agent.LastActiveAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Agent{}, fmt.Errorf("agent %q: %w", agent.Name, ErrNameTaken)
		}
		return core.Agent{}, fmt.Errorf("insert agent: %w", err)
	}
	return agent, nil
}

// ErrNameTaken reports a per-project agent name collision.
var ErrNameTaken = errors.New("agent name already registered")

func (s *Store) GetAgentByName(ctx context.Context, project, name string) (core.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE project_id = ? AND name = ?`,
		project, name,
	)
	return scanAgent(row)
}

func (s *Store) getAgentByID(ctx context.Context, id string) (core.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// ResumeAgent refreshes a returning identity: program/model/task description
// and last_active_at are updated, everything else is untouched.
func (s *Store) ResumeAgent(ctx context.Context, project, name, program, model, taskDescription string) (core.Agent, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents
		 SET program = CASE WHEN ? != '' THEN ? ELSE program END,
		     model = CASE WHEN ? != '' THEN ? ELSE model END,
		     task_description = CASE WHEN ? != '' THEN ? ELSE task_description END,
		     last_active_at = ?
		 WHERE project_id = ? AND name = ?`,
		program, program, model, model, taskDescription, taskDescription,
		formatTime(s.now()), project, name,
	)
	if err != nil {
		return core.Agent{}, fmt.Errorf("resume agent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Agent{}, fmt.Errorf("resume agent: %w", err)
	}
	if n == 0 {
		return core.Agent{}, fmt.Errorf("agent %q: %w", name, core.ErrNotFound)
	}
	return s.GetAgentByName(ctx, project, name)
}

// TouchAgent bumps last_active_at; every identity-touching call goes
// through here.
func (s *Store) TouchAgent(ctx context.Context, agentID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE agents SET last_active_at = ? WHERE id = ?`,
		formatTime(s.now()), agentID,
	)
	if err != nil {
		return fmt.Errorf("touch agent: %w", err)
	}
	return nil
}

// ListAgents returns a project's agents, most recently active first. An
// empty project lists every agent in the installation.
func (s *Store) ListAgents(ctx context.Context, project string) ([]core.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	var args []any
	if project != "" {
		query += ` WHERE project_id = ?`
		args = append(args, project)
	}
	query += ` ORDER BY last_active_at DESC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []core.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, agent)
	}
	return out, rows.Err()
}

func scanAgent(row scanner) (core.Agent, error) {
	var a core.Agent
	var program, model, taskDescription sql.NullString
	var inceptionAt, lastActiveAt string
	err := row.Scan(&a.ID, &a.Project, &a.Name, &program, &model, &taskDescription, &inceptionAt, &lastActiveAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Agent{}, fmt.Errorf("agent: %w", core.ErrNotFound)
		}
		return core.Agent{}, fmt.Errorf("scan agent: %w", err)
	}
	a.Program = program.String
	a.Model = model.String
	a.TaskDescription = taskDescription.String
	a.InceptionAt = parseTime(inceptionAt)
	a.LastActiveAt = parseTime(lastActiveAt)
	return a, nil
}

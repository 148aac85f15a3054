// Package registry manages agent identities: registration, session resume,
// name generation, and the last-active bookkeeping every identity-touching
// call performs.
package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/names"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage/sqlite"
)

// maxNameAttempts bounds generated-name collision retries.
const maxNameAttempts = 16

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// Store is the slice of the storage contract the registry needs.
type Store interface {
	InsertAgent(ctx context.Context, agent core.Agent) (core.Agent, error)
	GetAgentByName(ctx context.Context, project, name string) (core.Agent, error)
	ResumeAgent(ctx context.Context, project, name, program, model, taskDescription string) (core.Agent, error)
	TouchAgent(ctx context.Context, agentID string) error
	ListAgents(ctx context.Context, project string) ([]core.Agent, error)
}

type Registry struct {
	store Store
}

func New(store Store) *Registry {
	return &Registry{store: store}
}

// Register creates or resumes an identity in the project. With no name, a
// generated Adjective+Noun identifier is allocated (bounded retries on
// collision). With a name that already exists, the call is a session
// resume: program/model/description are refreshed and the existing
// identity returned with created=false.
func (r *Registry) Register(ctx context.Context, project, name, program, model, taskDescription string) (core.Agent, bool, error) {
	if name == "" {
		return r.registerGenerated(ctx, project, program, model, taskDescription)
	}
	if !namePattern.MatchString(name) {
		return core.Agent{}, false, core.NewValidationError("name", "must start with a letter and contain only letters, digits, '-' or '_'")
	}

	agent, err := r.store.InsertAgent(ctx, core.Agent{
		Project:         project,
		Name:            name,
		Program:         program,
		Model:           model,
		TaskDescription: taskDescription,
	})
	if err == nil {
		return agent, true, nil
	}
	if !errors.Is(err, sqlite.ErrNameTaken) {
		return core.Agent{}, false, err
	}

	agent, err = r.store.ResumeAgent(ctx, project, name, program, model, taskDescription)
	if err != nil {
		return core.Agent{}, false, err
	}
	return agent, false, nil
}

func (r *Registry) registerGenerated(ctx context.Context, project, program, model, taskDescription string) (core.Agent, bool, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		agent, err := r.store.InsertAgent(ctx, core.Agent{
			Project:         project,
			Name:            names.Generate(),
			Program:         program,
			Model:           model,
			TaskDescription: taskDescription,
		})
		if err == nil {
			return agent, true, nil
		}
		if !errors.Is(err, sqlite.ErrNameTaken) {
			return core.Agent{}, false, err
		}
	}
	return core.Agent{}, false, fmt.Errorf("could not allocate an unused name after %d attempts", maxNameAttempts)
}

// WhoAmI resolves the session's recorded name back to an identity and bumps
// its last-active timestamp.
func (r *Registry) WhoAmI(ctx context.Context, project, name string) (core.Agent, error) {
	if name == "" {
		return core.Agent{}, core.ErrNotRegistered
	}
	agent, err := r.store.GetAgentByName(ctx, project, name)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Agent{}, core.ErrNotRegistered
		}
		return core.Agent{}, err
	}
	if err := r.store.TouchAgent(ctx, agent.ID); err != nil {
		return core.Agent{}, err
	}
	return agent, nil
}

// List returns the project's agents, most recently active first. An empty
// project lists every agent in the installation.
func (r *Registry) List(ctx context.Context, project string) ([]core.Agent, error) {
	return r.store.ListAgents(ctx, project)
}

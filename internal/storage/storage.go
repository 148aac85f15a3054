// Package storage defines the persistence contract the coordination engine
// is written against. The only production implementation is the sqlite
// subpackage; services depend on the narrow slices of this interface they
// actually use.
package storage

import (
	"context"
	"time"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
)

// InboxFilter narrows an inbox listing. Messages are returned newest first.
// The agent's identity is the scope: cross-project sends (@project:X) must
// reach their recipients, so no project predicate applies here.
type InboxFilter struct {
	AgentID string

	// UnreadOnly keeps only messages where the agent is a recipient with no
	// ack recorded. HideAcked drops messages the agent has acknowledged,
	// even when the ack was optional.
	UnreadOnly bool
	HideAcked  bool
	ThreadID   string
	Limit      int
}

// SearchFilter narrows a ranked message search. An empty Project searches
// the whole installation.
type SearchFilter struct {
	Project  string
	ThreadID string
	Query    string
	Limit    int
}

// ReservationFilter narrows a reservation listing. Expired rows are always
// excluded; results come back in creation order.
type ReservationFilter struct {
	Project string
	AgentID string
	Prefix  string
}

// Store is the full persistence surface.
type Store interface {
	// Projects
	EnsureProject(ctx context.Context, humanKey string) (core.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (core.Project, error)
	ListProjects(ctx context.Context) ([]core.Project, error)

	// Agents
	InsertAgent(ctx context.Context, agent core.Agent) (core.Agent, error)
	GetAgentByName(ctx context.Context, project, name string) (core.Agent, error)
	ResumeAgent(ctx context.Context, project, name, program, model, taskDescription string) (core.Agent, error)
	TouchAgent(ctx context.Context, agentID string) error
	ListAgents(ctx context.Context, project string) ([]core.Agent, error)

	// Messages
	CreateMessage(ctx context.Context, msg core.Message, recipientIDs []string) (core.Message, error)
	GetMessage(ctx context.Context, id string) (core.Message, error)
	Inbox(ctx context.Context, f InboxFilter) ([]core.Message, error)
	InboxCounts(ctx context.Context, agentID string) (total, unread int, err error)
	AckMessage(ctx context.Context, messageID, agentID string) error
	SearchMessages(ctx context.Context, f SearchFilter) ([]core.Message, error)

	// Reservations
	Reserve(ctx context.Context, r core.Reservation) (core.Reservation, error)
	ReleaseReservations(ctx context.Context, project, agentID, pattern string) (int, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]core.Reservation, error)
	PurgeExpired(ctx context.Context, olderThan time.Time) (int, error)

	Close() error
}

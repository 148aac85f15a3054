// Package mailbox stores threaded messages with per-recipient
// acknowledgment state and resolves symbolic broadcast addresses at send
// time.
package mailbox

import (
	"context"
	"time"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage"
)

// Store is the slice of the storage contract the mailbox needs. The write
// operations bump the acting agent's last-active timestamp inside their own
// transactions.
type Store interface {
	GetAgentByName(ctx context.Context, project, name string) (core.Agent, error)
	ListAgents(ctx context.Context, project string) ([]core.Agent, error)
	ListProjects(ctx context.Context) ([]core.Project, error)
	CreateMessage(ctx context.Context, msg core.Message, recipientIDs []string) (core.Message, error)
	GetMessage(ctx context.Context, id string) (core.Message, error)
	Inbox(ctx context.Context, f storage.InboxFilter) ([]core.Message, error)
	InboxCounts(ctx context.Context, agentID string) (int, int, error)
	AckMessage(ctx context.Context, messageID, agentID string) error
	SearchMessages(ctx context.Context, f storage.SearchFilter) ([]core.Message, error)
}

type Mailbox struct {
	store        Store
	activeWindow time.Duration
	now          func() time.Time
}

func New(store Store, activeWindow time.Duration) *Mailbox {
	if activeWindow <= 0 {
		activeWindow = 60 * time.Minute
	}
	return &Mailbox{
		store:        store,
		activeWindow: activeWindow,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SendInput carries everything a send needs. ThreadID is opaque, usually an
// external task ID, and may be empty.
type SendInput struct {
	Project     string
	From        string
	To          string // comma-separated recipient specifiers
	Subject     string
	Body        string
	ThreadID    string
	Importance  string
	AckRequired bool
}

// Send resolves the recipient specifiers against a registry snapshot taken
// now, freezes the result into recipient rows, and stores the message
// atomically with them.
func (m *Mailbox) Send(ctx context.Context, in SendInput) (core.Message, error) {
	if in.From == "" {
		return core.Message{}, core.NewValidationError("from", "must not be empty")
	}
	if in.Body == "" {
		return core.Message{}, core.NewValidationError("body", "must not be empty")
	}
	if !core.ValidImportance(in.Importance) {
		return core.Message{}, core.NewValidationError("importance", "must be normal, high, or urgent")
	}

	sender, err := m.store.GetAgentByName(ctx, in.Project, in.From)
	if err != nil {
		return core.Message{}, err
	}

	snap, err := m.snapshot(ctx)
	if err != nil {
		return core.Message{}, err
	}
	recipients, err := ResolveRecipients(in.To, sender.ID, in.Project, snap, m.now(), m.activeWindow)
	if err != nil {
		return core.Message{}, err
	}
	ids := make([]string, len(recipients))
	for i, a := range recipients {
		ids[i] = a.ID
	}

	return m.store.CreateMessage(ctx, core.Message{
		Project:     in.Project,
		From:        sender.ID,
		ThreadID:    in.ThreadID,
		Subject:     in.Subject,
		Body:        in.Body,
		Importance:  in.Importance,
		AckRequired: in.AckRequired,
	}, ids)
}

func (m *Mailbox) snapshot(ctx context.Context) (Snapshot, error) {
	agents, err := m.store.ListAgents(ctx, "")
	if err != nil {
		return Snapshot{}, err
	}
	projects, err := m.store.ListProjects(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	bySlug := make(map[string]string, len(projects))
	for _, p := range projects {
		bySlug[p.Slug] = p.ID
	}
	return Snapshot{ProjectsBySlug: bySlug, Agents: agents}, nil
}

// Get returns one message with its recipient rows.
func (m *Mailbox) Get(ctx context.Context, messageID string) (core.Message, error) {
	return m.store.GetMessage(ctx, messageID)
}

// InboxOptions narrow an inbox listing; see storage.InboxFilter.
type InboxOptions struct {
	UnreadOnly bool
	HideAcked  bool
	ThreadID   string
	Limit      int
}

// Inbox lists messages the agent sent or received, newest first.
func (m *Mailbox) Inbox(ctx context.Context, project, agentName string, opts InboxOptions) ([]core.Message, error) {
	agent, err := m.store.GetAgentByName(ctx, project, agentName)
	if err != nil {
		return nil, err
	}
	return m.store.Inbox(ctx, storage.InboxFilter{
		AgentID:    agent.ID,
		UnreadOnly: opts.UnreadOnly,
		HideAcked:  opts.HideAcked,
		ThreadID:   opts.ThreadID,
		Limit:      opts.Limit,
	})
}

// Counts returns (total, unread) for the agent's inbox.
func (m *Mailbox) Counts(ctx context.Context, project, agentName string) (int, int, error) {
	agent, err := m.store.GetAgentByName(ctx, project, agentName)
	if err != nil {
		return 0, 0, err
	}
	return m.store.InboxCounts(ctx, agent.ID)
}

// Ack records the agent's acknowledgment of a message. Idempotent: the
// first call sets ack_ts, a repeat call is a no-op success. The project
// names the acting agent, not the message: recipients of a cross-project
// send ack from their own project.
func (m *Mailbox) Ack(ctx context.Context, project, agentName, messageID string) error {
	agent, err := m.store.GetAgentByName(ctx, project, agentName)
	if err != nil {
		return err
	}
	return m.store.AckMessage(ctx, messageID, agent.ID)
}

// Search returns ranked matches: exact phrase, then all terms, then any
// term, ties broken by recency.
func (m *Mailbox) Search(ctx context.Context, project, query, threadID string, limit int) ([]core.Message, error) {
	return m.store.SearchMessages(ctx, storage.SearchFilter{
		Project:  project,
		ThreadID: threadID,
		Query:    query,
		Limit:    limit,
	})
}

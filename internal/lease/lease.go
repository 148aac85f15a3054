// Package lease grants, releases, and lists path-pattern file reservations.
// Locking is advisory: the manager answers "would this conflict" and "what
// currently exists"; enforcement is a convention of cooperating callers.
package lease

import (
	"context"
	"time"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/glob"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage"
)

// Store is the slice of the storage contract the lease manager needs. The
// write operations bump the agent's last-active timestamp inside their own
// transactions.
type Store interface {
	GetAgentByName(ctx context.Context, project, name string) (core.Agent, error)
	Reserve(ctx context.Context, r core.Reservation) (core.Reservation, error)
	ReleaseReservations(ctx context.Context, project, agentID, pattern string) (int, error)
	ListReservations(ctx context.Context, f storage.ReservationFilter) ([]core.Reservation, error)
	PurgeExpired(ctx context.Context, olderThan time.Time) (int, error)
}

type Manager struct {
	store      Store
	defaultTTL time.Duration
	now        func() time.Time
}

func New(store Store, defaultTTL time.Duration) *Manager {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Manager{
		store:      store,
		defaultTTL: defaultTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Reserve claims the pattern for the named agent. Validation happens before
// any transaction; the conflict scan and the insert share one transaction
// in the store. There is no queueing: on conflict the caller retries or
// picks different work.
func (m *Manager) Reserve(ctx context.Context, project, agentName, pattern string, exclusive bool, reason string, ttl time.Duration) (core.Reservation, error) {
	if err := glob.Validate(pattern); err != nil {
		return core.Reservation{}, err
	}
	if ttl < 0 {
		return core.Reservation{}, core.NewValidationError("ttl", "must not be negative")
	}
	if ttl == 0 {
		ttl = m.defaultTTL
	}

	agent, err := m.store.GetAgentByName(ctx, project, agentName)
	if err != nil {
		return core.Reservation{}, err
	}

	now := m.now()
	return m.store.Reserve(ctx, core.Reservation{
		Project:   project,
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Pattern:   pattern,
		Exclusive: exclusive,
		Reason:    reason,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

// Release drops the agent's reservations matching the pattern exactly.
// Releasing nothing is success with count 0.
func (m *Manager) Release(ctx context.Context, project, agentName, pattern string) (int, error) {
	if err := glob.Validate(pattern); err != nil {
		return 0, err
	}
	agent, err := m.store.GetAgentByName(ctx, project, agentName)
	if err != nil {
		return 0, err
	}
	return m.store.ReleaseReservations(ctx, project, agent.ID, pattern)
}

// List returns the project's active reservations in creation order,
// optionally narrowed to one agent and/or a pattern prefix.
func (m *Manager) List(ctx context.Context, project, agentName, prefix string) ([]core.Reservation, error) {
	f := storage.ReservationFilter{Project: project, Prefix: prefix}
	if agentName != "" {
		agent, err := m.store.GetAgentByName(ctx, project, agentName)
		if err != nil {
			return nil, err
		}
		f.AgentID = agent.ID
	}
	return m.store.ListReservations(ctx, f)
}

// Purge reclaims reservation rows whose TTL elapsed at least grace ago.
// Strictly a maintenance operation; correctness never depends on it because
// every read filters expired rows.
func (m *Manager) Purge(ctx context.Context, grace time.Duration) (int, error) {
	return m.store.PurgeExpired(ctx, m.now().Add(-grace))
}

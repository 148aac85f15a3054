package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage"
)

// Compile-time interface check.
var _ storage.Store = (*ResilientStore)(nil)

// ResilientStore wraps every method of *Store with CircuitBreaker +
// RetryOnBusy. Lock contention is retried with bounded backoff; sustained
// failure opens the breaker and surfaces as StoreBusyError immediately.
type ResilientStore struct {
	inner *Store
	cb    *CircuitBreaker
}

// NewResilient creates a ResilientStore with default circuit breaker
// settings (threshold=5, resetTimeout=30s).
func NewResilient(inner *Store) *ResilientStore {
	return &ResilientStore{inner: inner, cb: NewCircuitBreaker(5, 30*time.Second)}
}

// NewResilientWithBreaker creates a ResilientStore with a custom circuit breaker.
func NewResilientWithBreaker(inner *Store, cb *CircuitBreaker) *ResilientStore {
	return &ResilientStore{inner: inner, cb: cb}
}

// CircuitBreakerState returns the current state of the circuit breaker as a string.
func (r *ResilientStore) CircuitBreakerState() string {
	return r.cb.State().String()
}

func (r *ResilientStore) execute(fn func() error) error {
	var refused error
	err := r.cb.Execute(func() error {
		err := RetryOnBusy(fn)
		if err != nil && isExpectedRefusal(err) {
			// Conflicts, not-founds, and validation rejections are healthy
			// store behavior; they must not trip the breaker.
			refused = err
			return nil
		}
		return err
	})
	if refused != nil {
		return refused
	}
	return err
}

func isExpectedRefusal(err error) bool {
	var ve *core.ValidationError
	var pe *core.PathEscapeError
	return errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrConflict) ||
		errors.Is(err, ErrNameTaken) ||
		errors.As(err, &ve) ||
		errors.As(err, &pe)
}

// Projects

func (r *ResilientStore) EnsureProject(ctx context.Context, humanKey string) (core.Project, error) {
	var result core.Project
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.EnsureProject(ctx, humanKey)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) GetProjectBySlug(ctx context.Context, slug string) (core.Project, error) {
	var result core.Project
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.GetProjectBySlug(ctx, slug)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) ListProjects(ctx context.Context) ([]core.Project, error) {
	var result []core.Project
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.ListProjects(ctx)
		return innerErr
	})
	return result, err
}

// Agents

func (r *ResilientStore) InsertAgent(ctx context.Context, agent core.Agent) (core.Agent, error) {
	var result core.Agent
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.InsertAgent(ctx, agent)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) GetAgentByName(ctx context.Context, project, name string) (core.Agent, error) {
	var result core.Agent
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.GetAgentByName(ctx, project, name)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) ResumeAgent(ctx context.Context, project, name, program, model, taskDescription string) (core.Agent, error) {
	var result core.Agent
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.ResumeAgent(ctx, project, name, program, model, taskDescription)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) TouchAgent(ctx context.Context, agentID string) error {
	return r.execute(func() error {
		return r.inner.TouchAgent(ctx, agentID)
	})
}

func (r *ResilientStore) ListAgents(ctx context.Context, project string) ([]core.Agent, error) {
	var result []core.Agent
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.ListAgents(ctx, project)
		return innerErr
	})
	return result, err
}

// Messages

func (r *ResilientStore) CreateMessage(ctx context.Context, msg core.Message, recipientIDs []string) (core.Message, error) {
	var result core.Message
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.CreateMessage(ctx, msg, recipientIDs)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) GetMessage(ctx context.Context, id string) (core.Message, error) {
	var result core.Message
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.GetMessage(ctx, id)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) Inbox(ctx context.Context, f storage.InboxFilter) ([]core.Message, error) {
	var result []core.Message
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.Inbox(ctx, f)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) InboxCounts(ctx context.Context, agentID string) (int, int, error) {
	var total, unread int
	err := r.execute(func() error {
		var innerErr error
		total, unread, innerErr = r.inner.InboxCounts(ctx, agentID)
		return innerErr
	})
	return total, unread, err
}

func (r *ResilientStore) AckMessage(ctx context.Context, messageID, agentID string) error {
	return r.execute(func() error {
		return r.inner.AckMessage(ctx, messageID, agentID)
	})
}

func (r *ResilientStore) SearchMessages(ctx context.Context, f storage.SearchFilter) ([]core.Message, error) {
	var result []core.Message
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.SearchMessages(ctx, f)
		return innerErr
	})
	return result, err
}

// Reservations

func (r *ResilientStore) Reserve(ctx context.Context, res core.Reservation) (core.Reservation, error) {
	var result core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.Reserve(ctx, res)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) ReleaseReservations(ctx context.Context, project, agentID, pattern string) (int, error) {
	var count int
	err := r.execute(func() error {
		var innerErr error
		count, innerErr = r.inner.ReleaseReservations(ctx, project, agentID, pattern)
		return innerErr
	})
	return count, err
}

func (r *ResilientStore) ListReservations(ctx context.Context, f storage.ReservationFilter) ([]core.Reservation, error) {
	var result []core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.ListReservations(ctx, f)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) PurgeExpired(ctx context.Context, olderThan time.Time) (int, error) {
	var count int
	err := r.execute(func() error {
		var innerErr error
		count, innerErr = r.inner.PurgeExpired(ctx, olderThan)
		return innerErr
	})
	return count, err
}

// Close delegates directly to the inner store without CB or retry.
func (r *ResilientStore) Close() error {
	return r.inner.Close()
}

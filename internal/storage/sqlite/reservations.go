package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/glob"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage"
)

// Reserve checks the active set for overlaps and inserts the new row in the
// same transaction, so a racing second writer always observes the first
// writer's committed reservation. Expired rows never count as conflicts.
func (s *Store) Reserve(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if !r.ExpiresAt.After(r.CreatedAt) {
		return core.Reservation{}, core.NewValidationError("ttl", "must be positive")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("begin reserve: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT fr.agent_id, a.name, fr.pattern, fr.exclusive, fr.reason, fr.expires_at
		 FROM file_reservations fr
		 JOIN agents a ON a.id = fr.agent_id
		 WHERE fr.project_id = ? AND fr.expires_at > ?`,
		r.Project, formatTime(now),
	)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("scan active reservations: %w", err)
	}

	var conflicts []core.ConflictDetail
	for rows.Next() {
		var held core.ConflictDetail
		var exclusive int
		var expiresAt string
		if err := rows.Scan(&held.AgentID, &held.AgentName, &held.Pattern, &exclusive, &held.Reason, &expiresAt); err != nil {
			rows.Close()
			return core.Reservation{}, fmt.Errorf("scan reservation: %w", err)
		}
		held.ExpiresAt = parseTime(expiresAt)

		// Shared reservations coexist; a conflict needs an exclusive side
		// and overlapping path coverage.
		if !r.Exclusive && exclusive == 0 {
			continue
		}
		overlap, err := glob.PatternsOverlap(r.Pattern, held.Pattern)
		if err != nil {
			rows.Close()
			return core.Reservation{}, fmt.Errorf("overlap check: %w", err)
		}
		if overlap {
			conflicts = append(conflicts, held)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return core.Reservation{}, fmt.Errorf("scan active reservations: %w", err)
	}
	rows.Close()

	if len(conflicts) > 0 {
		return core.Reservation{}, &core.ReservationConflictError{Pattern: r.Pattern, Conflicts: conflicts}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO file_reservations (id, project_id, agent_id, pattern, exclusive, reason, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Project, r.AgentID, r.Pattern, boolToInt(r.Exclusive), r.Reason,
		formatTime(r.CreatedAt), formatTime(r.ExpiresAt),
	)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET last_active_at = ? WHERE id = ?`,
		formatTime(now), r.AgentID,
	); err != nil {
		return core.Reservation{}, fmt.Errorf("touch agent: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Reservation{}, fmt.Errorf("commit reserve: %w", err)
	}
	return r, nil
}

// ReleaseReservations deletes the agent's rows matching the pattern exactly
// and bumps their last-active timestamp in the same transaction. Releasing
// nothing is success with 0.
func (s *Store) ReleaseReservations(ctx context.Context, project, agentID, pattern string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin release: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM file_reservations WHERE project_id = ? AND agent_id = ? AND pattern = ?`,
		project, agentID, pattern,
	)
	if err != nil {
		return 0, fmt.Errorf("release reservations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release reservations: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET last_active_at = ? WHERE id = ?`,
		formatTime(s.now()), agentID,
	); err != nil {
		return 0, fmt.Errorf("touch agent: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit release: %w", err)
	}
	return int(n), nil
}

// ListReservations returns active reservations in creation order. Expired
// rows are excluded unconditionally.
func (s *Store) ListReservations(ctx context.Context, f storage.ReservationFilter) ([]core.Reservation, error) {
	query := `SELECT fr.id, fr.project_id, fr.agent_id, a.name, fr.pattern, fr.exclusive, fr.reason, fr.created_at, fr.expires_at
		 FROM file_reservations fr
		 JOIN agents a ON a.id = fr.agent_id
		 WHERE fr.project_id = ? AND fr.expires_at > ?`
	args := []any{f.Project, formatTime(s.now())}

	if f.AgentID != "" {
		query += ` AND fr.agent_id = ?`
		args = append(args, f.AgentID)
	}
	if f.Prefix != "" {
		query += ` AND substr(fr.pattern, 1, length(?)) = ?`
		args = append(args, f.Prefix, f.Prefix)
	}
	query += ` ORDER BY fr.created_at ASC, fr.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []core.Reservation
	for rows.Next() {
		var r core.Reservation
		var exclusive int
		var createdAt, expiresAt string
		if err := rows.Scan(&r.ID, &r.Project, &r.AgentID, &r.AgentName, &r.Pattern,
			&exclusive, &r.Reason, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		r.Exclusive = exclusive != 0
		r.CreatedAt = parseTime(createdAt)
		r.ExpiresAt = parseTime(expiresAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PurgeExpired deletes reservation rows whose TTL elapsed before olderThan.
// Expiry itself is lazy (every read filters); this only reclaims dead rows,
// and only when a caller asks.
func (s *Store) PurgeExpired(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM file_reservations WHERE expires_at <= ?`,
		formatTime(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return int(n), nil
}

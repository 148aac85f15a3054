package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage"
)

const messageColumns = `id, project_id, sender_id, thread_id, subject, body, importance, ack_required, created_at`

// CreateMessage inserts the message, its frozen recipient rows, and the
// sender's last-active bump in one transaction; any failure rolls the whole
// send back.
func (s *Store) CreateMessage(ctx context.Context, msg core.Message, recipientIDs []string) (core.Message, error) {
	if len(recipientIDs) == 0 {
		return core.Message{}, &core.EmptyRecipientSetError{Spec: ""}
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	if msg.Importance == "" {
		msg.Importance = core.ImportanceNormal
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Message{}, fmt.Errorf("begin send: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Project, msg.From, msg.ThreadID, msg.Subject, msg.Body,
		msg.Importance, boolToInt(msg.AckRequired), formatTime(msg.CreatedAt),
	)
	if err != nil {
		return core.Message{}, fmt.Errorf("insert message: %w", err)
	}

	msg.Recipients = msg.Recipients[:0]
	for _, id := range recipientIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO message_recipients (message_id, recipient_id) VALUES (?, ?)`,
			msg.ID, id,
		); err != nil {
			return core.Message{}, fmt.Errorf("insert recipient: %w", err)
		}
		msg.Recipients = append(msg.Recipients, core.Recipient{MessageID: msg.ID, AgentID: id})
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET last_active_at = ? WHERE id = ?`,
		formatTime(s.now()), msg.From,
	); err != nil {
		return core.Message{}, fmt.Errorf("touch sender: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Message{}, fmt.Errorf("commit send: %w", err)
	}
	return msg, nil
}

// GetMessage looks the message up by id alone: recipients of a cross-project
// send live outside the message's own project.
func (s *Store) GetMessage(ctx context.Context, id string) (core.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id,
	)
	msg, err := scanMessage(row)
	if err != nil {
		return core.Message{}, err
	}
	byMessage, err := s.loadRecipients(ctx, []string{msg.ID})
	if err != nil {
		return core.Message{}, err
	}
	msg.Recipients = byMessage[msg.ID]
	return msg, nil
}

// Inbox lists messages where the agent is sender or recipient, newest
// first. Scoped by the agent's identity, never by the message's project:
// a @project:X send lands in a recipient project the message row does not
// belong to. See storage.InboxFilter for the flag semantics.
func (s *Store) Inbox(ctx context.Context, f storage.InboxFilter) ([]core.Message, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + qualified(messageColumns, "m") + ` FROM messages m`)
	args := []any{}

	if f.UnreadOnly {
		sb.WriteString(` JOIN message_recipients r ON r.message_id = m.id
			AND r.recipient_id = ? AND r.ack_at IS NULL
			WHERE 1=1`)
		args = append(args, f.AgentID)
	} else {
		sb.WriteString(` WHERE (m.sender_id = ? OR EXISTS (
			SELECT 1 FROM message_recipients r WHERE r.message_id = m.id AND r.recipient_id = ?))`)
		args = append(args, f.AgentID, f.AgentID)
	}

	if f.ThreadID != "" {
		sb.WriteString(` AND m.thread_id = ?`)
		args = append(args, f.ThreadID)
	}
	if f.HideAcked {
		sb.WriteString(` AND NOT EXISTS (
			SELECT 1 FROM message_recipients r2
			WHERE r2.message_id = m.id AND r2.recipient_id = ? AND r2.ack_at IS NOT NULL)`)
		args = append(args, f.AgentID)
	}

	sb.WriteString(` ORDER BY m.created_at DESC, m.id DESC`)
	if f.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	return s.attachRecipients(ctx, msgs)
}

// InboxCounts returns (total, unread) over the agent's recipient rows.
func (s *Store) InboxCounts(ctx context.Context, agentID string) (int, int, error) {
	var total, unread int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN ack_at IS NULL THEN 1 ELSE 0 END), 0)
		 FROM message_recipients WHERE recipient_id = ?`,
		agentID,
	).Scan(&total, &unread)
	if err != nil {
		return 0, 0, fmt.Errorf("inbox counts: %w", err)
	}
	return total, unread, nil
}

// AckMessage records the agent's acknowledgment and bumps their last-active
// timestamp in one transaction. First write wins; a repeat ack is a no-op
// success; acking a message never addressed to the agent is
// NotARecipientError. The recipient row is the access check, so recipients
// of a cross-project send ack from their own project.
func (s *Store) AckMessage(ctx context.Context, messageID, agentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ack: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE id = ?`, messageID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("ack lookup: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("message %s: %w", messageID, core.ErrNotFound)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE message_recipients SET ack_at = ?
		 WHERE message_id = ? AND recipient_id = ? AND ack_at IS NULL`,
		formatTime(s.now()), messageID, agentID,
	)
	if err != nil {
		return fmt.Errorf("ack message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ack message: %w", err)
	}

	if n == 0 {
		// Zero rows: either already acked (idempotent success) or never a
		// recipient at all.
		var isRecipient int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM message_recipients WHERE message_id = ? AND recipient_id = ?`,
			messageID, agentID,
		).Scan(&isRecipient)
		if err != nil {
			return fmt.Errorf("ack lookup: %w", err)
		}
		if isRecipient == 0 {
			return &core.NotARecipientError{MessageID: messageID, Agent: agentID}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET last_active_at = ? WHERE id = ?`,
		formatTime(s.now()), agentID,
	); err != nil {
		return fmt.Errorf("touch agent: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ack: %w", err)
	}
	return nil
}

func (s *Store) loadRecipients(ctx context.Context, messageIDs []string) (map[string][]core.Recipient, error) {
	out := make(map[string][]core.Recipient, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	placeholders := strings.Repeat("?,", len(messageIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.message_id, r.recipient_id, a.name, r.ack_at
		 FROM message_recipients r
		 JOIN agents a ON a.id = r.recipient_id
		 WHERE r.message_id IN (`+placeholders+`)
		 ORDER BY a.name ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r core.Recipient
		var ackAt sql.NullString
		if err := rows.Scan(&r.MessageID, &r.AgentID, &r.AgentName, &ackAt); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		if ackAt.Valid {
			t := parseTime(ackAt.String)
			r.AckAt = &t
		}
		out[r.MessageID] = append(out[r.MessageID], r)
	}
	return out, rows.Err()
}

func (s *Store) attachRecipients(ctx context.Context, msgs []core.Message) ([]core.Message, error) {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	byMessage, err := s.loadRecipients(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Recipients = byMessage[msgs[i].ID]
	}
	return msgs, nil
}

func collectMessages(rows *sql.Rows) ([]core.Message, error) {
	var out []core.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func scanMessage(row scanner) (core.Message, error) {
	var m core.Message
	var ackRequired int
	var createdAt string
	err := row.Scan(&m.ID, &m.Project, &m.From, &m.ThreadID, &m.Subject, &m.Body,
		&m.Importance, &ackRequired, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Message{}, fmt.Errorf("message: %w", core.ErrNotFound)
		}
		return core.Message{}, fmt.Errorf("scan message: %w", err)
	}
	m.AckRequired = ackRequired != 0
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// qualified prefixes each column in a comma-separated list with a table
// alias.
func qualified(columns, alias string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

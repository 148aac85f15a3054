package core

import "time"

// Importance levels for messages.
const (
	ImportanceNormal = "normal"
	ImportanceHigh   = "high"
	ImportanceUrgent = "urgent"
)

// ValidImportance reports whether s is a recognized importance level.
// The empty string is accepted and treated as normal.
func ValidImportance(s string) bool {
	switch s {
	case "", ImportanceNormal, ImportanceHigh, ImportanceUrgent:
		return true
	}
	return false
}

// Project is the namespace for agents, messages, and reservations.
// HumanKey is the absolute path of the working tree the project wraps.
type Project struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	HumanKey  string    `json:"human_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Agent is a registered identity within a project. Name is unique per
// project and stable until explicit removal.
type Agent struct {
	ID              string    `json:"id"`
	Project         string    `json:"project"`
	Name            string    `json:"name"`
	Program         string    `json:"program,omitempty"`
	Model           string    `json:"model,omitempty"`
	TaskDescription string    `json:"task_description,omitempty"`
	InceptionAt     time.Time `json:"inception_at"`
	LastActiveAt    time.Time `json:"last_active_at"`
}

// Message is immutable after creation; only per-recipient ack state changes.
type Message struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	From        string    `json:"from"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Body        string    `json:"body"`
	Importance  string    `json:"importance"`
	AckRequired bool      `json:"ack_required,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Recipients is populated on reads that join recipient rows.
	Recipients []Recipient `json:"recipients,omitempty"`
}

// Recipient is one frozen delivery row for a message. AckAt is set once,
// first write wins.
type Recipient struct {
	MessageID string     `json:"message_id"`
	AgentID   string     `json:"agent_id"`
	AgentName string     `json:"agent_name,omitempty"`
	AckAt     *time.Time `json:"ack_at,omitempty"`
}

// Reservation is a time-bounded advisory claim over paths matching a glob
// pattern. Active iff now < ExpiresAt.
type Reservation struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	AgentID   string    `json:"agent_id"`
	AgentName string    `json:"agent_name,omitempty"`
	Pattern   string    `json:"pattern"`
	Exclusive bool      `json:"exclusive"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the reservation's TTL has not elapsed at t.
func (r Reservation) Active(t time.Time) bool {
	return t.Before(r.ExpiresAt)
}

// ConflictDetail names the holder blocking a reservation attempt.
type ConflictDetail struct {
	AgentID   string    `json:"agent_id"`
	AgentName string    `json:"agent_name,omitempty"`
	Pattern   string    `json:"pattern"`
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

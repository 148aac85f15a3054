package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers discriminate with errors.Is; the typed errors
// below additionally carry detail and match their sentinel via Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrNotRegistered = errors.New("agent not registered")
	ErrStoreBusy     = errors.New("store busy")
)

// ValidationError rejects malformed input before any transaction begins.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PathEscapeError rejects patterns that are absolute or climb out of the
// project root. Hygiene, not sandboxing.
type PathEscapeError struct {
	Pattern string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("pattern %q escapes the project root", e.Pattern)
}

// As a malformed-input rejection, a PathEscapeError is a ValidationError.
func (e *PathEscapeError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ConflictError is the base sentinel for refused-but-clean operations.
var ErrConflict = errors.New("conflict")

// ReservationConflictError reports that a requested reservation overlaps
// one or more active holders. The store is unchanged.
type ReservationConflictError struct {
	Pattern   string
	Conflicts []ConflictDetail
}

func (e *ReservationConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return fmt.Sprintf("reservation conflict on %q", e.Pattern)
	}
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		holder := c.AgentName
		if holder == "" {
			holder = c.AgentID
		}
		parts = append(parts, fmt.Sprintf("%s holds %q (%s, expires %s)",
			holder, c.Pattern, c.Reason, c.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")))
	}
	return fmt.Sprintf("reservation conflict on %q: %s", e.Pattern, strings.Join(parts, "; "))
}

func (e *ReservationConflictError) Is(target error) bool {
	return target == ErrConflict
}

// EmptyRecipientSetError reports that a recipient specifier resolved to
// zero agents. Never a silent empty send.
type EmptyRecipientSetError struct {
	Spec string
}

func (e *EmptyRecipientSetError) Error() string {
	return fmt.Sprintf("recipient specifier %q resolved to no agents", e.Spec)
}

func (e *EmptyRecipientSetError) Is(target error) bool {
	return target == ErrConflict
}

// NotARecipientError reports an ack attempt by an agent that was never a
// recipient of the message.
type NotARecipientError struct {
	MessageID string
	Agent     string
}

func (e *NotARecipientError) Error() string {
	return fmt.Sprintf("agent %q is not a recipient of message %s", e.Agent, e.MessageID)
}

func (e *NotARecipientError) Is(target error) bool {
	return target == ErrNotFound
}

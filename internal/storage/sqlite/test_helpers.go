package sqlite

import (
	"testing"
	"time"
)

// NewSQLiteTest returns an in-memory store wired for tests.
func NewSQLiteTest(t *testing.T) *Store {
	t.Helper()
	st, err := NewInMemory()
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// SetNow overrides the store's clock, used by expiry tests.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}

package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage/sqlite"
)

func newTestManager(t *testing.T) (*Manager, *sqlite.Store, core.Project) {
	t.Helper()
	st := sqlite.NewSQLiteTest(t)
	project, err := st.EnsureProject(context.Background(), "/work/app")
	if err != nil {
		t.Fatalf("ensure project: %v", err)
	}
	return New(st, time.Hour), st, project
}

func registerAgent(t *testing.T, st *sqlite.Store, project, name string) core.Agent {
	t.Helper()
	agent, err := st.InsertAgent(context.Background(), core.Agent{Project: project, Name: name})
	if err != nil {
		t.Fatalf("insert agent %s: %v", name, err)
	}
	return agent
}

func TestReserveValidatesBeforeStore(t *testing.T) {
	ctx := context.Background()
	mgr, st, project := newTestManager(t)
	registerAgent(t, st, project.ID, "Ann")

	escapes := []struct {
		name    string
		pattern string
	}{
		{name: "absolute pattern", pattern: "/etc/passwd"},
		{name: "parent escape", pattern: "../sibling/**"},
	}
	for _, tc := range escapes {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mgr.Reserve(ctx, project.ID, "Ann", tc.pattern, true, "", 0)
			var perr *core.PathEscapeError
			if !errors.As(err, &perr) {
				t.Fatalf("Reserve(%q) error = %v, want PathEscapeError", tc.pattern, err)
			}
		})
	}

	malformed := []struct {
		name    string
		pattern string
		ttl     time.Duration
	}{
		{name: "brace expansion", pattern: "src/{a,b}/**"},
		{name: "negative ttl", pattern: "src/**", ttl: -time.Minute},
	}
	for _, tc := range malformed {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mgr.Reserve(ctx, project.ID, "Ann", tc.pattern, true, "", tc.ttl)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Reserve(%q) error = %v, want ValidationError", tc.pattern, err)
			}
		})
	}
}

func TestReserveDefaultTTL(t *testing.T) {
	ctx := context.Background()
	mgr, st, project := newTestManager(t)
	registerAgent(t, st, project.ID, "Ann")

	res, err := mgr.Reserve(ctx, project.ID, "Ann", "src/**", true, "refactor", 0)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := res.ExpiresAt.Sub(res.CreatedAt); got != time.Hour {
		t.Fatalf("default ttl = %v, want 1h", got)
	}
	if res.AgentName != "Ann" {
		t.Errorf("agent name = %q, want Ann", res.AgentName)
	}
}

func TestReserveUnknownAgent(t *testing.T) {
	ctx := context.Background()
	mgr, _, project := newTestManager(t)

	_, err := mgr.Reserve(ctx, project.ID, "Ghost", "src/**", true, "", 0)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown agent: error = %v, want ErrNotFound", err)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr, st, project := newTestManager(t)
	registerAgent(t, st, project.ID, "Ann")
	registerAgent(t, st, project.ID, "Bob")

	if _, err := mgr.Reserve(ctx, project.ID, "Ann", "src/auth/**", true, "auth refactor", time.Hour); err != nil {
		t.Fatalf("Ann reserve: %v", err)
	}

	_, err := mgr.Reserve(ctx, project.ID, "Bob", "src/auth/login.ts", true, "login fix", 10*time.Minute)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("Bob reserve: error = %v, want conflict", err)
	}

	count, err := mgr.Release(ctx, project.ID, "Ann", "src/auth/**")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if count != 1 {
		t.Fatalf("released = %d, want 1", count)
	}

	if _, err := mgr.Reserve(ctx, project.ID, "Bob", "src/auth/login.ts", true, "login fix", 10*time.Minute); err != nil {
		t.Fatalf("Bob reserve after release: %v", err)
	}

	list, err := mgr.List(ctx, project.ID, "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].AgentName != "Bob" {
		t.Fatalf("list = %+v, want Bob's reservation only", list)
	}

	byAgent, err := mgr.List(ctx, project.ID, "Ann", "")
	if err != nil {
		t.Fatalf("list by agent: %v", err)
	}
	if len(byAgent) != 0 {
		t.Fatalf("Ann's list = %d, want 0", len(byAgent))
	}
}

package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
)

func TestEnsureProjectIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewSQLiteTest(t)

	first, err := st.EnsureProject(ctx, "/home/dev/orders")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.Slug != "orders" {
		t.Errorf("slug = %q, want orders", first.Slug)
	}

	second, err := st.EnsureProject(ctx, "/home/dev/orders")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("same path produced two projects: %s vs %s", first.ID, second.ID)
	}
}

func TestEnsureProjectSlugCollision(t *testing.T) {
	ctx := context.Background()
	st := NewSQLiteTest(t)

	a, err := st.EnsureProject(ctx, "/home/dev/api")
	if err != nil {
		t.Fatalf("ensure a: %v", err)
	}
	b, err := st.EnsureProject(ctx, "/srv/api")
	if err != nil {
		t.Fatalf("ensure b: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("different paths share a project")
	}
	if a.Slug == b.Slug {
		t.Fatalf("slug collision not resolved: both %q", a.Slug)
	}
	if b.Slug != "api-2" {
		t.Errorf("second slug = %q, want api-2", b.Slug)
	}

	got, err := st.GetProjectBySlug(ctx, "api-2")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got.HumanKey != "/srv/api" {
		t.Errorf("human_key = %q, want /srv/api", got.HumanKey)
	}
}

func TestEnsureProjectRejectsRelativePath(t *testing.T) {
	st := NewSQLiteTest(t)
	_, err := st.EnsureProject(context.Background(), "relative/path")
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("relative path: error = %v, want ValidationError", err)
	}
}

func TestGetProjectBySlugNotFound(t *testing.T) {
	st := NewSQLiteTest(t)
	_, err := st.GetProjectBySlug(context.Background(), "nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown slug: error = %v, want ErrNotFound", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"orders", "orders"},
		{"My Project", "my-project"},
		{"web_app.v2", "web-app-v2"},
		{"---", "project"},
		{"API", "api"},
	}
	for _, tc := range tests {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

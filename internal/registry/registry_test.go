package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage/sqlite"
)

func newTestRegistry(t *testing.T) (*Registry, core.Project) {
	t.Helper()
	st := sqlite.NewSQLiteTest(t)
	project, err := st.EnsureProject(context.Background(), "/work/app")
	if err != nil {
		t.Fatalf("ensure project: %v", err)
	}
	return New(st), project
}

func TestRegisterGeneratedNames(t *testing.T) {
	ctx := context.Background()
	reg, project := newTestRegistry(t)

	first, created, err := reg.Register(ctx, project.ID, "", "runnerd", "m1", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !created {
		t.Fatalf("first registration should create")
	}
	second, created, err := reg.Register(ctx, project.ID, "", "runnerd", "m1", "")
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if !created {
		t.Fatalf("second registration should create")
	}
	if first.Name == second.Name || first.ID == second.ID {
		t.Fatalf("generated identities collide: %s / %s", first.Name, second.Name)
	}
}

func TestRegisterSameNameResumes(t *testing.T) {
	ctx := context.Background()
	reg, project := newTestRegistry(t)

	first, created, err := reg.Register(ctx, project.ID, "Ann", "runnerd", "m1", "auth work")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !created {
		t.Fatalf("first registration should create")
	}

	second, created, err := reg.Register(ctx, project.ID, "Ann", "runnerd", "m2", "")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if created {
		t.Fatalf("same-name registration must resume, not create")
	}
	if second.ID != first.ID {
		t.Fatalf("resume returned a different identity: %s vs %s", second.ID, first.ID)
	}
	if second.Model != "m2" {
		t.Errorf("model = %q, want refreshed to m2", second.Model)
	}
	if second.TaskDescription != "auth work" {
		t.Errorf("task description = %q, want preserved", second.TaskDescription)
	}
}

func TestRegisterRejectsBadName(t *testing.T) {
	ctx := context.Background()
	reg, project := newTestRegistry(t)

	for _, name := range []string{"1leading-digit", "has space", "has/slash", "@reserved"} {
		_, _, err := reg.Register(ctx, project.ID, name, "", "", "")
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Register(%q) error = %v, want ValidationError", name, err)
		}
	}
}

func TestWhoAmI(t *testing.T) {
	ctx := context.Background()
	reg, project := newTestRegistry(t)

	if _, err := reg.WhoAmI(ctx, project.ID, ""); !errors.Is(err, core.ErrNotRegistered) {
		t.Fatalf("empty hint: error = %v, want ErrNotRegistered", err)
	}
	if _, err := reg.WhoAmI(ctx, project.ID, "Ghost"); !errors.Is(err, core.ErrNotRegistered) {
		t.Fatalf("unknown name: error = %v, want ErrNotRegistered", err)
	}

	registered, _, err := reg.Register(ctx, project.ID, "Ann", "", "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := reg.WhoAmI(ctx, project.ID, "Ann")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if got.ID != registered.ID {
		t.Fatalf("whoami returned a different identity")
	}
}

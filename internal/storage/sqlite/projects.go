package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
)

// EnsureProject returns the project for the given working-tree path,
// creating it on first registration. The slug is derived from the path
// basename and stays stable afterwards; a basename collision with a
// different path gets a numeric suffix.
func (s *Store) EnsureProject(ctx context.Context, humanKey string) (core.Project, error) {
	humanKey = filepath.Clean(humanKey)
	if !filepath.IsAbs(humanKey) {
		return core.Project{}, core.NewValidationError("project", "human key must be an absolute path")
	}

	if p, err := s.getProjectByKey(ctx, humanKey); err == nil {
		return p, nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Project{}, err
	}

	p := core.Project{
		ID:        uuid.NewString(),
		HumanKey:  humanKey,
		CreatedAt: s.now(),
	}
	base := slugify(filepath.Base(humanKey))

	// Slug uniqueness and the insert race against concurrent registrations;
	// retry with suffixes inside the unique constraint's protection.
	for attempt := 0; attempt < 100; attempt++ {
		p.Slug = base
		if attempt > 0 {
			p.Slug = fmt.Sprintf("%s-%d", base, attempt+1)
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO projects (id, slug, human_key, created_at) VALUES (?, ?, ?, ?)`,
			p.ID, p.Slug, p.HumanKey, formatTime(p.CreatedAt),
		)
		if err == nil {
			return p, nil
		}
		if !isUniqueViolation(err) {
			return core.Project{}, fmt.Errorf("create project: %w", err)
		}
		// Either another invocation created this human key first, or the
		// slug is taken by a different path.
		if existing, gerr := s.getProjectByKey(ctx, humanKey); gerr == nil {
			return existing, nil
		}
	}
	return core.Project{}, fmt.Errorf("create project: could not allocate a unique slug for %q", base)
}

func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (core.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, human_key, created_at FROM projects WHERE slug = ?`, slug)
	return scanProject(row)
}

func (s *Store) getProjectByKey(ctx context.Context, humanKey string) (core.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, human_key, created_at FROM projects WHERE human_key = ?`, humanKey)
	return scanProject(row)
}

func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, human_key, created_at FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(row scanner) (core.Project, error) {
	var p core.Project
	var createdAt string
	if err := row.Scan(&p.ID, &p.Slug, &p.HumanKey, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Project{}, fmt.Errorf("project: %w", core.ErrNotFound)
		}
		return core.Project{}, fmt.Errorf("scan project: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// slugify lowers the basename and squeezes anything outside [a-z0-9-] into
// single dashes.
func slugify(base string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "project"
	}
	return out
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

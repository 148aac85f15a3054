package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage"
)

// SearchMessages ranks matches in three tiers: exact phrase, all terms
// present, any term present. Ties break by recency. Candidates come from a
// LIKE prefilter; ranking happens here where the tiers are explicit. An
// empty Project searches every project in the installation.
func (s *Store) SearchMessages(ctx context.Context, f storage.SearchFilter) ([]core.Message, error) {
	query := strings.TrimSpace(f.Query)
	if query == "" {
		return nil, core.NewValidationError("query", "must not be empty")
	}
	terms := strings.Fields(strings.ToLower(query))

	var sb strings.Builder
	sb.WriteString(`SELECT ` + messageColumns + ` FROM messages WHERE 1=1`)
	args := []any{}
	if f.Project != "" {
		sb.WriteString(` AND project_id = ?`)
		args = append(args, f.Project)
	}
	if f.ThreadID != "" {
		sb.WriteString(` AND thread_id = ?`)
		args = append(args, f.ThreadID)
	}
	sb.WriteString(` AND (`)
	for i, term := range terms {
		if i > 0 {
			sb.WriteString(` OR `)
		}
		sb.WriteString(`(subject LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
		pat := "%" + escapeLike(term) + "%"
		args = append(args, pat, pat)
	}
	sb.WriteString(`)`)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	phrase := strings.ToLower(query)
	ranked := make([]struct {
		msg  core.Message
		rank int
	}, 0, len(msgs))
	for _, m := range msgs {
		text := strings.ToLower(m.Subject + "\n" + m.Body)
		ranked = append(ranked, struct {
			msg  core.Message
			rank int
		}{m, rankText(text, phrase, terms)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].rank != ranked[j].rank {
			return ranked[i].rank > ranked[j].rank
		}
		return ranked[i].msg.CreatedAt.After(ranked[j].msg.CreatedAt)
	})

	out := make([]core.Message, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.msg)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return s.attachRecipients(ctx, out)
}

func rankText(text, phrase string, terms []string) int {
	if strings.Contains(text, phrase) {
		return 3
	}
	all := true
	any := false
	for _, term := range terms {
		if strings.Contains(text, term) {
			any = true
		} else {
			all = false
		}
	}
	switch {
	case all:
		return 2
	case any:
		return 1
	default:
		return 0
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

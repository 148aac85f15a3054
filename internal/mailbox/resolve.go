package mailbox

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
)

// Snapshot is the registry state recipient resolution runs against. It is
// taken once at send time; later registrations never retroactively change a
// message's recipients.
type Snapshot struct {
	// ProjectsBySlug maps project slug to project ID, for @project:X.
	ProjectsBySlug map[string]string
	// Agents holds every agent in the installation, across projects.
	Agents []core.Agent
}

// ResolveRecipients expands a comma-separated recipient specifier into a
// concrete agent set. Specifiers: a literal agent name, @all,
// @active[:window_minutes], @project:SLUG. Symbolic specifiers exclude the
// sender; a literal self-address is allowed. Pure: the result depends only
// on the arguments.
func ResolveRecipients(spec string, senderID, projectID string, snap Snapshot, now time.Time, defaultWindow time.Duration) ([]core.Agent, error) {
	parts := strings.Split(spec, ",")
	seen := make(map[string]struct{})
	var out []core.Agent

	add := func(agents []core.Agent) {
		for _, a := range agents {
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}

	sawSpecifier := false
	for _, raw := range parts {
		part := strings.TrimSpace(raw)
		if part == "" {
			continue
		}
		sawSpecifier = true

		switch {
		case part == "@all":
			// May legitimately resolve to zero peers; the union check at
			// the end still refuses an empty send.
			add(projectPeers(snap.Agents, projectID, senderID))

		case part == "@active" || strings.HasPrefix(part, "@active:"):
			window := defaultWindow
			if rest, ok := strings.CutPrefix(part, "@active:"); ok {
				minutes, err := strconv.Atoi(rest)
				if err != nil || minutes <= 0 {
					return nil, core.NewValidationError("to", "bad @active window: "+part)
				}
				window = time.Duration(minutes) * time.Minute
			}
			cutoff := now.Add(-window)
			var active []core.Agent
			for _, a := range projectPeers(snap.Agents, projectID, senderID) {
				if !a.LastActiveAt.Before(cutoff) {
					active = append(active, a)
				}
			}
			if len(active) == 0 {
				return nil, &core.EmptyRecipientSetError{Spec: part}
			}
			add(active)

		case strings.HasPrefix(part, "@project:"):
			slug := strings.TrimPrefix(part, "@project:")
			target, ok := snap.ProjectsBySlug[slug]
			if !ok {
				return nil, &core.EmptyRecipientSetError{Spec: part}
			}
			peers := projectPeers(snap.Agents, target, senderID)
			if len(peers) == 0 {
				return nil, &core.EmptyRecipientSetError{Spec: part}
			}
			add(peers)

		case strings.HasPrefix(part, "@"):
			return nil, core.NewValidationError("to", "unknown specifier: "+part)

		default:
			found := false
			for _, a := range snap.Agents {
				if a.Project == projectID && a.Name == part {
					add([]core.Agent{a})
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("recipient %q: %w", part, core.ErrNotFound)
			}
		}
	}

	if !sawSpecifier {
		return nil, core.NewValidationError("to", "must name at least one recipient")
	}
	if len(out) == 0 {
		return nil, &core.EmptyRecipientSetError{Spec: spec}
	}
	return out, nil
}

func projectPeers(agents []core.Agent, projectID, senderID string) []core.Agent {
	var out []core.Agent
	for _, a := range agents {
		if a.Project == projectID && a.ID != senderID {
			out = append(out, a)
		}
	}
	return out
}

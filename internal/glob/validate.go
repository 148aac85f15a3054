package glob

import (
	"path/filepath"
	"strings"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
)

// Complexity limits keep the overlap automaton's state space small.
const (
	MaxTokens    = 50
	MaxWildcards = 10
)

// Validate rejects patterns the engine refuses to reason about: absolute
// paths and `..` segments (PathEscapeError), empty or doubled separators,
// brace expansion, malformed classes, and patterns over the complexity
// limits. Called before any transaction touches the store.
func Validate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return core.NewValidationError("pattern", "must not be empty")
	}
	norm := filepath.ToSlash(raw)

	if strings.HasPrefix(norm, "/") || filepath.IsAbs(raw) || hasDrivePrefix(norm) {
		return &core.PathEscapeError{Pattern: raw}
	}
	if strings.ContainsAny(norm, "{}") {
		return core.NewValidationError("pattern", "brace expansion is not supported")
	}

	segments := strings.Split(norm, "/")
	totalTokens := 0
	totalWildcards := 0
	for _, seg := range segments {
		switch seg {
		case "":
			return core.NewValidationError("pattern", "empty path segment")
		case ".", "..":
			return &core.PathEscapeError{Pattern: raw}
		case "**":
			totalTokens++
			totalWildcards++
			continue
		}
		tokens, err := parseSegment(seg)
		if err != nil {
			return core.NewValidationError("pattern", err.Error())
		}
		totalTokens += len(tokens)
		for _, t := range tokens {
			if t.kind == tokenStar || t.kind == tokenAny {
				totalWildcards++
			}
		}
	}

	if totalTokens > MaxTokens {
		return core.NewValidationError("pattern", "too complex: token limit exceeded")
	}
	if totalWildcards > MaxWildcards {
		return core.NewValidationError("pattern", "too complex: wildcard limit exceeded")
	}
	return nil
}

// hasDrivePrefix catches Windows-style absolute patterns ("C:/...") that
// filepath.IsAbs misses when the engine runs elsewhere.
func hasDrivePrefix(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

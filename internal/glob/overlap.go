// Package glob decides whether two relative glob patterns can match a
// common path. It never enumerates concrete paths: patterns are decomposed
// into path segments and walked as a product automaton, so the decision is
// bounded by pattern size alone.
package glob

import (
	"path/filepath"
	"strings"
)

// pattern is a parsed glob: one entry per path segment. A doublestar
// segment matches zero or more whole segments; every other segment is a
// token list matched against exactly one segment.
type pattern struct {
	segments []segment
}

type segment struct {
	doublestar bool
	tokens     []token
}

func parsePattern(raw string) (pattern, error) {
	var p pattern
	for _, seg := range strings.Split(filepath.ToSlash(raw), "/") {
		if seg == "**" {
			p.segments = append(p.segments, segment{doublestar: true})
			continue
		}
		tokens, err := parseSegment(seg)
		if err != nil {
			return pattern{}, err
		}
		p.segments = append(p.segments, segment{tokens: tokens})
	}
	return p, nil
}

// PatternsOverlap reports whether some concrete relative path is matched by
// both patterns. `*`, `?`, and `[...]` never cross a path separator; `**`
// consumes zero or more whole segments.
func PatternsOverlap(a, b string) (bool, error) {
	pa, err := parsePattern(a)
	if err != nil {
		return false, err
	}
	pb, err := parsePattern(b)
	if err != nil {
		return false, err
	}

	memo := make(map[[2]int]bool)
	return overlapFrom(pa.segments, pb.segments, 0, 0, memo), nil
}

// overlapFrom walks both segment lists with two pointers. A doublestar on
// either side branches into "consume nothing" and "consume one opposing
// segment"; memoization keeps the walk quadratic in segment count.
func overlapFrom(a, b []segment, i, j int, memo map[[2]int]bool) bool {
	key := [2]int{i, j}
	if v, ok := memo[key]; ok {
		return v
	}

	var out bool
	switch {
	case i == len(a) && j == len(b):
		out = true
	case i < len(a) && a[i].doublestar:
		out = overlapFrom(a, b, i+1, j, memo) ||
			(j < len(b) && overlapFrom(a, b, i, j+1, memo))
	case j < len(b) && b[j].doublestar:
		out = overlapFrom(a, b, i, j+1, memo) ||
			(i < len(a) && overlapFrom(a, b, i+1, j, memo))
	case i == len(a) || j == len(b):
		out = false
	default:
		out = segmentsIntersect(a[i].tokens, b[j].tokens) &&
			overlapFrom(a, b, i+1, j+1, memo)
	}

	memo[key] = out
	return out
}

package glob

import (
	"fmt"
	"sort"
)

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenAny               // ?: exactly one non-separator rune
	tokenStar              // *: zero or more non-separator runes
	tokenClass             // [...]: one rune from a range set
)

type runeRange struct {
	lo, hi rune
}

type token struct {
	kind   tokenKind
	lit    rune
	ranges []runeRange
}

const maxRune = rune(0x10FFFF)

// Everything except '/'. Wildcards inside a segment can never produce a
// separator, so all token ranges are clipped to this set.
var nonSeparator = []runeRange{
	{lo: 0, hi: '/' - 1},
	{lo: '/' + 1, hi: maxRune},
}

func parseSegment(seg string) ([]token, error) {
	runes := []rune(seg)
	tokens := make([]token, 0, len(runes))

	for i := 0; i < len(runes); {
		switch runes[i] {
		case '*':
			tokens = append(tokens, token{kind: tokenStar})
			i++
		case '?':
			tokens = append(tokens, token{kind: tokenAny, ranges: nonSeparator})
			i++
		case '[':
			tok, next, err := parseClass(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case '\\':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("trailing escape in %q", seg)
			}
			tokens = append(tokens, token{kind: tokenLiteral, lit: runes[i+1]})
			i += 2
		default:
			tokens = append(tokens, token{kind: tokenLiteral, lit: runes[i]})
			i++
		}
	}
	return tokens, nil
}

func parseClass(runes []rune, start int) (token, int, error) {
	i := start + 1
	if i >= len(runes) {
		return token{}, 0, fmt.Errorf("unterminated character class")
	}
	negated := false
	if runes[i] == '^' || runes[i] == '!' {
		negated = true
		i++
	}

	var ranges []runeRange
	hadItem := false
	closed := false

	for i < len(runes) {
		if runes[i] == ']' && hadItem {
			i++
			closed = true
			break
		}
		lo, next, err := classRune(runes, i)
		if err != nil {
			return token{}, 0, err
		}
		i = next

		if i+1 < len(runes) && runes[i] == '-' && runes[i+1] != ']' {
			hi, nextHi, err := classRune(runes, i+1)
			if err != nil {
				return token{}, 0, err
			}
			if hi < lo {
				return token{}, 0, fmt.Errorf("inverted range %c-%c in character class", lo, hi)
			}
			ranges = append(ranges, runeRange{lo: lo, hi: hi})
			i = nextHi
			hadItem = true
			continue
		}

		ranges = append(ranges, runeRange{lo: lo, hi: lo})
		hadItem = true
	}
	if !closed {
		return token{}, 0, fmt.Errorf("unterminated character class")
	}

	ranges = normalizeRanges(ranges)
	if negated {
		ranges = subtractRanges(nonSeparator, ranges)
	} else {
		ranges = intersectRanges(ranges, nonSeparator)
	}
	return token{kind: tokenClass, ranges: ranges}, i, nil
}

func classRune(runes []rune, idx int) (rune, int, error) {
	if idx >= len(runes) {
		return 0, 0, fmt.Errorf("unterminated character class")
	}
	if runes[idx] != '\\' {
		return runes[idx], idx + 1, nil
	}
	if idx+1 >= len(runes) {
		return 0, 0, fmt.Errorf("trailing escape in character class")
	}
	return runes[idx+1], idx + 2, nil
}

// segmentsIntersect reports whether two single-segment token lists can
// match the same string. It explores the product automaton breadth-first;
// stars contribute epsilon transitions, everything else consumes one rune
// whose range sets must overlap.
func segmentsIntersect(ta, tb []token) bool {
	type state struct{ i, j int }

	seen := make(map[state]struct{})
	queue := make([]state, 0, (len(ta)+1)*(len(tb)+1))

	var expand func(s state)
	expand = func(s state) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		queue = append(queue, s)
		// Epsilon moves: a star may match the empty string.
		if s.i < len(ta) && ta[s.i].kind == tokenStar {
			expand(state{i: s.i + 1, j: s.j})
		}
		if s.j < len(tb) && tb[s.j].kind == tokenStar {
			expand(state{i: s.i, j: s.j + 1})
		}
	}
	expand(state{})

	for idx := 0; idx < len(queue); idx++ {
		cur := queue[idx]
		if cur.i == len(ta) && cur.j == len(tb) {
			return true
		}
		if cur.i == len(ta) || cur.j == len(tb) {
			continue
		}
		aNext, aRanges := consume(ta, cur.i)
		bNext, bRanges := consume(tb, cur.j)
		if rangesOverlap(aRanges, bRanges) {
			expand(state{i: aNext, j: bNext})
		}
	}
	return false
}

// consume returns the state index after matching one rune at idx, and the
// rune ranges that rune may take. A star stays in place (it can absorb any
// number of runes).
func consume(tokens []token, idx int) (int, []runeRange) {
	tok := tokens[idx]
	switch tok.kind {
	case tokenStar:
		return idx, nonSeparator
	case tokenLiteral:
		return idx + 1, []runeRange{{lo: tok.lit, hi: tok.lit}}
	default:
		return idx + 1, tok.ranges
	}
}

func rangesOverlap(a, b []runeRange) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].hi < b[j].lo:
			i++
		case b[j].hi < a[i].lo:
			j++
		default:
			return true
		}
	}
	return false
}

func intersectRanges(a, b []runeRange) []runeRange {
	a = normalizeRanges(a)
	b = normalizeRanges(b)
	out := make([]runeRange, 0)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := max(a[i].lo, b[j].lo)
		hi := min(a[i].hi, b[j].hi)
		if lo <= hi {
			out = append(out, runeRange{lo: lo, hi: hi})
		}
		if a[i].hi < b[j].hi {
			i++
		} else {
			j++
		}
	}
	return out
}

func subtractRanges(base, sub []runeRange) []runeRange {
	base = normalizeRanges(base)
	sub = normalizeRanges(sub)

	out := make([]runeRange, 0, len(base))
	for _, b := range base {
		remaining := []runeRange{b}
		for _, s := range sub {
			next := make([]runeRange, 0, len(remaining)+1)
			for _, r := range remaining {
				if s.hi < r.lo || s.lo > r.hi {
					next = append(next, r)
					continue
				}
				if s.lo > r.lo {
					next = append(next, runeRange{lo: r.lo, hi: s.lo - 1})
				}
				if s.hi < r.hi {
					next = append(next, runeRange{lo: s.hi + 1, hi: r.hi})
				}
			}
			remaining = next
			if len(remaining) == 0 {
				break
			}
		}
		out = append(out, remaining...)
	}
	return out
}

func normalizeRanges(ranges []runeRange) []runeRange {
	if len(ranges) <= 1 {
		return ranges
	}
	cp := append([]runeRange(nil), ranges...)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].lo == cp[j].lo {
			return cp[i].hi < cp[j].hi
		}
		return cp[i].lo < cp[j].lo
	})

	out := make([]runeRange, 0, len(cp))
	cur := cp[0]
	for _, r := range cp[1:] {
		if r.lo <= cur.hi+1 {
			if r.hi > cur.hi {
				cur.hi = r.hi
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	return append(out, cur)
}

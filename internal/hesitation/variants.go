package hesitation

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// VariantGroup is a set of distinct markers that sound alike.
type VariantGroup struct {
	// Code is the shared Double Metaphone key, one code per word joined by
	// spaces.
	Code string

	// Markers lists the members in lexicon order.
	Markers []string
}

// Variants groups the markers of lex whose words encode to the same Double
// Metaphone codes, such as "um", "umm" and "uhm". Only groups with at least
// two distinct spellings are returned, ordered by their first member.
// Markers whose words have no phonetic code are never grouped.
//
// The report explains seemingly redundant detection output; it does not
// change what Detect reports.
func Variants(lex Lexicon) []VariantGroup {
	var (
		order  []string
		groups = map[string]*VariantGroup{}
		seen   = map[string]bool{}
	)
	for _, m := range lex {
		key := strings.ToLower(strings.TrimSpace(m))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		code, ok := phoneticKey(key)
		if !ok {
			continue
		}
		g, exists := groups[code]
		if !exists {
			g = &VariantGroup{Code: code}
			groups[code] = g
			order = append(order, code)
		}
		g.Markers = append(g.Markers, m)
	}

	var out []VariantGroup
	for _, code := range order {
		if g := groups[code]; len(g.Markers) > 1 {
			out = append(out, *g)
		}
	}
	return out
}

// phoneticKey returns the primary Double Metaphone code of every word of
// phrase joined by spaces. ok is false if any word has no code.
func phoneticKey(phrase string) (string, bool) {
	words := strings.FieldsFunc(phrase, func(r rune) bool {
		return !isWordRune(r) && r != '\'' && r != '’'
	})
	if len(words) == 0 {
		return "", false
	}
	codes := make([]string, 0, len(words))
	for _, w := range words {
		primary, _ := matchr.DoubleMetaphone(w)
		if primary == "" {
			return "", false
		}
		codes = append(codes, primary)
	}
	return strings.Join(codes, " "), true
}

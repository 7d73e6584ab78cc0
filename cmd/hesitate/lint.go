package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/MrWong99/hesitate/internal/hesitation"
)

// loadLexicon returns the lexicon at path, or the built-in one when path is
// empty.
func loadLexicon(path string) (hesitation.Lexicon, error) {
	if path == "" {
		return hesitation.DefaultLexicon(), nil
	}
	return hesitation.LoadLexicon(path)
}

// lintLexicon writes a report of repeated markers and sound-alike spelling
// groups. Neither is an error: duplicates are reported once by the detector
// and variants are detected independently.
func lintLexicon(w io.Writer, lex hesitation.Lexicon) {
	fmt.Fprintf(w, "Lexicon: %d markers\n", len(lex))

	dups := lex.Duplicates()
	if len(dups) == 0 {
		fmt.Fprintln(w, "Duplicates: none")
	} else {
		fmt.Fprintf(w, "Duplicates: %s\n", strings.Join(dups, ", "))
	}

	groups := hesitation.Variants(lex)
	if len(groups) == 0 {
		fmt.Fprintln(w, "Sound-alike variants: none")
		return
	}
	fmt.Fprintln(w, "Sound-alike variants:")
	for _, g := range groups {
		fmt.Fprintf(w, "  [%s] %s\n", g.Code, strings.Join(g.Markers, ", "))
	}
}

// Package hesitation finds hesitation markers (filler words and stock
// phrases) in transcript text.
//
// Detection is presence-only: each marker of the [Lexicon] is reported at
// most once, in lexicon order, using its original spelling. A marker matches
// only on word boundaries, so "so" is not found inside "also". Matching is
// case-insensitive; both the transcript and the markers are lowercased.
//
// Markers that are prefixes of other markers ("um" and "umm") are matched
// independently and can both appear in a result.
package hesitation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// leftBoundary and rightBoundary match a non-word rune or the text edge.
	// Word runes are letters, digits and underscore in any script.
	leftBoundary  = `(?:^|[^\p{L}\p{N}_])`
	rightBoundary = `(?:[^\p{L}\p{N}_]|$)`
)

// Result is the ordered list of detected markers.
type Result []string

// Option is a functional option for configuring a Detector.
type Option func(*Detector)

// WithFoldQuotes makes typographic apostrophes and quotes match their ASCII
// forms, so the marker "it’s like" also matches "it's like".
func WithFoldQuotes() Option {
	return func(d *Detector) {
		d.foldQuotes = true
	}
}

// Detector matches a fixed lexicon against transcripts. It is read-only after
// construction and safe for concurrent use.
type Detector struct {
	foldQuotes bool
	markers    []compiledMarker
}

type compiledMarker struct {
	spelling string
	re       *regexp.Regexp
}

// NewDetector compiles lex. Empty markers are skipped; exact duplicates are
// compiled once.
func NewDetector(lex Lexicon, opts ...Option) *Detector {
	d := &Detector{}
	for _, o := range opts {
		o(d)
	}

	seen := make(map[string]bool, len(lex))
	for _, m := range lex {
		if seen[m] || strings.TrimSpace(m) == "" {
			continue
		}
		seen[m] = true
		d.markers = append(d.markers, compiledMarker{
			spelling: m,
			re:       regexp.MustCompile(markerPattern(d.normalize(m))),
		})
	}
	return d
}

// Detect returns the markers present in text. An empty text yields an empty
// result.
func (d *Detector) Detect(text string) Result {
	res := Result{}
	if text == "" {
		return res
	}
	norm := d.normalize(text)
	for _, m := range d.markers {
		if m.re.MatchString(norm) {
			res = append(res, m.spelling)
		}
	}
	return res
}

// Size returns the number of distinct markers the detector checks.
func (d *Detector) Size() int { return len(d.markers) }

// Detect is a convenience wrapper that compiles lex and runs it once.
func Detect(text string, lex Lexicon) Result {
	return NewDetector(lex).Detect(text)
}

var quoteFolder = strings.NewReplacer(
	"‘", "'", "’", "'", "‛", "'", "ʼ", "'",
	"“", `"`, "”", `"`,
)

func (d *Detector) normalize(s string) string {
	s = strings.ToLower(s)
	if d.foldQuotes {
		s = quoteFolder.Replace(s)
	}
	return s
}

// markerPattern anchors the literal marker on word boundaries. A boundary is
// only required at an edge whose rune is itself a word rune.
func markerPattern(m string) string {
	var b strings.Builder
	first, _ := utf8.DecodeRuneInString(m)
	last, _ := utf8.DecodeLastRuneInString(m)
	if isWordRune(first) {
		b.WriteString(leftBoundary)
	}
	b.WriteString(regexp.QuoteMeta(m))
	if isWordRune(last) {
		b.WriteString(rightBoundary)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

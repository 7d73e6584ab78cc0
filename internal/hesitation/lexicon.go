package hesitation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon is an ordered list of hesitation markers. Order decides the order
// of detection results. Duplicate entries are tolerated and yield a single
// result entry.
type Lexicon []string

// defaultMarkers is the built-in bilingual lexicon. English fillers come
// first, then fillers Spanish speakers carry into English. The duplicates
// ("eh", "mmm", "hmm") are part of the list and kept as-is.
var defaultMarkers = Lexicon{
	"um", "uh", "ah", "er", "well", "like", "you know", "so", "actually", "basically",
	"I mean", "right", "okay", "just", "seriously", "mmm", "uhm", "hmm", "ahh", "eh",
	"aah", "uhh", "huh", "let me think", "I guess", "I suppose", "I'm not sure", "I'm thinking",
	"what I mean is", "it’s like", "you know what I mean", "I don’t know", "it’s kind of",
	"kind of", "sort of", "something like that", "to be honest", "well, you see", "you see",
	"I believe", "if you will", "literally", "honestly", "probably", "uhmm", "aahhh", "umm",

	"eh", "a ver", "bueno", "pues", "digamos", "como", "o sea", "ya sabes", "bueno, a ver",
	"sabes", "ehhh", "mmm", "aaaa", "eeee", "mmmm", "mmm", "hmm",
}

// DefaultLexicon returns a copy of the built-in lexicon.
func DefaultLexicon() Lexicon {
	return append(Lexicon(nil), defaultMarkers...)
}

// Validate reports every empty or whitespace-only marker.
func (l Lexicon) Validate() error {
	if len(l) == 0 {
		return errors.New("hesitation: lexicon is empty")
	}
	var errs []error
	for i, m := range l {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Errorf("hesitation: marker %d is empty", i))
		}
	}
	return errors.Join(errs...)
}

// Duplicates returns the markers that appear more than once, each listed once
// in order of first repetition.
func (l Lexicon) Duplicates() []string {
	seen := make(map[string]int, len(l))
	var dups []string
	for _, m := range l {
		seen[m]++
		if seen[m] == 2 {
			dups = append(dups, m)
		}
	}
	return dups
}

// lexiconFile is the on-disk YAML schema.
type lexiconFile struct {
	Markers []string `yaml:"markers"`
}

// LoadLexicon reads a YAML lexicon file of the form
//
//	markers:
//	  - um
//	  - you know
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hesitation: read lexicon %q: %w", path, err)
	}
	lex, err := ParseLexicon(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w (file %q)", err, path)
	}
	return lex, nil
}

// ParseLexicon decodes a YAML lexicon from r. Unknown fields are rejected.
func ParseLexicon(r io.Reader) (Lexicon, error) {
	var f lexiconFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("hesitation: lexicon is empty")
		}
		return nil, fmt.Errorf("hesitation: decode lexicon: %w", err)
	}
	lex := Lexicon(f.Markers)
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return lex, nil
}

// Package tokenizer turns raw text into bag-of-words documents.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var errUnsupportedStemLanguage = errors.New("unsupported stemming language")

// Document is the bag-of-words view of a single text sample.
type Document struct {
	Tokens   map[string]int // Map of tokens to their occurrence count
	Category string         // Label of the sample, empty for prediction input
}

// Tokenizer normalizes, lowercases and splits text into word tokens.
// The zero value is not usable; use New or Default.
type Tokenizer struct {
	lang         language.Tag
	stemLanguage string
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithLanguage sets the language used for case folding.
func WithLanguage(tag language.Tag) Option {
	return func(t *Tokenizer) {
		t.lang = tag
	}
}

// WithStemming enables Snowball stemming for the named language, e.g. "english".
func WithStemming(lang string) Option {
	return func(t *Tokenizer) {
		t.stemLanguage = strings.ToLower(strings.TrimSpace(lang))
	}
}

// Default lowercases, strips non-word characters and splits on whitespace.
var Default = &Tokenizer{lang: language.Und}

// New returns a configured tokenizer.
func New(opts ...Option) (*Tokenizer, error) {
	t := &Tokenizer{lang: language.Und}
	for _, opt := range opts {
		opt(t)
	}

	if t.stemLanguage != "" {
		if _, err := snowball.Stem("probe", t.stemLanguage, true); err != nil {
			return nil, fmt.Errorf("%w: %q", errUnsupportedStemLanguage, t.stemLanguage)
		}
	}

	return t, nil
}

// Tokenize counts the occurrences of every token in text using the default tokenizer.
func Tokenize(text string) Document {
	return Default.Tokenize(text)
}

// Tokenize counts the occurrences of every token in text.
func (t *Tokenizer) Tokenize(text string) Document {
	words := t.Words(text)
	counts := make(map[string]int, len(words))
	for _, word := range words {
		counts[word]++
	}
	return Document{Tokens: counts}
}

// Words returns the ordered token sequence of text.
func (t *Tokenizer) Words(text string) []string {
	if t == nil {
		t = Default
	}

	// Casers keep state between calls, so each call gets its own.
	text = cases.Lower(t.lang).String(norm.NFKC.String(text))
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return r
		}
		return ' '
	}, text)

	words := strings.Fields(text)
	if t.stemLanguage == "" {
		return words
	}

	for i, word := range words {
		stemmed, err := snowball.Stem(word, t.stemLanguage, true)
		if err != nil || stemmed == "" {
			continue
		}
		words[i] = stemmed
	}
	return words
}

// StemLanguage returns the configured stemming language, empty when disabled.
func (t *Tokenizer) StemLanguage() string {
	if t == nil {
		return ""
	}
	return t.stemLanguage
}

// Package tokenize splits text into offset-preserving word, terminator,
// separator and other tokens.
package tokenize

import (
	"unicode"
	"unicode/utf8"
)

// Kind classifies a token.
type Kind int

const (
	// Other is any run that is not a word, terminator or separator.
	Other Kind = iota
	// Word is a maximal run of ASCII letters and hyphens containing a letter.
	Word
	// Terminator is a single sentence-ending character.
	Terminator
	// Separator is a run of whitespace.
	Separator
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Terminator:
		return "terminator"
	case Separator:
		return "separator"
	default:
		return "other"
	}
}

// Token is a slice of the input with byte offsets [Start, End).
type Token struct {
	Kind  Kind
	Text  string
	Start int
	End   int
}

// DefaultTerminators is the fixed sentence-terminator set.
var DefaultTerminators = []rune{'.', '!', '?', '…', ':', ';'}

// Tokenizer splits text using a configured terminator set.
type Tokenizer struct {
	terminators map[rune]bool
}

// New creates a tokenizer. An empty set falls back to DefaultTerminators.
func New(terminators []rune) *Tokenizer {
	if len(terminators) == 0 {
		terminators = DefaultTerminators
	}
	t := &Tokenizer{terminators: make(map[rune]bool, len(terminators))}
	for _, r := range terminators {
		t.terminators[r] = true
	}
	return t
}

// IsTerminator reports whether r ends a sentence.
func (t *Tokenizer) IsTerminator(r rune) bool {
	return t.terminators[r]
}

type class int

const (
	classOther class = iota
	classWord
	classTerminator
	classSpace
)

func (t *Tokenizer) classOf(r rune) class {
	switch {
	case t.terminators[r]:
		return classTerminator
	case isASCIILetter(r) || r == '-':
		return classWord
	case unicode.IsSpace(r):
		return classSpace
	default:
		return classOther
	}
}

// Tokenize splits text in a single pass. The concatenation of the returned
// token texts is always equal to text.
func (t *Tokenizer) Tokenize(text string) []Token {
	var tokens []Token
	start := 0
	cur := classOther
	hasLetter := false

	flush := func(end int) {
		if end <= start {
			return
		}
		tok := Token{Text: text[start:end], Start: start, End: end}
		switch cur {
		case classWord:
			if hasLetter {
				tok.Kind = Word
			}
		case classTerminator:
			tok.Kind = Terminator
		case classSpace:
			tok.Kind = Separator
		}
		tokens = append(tokens, tok)
	}

	for i, r := range text {
		c := t.classOf(r)
		// Terminators are always single-character tokens.
		if i == 0 || c != cur || c == classTerminator {
			flush(i)
			start, cur, hasLetter = i, c, false
		}
		if isASCIILetter(r) {
			hasLetter = true
		}
	}
	flush(len(text))
	return tokens
}

// Words returns only the word tokens of text.
func (t *Tokenizer) Words(text string) []Token {
	var words []Token
	for _, tok := range t.Tokenize(text) {
		if tok.Kind == Word {
			words = append(words, tok)
		}
	}
	return words
}

// HasLetter reports whether s contains an ASCII letter.
func HasLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if isASCIILetter(rune(s[i])) {
			return true
		}
	}
	return false
}

// UTF16Len returns the length of s in UTF-16 code units, the unit browser
// ranges use for offsets.
func UTF16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Package classify decides whether a word's casing makes it worth bolding.
package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule identifies which casing pattern a word matched.
type Rule int

const (
	// RuleNone means no pattern matched.
	RuleNone Rule = iota
	// RuleUppercase matches all-uppercase words such as "NASA".
	RuleUppercase
	// RuleCapitalized matches words such as "Plan".
	RuleCapitalized
	// RuleMixedCase matches words with an interior case change such as "McDonald" or "iPhone".
	RuleMixedCase
	// RuleHyphenated matches compounds such as "Well-Known" with at least one capital.
	RuleHyphenated
)

// String returns the rule name.
func (r Rule) String() string {
	switch r {
	case RuleNone:
		return "none"
	case RuleUppercase:
		return "uppercase"
	case RuleCapitalized:
		return "capitalized"
	case RuleMixedCase:
		return "mixed_case"
	case RuleHyphenated:
		return "hyphenated"
	default:
		return "unknown"
	}
}

// Defaults used when no configuration overrides them.
const (
	DefaultMinUppercaseLen   = 2
	DefaultMinCapitalizedLen = 3
)

var (
	reMixedCase  = regexp.MustCompile(`^(?:[A-Z][a-z]*[A-Z][a-zA-Z]*|[a-z]+[A-Z][a-zA-Z]*)$`)
	reHyphenated = regexp.MustCompile(`^[A-Za-z]+(?:-[A-Za-z]+)+$`)
)

// Classifier applies the casing rules. It is immutable and safe for
// concurrent use.
type Classifier struct {
	uppercase   *regexp.Regexp
	capitalized *regexp.Regexp
}

// New builds a classifier with the given minimum lengths. Values below 1 are
// raised to 1.
func New(minUppercaseLen, minCapitalizedLen int) *Classifier {
	minUppercaseLen = max(minUppercaseLen, 1)
	minCapitalizedLen = max(minCapitalizedLen, 1)
	return &Classifier{
		uppercase:   regexp.MustCompile(fmt.Sprintf(`^[A-Z]{%d,}$`, minUppercaseLen)),
		capitalized: regexp.MustCompile(fmt.Sprintf(`^[A-Z][a-z]{%d,}$`, minCapitalizedLen-1)),
	}
}

// Default returns a classifier with the default thresholds.
func Default() *Classifier {
	return New(DefaultMinUppercaseLen, DefaultMinCapitalizedLen)
}

// Classify reports the first rule that word matches, in the order uppercase,
// capitalized, mixed case, hyphenated.
func (c *Classifier) Classify(word string) (Rule, bool) {
	switch {
	case c.uppercase.MatchString(word):
		return RuleUppercase, true
	case c.capitalized.MatchString(word):
		return RuleCapitalized, true
	case reMixedCase.MatchString(word):
		return RuleMixedCase, true
	case reHyphenated.MatchString(word) && strings.ContainsFunc(word, isUpper):
		return RuleHyphenated, true
	}
	return RuleNone, false
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

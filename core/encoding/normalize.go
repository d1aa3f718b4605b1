// Package encoding provides shared text normalization utilities for
// detokenized dataset text.
package encoding

import (
	"regexp"
	"strings"
)

// normalizeRule removes whitespace around a single punctuation character.
type normalizeRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// normalizeRules are applied in order. Each rule targets a distinct
// punctuation character, so the order does not change the result.
var normalizeRules = []normalizeRule{
	{regexp.MustCompile(`'\s+`), "'"},
	{regexp.MustCompile(`\(\s+`), "("},
	{regexp.MustCompile(`\s+\)`), ")"},
	{regexp.MustCompile(`\s+;`), ";"},
	{regexp.MustCompile(`\s+,`), ","},
	{regexp.MustCompile(`\s+\.`), "."},
	{regexp.MustCompile(`\s+!`), "!"},
	{regexp.MustCompile(`\s+\?`), "?"},
	{regexp.MustCompile(`\s+:`), ":"},
	{regexp.MustCompile(`"\s+([^"]*?)\s+"`), `"${1}"`},
}

// NormalizeText removes the whitespace that joining tokens with spaces
// introduces around punctuation:
//   - after an opening parenthesis or a leading apostrophe
//   - before ) ; , . ! ? :
//   - inside a pair of straight double quotes ("  hi  " becomes "hi")
func NormalizeText(text string) string {
	for _, rule := range normalizeRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

// Detokenize joins tokens with single spaces and normalizes the result.
func Detokenize(tokens []string) string {
	return NormalizeText(strings.Join(tokens, " "))
}

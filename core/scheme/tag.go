// Package scheme implements the BIO and BILOU tagging schemes: tag parsing,
// conversion from BIO to BILOU, and reconstruction of entity spans from
// BILOU tag sequences.
package scheme

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/nerprep/core/errors"
)

// Prefix is the position marker of a tag.
type Prefix byte

// Tag prefixes. BIO uses O, B and I; BILOU adds L and U.
const (
	Outside Prefix = 'O'
	Begin   Prefix = 'B'
	Inside  Prefix = 'I'
	Last    Prefix = 'L'
	Unit    Prefix = 'U'
)

// OutsideTag is the tag for tokens outside any entity.
const OutsideTag = "O"

// Tag is a parsed NER tag such as "B-PER" or "O".
type Tag struct {
	Prefix Prefix
	Label  string
}

func (t Tag) String() string {
	if t.Prefix == Outside {
		return OutsideTag
	}
	return string(t.Prefix) + "-" + t.Label
}

// IsBIO reports whether the tag belongs to the BIO scheme.
func (t Tag) IsBIO() bool {
	return t.Prefix == Outside || t.Prefix == Begin || t.Prefix == Inside
}

// tagGrammar is the participle grammar for a single tag.
// Examples: "O", "B-PER", "I-LOC", "L-ORG", "U-MISC"
//
//nolint:govet // participle grammar tags are not standard struct tags
type tagGrammar struct {
	Outside bool   `parser:"  @\"O\""`
	Prefix  string `parser:"| @Prefix"`
	Label   string `parser:"  @Label"`
}

// tagLexer splits a tag into its prefix ("B-") and label ("PER").
// A bare "O" lexes as a Label token and is matched by value in the grammar.
var tagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Prefix", Pattern: `[BILU]-`},
	{Name: "Label", Pattern: `\S+`},
})

// tagParser is the participle parser for tags.
var tagParser = participle.MustBuild[tagGrammar](
	participle.Lexer(tagLexer),
)

// maxCachedTags bounds tagCache. Real tag sets are a few dozen strings.
const maxCachedTags = 1024

// tagCache memoizes successful ParseTag results.
var (
	tagCache     sync.Map // string -> Tag
	tagCacheSize atomic.Int64
)

// ParseTag parses a BIO or BILOU tag string.
func ParseTag(s string) (Tag, error) {
	if cached, ok := tagCache.Load(s); ok {
		return cached.(Tag), nil
	}
	tag, err := parseTag(s)
	if err != nil {
		return Tag{}, err
	}
	if tagCacheSize.Load() < maxCachedTags {
		if _, loaded := tagCache.LoadOrStore(s, tag); !loaded {
			tagCacheSize.Add(1)
		}
	}
	return tag, nil
}

func parseTag(s string) (Tag, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Tag{}, errors.NewParse("tag", "", "empty tag")
	}

	parsed, err := tagParser.ParseString("", trimmed)
	if err != nil {
		return Tag{}, &errors.ParseError{
			Format:  "tag",
			Message: fmt.Sprintf("%q is not a BIO/BILOU tag", s),
			Err:     err,
		}
	}

	if parsed.Outside {
		return Tag{Prefix: Outside}, nil
	}
	return Tag{
		Prefix: Prefix(parsed.Prefix[0]),
		Label:  parsed.Label,
	}, nil
}

// MustParseTag is like ParseTag but panics on error.
// It is intended for tag literals in tests and static tables.
func MustParseTag(s string) Tag {
	tag, err := ParseTag(s)
	if err != nil {
		panic(fmt.Sprintf("scheme: %v", err))
	}
	return tag
}

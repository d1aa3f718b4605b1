package ir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FocuswithJustin/nerprep/core/errors"
)

// IOB markers reported per token.
const (
	IOBBegin   = "B"
	IOBInside  = "I"
	IOBOutside = "O"
)

// Span is a labeled range of token indices. Start is inclusive, End exclusive.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// Len returns the number of tokens covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("(%d,%d,%s)", s.Start, s.End, s.Label)
}

// SpanError reports a span that cannot be attached to a document.
type SpanError struct {
	Span   Span
	Reason string
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("invalid span %s: %s", e.Span, e.Reason)
}

func (e *SpanError) Unwrap() error {
	return errors.ErrInvalidInput
}

// Entity is an attached span resolved against the document text.
type Entity struct {
	Text  string
	Label string
	Start int
	End   int
}

// TokenView is one token with its entity marker.
type TokenView struct {
	Text    string
	IOB     string // B, I or O
	EntType string // empty outside entities
}

// Marker renders the token's tag as B-TYPE, I-TYPE or O.
func (t TokenView) Marker() string {
	if t.EntType == "" {
		return t.IOB
	}
	return t.IOB + "-" + t.EntType
}

// Doc is a token sequence with its entity spans.
type Doc struct {
	vocab *Vocab
	words []string
	ents  []Span
}

// NewDoc builds a document from a token sequence. The words are copied.
func NewDoc(vocab *Vocab, words []string) *Doc {
	w := make([]string, len(words))
	copy(w, words)
	return &Doc{vocab: vocab, words: w}
}

// Vocab returns the vocabulary the document was built against.
func (d *Doc) Vocab() *Vocab {
	return d.vocab
}

// Len returns the number of tokens.
func (d *Doc) Len() int {
	return len(d.words)
}

// Words returns the token sequence. Callers must not modify it.
func (d *Doc) Words() []string {
	return d.words
}

// Text returns the tokens joined with single spaces.
func (d *Doc) Text() string {
	return strings.Join(d.words, " ")
}

// SetEnts replaces the document's entity spans. The spans must be non-empty,
// inside the token sequence and pairwise disjoint. On error the document is
// left unchanged.
func (d *Doc) SetEnts(spans []Span) error {
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	prevEnd := 0
	for i, s := range sorted {
		switch {
		case s.Label == "":
			return &SpanError{Span: s, Reason: "empty label"}
		case s.Start < 0 || s.End > len(d.words):
			return &SpanError{Span: s, Reason: fmt.Sprintf("outside document of %d tokens", len(d.words))}
		case s.Start >= s.End:
			return &SpanError{Span: s, Reason: "zero length"}
		case i > 0 && s.Start < prevEnd:
			return &SpanError{Span: s, Reason: fmt.Sprintf("overlaps %s", sorted[i-1])}
		}
		prevEnd = s.End
	}

	if d.vocab != nil {
		for _, s := range sorted {
			d.vocab.Intern(s.Label)
		}
	}
	d.ents = sorted
	return nil
}

// Spans returns the attached spans ordered by start index.
func (d *Doc) Spans() []Span {
	out := make([]Span, len(d.ents))
	copy(out, d.ents)
	return out
}

// Ents returns the attached spans with their surface text.
func (d *Doc) Ents() []Entity {
	out := make([]Entity, 0, len(d.ents))
	for _, s := range d.ents {
		out = append(out, Entity{
			Text:  strings.Join(d.words[s.Start:s.End], " "),
			Label: s.Label,
			Start: s.Start,
			End:   s.End,
		})
	}
	return out
}

// Tokens returns every token with its IOB marker and entity type.
func (d *Doc) Tokens() []TokenView {
	out := make([]TokenView, len(d.words))
	for i, w := range d.words {
		out[i] = TokenView{Text: w, IOB: IOBOutside}
	}
	for _, s := range d.ents {
		for i := s.Start; i < s.End; i++ {
			out[i].IOB = IOBInside
			out[i].EntType = s.Label
		}
		out[s.Start].IOB = IOBBegin
	}
	return out
}

package scheme

import (
	"errors"
	"fmt"

	"github.com/FocuswithJustin/nerprep/core/ir"
)

// ErrAlignment is matched by every *AlignmentError.
var ErrAlignment = errors.New("tag alignment failure")

// AlignmentError explains why a BILOU sequence does not describe a valid
// set of spans over its tokens.
type AlignmentError struct {
	Index  int    // token index of the offending tag, -1 for whole-sequence problems
	Tag    string // offending tag, if any
	Reason string
}

func (e *AlignmentError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("tag alignment failed: %s", e.Reason)
	}
	return fmt.Sprintf("tag alignment failed at token %d (%q): %s", e.Index, e.Tag, e.Reason)
}

func (e *AlignmentError) Unwrap() error {
	return ErrAlignment
}

// Result is the outcome of span reconstruction for one record: either the
// spans, or the reason the record cannot be aligned.
type Result struct {
	Spans []ir.Span
	Err   *AlignmentError
}

// OK reports whether reconstruction succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

func failed(index int, tag, format string, args ...any) Result {
	return Result{Err: &AlignmentError{Index: index, Tag: tag, Reason: fmt.Sprintf(format, args...)}}
}

// SpansFromBILOU reconstructs entity spans from BILOU tags paired with
// tokens. Any inconsistency (length mismatch, unparseable tag, I/L without
// a matching open entity, an entity opened while another is open, an entity
// left open at the end) fails the whole sequence.
func SpansFromBILOU(tokens, tags []string) Result {
	if len(tokens) != len(tags) {
		return failed(-1, "", "%d tokens but %d tags", len(tokens), len(tags))
	}

	var spans []ir.Span
	start := -1
	label := ""

	for i, raw := range tags {
		tag, err := ParseTag(raw)
		if err != nil {
			return failed(i, raw, "unparseable tag")
		}

		switch tag.Prefix {
		case Outside:
			if start >= 0 {
				return failed(i, raw, "entity %s opened at %d is not closed", label, start)
			}
		case Begin:
			if start >= 0 {
				return failed(i, raw, "entity %s opened at %d is not closed", label, start)
			}
			start, label = i, tag.Label
		case Inside, Last:
			if start < 0 {
				return failed(i, raw, "no open entity")
			}
			if tag.Label != label {
				return failed(i, raw, "open entity is %s", label)
			}
			if tag.Prefix == Last {
				spans = append(spans, ir.Span{Start: start, End: i + 1, Label: label})
				start, label = -1, ""
			}
		case Unit:
			if start >= 0 {
				return failed(i, raw, "entity %s opened at %d is not closed", label, start)
			}
			spans = append(spans, ir.Span{Start: i, End: i + 1, Label: tag.Label})
		}
	}

	if start >= 0 {
		return failed(start, tags[start], "entity %s is never closed", label)
	}
	return Result{Spans: spans}
}

// Package verify prints one document of a docbin archive back in
// human-readable form, to check a conversion by eye.
package verify

import (
	"errors"
	"fmt"
	"io"

	"github.com/FocuswithJustin/nerprep/core/docbin"
	"github.com/FocuswithJustin/nerprep/core/ir"
)

// ErrIndexOutOfRange is returned when the requested document does not exist.
var ErrIndexOutOfRange = errors.New("document index out of range")

// Injectable functions for testing
var loadArchive = docbin.Load

// Report loads the archive at path and writes the document at index to w:
//
//	Text: Jean Dupont habite Paris
//	Entities:
//	  - Jean Dupont (PER)
//	  - Paris (LOC)
//	Tokens & Tags:
//	  Jean	B-PER
//	  Dupont	I-PER
//	  habite	O
//	  Paris	B-LOC
//
// When the archive cannot be read, a one-line error message is written
// instead and the load error is returned. When index is out of range, a
// bounds message is written and ErrIndexOutOfRange returned. vocab may be
// nil to use the archive's own language.
func Report(w io.Writer, path string, vocab *ir.Vocab, index int) error {
	bin, err := loadArchive(path, vocab)
	if err != nil {
		fmt.Fprintf(w, "Error reading %s: %v\n", path, err)
		return fmt.Errorf("verify %s: %w", path, err)
	}

	doc, ok := bin.Doc(index)
	if !ok {
		fmt.Fprintf(w, "Index %d out of bounds for %d docs.\n", index, bin.Len())
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, bin.Len())
	}

	return writeDoc(w, doc)
}

func writeDoc(w io.Writer, doc *ir.Doc) error {
	ew := &errWriter{w: w}
	ew.printf("Text: %s\n", doc.Text())
	ew.printf("Entities:\n")
	for _, e := range doc.Ents() {
		ew.printf("  - %s (%s)\n", e.Text, e.Label)
	}
	ew.printf("Tokens & Tags:\n")
	for _, tok := range doc.Tokens() {
		ew.printf("  %s\t%s\n", tok.Text, tok.Marker())
	}
	return ew.err
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

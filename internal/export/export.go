// Package export writes NER datasets as normalized text, BIO columns, a
// docbin archive or a SQLite database.
//
// Every exporter takes the full record list, makes one sequential pass over
// it, reports progress once per record and returns a Result.
package export

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/core/ir"
	"github.com/FocuswithJustin/nerprep/core/scheme"
	"github.com/FocuswithJustin/nerprep/internal/dataset"
	"github.com/FocuswithJustin/nerprep/internal/logging"
	"github.com/FocuswithJustin/nerprep/internal/validation"
)

// Progress is called after each record with the number of records handled
// so far and the total.
type Progress func(done, total int)

// Result summarizes one export pass.
type Result struct {
	Path    string
	Records int // records read
	Written int // records written
	Skipped int // records left out because their tags could not be aligned
}

// Injectable functions for testing
var (
	osCreate   = os.Create
	osMkdirAll = os.MkdirAll
)

func report(p Progress, done, total int) {
	if p != nil {
		p(done, total)
	}
}

// createOutput validates path, creates its parent directory and opens it
// for writing.
func createOutput(path string) (*os.File, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewIO("create", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := osMkdirAll(dir, 0755); err != nil {
			return nil, errors.NewIO("create directory", dir, err)
		}
	}
	f, err := osCreate(path)
	if err != nil {
		return nil, errors.NewIO("create", path, err)
	}
	return f, nil
}

// writeLines streams the output of emit to path through a buffered writer.
// emit is called once per record.
func writeLines(path string, records []dataset.Record, progress Progress,
	emit func(w *bufio.Writer, i int, r dataset.Record) error) error {
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	for i, r := range records {
		if err := emit(w, i, r); err != nil {
			f.Close()
			return err
		}
		report(progress, i+1, len(records))
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return errors.NewIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIO("close", path, err)
	}
	return nil
}

// writeString wraps a write failure with the output path.
func writeString(w io.StringWriter, path, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// aligned is a record converted to BILOU with its reconstructed document.
type aligned struct {
	bilou []string
	doc   *ir.Doc
}

// align converts a record's BIO tags to BILOU and rebuilds its entity
// spans. Failures are returned as values so callers can skip and count.
func align(vocab *ir.Vocab, r dataset.Record) (*aligned, error) {
	bilou := scheme.BIOToBILOU(r.Tags)
	res := scheme.SpansFromBILOU(r.Tokens, bilou)
	if !res.OK() {
		return nil, res.Err
	}

	doc := ir.NewDoc(vocab, r.Tokens)
	if err := doc.SetEnts(res.Spans); err != nil {
		return nil, err
	}
	return &aligned{bilou: bilou, doc: doc}, nil
}

// skip logs a record left out of an export.
func skip(format string, index int, reason error) {
	logging.RecordSkipped(index, reason, "format", format)
}

// logSkips logs the skip total of a pass when nonzero.
func logSkips(format string, res *Result) {
	if res.Skipped > 0 {
		logging.Warn("records skipped",
			"format", format,
			"path", res.Path,
			"skipped", res.Skipped,
			"records", res.Records)
	}
}

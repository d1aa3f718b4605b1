package export

import (
	"bufio"
	"fmt"
	"time"

	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/internal/dataset"
	"github.com/FocuswithJustin/nerprep/internal/logging"
)

// BIO writes "token tag" lines with a blank line after each record. Tags
// are written as given. A record whose token and tag counts differ stops
// the export with a *errors.ValidationError; the partial file is left in
// place.
func BIO(records []dataset.Record, path string, progress Progress) (*Result, error) {
	start := time.Now()
	logging.ExportStarted("bio", path, len(records))

	err := writeLines(path, records, progress, func(w *bufio.Writer, i int, r dataset.Record) error {
		if err := r.Validate(); err != nil {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("record %d", i),
				Message: fmt.Sprintf("%d tokens but %d tags", len(r.Tokens), len(r.Tags)),
			}
		}
		for j, tok := range r.Tokens {
			if err := writeString(w, path, tok+" "+r.Tags[j]+"\n"); err != nil {
				return err
			}
		}
		return writeString(w, path, "\n")
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Path: path, Records: len(records), Written: len(records)}
	logging.ExportFinished("bio", path, res.Written, res.Skipped, time.Since(start))
	return res, nil
}

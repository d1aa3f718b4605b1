package export

import (
	"bufio"
	"time"

	"github.com/FocuswithJustin/nerprep/core/encoding"
	"github.com/FocuswithJustin/nerprep/internal/dataset"
	"github.com/FocuswithJustin/nerprep/internal/logging"
)

// Text writes one normalized, detokenized line per record. Tags are
// ignored, so records with mismatched tag counts are written as usual.
func Text(records []dataset.Record, path string, progress Progress) (*Result, error) {
	start := time.Now()
	logging.ExportStarted("text", path, len(records))

	err := writeLines(path, records, progress, func(w *bufio.Writer, _ int, r dataset.Record) error {
		return writeString(w, path, encoding.Detokenize(r.Tokens)+"\n")
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Path: path, Records: len(records), Written: len(records)}
	logging.ExportFinished("text", path, res.Written, res.Skipped, time.Since(start))
	return res, nil
}

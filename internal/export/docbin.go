package export

import (
	"time"

	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/core/ir"
	"github.com/FocuswithJustin/nerprep/internal/dataset"
	"github.com/FocuswithJustin/nerprep/internal/logging"
	"github.com/FocuswithJustin/nerprep/internal/validation"
)

// Archive collects documents and persists them in one write.
// *docbin.DocBin implements it.
type Archive interface {
	Add(doc *ir.Doc) error
	Len() int
	Save(path string) error
}

// DocBin converts each record's BIO tags to BILOU, rebuilds its entity
// spans and adds the resulting document to archive. Records that cannot be
// aligned are skipped and counted. The archive is saved once, after the
// pass, even when every record was skipped.
func DocBin(records []dataset.Record, path string, archive Archive, vocab *ir.Vocab, progress Progress) (*Result, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewIO("create", path, err)
	}

	start := time.Now()
	logging.ExportStarted("docbin", path, len(records))

	res := &Result{Path: path, Records: len(records)}
	for i, r := range records {
		a, err := align(vocab, r)
		if err != nil {
			skip("docbin", i, err)
			res.Skipped++
		} else if err := archive.Add(a.doc); err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		} else {
			res.Written++
		}
		report(progress, i+1, len(records))
	}

	if err := archive.Save(path); err != nil {
		return nil, err
	}
	logSkips("docbin", res)
	logging.ExportFinished("docbin", path, res.Written, res.Skipped, time.Since(start))
	return res, nil
}

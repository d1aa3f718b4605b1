// Package dataset loads token-level NER datasets.
//
// Three input formats are supported:
//
//   - JSON Lines (.jsonl): one {"tokens": [...], "ner_tags": [...]} object per line
//   - JSON (.json): an array of such objects
//   - BIO columns (.bio, .conll, .iob): "token tag" per line, blank line between records
//
// ner_tags may hold tag strings or integer ids. Integer ids are resolved
// through a label list, where labels[i] is the tag for id i.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/internal/validation"
)

// Record is one tokenized sentence with its BIO tags.
type Record struct {
	Tokens []string `json:"tokens"`
	Tags   []string `json:"ner_tags"`
}

// Validate checks that every token has exactly one tag.
func (r Record) Validate() error {
	if len(r.Tokens) != len(r.Tags) {
		return errors.NewValidation("record",
			fmt.Sprintf("%d tokens but %d tags", len(r.Tokens), len(r.Tags)))
	}
	return nil
}

// Format identifies a dataset file format.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	FormatBIO   Format = "bio"
)

// ParseFormat validates a format name. Empty means "detect from extension".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatJSONL, FormatJSON, FormatBIO:
		return f, nil
	case "conll", "iob":
		return FormatBIO, nil
	default:
		return "", errors.NewUnsupported("dataset format", s)
	}
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".bio", ".conll", ".iob":
		return FormatBIO, nil
	default:
		return "", errors.NewUnsupported("dataset format",
			fmt.Sprintf("cannot detect format of %s; use --format", path))
	}
}

// Options controls Load.
type Options struct {
	// Format forces the input format. Empty detects it from the extension.
	Format Format
	// Labels resolves integer ner_tags ids.
	Labels []string
}

// Injectable functions for testing
var osOpen = os.Open

// Load reads every record of the dataset at path. The first record whose
// token and tag counts differ fails the load with a *errors.ValidationError
// naming its index.
func Load(path string, opts Options) ([]Record, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewIO("open", path, err)
	}

	format := opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	f, err := osOpen(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	if err := validation.ValidateTextInput(f); err != nil {
		return nil, &errors.ParseError{Format: string(format), Path: path, Message: err.Error(), Err: err}
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, errors.NewIO("seek", path, err)
	}

	var records []Record
	switch format {
	case FormatJSONL:
		records, err = ReadJSONL(f, path, opts.Labels)
	case FormatJSON:
		records, err = ReadJSON(f, path, opts.Labels)
	case FormatBIO:
		records, err = ReadBIO(f, path)
	default:
		return nil, errors.NewUnsupported("dataset format", string(format))
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateAll(records); err != nil {
		return nil, errors.Wrapf(err, "dataset %s", path)
	}
	return records, nil
}

// ValidateAll returns the first record validation failure, naming the
// record index.
func ValidateAll(records []Record) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("record %d", i),
				Message: fmt.Sprintf("%d tokens but %d tags", len(r.Tokens), len(r.Tags)),
			}
		}
	}
	return nil
}

package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/FocuswithJustin/nerprep/core/errors"
)

// maxLineSize bounds a single JSON Lines record (16 MiB).
const maxLineSize = 16 << 20

// rawRecord defers decoding of ner_tags, which may be strings or ids.
type rawRecord struct {
	Tokens []string          `json:"tokens"`
	Tags   []json.RawMessage `json:"ner_tags"`
}

// ReadJSONL reads one record per non-blank line. name is used in errors.
func ReadJSONL(r io.Reader, name string, labels []string) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal(text, &raw); err != nil {
			return nil, &errors.ParseError{Format: "JSONL", Path: name, Line: line, Message: err.Error(), Err: err}
		}
		rec, err := raw.resolve(labels)
		if err != nil {
			return nil, &errors.ParseError{Format: "JSONL", Path: name, Line: line, Message: err.Error()}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("read", name, err)
	}
	return records, nil
}

// ReadJSON reads a JSON array of records. name is used in errors.
func ReadJSON(r io.Reader, name string, labels []string) ([]Record, error) {
	var raws []rawRecord
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Path: name, Message: err.Error(), Err: err}
	}

	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := raw.resolve(labels)
		if err != nil {
			return nil, errors.NewParse("JSON", name, fmt.Sprintf("record %d: %v", i, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

// resolve turns raw ner_tags into tag strings.
func (raw rawRecord) resolve(labels []string) (Record, error) {
	if raw.Tokens == nil {
		return Record{}, fmt.Errorf("missing tokens")
	}
	if raw.Tags == nil {
		return Record{}, fmt.Errorf("missing ner_tags")
	}

	tags := make([]string, len(raw.Tags))
	for i, t := range raw.Tags {
		var s string
		if err := json.Unmarshal(t, &s); err == nil {
			tags[i] = s
			continue
		}
		var id int
		if err := json.Unmarshal(t, &id); err != nil {
			return Record{}, fmt.Errorf("ner_tags[%d]: want a tag string or integer id, got %s", i, t)
		}
		if len(labels) == 0 {
			return Record{}, fmt.Errorf("ner_tags[%d]: integer id %d needs a label list (--labels)", i, id)
		}
		if id < 0 || id >= len(labels) {
			return Record{}, fmt.Errorf("ner_tags[%d]: id %d outside label list of %d", i, id, len(labels))
		}
		tags[i] = labels[id]
	}
	return Record{Tokens: raw.Tokens, Tags: tags}, nil
}

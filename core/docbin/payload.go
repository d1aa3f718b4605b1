package docbin

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/core/ir"
)

// PayloadEncoding names the payload serialization in the manifest.
const PayloadEncoding = "cbor"

// payload is the CBOR document table. Entity labels are stored once in
// Labels and referenced by index.
type payload struct {
	Labels []string    `cbor:"1,keyasint"`
	Docs   []docRecord `cbor:"2,keyasint"`
}

type docRecord struct {
	Words []string    `cbor:"1,keyasint"`
	Ents  []entRecord `cbor:"2,keyasint,omitempty"`
}

type entRecord struct {
	Start int `cbor:"1,keyasint"`
	End   int `cbor:"2,keyasint"`
	Label int `cbor:"3,keyasint"`
}

// encMode produces deterministic output so equal collections encode to
// equal bytes.
var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("docbin: cbor encoder: %v", err))
	}
	return em
}

// maxDocs bounds the document table on decode. The library default of
// 131072 array elements is below a full training split.
const maxDocs = 2147483647

// decMode accepts document tables of any size Save can write.
var decMode = mustDecMode()

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{MaxArrayElements: maxDocs}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("docbin: cbor decoder: %v", err))
	}
	return dm
}

// Injectable functions for testing
var (
	cborMarshal   = encMode.Marshal
	cborUnmarshal = decMode.Unmarshal
)

// encodePayload serializes documents and returns the bytes with the sorted
// label table.
func encodePayload(docs []*ir.Doc, labels []string) ([]byte, error) {
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	p := payload{Labels: labels, Docs: make([]docRecord, 0, len(docs))}
	for _, d := range docs {
		rec := docRecord{Words: d.Words()}
		for _, s := range d.Spans() {
			rec.Ents = append(rec.Ents, entRecord{Start: s.Start, End: s.End, Label: index[s.Label]})
		}
		p.Docs = append(p.Docs, rec)
	}

	data, err := cborMarshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// decodePayload rebuilds documents from payload bytes, re-validating every
// span set through Doc.SetEnts.
func decodePayload(path string, data []byte, vocab *ir.Vocab) ([]*ir.Doc, error) {
	var p payload
	if err := cborUnmarshal(data, &p); err != nil {
		return nil, &errors.ParseError{Format: "payload", Path: path, Message: err.Error(), Err: err}
	}

	docs := make([]*ir.Doc, 0, len(p.Docs))
	for i, rec := range p.Docs {
		spans := make([]ir.Span, 0, len(rec.Ents))
		for _, e := range rec.Ents {
			if e.Label < 0 || e.Label >= len(p.Labels) {
				return nil, errors.NewParse("payload", path,
					fmt.Sprintf("document %d: label index %d out of range", i, e.Label))
			}
			spans = append(spans, ir.Span{Start: e.Start, End: e.End, Label: p.Labels[e.Label]})
		}

		doc := ir.NewDoc(vocab, rec.Words)
		if err := doc.SetEnts(spans); err != nil {
			return nil, &errors.ParseError{
				Format:  "payload",
				Path:    path,
				Message: fmt.Sprintf("document %d: %v", i, err),
				Err:     err,
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// checksums returns the SHA-256 and BLAKE3 hex digests of data.
func checksums(data []byte) (sha string, b3 string) {
	s := sha256.Sum256(data)
	b := blake3.Sum256(data)
	return hex.EncodeToString(s[:]), hex.EncodeToString(b[:])
}

// verifyPayload checks payload bytes against the manifest.
func verifyPayload(path string, m *Manifest, data []byte) error {
	if got := int64(len(data)); got != m.Payload.SizeBytes {
		return errors.NewIntegrity(path, "size", fmt.Sprint(m.Payload.SizeBytes), fmt.Sprint(got))
	}
	sha, b3 := checksums(data)
	if sha != m.Payload.SHA256 {
		return errors.NewIntegrity(path, "sha256", m.Payload.SHA256, sha)
	}
	if b3 != m.Payload.BLAKE3 {
		return errors.NewIntegrity(path, "blake3", m.Payload.BLAKE3, b3)
	}
	return nil
}

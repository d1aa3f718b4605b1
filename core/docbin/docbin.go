package docbin

import (
	"sort"

	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/core/ir"
)

// DocBin is an ordered, append-only collection of documents.
type DocBin struct {
	vocab *ir.Vocab
	opts  *Options
	docs  []*ir.Doc

	// manifest is set for archives read from disk.
	manifest *Manifest
}

// New creates an empty collection for documents built against vocab.
// A nil opts uses DefaultOptions.
func New(vocab *ir.Vocab, opts *Options) *DocBin {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &DocBin{vocab: vocab, opts: opts}
}

// Add appends a document. Documents built against a vocabulary of another
// language are rejected.
func (b *DocBin) Add(doc *ir.Doc) error {
	if doc == nil {
		return errors.NewValidation("document", "nil document")
	}
	if dv := doc.Vocab(); dv != nil && b.vocab != nil && dv.Lang() != b.vocab.Lang() {
		return &errors.ValidationError{
			Field:   "document",
			Value:   dv.Lang(),
			Message: "language differs from archive language " + b.vocab.Lang(),
		}
	}
	b.docs = append(b.docs, doc)
	return nil
}

// Len returns the number of documents.
func (b *DocBin) Len() int {
	return len(b.docs)
}

// Doc returns the document at index i.
func (b *DocBin) Doc(i int) (*ir.Doc, bool) {
	if i < 0 || i >= len(b.docs) {
		return nil, false
	}
	return b.docs[i], true
}

// Docs returns the documents in insertion order.
func (b *DocBin) Docs() []*ir.Doc {
	out := make([]*ir.Doc, len(b.docs))
	copy(out, b.docs)
	return out
}

// Vocab returns the collection's vocabulary.
func (b *DocBin) Vocab() *ir.Vocab {
	return b.vocab
}

// Manifest returns the manifest of a loaded archive, or nil for a
// collection that has not been read from disk.
func (b *DocBin) Manifest() *Manifest {
	return b.manifest
}

// Labels returns the distinct entity labels used by the documents, sorted.
func (b *DocBin) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, d := range b.docs {
		for _, s := range d.Spans() {
			if !seen[s.Label] {
				seen[s.Label] = true
				labels = append(labels, s.Label)
			}
		}
	}
	sort.Strings(labels)
	return labels
}

func (b *DocBin) language() string {
	if b.vocab == nil {
		return ""
	}
	return b.vocab.Lang()
}

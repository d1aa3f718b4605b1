package ir

import (
	"sort"
	"sync"

	"golang.org/x/text/language"

	"github.com/FocuswithJustin/nerprep/core/errors"
)

// DefaultLanguage is the language used when none is configured.
const DefaultLanguage = "fr"

// Vocab is the language context documents are built against.
// It records every entity label attached to one of its documents.
type Vocab struct {
	lang string

	mu     sync.RWMutex
	labels map[string]struct{}
}

// NewVocab creates an empty vocabulary for a BCP-47 language identifier
// (e.g. "fr", "en-GB").
func NewVocab(lang string) (*Vocab, error) {
	if lang == "" {
		return nil, errors.NewValidation("language", "language identifier is empty")
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:   "language",
			Value:   lang,
			Message: "not a BCP-47 language tag",
			Err:     err,
		}
	}
	return &Vocab{
		lang:   tag.String(),
		labels: make(map[string]struct{}),
	}, nil
}

// Lang returns the canonical language tag.
func (v *Vocab) Lang() string {
	return v.lang
}

// Intern registers a label.
func (v *Vocab) Intern(label string) {
	v.mu.Lock()
	v.labels[label] = struct{}{}
	v.mu.Unlock()
}

// Labels returns all registered labels, sorted.
func (v *Vocab) Labels() []string {
	v.mu.RLock()
	out := make([]string, 0, len(v.labels))
	for l := range v.labels {
		out = append(out, l)
	}
	v.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Package ir provides the in-memory document model for annotated NER data.
//
// # Core Types
//
//   - Vocab: language context shared by the documents of one run
//   - Doc: a token sequence with an attached set of entity spans
//   - Span: a labeled, half-open range of token indices
//
// Spans attached to a Doc never overlap and always lie inside the token
// sequence; Doc.SetEnts enforces this and leaves the document unchanged when
// the span set is invalid.
//
// # Views
//
// A Doc can be read back as detokenized text (Text), as entity mentions
// (Ents) or as per-token IOB markers (Tokens):
//
//	doc := ir.NewDoc(vocab, []string{"Jean", "Dupont", "habite", "Paris"})
//	_ = doc.SetEnts([]ir.Span{{Start: 0, End: 2, Label: "PER"}, {Start: 3, End: 4, Label: "LOC"}})
//	for _, tok := range doc.Tokens() {
//		fmt.Println(tok.Text, tok.Marker()) // Jean B-PER, Dupont I-PER, habite O, Paris B-LOC
//	}
package ir

package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// HashBytes computes the SHA-256 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// hashedDoc is the canonical form hashed by HashDoc.
type hashedDoc struct {
	Words []string `json:"words"`
	Ents  []Span   `json:"ents"`
}

// HashDoc computes the SHA-256 hash of a document's tokens and spans.
// Two documents with the same words and spans hash identically regardless
// of the order their spans were attached in.
func HashDoc(d *Doc) (string, error) {
	data, err := jsonMarshal(hashedDoc{Words: d.words, Ents: d.Spans()})
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// Package docbin stores collections of annotated documents as a single
// binary archive.
//
// An archive is a tar stream, compressed with XZ (default) or gzip, holding
// two entries in order:
//
//   - manifest.json: archive metadata and the payload checksums
//   - docs.cbor: the CBOR-encoded documents and their entity spans
//
// Archives are written in one bulk write and replaced atomically. Loading
// verifies the payload size, SHA-256 and BLAKE3 before decoding, and every
// decoded span set is re-validated against its document.
package docbin

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/nerprep/core/errors"
)

// FormatVersion is the current archive format version.
const FormatVersion = "1.0.0"

// ToolName is recorded in every manifest.
const ToolName = "nerprep"

// Archive entry names.
const (
	ManifestEntry = "manifest.json"
	PayloadEntry  = "docs.cbor"
)

// Manifest describes an archive (manifest.json).
type Manifest struct {
	FormatVersion string      `json:"format_version"`
	ArchiveID     string      `json:"archive_id"`
	CreatedAt     string      `json:"created_at"`
	Language      string      `json:"language"`
	Tool          ToolInfo    `json:"tool"`
	DocCount      int         `json:"doc_count"`
	Labels        []string    `json:"labels,omitempty"`
	Payload       PayloadInfo `json:"payload"`
}

// ToolInfo describes the tool that wrote the archive.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// PayloadInfo locates and checksums the document payload.
type PayloadInfo struct {
	Path      string `json:"path"`
	Encoding  string `json:"encoding"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
	BLAKE3    string `json:"blake3"`
}

// Injectable functions for testing
var (
	newArchiveID = uuid.NewString
	timeNow      = time.Now
)

// NewManifest creates a manifest with a fresh archive ID and timestamp.
func NewManifest(language, toolVersion string) *Manifest {
	return &Manifest{
		FormatVersion: FormatVersion,
		ArchiveID:     newArchiveID(),
		CreatedAt:     timeNow().UTC().Format(time.RFC3339),
		Language:      language,
		Tool: ToolInfo{
			Name:    ToolName,
			Version: toolVersion,
		},
	}
}

// ToJSON serializes the manifest as indented JSON.
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ParseManifest parses and validates manifest.json content.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errors.ParseError{Format: "manifest", Message: err.Error(), Err: err}
	}
	if m.FormatVersion != FormatVersion {
		return nil, errors.NewUnsupported("archive format version", m.FormatVersion)
	}
	if m.Payload.Path == "" {
		return nil, errors.NewParse("manifest", "", "payload path missing")
	}
	if m.DocCount < 0 {
		return nil, errors.NewParse("manifest", "", "negative doc_count")
	}
	return &m, nil
}

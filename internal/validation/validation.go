// Package validation checks user-supplied paths, output file names and
// dataset inputs before any file is opened or written.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Limits on user-supplied names.
const (
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrBinaryInput      = errors.New("input is not a text dataset")
)

// ValidatePath checks a path for emptiness, length limits and invalid
// characters. It does not touch the filesystem.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// ValidateFilename checks that a single path element is safe to create.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	// A leading hyphen reads as a flag on the command line.
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}

	return nil
}

// SanitizeFilename turns a user-derived name (e.g. a dataset split name)
// into a valid filename, or fails if nothing usable remains.
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", ErrInvalidFilename
	}

	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	return filename, nil
}

// binarySignatures names binary formats commonly passed by mistake where a
// text dataset is expected.
var binarySignatures = []struct {
	name  string
	magic []byte
}{
	{"xz archive", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{"gzip archive", []byte{0x1f, 0x8b}},
	{"SQLite database", []byte("SQLite format 3")},
	{"zip archive", []byte{0x50, 0x4b, 0x03, 0x04}},
}

// ValidateTextInput reads the head of r and rejects content that is not
// text. Empty input is accepted.
func ValidateTextInput(r io.Reader) error {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("failed to read input header: %w", err)
	}
	buf = buf[:n]
	if len(buf) == 0 {
		return nil
	}

	for _, sig := range binarySignatures {
		if bytes.HasPrefix(buf, sig.magic) {
			return fmt.Errorf("%w: looks like a %s", ErrBinaryInput, sig.name)
		}
	}
	if !isLikelyText(buf) {
		return ErrBinaryInput
	}
	return nil
}

// isLikelyText reports whether buf looks like UTF-8 or ASCII text.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// Bytes >= 0x80 belong to UTF-8 sequences and count for neither.
	}

	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}

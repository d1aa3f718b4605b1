package docbin

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/core/ir"
)

// CompressionType specifies the compression algorithm for archives.
type CompressionType string

const (
	// CompressionXZ uses XZ/LZMA2 compression (default, best ratio).
	CompressionXZ CompressionType = "xz"
	// CompressionGzip uses gzip compression (stdlib, faster).
	CompressionGzip CompressionType = "gzip"
)

// ParseCompression validates a compression name. Empty means XZ.
func ParseCompression(s string) (CompressionType, error) {
	switch CompressionType(s) {
	case "", CompressionXZ:
		return CompressionXZ, nil
	case CompressionGzip:
		return CompressionGzip, nil
	default:
		return "", errors.NewUnsupported("compression", s)
	}
}

// maxEntrySize bounds how much of a single archive entry is read (1 GiB).
const maxEntrySize = 1 << 30

// Options configures archive writing.
type Options struct {
	// Compression specifies the compression algorithm. Defaults to XZ.
	Compression CompressionType
	// ToolVersion is recorded in the manifest.
	ToolVersion string
}

// DefaultOptions returns the default options (XZ compression).
func DefaultOptions() *Options {
	return &Options{
		Compression: CompressionXZ,
	}
}

// Injectable functions for testing
var (
	osCreateTemp       = os.CreateTemp
	osRename           = os.Rename
	osMkdirAll         = os.MkdirAll
	gzipNewWriterLevel = gzip.NewWriterLevel
	xzNewWriter        = func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }
	xzNewReader        = xz.NewReader
	gzipNewReader      = gzip.NewReader

	// writeToTarFunc injectable function for testing
	writeToTarFunc = writeToTarImpl
)

// Save writes the collection to path as a single archive. The file is
// written to a temporary sibling and renamed into place, so path either
// keeps its previous content or holds the complete new archive.
func (b *DocBin) Save(path string) error {
	labels := b.Labels()
	data, err := encodePayload(b.docs, labels)
	if err != nil {
		return err
	}

	sha, b3 := checksums(data)
	m := NewManifest(b.language(), b.opts.ToolVersion)
	m.DocCount = len(b.docs)
	m.Labels = labels
	m.Payload = PayloadInfo{
		Path:      PayloadEntry,
		Encoding:  PayloadEncoding,
		SizeBytes: int64(len(data)),
		SHA256:    sha,
		BLAKE3:    b3,
	}
	manifestData, err := m.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := osMkdirAll(dir, 0755); err != nil {
		return errors.NewIO("create directory", dir, err)
	}

	tmp, err := osCreateTemp(dir, ".docbin-*")
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	tmpPath := tmp.Name()

	if err := writeArchive(tmp, b.opts.Compression, manifestData, data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIO("write", path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIO("chmod", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("close", path, err)
	}
	if err := osRename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("rename", path, err)
	}

	b.manifest = m
	return nil
}

// writeArchive writes the compressed tar stream to w.
func writeArchive(w io.Writer, compression CompressionType, manifestData, payloadData []byte) error {
	var compressWriter io.WriteCloser
	var err error
	switch compression {
	case CompressionGzip:
		compressWriter, err = gzipNewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return fmt.Errorf("failed to create gzip writer: %w", err)
		}
	case CompressionXZ, "":
		compressWriter, err = xzNewWriter(w)
		if err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
	default:
		return errors.NewUnsupported("compression", string(compression))
	}

	tarWriter := tar.NewWriter(compressWriter)
	if err := writeToTarFunc(tarWriter, ManifestEntry, manifestData); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := writeToTarFunc(tarWriter, PayloadEntry, payloadData); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	return compressWriter.Close()
}

// writeToTarImpl writes a file to the tar archive.
func writeToTarImpl(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(data)),
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	_, err := tw.Write(data)
	return err
}

// DetectCompression detects the compression type of an archive from its
// magic bytes.
func DetectCompression(archivePath string) (CompressionType, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return "", errors.NewIO("open", archivePath, err)
	}
	defer file.Close()

	magic := make([]byte, 6)
	n, err := io.ReadFull(file, magic)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return "", errors.NewValidation("archive", "file is empty")
		}
		return "", errors.NewIO("read magic bytes", archivePath, err)
	}
	if n < 2 {
		return "", errors.NewValidation("archive", "file too small to detect compression")
	}

	// gzip magic (1f 8b)
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return CompressionGzip, nil
	}

	// XZ magic (fd 37 7a 58 5a 00)
	if n >= 6 && magic[0] == 0xfd && magic[1] == 0x37 && magic[2] == 0x7a &&
		magic[3] == 0x58 && magic[4] == 0x5a && magic[5] == 0x00 {
		return CompressionXZ, nil
	}

	return "", errors.NewUnsupported("compression format", "unknown magic bytes")
}

// entries holds the raw archive entries read by readArchive.
type entries struct {
	compression CompressionType
	manifest    []byte
	payload     []byte
}

// readArchive reads manifest.json and, unless manifestOnly is set, the
// payload from the archive at path.
func readArchive(path string, manifestOnly bool) (*entries, error) {
	compression, err := DetectCompression(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer file.Close()

	var decompressReader io.Reader
	switch compression {
	case CompressionGzip:
		gzReader, err := gzipNewReader(file)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		defer gzReader.Close()
		decompressReader = gzReader
	case CompressionXZ:
		xzReader, err := xzNewReader(file)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		decompressReader = xzReader
	}

	out := &entries{compression: compression}
	tarReader := tar.NewReader(decompressReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewIO("read tar header in", path, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if header.Size > maxEntrySize {
			return nil, errors.NewValidation(header.Name, "entry exceeds maximum size")
		}

		switch header.Name {
		case ManifestEntry:
			out.manifest, err = io.ReadAll(io.LimitReader(tarReader, maxEntrySize))
		case PayloadEntry:
			out.payload, err = io.ReadAll(io.LimitReader(tarReader, maxEntrySize))
		default:
			continue
		}
		if err != nil {
			return nil, errors.NewIO("read "+header.Name+" from", path, err)
		}
		if manifestOnly && out.manifest != nil {
			return out, nil
		}
	}

	if out.manifest == nil {
		return nil, &errors.NotFoundError{Resource: "archive entry", ID: ManifestEntry}
	}
	return out, nil
}

// ReadManifest reads only the manifest of the archive at path.
func ReadManifest(path string) (*Manifest, error) {
	e, err := readArchive(path, true)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(e.manifest)
	if err != nil {
		return nil, errors.Wrapf(err, "archive %s", path)
	}
	return m, nil
}

// Load reads the archive at path. Documents are rebuilt against vocab; a
// nil vocab is created from the manifest language.
func Load(path string, vocab *ir.Vocab) (*DocBin, error) {
	e, err := readArchive(path, false)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(e.manifest)
	if err != nil {
		return nil, errors.Wrapf(err, "archive %s", path)
	}
	if e.payload == nil {
		return nil, &errors.NotFoundError{Resource: "archive entry", ID: m.Payload.Path}
	}
	if err := verifyPayload(path, m, e.payload); err != nil {
		return nil, err
	}

	if vocab == nil {
		vocab, err = ir.NewVocab(m.Language)
		if err != nil {
			return nil, errors.Wrapf(err, "archive %s", path)
		}
	}

	docs, err := decodePayload(path, e.payload, vocab)
	if err != nil {
		return nil, err
	}
	if len(docs) != m.DocCount {
		return nil, errors.NewIntegrity(path, "doc_count", fmt.Sprint(m.DocCount), fmt.Sprint(len(docs)))
	}

	return &DocBin{
		vocab:    vocab,
		opts:     &Options{Compression: e.compression, ToolVersion: m.Tool.Version},
		docs:     docs,
		manifest: m,
	}, nil
}

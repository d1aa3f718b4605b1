package docbin

import (
	"archive/tar"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	nerrors "github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/core/ir"
)

// Test helper functions

func testVocab(t *testing.T, lang string) *ir.Vocab {
	t.Helper()
	v, err := ir.NewVocab(lang)
	if err != nil {
		t.Fatalf("NewVocab(%q): %v", lang, err)
	}
	return v
}

func testDoc(t *testing.T, v *ir.Vocab, text string, spans ...ir.Span) *ir.Doc {
	t.Helper()
	doc := ir.NewDoc(v, strings.Fields(text))
	if err := doc.SetEnts(spans); err != nil {
		t.Fatalf("SetEnts: %v", err)
	}
	return doc
}

func sampleBin(t *testing.T, opts *Options) *DocBin {
	t.Helper()
	v := testVocab(t, "fr")
	b := New(v, opts)
	docs := []*ir.Doc{
		testDoc(t, v, "Jean Dupont habite Paris",
			ir.Span{Start: 0, End: 2, Label: "PER"}, ir.Span{Start: 3, End: 4, Label: "LOC"}),
		testDoc(t, v, "Il pleut ."),
		testDoc(t, v, "Air France vole vers Lyon",
			ir.Span{Start: 4, End: 5, Label: "LOC"}, ir.Span{Start: 0, End: 2, Label: "ORG"}),
	}
	for _, d := range docs {
		if err := b.Add(d); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return b
}

func TestNew_DefaultOptions(t *testing.T) {
	b := New(testVocab(t, "fr"), nil)
	if b.opts.Compression != CompressionXZ {
		t.Errorf("default compression = %q, want xz", b.opts.Compression)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if b.Manifest() != nil {
		t.Error("new collection should have no manifest")
	}
}

func TestAdd(t *testing.T) {
	fr := testVocab(t, "fr")
	b := New(fr, nil)

	if err := b.Add(nil); err == nil {
		t.Error("Add(nil) should fail")
	}

	en := testVocab(t, "en")
	err := b.Add(ir.NewDoc(en, []string{"hello"}))
	if !errors.Is(err, nerrors.ErrInvalidInput) {
		t.Errorf("Add(other language) = %v, want validation error", err)
	}

	if err := b.Add(ir.NewDoc(fr, []string{"bonjour"})); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
	if _, ok := b.Doc(1); ok {
		t.Error("Doc(1) should be out of range")
	}
	if d, ok := b.Doc(0); !ok || d.Text() != "bonjour" {
		t.Errorf("Doc(0) = %v, %v", d, ok)
	}
}

func TestLabels(t *testing.T) {
	b := sampleBin(t, nil)
	if got, want := b.Labels(), []string{"LOC", "ORG", "PER"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		compression CompressionType
	}{
		{"xz", CompressionXZ},
		{"gzip", CompressionGzip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "train.docbin")
			orig := sampleBin(t, &Options{Compression: tt.compression, ToolVersion: "1.2.3"})

			if err := orig.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if got, err := DetectCompression(path); err != nil || got != tt.compression {
				t.Errorf("DetectCompression = %q, %v; want %q", got, err, tt.compression)
			}

			loaded, err := Load(path, nil)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.Len() != orig.Len() {
				t.Fatalf("Len() = %d, want %d", loaded.Len(), orig.Len())
			}
			for i, want := range orig.Docs() {
				got, _ := loaded.Doc(i)
				if !reflect.DeepEqual(got.Words(), want.Words()) {
					t.Errorf("doc %d words = %v, want %v", i, got.Words(), want.Words())
				}
				if !reflect.DeepEqual(got.Spans(), want.Spans()) {
					t.Errorf("doc %d spans = %v, want %v", i, got.Spans(), want.Spans())
				}
			}

			m := loaded.Manifest()
			if m == nil {
				t.Fatal("loaded archive has no manifest")
			}
			if m.Language != "fr" || m.DocCount != 3 || m.Tool.Name != ToolName || m.Tool.Version != "1.2.3" {
				t.Errorf("unexpected manifest: %+v", m)
			}
			if loaded.Vocab().Lang() != "fr" {
				t.Errorf("vocab language = %q", loaded.Vocab().Lang())
			}
		})
	}
}

func TestSave_EmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docbin")
	if err := New(testVocab(t, "fr"), nil).Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 0 {
		t.Errorf("Len() = %d, want 0", loaded.Len())
	}
}

func TestSaveLoad_LargeCollection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large archive in short mode")
	}

	const n = 131073
	v := testVocab(t, "fr")
	b := New(v, &Options{Compression: CompressionGzip})
	words := []string{"Paris"}
	for i := 0; i < n; i++ {
		doc := ir.NewDoc(v, words)
		if i == n-1 {
			if err := doc.SetEnts([]ir.Span{{Start: 0, End: 1, Label: "LOC"}}); err != nil {
				t.Fatalf("SetEnts: %v", err)
			}
		}
		if err := b.Add(doc); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}

	path := filepath.Join(t.TempDir(), "large.docbin")
	if err := b.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != n {
		t.Fatalf("Len() = %d, want %d", loaded.Len(), n)
	}
	last, ok := loaded.Doc(n - 1)
	if !ok {
		t.Fatal("last document missing")
	}
	if ents := last.Ents(); len(ents) != 1 || ents[0].Label != "LOC" {
		t.Errorf("last document ents = %+v", ents)
	}
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.docbin")
	if err := sampleBin(t, nil).Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("archive not written: %v", err)
	}
}

func TestSave_Manifest(t *testing.T) {
	origID, origNow := newArchiveID, timeNow
	defer func() { newArchiveID, timeNow = origID, origNow }()
	newArchiveID = func() string { return "00000000-0000-0000-0000-000000000001" }
	timeNow = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	path := filepath.Join(t.TempDir(), "train.docbin")
	b := sampleBin(t, nil)
	if err := b.Save(path); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.ArchiveID != "00000000-0000-0000-0000-000000000001" {
		t.Errorf("ArchiveID = %q", m.ArchiveID)
	}
	if m.CreatedAt != "2024-03-01T12:00:00Z" {
		t.Errorf("CreatedAt = %q", m.CreatedAt)
	}
	if !reflect.DeepEqual(m.Labels, []string{"LOC", "ORG", "PER"}) {
		t.Errorf("Labels = %v", m.Labels)
	}
	if m.Payload.Path != PayloadEntry || m.Payload.Encoding != PayloadEncoding {
		t.Errorf("Payload = %+v", m.Payload)
	}
	if len(m.Payload.SHA256) != 64 || len(m.Payload.BLAKE3) != 64 {
		t.Errorf("checksums missing: %+v", m.Payload)
	}
	if b.Manifest() == nil || b.Manifest().ArchiveID != m.ArchiveID {
		t.Error("Save should record the written manifest")
	}
}

func TestSave_UnsupportedCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.docbin")
	b := New(testVocab(t, "fr"), &Options{Compression: "lz4"})
	err := b.Save(path)
	if !errors.Is(err, nerrors.ErrUnsupported) {
		t.Errorf("Save = %v, want unsupported error", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("failed save should not create the archive")
	}
}

func TestSave_RenameFailureKeepsPreviousArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.docbin")
	if err := sampleBin(t, nil).Save(path); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	orig := osRename
	defer func() { osRename = orig }()
	osRename = func(string, string) error { return errors.New("rename failed") }

	err := New(testVocab(t, "fr"), nil).Save(path)
	var ioErr *nerrors.IOError
	if !errors.As(err, &ioErr) || ioErr.Path != path {
		t.Fatalf("Save = %v, want IOError naming %s", err, path)
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("previous archive was modified")
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".docbin-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestSave_WriteFailure(t *testing.T) {
	orig := writeToTarFunc
	defer func() { writeToTarFunc = orig }()
	writeToTarFunc = func(*tar.Writer, string, []byte) error { return errors.New("disk full") }

	path := filepath.Join(t.TempDir(), "out.docbin")
	if err := sampleBin(t, nil).Save(path); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed save should not create the archive")
	}
}

func TestSave_MarshalFailure(t *testing.T) {
	orig := cborMarshal
	defer func() { cborMarshal = orig }()
	cborMarshal = func(any) ([]byte, error) { return nil, errors.New("encode failed") }

	if err := sampleBin(t, nil).Save(filepath.Join(t.TempDir(), "out.docbin")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_ExplicitVocab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.docbin")
	if err := sampleBin(t, nil).Save(path); err != nil {
		t.Fatal(err)
	}
	v := testVocab(t, "fr")
	loaded, err := Load(path, v)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Vocab() != v {
		t.Error("Load should use the given vocab")
	}
	if got := v.Labels(); len(got) != 3 {
		t.Errorf("vocab labels = %v, want 3 labels interned", got)
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/nerprep/core/docbin"
	"github.com/FocuswithJustin/nerprep/core/sqlite"
)

// Test helper functions

const trainJSONL = `{"tokens": ["Jean", "Dupont", "habite", "Paris", "."], "ner_tags": ["B-PER", "I-PER", "O", "B-LOC", "O"]}
{"tokens": ["Il", "pleut", "à", "Lyon"], "ner_tags": ["O", "O", "O", "B_LOC"]}
{"tokens": ["Air", "France", "vole"], "ner_tags": [5, 6, 0]}
`

var wikinerLabels = "O,B-PER,I-PER,B-LOC,I-LOC,B-ORG,I-ORG"

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// runCLI runs the command line and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func TestExportText(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)
	out := filepath.Join(dir, "train.txt")

	stdout, err := runCLI(t, "--labels", wikinerLabels, "export", "text", input, "--out", out)
	if err != nil {
		t.Fatalf("export text: %v", err)
	}
	if !strings.Contains(stdout, "Saving text to "+out+"...") || !strings.Contains(stdout, "Saved to "+out) {
		t.Errorf("stdout = %q", stdout)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "Jean Dupont habite Paris.\nIl pleut à Lyon\nAir France vole\n"
	if string(data) != want {
		t.Errorf("output = %q, want %q", data, want)
	}
}

func TestExportBIO(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)
	out := filepath.Join(dir, "train.bio")

	stdout, err := runCLI(t, "--labels", wikinerLabels, "export", "bio", input, "-o", out)
	if err != nil {
		t.Fatalf("export bio: %v", err)
	}
	if !strings.Contains(stdout, "Saving BIO text to") {
		t.Errorf("stdout = %q", stdout)
	}
	data, _ := os.ReadFile(out)
	if !strings.HasPrefix(string(data), "Jean B-PER\nDupont I-PER\n") {
		t.Errorf("output = %q", data)
	}
}

func TestExportDocBin(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)
	out := filepath.Join(dir, "train.docbin")

	stdout, err := runCLI(t, "--labels", wikinerLabels, "--compression", "gzip", "export", "docbin", input, "--out", out)
	if err != nil {
		t.Fatalf("export docbin: %v", err)
	}
	for _, want := range []string{
		"Creating " + out + " with 3 examples...",
		"Skipped 1 documents due to alignment/tag issues.",
		"Saved to " + out,
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}

	bin, err := docbin.Load(out, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bin.Len() != 2 {
		t.Errorf("archive holds %d docs, want 2", bin.Len())
	}
	if c, _ := docbin.DetectCompression(out); c != docbin.CompressionGzip {
		t.Errorf("compression = %q, want gzip", c)
	}
}

func TestExportSQLite(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)
	out := filepath.Join(dir, "train.db")

	if _, err := runCLI(t, "--labels", wikinerLabels, "export", "sqlite", input, "--out", out); err != nil {
		t.Fatalf("export sqlite: %v", err)
	}

	db, err := sqlite.OpenReadOnly(out)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("documents = %d, want 2", n)
	}
}

func TestExport_Quiet(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)

	stdout, err := runCLI(t, "-q", "--labels", wikinerLabels, "export", "text", input, "--out", filepath.Join(dir, "x.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("quiet run printed %q", stdout)
	}
}

func TestExport_Errors(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)
	mismatch := createTestFile(t, dir, "bad.jsonl", `{"tokens": ["a", "b"], "ner_tags": ["O"]}`)

	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"export", "text", filepath.Join(dir, "missing.jsonl"), "--out", "x.txt"}},
		{"missing out", []string{"export", "text", input}},
		{"ids without labels", []string{"export", "text", input, "--out", filepath.Join(dir, "x.txt")}},
		{"length mismatch", []string{"export", "bio", mismatch, "--out", filepath.Join(dir, "x.bio")}},
		{"bad language", []string{"--lang", "??", "--labels", wikinerLabels, "export", "text", input, "--out", filepath.Join(dir, "x.txt")}},
		{"bad format", []string{"--format", "csv", "export", "text", input, "--out", filepath.Join(dir, "x.txt")}},
		{"bad compression", []string{"--compression", "zip", "export", "docbin", input, "--out", filepath.Join(dir, "x.docbin")}},
		{"missing config", []string{"--config", filepath.Join(dir, "none.toml"), "version"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.args...); err == nil {
				t.Errorf("run(%v) should fail", tt.args)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)
	outDir := filepath.Join(dir, "out")

	stdout, err := runCLI(t, "--labels", wikinerLabels, "convert", input, "--out-dir", outDir)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	for _, ext := range []string{".txt", ".bio", ".docbin"} {
		path := filepath.Join(outDir, "train"+ext)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not written: %v", path, err)
		}
		if !strings.Contains(stdout, "Saved to "+path) {
			t.Errorf("stdout missing save line for %s", path)
		}
	}
}

func TestConvert_StopsAtFailingExporter(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "dev.bio", "Jean B-PER\nDupont I-PER\n\n")
	outDir := filepath.Join(dir, "out")
	// A directory where the BIO file should go makes the BIO exporter fail.
	if err := os.MkdirAll(filepath.Join(outDir, "dev.bio"), 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "convert", input, "--out-dir", outDir); err == nil {
		t.Fatal("convert should fail")
	}
	if _, err := os.Stat(filepath.Join(outDir, "dev.txt")); err != nil {
		t.Errorf("text output from the earlier exporter should remain: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "dev.docbin")); !os.IsNotExist(err) {
		t.Error("docbin exporter should not run after a failure")
	}
}

func TestConvert_Name(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "data.bio", "Jean B-PER\n")
	outDir := filepath.Join(dir, "out")

	if _, err := runCLI(t, "convert", input, "--out-dir", outDir, "--name", "wikiner/fr"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "wikiner_fr.docbin")); err != nil {
		t.Errorf("sanitized output name not used: %v", err)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)
	archive := filepath.Join(dir, "train.docbin")
	if _, err := runCLI(t, "--labels", wikinerLabels, "export", "docbin", input, "--out", archive); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		args  []string
		wants []string
		not   string
	}{
		{
			name:  "first document",
			args:  []string{"verify", archive},
			wants: []string{"Verifying " + archive + " (Example 0):", "Text: Jean Dupont habite Paris .", "  - Jean Dupont (PER)", "  Paris\tB-LOC"},
		},
		{
			name:  "second document",
			args:  []string{"verify", archive, "--index", "1"},
			wants: []string{"Text: Air France vole", "  - Air France (ORG)", "  France\tI-ORG", "  vole\tO"},
		},
		{
			name:  "out of range",
			args:  []string{"verify", archive, "--index", "5"},
			wants: []string{"Index 5 out of bounds for 2 docs."},
			not:   "Text:",
		},
		{
			name:  "missing archive",
			args:  []string{"verify", filepath.Join(dir, "missing.docbin")},
			wants: []string{"Error reading " + filepath.Join(dir, "missing.docbin")},
			not:   "Text:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, err := runCLI(t, tt.args...)
			if err != nil {
				t.Fatalf("verify should not fail: %v", err)
			}
			for _, want := range tt.wants {
				if !strings.Contains(stdout, want) {
					t.Errorf("stdout missing %q:\n%s", want, stdout)
				}
			}
			if tt.not != "" && strings.Contains(stdout, tt.not) {
				t.Errorf("stdout should not contain %q:\n%s", tt.not, stdout)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)
	archive := filepath.Join(dir, "train.docbin")
	if _, err := runCLI(t, "--labels", wikinerLabels, "export", "docbin", input, "--out", archive); err != nil {
		t.Fatal(err)
	}

	stdout, err := runCLI(t, "info", archive)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"Language:    fr", "Documents:   2", "Labels:      LOC, ORG, PER", "Tool:        nerprep " + version} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}

	corrupt := createTestFile(t, dir, "corrupt.docbin", "not an archive")
	if _, err := runCLI(t, "info", corrupt); err == nil {
		t.Error("info on a corrupt archive should fail")
	}
}

func TestVersion(t *testing.T) {
	stdout, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "nerprep version "+version) || !strings.Contains(stdout, "sqlite driver") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := createTestFile(t, dir, "nerprep.toml", `
labels = ["O", "B-PER", "I-PER", "B-LOC", "I-LOC", "B-ORG", "I-ORG"]
progress = false
`)
	input := createTestFile(t, dir, "train.jsonl", trainJSONL)

	if _, err := runCLI(t, "--config", cfg, "export", "bio", input, "--out", filepath.Join(dir, "x.bio")); err != nil {
		t.Fatalf("labels from config should resolve ids: %v", err)
	}
}

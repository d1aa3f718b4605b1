// Command nerprep converts token-level NER datasets to plain text, BIO
// columns, docbin archives and SQLite databases, and prints archived
// documents back for inspection.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/nerprep/core/docbin"
	"github.com/FocuswithJustin/nerprep/core/ir"
	"github.com/FocuswithJustin/nerprep/core/sqlite"
	"github.com/FocuswithJustin/nerprep/internal/config"
	"github.com/FocuswithJustin/nerprep/internal/dataset"
	"github.com/FocuswithJustin/nerprep/internal/export"
	"github.com/FocuswithJustin/nerprep/internal/logging"
	"github.com/FocuswithJustin/nerprep/internal/progress"
	"github.com/FocuswithJustin/nerprep/internal/validation"
	"github.com/FocuswithJustin/nerprep/internal/verify"
)

const version = "0.1.0"

// CLI defines the command-line interface for nerprep.
type CLI struct {
	Globals

	Export  ExportGroup `cmd:"" help:"Export a dataset in one output format"`
	Convert ConvertCmd  `cmd:"" help:"Export a dataset as text, BIO and docbin at once"`
	Verify  VerifyCmd   `cmd:"" help:"Print one document of a docbin archive"`
	Info    InfoCmd     `cmd:"" help:"Print the manifest of a docbin archive"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// Globals are flags shared by every command. Set flags override the
// configuration file.
type Globals struct {
	Config      string   `name:"config" help:"Configuration file (default ./nerprep.toml if present)" type:"path"`
	Lang        string   `name:"lang" help:"Document language as a BCP-47 tag (default fr)"`
	Labels      []string `name:"labels" sep:"," help:"Tag names for integer ner_tags ids, in id order"`
	Format      string   `name:"format" help:"Input format: jsonl, json or bio (default from extension)"`
	Compression string   `name:"compression" help:"Archive compression: xz or gzip"`
	Quiet       bool     `name:"quiet" short:"q" help:"Only print errors"`
	LogLevel    string   `name:"log-level" help:"Log level: debug, info, warn or error"`
	LogFormat   string   `name:"log-format" help:"Log format: text or json"`
}

// ExportGroup holds one command per output format.
type ExportGroup struct {
	Text   ExportTextCmd   `cmd:"" help:"Write one normalized sentence per line"`
	BIO    ExportBIOCmd    `cmd:"" name:"bio" help:"Write token/tag columns"`
	DocBin ExportDocBinCmd `cmd:"" name:"docbin" help:"Write a docbin archive"`
	SQLite ExportSQLiteCmd `cmd:"" name:"sqlite" help:"Write a SQLite database"`
}

// App carries the resolved settings into command Run methods.
type App struct {
	Config *config.Config
	Vocab  *ir.Vocab
	Format dataset.Format
	Quiet  bool
	Stdout io.Writer
	Stderr io.Writer
}

// newApp loads the configuration, applies flag overrides and sets up logging.
func newApp(g *Globals, stdout, stderr io.Writer) (*App, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Lang != "" {
		cfg.Language = g.Lang
	}
	if len(g.Labels) > 0 {
		cfg.Labels = g.Labels
	}
	if g.Compression != "" {
		cfg.Compression = g.Compression
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.LogFormat = g.LogFormat
	}
	if g.Quiet {
		cfg.Progress = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logFormat, _ := logging.ParseFormat(cfg.LogFormat)
	logging.SetOutput(stderr, level, logFormat)

	vocab, err := ir.NewVocab(cfg.Language)
	if err != nil {
		return nil, err
	}
	format, err := dataset.ParseFormat(g.Format)
	if err != nil {
		return nil, err
	}

	return &App{
		Config: cfg,
		Vocab:  vocab,
		Format: format,
		Quiet:  g.Quiet,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

// say prints a status line unless --quiet is set.
func (a *App) say(format string, args ...any) {
	if !a.Quiet {
		fmt.Fprintf(a.Stdout, format+"\n", args...)
	}
}

// load reads the input dataset.
func (a *App) load(input string) ([]dataset.Record, error) {
	return dataset.Load(input, dataset.Options{Format: a.Format, Labels: a.Config.Labels})
}

// run executes one exporter with a progress bar and prints the summary.
func (a *App) run(label string, total int, out string, fn func(export.Progress) (*export.Result, error)) (*export.Result, error) {
	if err := validation.ValidatePath(out); err != nil {
		return nil, fmt.Errorf("invalid output path: %w", err)
	}
	a.say("Saving %s to %s...", label, out)

	bar := progress.New(a.Stderr, label, total, a.Config.Progress)
	res, err := fn(bar.Update)
	bar.Finish()
	if err != nil {
		return nil, err
	}

	if res.Skipped > 0 {
		a.say("Skipped %d documents due to alignment/tag issues.", res.Skipped)
	}
	a.say("Saved to %s", res.Path)
	return res, nil
}

func (a *App) exportText(records []dataset.Record, out string) error {
	_, err := a.run("text", len(records), out, func(p export.Progress) (*export.Result, error) {
		return export.Text(records, out, p)
	})
	return err
}

func (a *App) exportBIO(records []dataset.Record, out string) error {
	_, err := a.run("BIO text", len(records), out, func(p export.Progress) (*export.Result, error) {
		return export.BIO(records, out, p)
	})
	return err
}

func (a *App) exportDocBin(records []dataset.Record, out string) error {
	compression, err := docbin.ParseCompression(a.Config.Compression)
	if err != nil {
		return err
	}
	archive := docbin.New(a.Vocab, &docbin.Options{Compression: compression, ToolVersion: version})
	a.say("Creating %s with %d examples...", out, len(records))
	_, err = a.run("docbin", len(records), out, func(p export.Progress) (*export.Result, error) {
		return export.DocBin(records, out, archive, a.Vocab, p)
	})
	return err
}

func (a *App) exportSQLite(ctx context.Context, records []dataset.Record, out string) error {
	_, err := a.run("SQLite", len(records), out, func(p export.Progress) (*export.Result, error) {
		return export.SQLite(ctx, records, out, a.Vocab, p)
	})
	return err
}

// InputArgs names the dataset to read and the output path.
type InputArgs struct {
	Input string `arg:"" help:"Dataset file (.jsonl, .json, .bio)" type:"existingfile"`
	Out   string `name:"out" short:"o" required:"" help:"Output path" type:"path"`
}

// ExportTextCmd writes normalized text.
type ExportTextCmd struct {
	InputArgs
}

func (c *ExportTextCmd) Run(app *App) error {
	records, err := app.load(c.Input)
	if err != nil {
		return err
	}
	return app.exportText(records, c.Out)
}

// ExportBIOCmd writes BIO columns.
type ExportBIOCmd struct {
	InputArgs
}

func (c *ExportBIOCmd) Run(app *App) error {
	records, err := app.load(c.Input)
	if err != nil {
		return err
	}
	return app.exportBIO(records, c.Out)
}

// ExportDocBinCmd writes a docbin archive.
type ExportDocBinCmd struct {
	InputArgs
}

func (c *ExportDocBinCmd) Run(app *App) error {
	records, err := app.load(c.Input)
	if err != nil {
		return err
	}
	return app.exportDocBin(records, c.Out)
}

// ExportSQLiteCmd writes a SQLite database.
type ExportSQLiteCmd struct {
	InputArgs
}

func (c *ExportSQLiteCmd) Run(app *App) error {
	records, err := app.load(c.Input)
	if err != nil {
		return err
	}
	return app.exportSQLite(context.Background(), records, c.Out)
}

// ConvertCmd runs the text, BIO and docbin exporters on one dataset.
// Outputs already written stay in place when a later exporter fails.
type ConvertCmd struct {
	Input  string `arg:"" help:"Dataset file (.jsonl, .json, .bio)" type:"existingfile"`
	OutDir string `name:"out-dir" short:"d" required:"" help:"Output directory" type:"path"`
	Name   string `name:"name" help:"Base name of the outputs (default: input file name without extension)"`
}

func (c *ConvertCmd) Run(app *App) error {
	name := c.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(c.Input), filepath.Ext(c.Input))
	}
	name, err := validation.SanitizeFilename(name)
	if err != nil {
		return fmt.Errorf("invalid output name: %w", err)
	}

	records, err := app.load(c.Input)
	if err != nil {
		return err
	}

	base := filepath.Join(c.OutDir, name)
	if err := app.exportText(records, base+".txt"); err != nil {
		return err
	}
	if err := app.exportBIO(records, base+".bio"); err != nil {
		return err
	}
	return app.exportDocBin(records, base+".docbin")
}

// VerifyCmd prints one archived document.
type VerifyCmd struct {
	Archive string `arg:"" help:"Docbin archive" type:"path"`
	Index   int    `name:"index" short:"i" default:"0" help:"Document index"`
}

// Run prints the report. Unreadable archives and out-of-range indexes are
// reported on stdout and do not fail the command.
func (c *VerifyCmd) Run(app *App) error {
	fmt.Fprintf(app.Stdout, "\nVerifying %s (Example %d):\n", c.Archive, c.Index)
	if err := verify.Report(app.Stdout, c.Archive, nil, c.Index); err != nil {
		logging.Debug("verify failed", "path", c.Archive, "index", c.Index, "error", err)
	}
	return nil
}

// InfoCmd prints an archive manifest.
type InfoCmd struct {
	Archive string `arg:"" help:"Docbin archive" type:"existingfile"`
}

func (c *InfoCmd) Run(app *App) error {
	m, err := docbin.ReadManifest(c.Archive)
	if err != nil {
		return err
	}

	w := app.Stdout
	fmt.Fprintf(w, "Archive:     %s\n", c.Archive)
	fmt.Fprintf(w, "Format:      %s\n", m.FormatVersion)
	fmt.Fprintf(w, "ID:          %s\n", m.ArchiveID)
	fmt.Fprintf(w, "Created:     %s\n", m.CreatedAt)
	fmt.Fprintf(w, "Language:    %s\n", m.Language)
	if m.Tool.Version != "" {
		fmt.Fprintf(w, "Tool:        %s %s\n", m.Tool.Name, m.Tool.Version)
	} else {
		fmt.Fprintf(w, "Tool:        %s\n", m.Tool.Name)
	}
	fmt.Fprintf(w, "Documents:   %d\n", m.DocCount)
	fmt.Fprintf(w, "Labels:      %s\n", strings.Join(m.Labels, ", "))
	fmt.Fprintf(w, "Payload:     %s (%s, %d bytes)\n", m.Payload.Path, m.Payload.Encoding, m.Payload.SizeBytes)
	fmt.Fprintf(w, "SHA-256:     %s\n", m.Payload.SHA256)
	fmt.Fprintf(w, "BLAKE3:      %s\n", m.Payload.BLAKE3)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *App) error {
	fmt.Fprintf(app.Stdout, "nerprep version %s\n", version)
	fmt.Fprintf(app.Stdout, "docbin format %s\n", docbin.FormatVersion)
	fmt.Fprintf(app.Stdout, "sqlite driver %s\n", sqlite.GetInfo())
	return nil
}

// kongOptions configures the parser; tests pass their own writers.
func kongOptions(stdout, stderr io.Writer) []kong.Option {
	return []kong.Option{
		kong.Name("nerprep"),
		kong.Description("nerprep - NER dataset conversion (text, BIO, docbin, SQLite)"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
	}
}

// run parses args and executes the selected command.
func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli, kongOptions(stdout, stderr)...)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	app, err := newApp(&cli.Globals, stdout, stderr)
	if err != nil {
		return err
	}
	return ctx.Run(app)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "nerprep: error: %v\n", err)
		os.Exit(1)
	}
}

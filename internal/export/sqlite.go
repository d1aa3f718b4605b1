package export

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/core/ir"
	"github.com/FocuswithJustin/nerprep/core/scheme"
	"github.com/FocuswithJustin/nerprep/core/sqlite"
	"github.com/FocuswithJustin/nerprep/internal/dataset"
	"github.com/FocuswithJustin/nerprep/internal/logging"
	"github.com/FocuswithJustin/nerprep/internal/validation"
)

//go:embed schema.sql
var schemaSQL string

// Injectable functions for testing
var (
	sqliteOpen = sqlite.Open
	osRename   = os.Rename
	timeNow    = time.Now
)

// SQLite writes aligned records to a new SQLite database at path, with
// documents, per-token BIO and BILOU tags, and entity spans. Records that
// cannot be aligned are skipped and counted. All rows are inserted in one
// transaction into a temporary file that replaces path on success.
func SQLite(ctx context.Context, records []dataset.Record, path string, vocab *ir.Vocab, progress Progress) (*Result, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewIO("create", path, err)
	}

	start := time.Now()
	logging.ExportStarted("sqlite", path, len(records), "driver", sqlite.DriverType())

	dir := filepath.Dir(path)
	if err := osMkdirAll(dir, 0755); err != nil {
		return nil, errors.NewIO("create directory", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".nerprep-*.db")
	if err != nil {
		return nil, errors.NewIO("create", path, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	res, err := writeDatabase(ctx, tmpPath, path, records, vocab, progress)
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	if err := osRename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, errors.NewIO("rename", path, err)
	}

	logSkips("sqlite", res)
	logging.ExportFinished("sqlite", path, res.Written, res.Skipped, time.Since(start))
	return res, nil
}

// writeDatabase fills the database at dbPath. path is the final output
// path, used in errors and results.
func writeDatabase(ctx context.Context, dbPath, path string, records []dataset.Record, vocab *ir.Vocab, progress Progress) (*Result, error) {
	db, err := sqliteOpen(dbPath)
	if err != nil {
		return nil, errors.NewIO("open database", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewIO("begin transaction on", path, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return nil, errors.NewIO("create schema in", path, err)
	}

	ins, err := prepareInserts(ctx, tx)
	if err != nil {
		return nil, errors.NewIO("prepare statements for", path, err)
	}
	defer ins.close()

	res := &Result{Path: path, Records: len(records)}
	for i, r := range records {
		a, err := align(vocab, r)
		if err != nil {
			skip("sqlite", i, err)
			res.Skipped++
		} else {
			if err := ins.document(ctx, i, a); err != nil {
				return nil, errors.NewIO("insert record "+strconv.Itoa(i)+" into", path, err)
			}
			res.Written++
		}
		report(progress, i+1, len(records))
	}

	meta := map[string]string{
		"language":   vocab.Lang(),
		"tool":       "nerprep",
		"created_at": timeNow().UTC().Format(time.RFC3339),
		"records":    strconv.Itoa(res.Records),
		"written":    strconv.Itoa(res.Written),
		"skipped":    strconv.Itoa(res.Skipped),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)`, k, v); err != nil {
			return nil, errors.NewIO("write metadata to", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewIO("commit", path, err)
	}
	return res, nil
}

// inserts holds the prepared statements of one export.
type inserts struct {
	doc, token, entity *sql.Stmt
}

func prepareInserts(ctx context.Context, tx *sql.Tx) (*inserts, error) {
	var ins inserts
	var err error
	if ins.doc, err = tx.PrepareContext(ctx,
		`INSERT INTO documents (record_index, text, hash) VALUES (?, ?, ?)`); err != nil {
		return nil, err
	}
	if ins.token, err = tx.PrepareContext(ctx,
		`INSERT INTO tokens (doc_id, position, text, bio, bilou) VALUES (?, ?, ?, ?, ?)`); err != nil {
		ins.close()
		return nil, err
	}
	if ins.entity, err = tx.PrepareContext(ctx,
		`INSERT INTO entities (doc_id, start_token, end_token, label, text) VALUES (?, ?, ?, ?, ?)`); err != nil {
		ins.close()
		return nil, err
	}
	return &ins, nil
}

func (ins *inserts) close() {
	for _, s := range []*sql.Stmt{ins.doc, ins.token, ins.entity} {
		if s != nil {
			s.Close()
		}
	}
}

// document inserts one aligned record with its tokens and entities.
func (ins *inserts) document(ctx context.Context, index int, a *aligned) error {
	hash, err := ir.HashDoc(a.doc)
	if err != nil {
		return fmt.Errorf("hashing document: %w", err)
	}
	row, err := ins.doc.ExecContext(ctx, index, a.doc.Text(), hash)
	if err != nil {
		return err
	}
	docID, err := row.LastInsertId()
	if err != nil {
		return err
	}

	bio := scheme.BILOUToBIO(a.bilou)
	for pos, word := range a.doc.Words() {
		if _, err := ins.token.ExecContext(ctx, docID, pos, word, bio[pos], a.bilou[pos]); err != nil {
			return err
		}
	}
	for _, e := range a.doc.Ents() {
		if _, err := ins.entity.ExecContext(ctx, docID, e.Start, e.End, e.Label, e.Text); err != nil {
			return err
		}
	}
	return nil
}

// Package sqliteexternal links the CGO SQLite driver (mattn/go-sqlite3)
// into builds that ask for it.
//
// It is imported by core/sqlite when built with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/nerprep
//
// Without the tag nerprep uses the pure Go modernc.org/sqlite driver and
// needs no C toolchain. The CGO driver is faster on large exports.
package sqliteexternal

package backend

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"codegen/builder"
)

// SourceMapStore persists a function's coalesced source map plus its
// optimization stats (instruction count, stack bytes) to a SQL store, so a
// build pipeline can later correlate a runtime fault address back to
// source. The driver is selected from the DSN's scheme (sqlite, the
// zero-setup default, Postgres, MySQL or SQL Server), but the queries are
// written for SQLite (`?` placeholders, `ON CONFLICT ... DO UPDATE`) and
// are passed to every driver unchanged.
type SourceMapStore struct {
	db *sql.DB
}

// OpenSourceMapStore opens dsn, inferring the driver from its scheme:
//
//	sqlite://path/to/file.db   (modernc.org/sqlite, pure Go, no cgo)
//	postgres://...             (github.com/lib/pq)
//	mysql://...                (github.com/go-sql-driver/mysql)
//	sqlserver://...            (github.com/denisenkom/go-mssqldb)
func OpenSourceMapStore(dsn string) (*SourceMapStore, error) {
	driver, connStr, err := driverForDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("backend: opening source map store: %w", err)
	}

	store := &SourceMapStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func driverForDSN(dsn string) (driver, connStr string, err error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", fmt.Errorf("backend: invalid DSN %q: %w", dsn, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "sqlite":
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), nil
	case "postgres", "postgresql":
		return "postgres", dsn, nil
	case "mysql":
		return "mysql", strings.TrimPrefix(dsn, "mysql://"), nil
	case "sqlserver":
		return "sqlserver", dsn, nil
	default:
		return "", "", fmt.Errorf("backend: unrecognized DSN scheme %q", u.Scheme)
	}
}

func (s *SourceMapStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS source_map_entries (
			function_name TEXT NOT NULL,
			code_index    INTEGER NOT NULL,
			line          INTEGER NOT NULL,
			column        INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("backend: migrating source_map_entries: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS function_stats (
			function_name    TEXT NOT NULL PRIMARY KEY,
			instruction_count INTEGER NOT NULL,
			stack_bytes       INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("backend: migrating function_stats: %w", err)
	}
	return nil
}

// SaveSourceMap persists fnName's coalesced source map entries, replacing
// any previously stored entries for that function.
func (s *SourceMapStore) SaveSourceMap(fnName string, sm *builder.SourceMap) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("backend: saving source map for %q: %w", fnName, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM source_map_entries WHERE function_name = ?`, fnName); err != nil {
		return fmt.Errorf("backend: clearing prior source map for %q: %w", fnName, err)
	}

	for _, e := range sm.Entries() {
		_, err := tx.Exec(
			`INSERT INTO source_map_entries (function_name, code_index, line, column) VALUES (?, ?, ?, ?)`,
			fnName, int64(e.Code), int64(e.Loc.Line), int64(e.Loc.Column),
		)
		if err != nil {
			return fmt.Errorf("backend: inserting source map entry for %q: %w", fnName, err)
		}
	}

	return tx.Commit()
}

// SaveFunctionStats records a function's size diagnostics after
// optimization, overwriting any prior row for the same function.
func (s *SourceMapStore) SaveFunctionStats(fnName string, instructionCount int, stackBytes uint64) error {
	_, err := s.db.Exec(`
		INSERT INTO function_stats (function_name, instruction_count, stack_bytes)
		VALUES (?, ?, ?)
		ON CONFLICT(function_name) DO UPDATE SET
			instruction_count = excluded.instruction_count,
			stack_bytes = excluded.stack_bytes`,
		fnName, instructionCount, int64(stackBytes),
	)
	if err != nil {
		return fmt.Errorf("backend: saving stats for %q: %w", fnName, err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SourceMapStore) Close() error { return s.db.Close() }

// Package refbackend is a reference, in-process implementation of the
// get_G/set_G/reset test APIs the globals rewriter hoists every global
// access into. It backs each declared global with a SQLite table — a
// (key, value) row per map entry, mirroring the encoder's own
// domain/value split for a global map — so the integration tests in
// internal/ctc can drive a real concretization run against actual
// persisted state instead of an in-memory stub, without standing up a
// live web service.
package refbackend

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/funvibe/testgen/internal/factory"
	"github.com/funvibe/testgen/internal/ir"
)

// Store is a SQLite-backed implementation of factory.Factory restricted
// to the three test-API shapes rewriteGlobals ever emits: get_<G>(),
// set_<G>(map), and reset(). Any other API name is reported as an
// APIExecutionFailed-worthy error, since a Store is only ever wired in
// behind the Test-API ATC, never the original spec-level call surface.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) a SQLite database at path and ensures the
// globals table exists. Pass ":memory:" for an ephemeral store scoped to
// one process, which is what the ctc integration tests use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("refbackend: open %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS globals (
		global TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (global, key)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("refbackend: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// GetFunction implements factory.Factory, recognizing exactly the three
// shapes rewriteGlobals produces.
func (s *Store) GetFunction(name string, args []ir.Expression) (factory.Callable, error) {
	switch {
	case name == "reset":
		return factory.CallableFunc(func() (ir.Expression, error) {
			return &ir.Bool{Value: true}, s.reset()
		}), nil
	case hasPrefix(name, "get_"):
		global := name[len("get_"):]
		return factory.CallableFunc(func() (ir.Expression, error) {
			return s.get(global)
		}), nil
	case hasPrefix(name, "set_"):
		global := name[len("set_"):]
		if len(args) != 1 {
			return nil, fmt.Errorf("refbackend: set_%s expects 1 argument, got %d", global, len(args))
		}
		m, ok := args[0].(*ir.Map)
		if !ok {
			return nil, fmt.Errorf("refbackend: set_%s expects a Map argument, got %s", global, args[0].Kind())
		}
		return factory.CallableFunc(func() (ir.Expression, error) {
			return &ir.Bool{Value: true}, s.set(global, m)
		}), nil
	default:
		return nil, fmt.Errorf("refbackend: unrecognized test API %q", name)
	}
}

func (s *Store) reset() error {
	_, err := s.db.Exec(`DELETE FROM globals`)
	return err
}

func (s *Store) get(global string) (ir.Expression, error) {
	rows, err := s.db.Query(`SELECT key, value FROM globals WHERE global = ? ORDER BY rowid`, global)
	if err != nil {
		return nil, fmt.Errorf("refbackend: get_%s: %w", global, err)
	}
	defer rows.Close()

	var entries []ir.MapEntry
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("refbackend: get_%s: scan: %w", global, err)
		}
		entries = append(entries, ir.MapEntry{Key: &ir.Var{Name: key}, Value: &ir.Str{Value: value}})
	}
	return &ir.Map{Entries: entries}, rows.Err()
}

// set replaces the global's entire row set with m's entries, matching the
// get_G/mutate/set_G replace semantics rewriteGlobals generates rather
// than a per-key upsert.
func (s *Store) set(global string, m *ir.Map) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("refbackend: set_%s: begin: %w", global, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM globals WHERE global = ?`, global); err != nil {
		return fmt.Errorf("refbackend: set_%s: clear: %w", global, err)
	}
	for _, kv := range m.Entries {
		if _, err := tx.Exec(`INSERT INTO globals (global, key, value) VALUES (?, ?, ?)`,
			global, kv.Key.Name, valueText(kv.Value)); err != nil {
			return fmt.Errorf("refbackend: set_%s: insert %s: %w", global, kv.Key.Name, err)
		}
	}
	return tx.Commit()
}

func valueText(e ir.Expression) string {
	if s, ok := e.(*ir.Str); ok {
		return s.Value
	}
	return e.String()
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

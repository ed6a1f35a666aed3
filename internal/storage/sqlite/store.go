// Package sqlite is memctl's single-file storage backend: WAL-mode
// SQLite with an FTS5 mirror table, reached through database/sql and the
// pure-Go github.com/ncruces/go-sqlite3 driver (registered as "sqlite3").
// One migration file per version, database/sql CRUD helpers, sentinel
// errors wrapped with "%w".
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/memctl/internal/storage/sqlite/migrations"
)

// Store is a single SQLite-backed memory store. All multi-statement
// mutations run inside one explicit transaction; readers are
// unrestricted thanks to WAL mode.
type Store struct {
	db       *sql.DB
	path     string
	mu       sync.Mutex // serializes writer-side operations in this process
	degraded bool
}

// Options configures Open.
type Options struct {
	// Tokenizer is the FTS5 preset to bind on a fresh database. Ignored
	// if the database already has tokenizer metadata; compare against
	// the returned TokenizerMismatch to decide whether to reindex.
	Tokenizer string
}

// OpenResult carries the outcome of opening a store, including any
// non-fatal tokenizer mismatch warning.
type OpenResult struct {
	Store              *Store
	TokenizerMismatch   bool
	ConfiguredTokenizer string
	StoredTokenizer     string
}

// Open opens (creating if absent) the database at path in WAL mode,
// applying any pending migrations inside a single transaction.
func Open(ctx context.Context, path string, opts Options) (*OpenResult, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer rule; readers share this handle too, WAL tolerates it

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	s := &Store{db: db, path: path}

	configured := opts.Tokenizer
	if configured == "" {
		configured = "fr"
	}
	stored, err := s.currentTokenizer(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read tokenizer metadata: %w", err)
	}

	return &OpenResult{
		Store:               s,
		TokenizerMismatch:   stored != configured,
		ConfiguredTokenizer: configured,
		StoredTokenizer:     stored,
	}, nil
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	// schema_meta may not exist yet on a brand-new file; the bootstrap
	// migration creates it, so guard the version read.
	var current int
	row := db.QueryRowContext(ctx, `SELECT version FROM schema_meta WHERE id = 1`)
	if err := row.Scan(&current); err != nil {
		current = 0 // table doesn't exist yet, or no row: start from scratch
	}

	for _, m := range migrations.All() {
		if m.Version <= current {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := m.Apply(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`UPDATE schema_meta SET version = ? WHERE id = 1`, m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (s *Store) currentTokenizer(ctx context.Context) (string, error) {
	var tok string
	err := s.db.QueryRowContext(ctx, `SELECT tokenizer FROM schema_meta WHERE id = 1`).Scan(&tok)
	if err != nil {
		return "", err
	}
	return tok, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path this store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Degraded reports whether a fatal invariant violation was previously
// detected on this store.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Store) markDegraded() {
	s.mu.Lock()
	s.degraded = true
	s.mu.Unlock()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// beginTx opens a write transaction, retrying with bounded exponential
// backoff on SQLITE_BUSY/locked contention (spec.md §7, "Transient I/O
// error"). The busy_timeout pragma already covers most lock waits inside
// the driver; this is the outer net for BeginTx itself returning busy
// before the pragma's internal wait kicks in.
func (s *Store) beginTx(ctx context.Context) (*sql.Tx, error) {
	var tx *sql.Tx
	op := func() error {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err == nil {
			return nil
		}
		if isBusyErr(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return tx, nil
}

func isBusyErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

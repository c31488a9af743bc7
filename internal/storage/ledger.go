package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is the recorded state of one stored document.
type Entry struct {
	Name      string
	ETag      string
	Size      int64
	UpdatedAt time.Time
}

// Ledger records the current ETag of every stored document in SQLite.
type Ledger struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) Init(ctx context.Context) error {
	_, err := l.ensureDB(ctx)
	return err
}

func (l *Ledger) ensureDB(ctx context.Context) (*sql.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil {
		return l.db, nil
	}

	db, err := sql.Open("sqlite", l.path)
	if err != nil {
		return nil, err
	}
	// one writer at a time keeps compare-and-swap serial
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := `
CREATE TABLE IF NOT EXISTS documents (
  name TEXT PRIMARY KEY,
  etag TEXT NOT NULL,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  updated_unix INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	l.db = db
	return db, nil
}

// Get returns the entry for name or ErrNotFound.
func (l *Ledger) Get(ctx context.Context, name string) (Entry, error) {
	db, err := l.ensureDB(ctx)
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	var updated int64
	err = db.QueryRowContext(ctx,
		`SELECT name, etag, size_bytes, updated_unix FROM documents WHERE name = ?`, name,
	).Scan(&e.Name, &e.ETag, &e.Size, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	e.UpdatedAt = time.Unix(updated, 0).UTC()
	return e, nil
}

// Put records e, replacing any earlier entry with the same name.
func (l *Ledger) Put(ctx context.Context, e Entry) error {
	db, err := l.ensureDB(ctx)
	if err != nil {
		return err
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO documents(name, etag, size_bytes, updated_unix)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   etag=excluded.etag,
		   size_bytes=excluded.size_bytes,
		   updated_unix=excluded.updated_unix`,
		e.Name, e.ETag, e.Size, e.UpdatedAt.Unix(),
	)
	return err
}

// CompareAndSwap records next only if the current ETag of next.Name equals
// expected. An empty expected matches a name with no entry.
func (l *Ledger) CompareAndSwap(ctx context.Context, expected string, next Entry) error {
	db, err := l.ensureDB(ctx)
	if err != nil {
		return err
	}
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now()
	}

	var res sql.Result
	if expected == "" {
		res, err = db.ExecContext(ctx,
			`INSERT INTO documents(name, etag, size_bytes, updated_unix) VALUES(?, ?, ?, ?)
			 ON CONFLICT(name) DO NOTHING`,
			next.Name, next.ETag, next.Size, next.UpdatedAt.Unix(),
		)
	} else {
		res, err = db.ExecContext(ctx,
			`UPDATE documents SET etag = ?, size_bytes = ?, updated_unix = ? WHERE name = ? AND etag = ?`,
			next.ETag, next.Size, next.UpdatedAt.Unix(), next.Name, expected,
		)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

// Delete drops the entry for name.
func (l *Ledger) Delete(ctx context.Context, name string) error {
	db, err := l.ensureDB(ctx)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	return err
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

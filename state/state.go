// Package state tracks which input files have already been converted, so
// incremental runs can skip unchanged files. Identity is content hash plus
// modification time: the mtime is a fast path, the hash is the truth.
package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is bumped on any incompatible change to the files table.
// A mismatch drops the stored state; the next run rebuilds it from scratch.
const schemaVersion = 1

const hashBufSize = 8 * 1024

// Tracker is the SQLite-backed processed-file index.
type Tracker struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the tracker database at path and runs migrations.
func Open(path string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// Pragmas go through Exec: DSN parameters are driver-specific and the
	// modernc driver ignores the mattn-style ones.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}
	t := &Tracker{db: db, logger: logger}
	if err := t.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	return t, nil
}

// Close closes the underlying database connection.
func (t *Tracker) Close() error { return t.db.Close() }

func (t *Tracker) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS meta (
    key     TEXT PRIMARY KEY,
    value   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    key          TEXT PRIMARY KEY,
    hash         TEXT NOT NULL,
    mtime_ns     INTEGER NOT NULL,
    output       TEXT,
    file_type    TEXT,
    processed_at TEXT NOT NULL
);
`
	if _, err := t.db.Exec(ddl); err != nil {
		return err
	}

	var stored string
	err := t.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = t.db.Exec(`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`,
			fmt.Sprint(schemaVersion))
		return err
	case err != nil:
		return err
	}
	if stored != fmt.Sprint(schemaVersion) {
		t.logger.Warn("state schema version mismatch, rebuilding index",
			"stored", stored, "current", schemaVersion)
		if _, err := t.db.Exec(`DELETE FROM files`); err != nil {
			return err
		}
		_, err = t.db.Exec(`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			fmt.Sprint(schemaVersion))
		return err
	}
	return nil
}

// NeedsProcessing reports whether the file at path changed since it was
// last recorded under key. Unknown keys need processing. A changed mtime
// with an unchanged hash counts as unchanged; the stored mtime is refreshed
// so the next run takes the fast path again. Stat or hash failures are
// answered conservatively with true.
func (t *Tracker) NeedsProcessing(ctx context.Context, key, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		t.logger.Debug("stat failed, treating as changed", "key", key, "error", err)
		return true
	}
	mtime := info.ModTime().UnixNano()

	var storedHash string
	var storedMtime int64
	err = t.db.QueryRowContext(ctx,
		`SELECT hash, mtime_ns FROM files WHERE key = ?`, key,
	).Scan(&storedHash, &storedMtime)
	if err == sql.ErrNoRows {
		return true
	}
	if err != nil {
		t.logger.Debug("state lookup failed, treating as changed", "key", key, "error", err)
		return true
	}

	if storedMtime == mtime {
		return false
	}

	hash, err := hashFile(path)
	if err != nil {
		t.logger.Debug("hash failed, treating as changed", "key", key, "error", err)
		return true
	}
	if hash != storedHash {
		return true
	}
	// Touched but identical: refresh the mtime so the fast path holds.
	if _, err := t.exec(ctx,
		`UPDATE files SET mtime_ns = ? WHERE key = ?`, mtime, key); err != nil {
		t.logger.Debug("mtime refresh failed", "key", key, "error", err)
	}
	return false
}

// RecordProcessed stores the current identity of path under key, together
// with the produced output name and the category it was routed through.
func (t *Tracker) RecordProcessed(ctx context.Context, key, path, output, fileType string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hash, err := hashFile(path)
	if err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	_, err = t.exec(ctx,
		`INSERT INTO files (key, hash, mtime_ns, output, file_type, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   hash = excluded.hash, mtime_ns = excluded.mtime_ns,
		   output = excluded.output, file_type = excluded.file_type,
		   processed_at = excluded.processed_at`,
		key, hash, info.ModTime().UnixNano(), output, fileType,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record %s: %w", key, err)
	}
	return nil
}

// PruneDeleted removes entries whose key is absent from current, and
// returns how many were dropped. Called at the end of a full traversal so
// deleted inputs stop occupying the index.
func (t *Tracker) PruneDeleted(ctx context.Context, current map[string]struct{}) (int, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT key FROM files`)
	if err != nil {
		return 0, fmt.Errorf("list state keys: %w", err)
	}
	var stale []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := current[key]; !ok {
			stale = append(stale, key)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, key := range stale {
		if _, err := t.exec(ctx, `DELETE FROM files WHERE key = ?`, key); err != nil {
			return 0, fmt.Errorf("prune %s: %w", key, err)
		}
	}
	return len(stale), nil
}

// Count returns the number of tracked files.
func (t *Tracker) Count(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n)
	return n, err
}

// exec runs a statement with automatic retry on SQLITE_BUSY.
func (t *Tracker) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	const maxRetries = 3
	for i := range maxRetries {
		result, err := t.db.ExecContext(ctx, query, args...)
		if err == nil {
			return result, nil
		}
		if !isBusy(err) || i == maxRetries-1 {
			return nil, err
		}
		wait := time.Duration(100*(i+1)) * time.Millisecond
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("state: exec: max retries exceeded")
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashBufSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

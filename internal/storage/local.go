/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "peplanner/internal/log"
	"peplanner/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// schemaVersion tracks the local SQLite schema. Bump it together with a migration step.
	schemaVersion = 2

	// DefaultSlot names the autosave slot used when the session has no layout file.
	DefaultSlot = "default"

	// KeepSnapshots bounds the autosave snapshot log per slot.
	KeepSnapshots = 50
)

// Local is the on-disk autosave store. It is safe for concurrent use.
type Local struct {
	db   *sql.DB
	path string
}

// Snapshot is one entry of the autosave log.
type Snapshot struct {
	ID   int64
	Slot string
	TS   time.Time
	Data []byte
}

// OpenLocal opens or creates the autosave database at path, enables WAL mode and brings the
// schema up to date. A database that fails its integrity check is moved aside and recreated.
func OpenLocal(ctx context.Context, path string) (*Local, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "local_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("autosave path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create autosave dir: %w", err)
	}
	db, err := openSQLite(ctx, path)
	if err == nil && !healthy(ctx, db) {
		_ = db.Close()
		err = errors.New("integrity check failed")
	}
	if err != nil {
		l.Warn("autosave database unusable, recreating", slog.Any("err", err))
		quarantine(path)
		if db, err = openSQLite(ctx, path); err != nil {
			l.Error("sqlite open failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("autosave database ready")
	return &Local{db: db, path: path}, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func healthy(ctx context.Context, db *sql.DB) bool {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(chk), "ok")
}

// quarantine renames a broken database file so a fresh one can be created in its place.
func quarantine(path string) {
	stamp := time.Now().Format("20060102-150405")
	_ = os.Rename(path, fmt.Sprintf("%s.%s.corrupt", path, stamp))
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
}

// Path returns the database file path.
func (s *Local) Path() string { return s.path }

// Close releases the database.
func (s *Local) Close() error { return s.db.Close() }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at 0 so every migration runs.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 0, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

var migrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS autosave (
			slot       TEXT PRIMARY KEY,
			doc        BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			slot TEXT NOT NULL,
			ts   TEXT NOT NULL,
			doc  BLOB NOT NULL
		);`,
	},
	2: {
		`CREATE INDEX IF NOT EXISTS idx_snapshots_slot_ts ON snapshots(slot, ts);`,
	},
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for next := cur + 1; next <= schemaVersion; next++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[next] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *Local) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package library stores published layouts in a shared PostgreSQL database so that teachers
// can reuse each other's drills.
package library

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	applog "peplanner/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no layout has the requested id.
var ErrNotFound = errors.New("layout not found")

// Entry is a library listing row.
type Entry struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Layout is a stored layout including its document.
type Layout struct {
	Entry
	Document []byte
}

// Store is a handle to the shared layout library. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to the library database, verifies the connection and applies migrations.
// A non-empty password overrides the one in dsn.
func Open(ctx context.Context, dsn, password string) (*Store, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse library dsn: %w", err)
	}
	if password != "" {
		cfg.Password = password
	}
	db := stdlib.OpenDB(*cfg)
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping library: %w", err)
	}
	s := &Store{db: db, log: applog.WithComponent("library").With(slog.String("host", cfg.Host))}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Publish stores a new layout and returns its listing entry.
func (s *Store) Publish(ctx context.Context, name string, doc []byte) (Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, errors.New("layout name is required")
	}
	e := Entry{ID: uuid.NewString(), Name: name}
	// dialect=PostgreSQL
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO layouts(id, name, document) VALUES($1, $2, $3::jsonb) RETURNING created_at, updated_at`,
		e.ID, name, string(doc)).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("publish layout: %w", err)
	}
	s.log.Info("layout published", slog.String("id", e.ID), slog.String("name", name))
	return e, nil
}

// Update replaces the document of an existing layout.
func (s *Store) Update(ctx context.Context, id string, doc []byte) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	// dialect=PostgreSQL
	res, err := s.db.ExecContext(ctx, `UPDATE layouts SET document=$2::jsonb, updated_at=now() WHERE id=$1`, id, string(doc))
	if err != nil {
		return fmt.Errorf("update layout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns up to limit layouts, most recently updated first. A non-empty filter matches
// names case-insensitively.
func (s *Store) List(ctx context.Context, filter string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	// dialect=PostgreSQL
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM layouts
		 WHERE $1 = '' OR lower(name) LIKE '%' || lower($1) || '%'
		 ORDER BY updated_at DESC LIMIT $2`, strings.TrimSpace(filter), limit)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Fetch returns one layout with its document.
func (s *Store) Fetch(ctx context.Context, id string) (Layout, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Layout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var l Layout
	var doc string
	// dialect=PostgreSQL
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, document::text FROM layouts WHERE id=$1`, id).
		Scan(&l.ID, &l.Name, &l.CreatedAt, &l.UpdatedAt, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Layout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Layout{}, fmt.Errorf("fetch layout: %w", err)
	}
	l.Document = []byte(doc)
	return l, nil
}

// Delete removes a layout.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	// dialect=PostgreSQL
	res, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied := map[int64]bool{}
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
		s.log.Info("applied migration", slog.String("file", fname))
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, _ := strings.Cut(base, "_")
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

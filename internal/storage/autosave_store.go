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
	"time"
)

// language=SQL
// dialect=SQLite
const upsertAutosaveSQL = `INSERT INTO autosave(slot, doc, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(slot) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectAutosaveSQL = `SELECT doc, updated_at FROM autosave WHERE slot = ?`

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(slot, ts, doc) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT id, ts, doc FROM snapshots WHERE slot = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const selectSnapshotSQL = `SELECT id, slot, ts, doc FROM snapshots WHERE id = ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE slot = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE slot = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// ErrNoAutosave is returned when a slot has never been written.
var ErrNoAutosave = errors.New("no autosave")

// SaveAutosave replaces the slot's document and appends it to the snapshot log, keeping at
// most KeepSnapshots entries per slot.
func (s *Local) SaveAutosave(ctx context.Context, slot string, data []byte) error {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin autosave: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertAutosaveSQL, slot, data, ts); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("write autosave: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertSnapshotSQL, slot, ts, data); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("append snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, pruneOldSnapshotsSQL, slot, slot, KeepSnapshots); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit autosave: %w", err)
	}
	return nil
}

// LoadAutosave returns the slot's document and when it was written, or ErrNoAutosave.
func (s *Local) LoadAutosave(ctx context.Context, slot string) ([]byte, time.Time, error) {
	var data []byte
	var tsStr string
	err := s.db.QueryRowContext(ctx, selectAutosaveSQL, slot).Scan(&data, &tsStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoAutosave
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read autosave: %w", err)
	}
	ts, _ := time.Parse(time.RFC3339Nano, tsStr)
	return data, ts, nil
}

// ListSnapshots returns up to limit most recent log entries for slot, newest first.
func (s *Local) ListSnapshots(ctx context.Context, slot string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = KeepSnapshots
	}
	rows, err := s.db.QueryContext(ctx, listSnapshotsSQL, slot, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		sn := Snapshot{Slot: slot}
		var tsStr string
		if err := rows.Scan(&sn.ID, &tsStr, &sn.Data); err != nil {
			return nil, err
		}
		sn.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, sn)
	}
	return out, rows.Err()
}

// GetSnapshot returns one log entry by id.
func (s *Local) GetSnapshot(ctx context.Context, id int64) (Snapshot, error) {
	var sn Snapshot
	var tsStr string
	err := s.db.QueryRowContext(ctx, selectSnapshotSQL, id).Scan(&sn.ID, &sn.Slot, &tsStr, &sn.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshot %d: %w", id, ErrNoAutosave)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	sn.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
	return sn, nil
}

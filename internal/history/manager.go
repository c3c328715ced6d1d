/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps a linear undo/redo stack of full scene snapshots.
package history

import (
	"bytes"
	"slices"
	"sync"
	"time"
)

// Entry is an immutable snapshot of the editor state at one point in time.
// Blob content is opaque to the manager; size is estimated as len(Blob).
type Entry struct {
	Label string
	Blob  []byte
	// Selection is restored alongside the blob, filtered to ids that still exist.
	Selection []string
	// MergeKey lets consecutive commits of the same kind collapse into one entry.
	MergeKey string
	TS       time.Time
}

func (e Entry) clone() Entry {
	e.Blob = bytes.Clone(e.Blob)
	e.Selection = slices.Clone(e.Selection)
	return e
}

// Config controls depth and memory caps and coalescing behavior.
type Config struct {
	// MaxEntries limits the number of entries kept (0 means unlimited).
	MaxEntries int
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MergeInterval coalesces commits sharing a non-empty MergeKey captured within the interval.
	MergeInterval time.Duration
}

// Manager is a stack with a cursor. The entry at the cursor is the current state.
// It is safe for concurrent use.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	entries []Entry
	cursor  int
	bytes   int
	// fresh is set while the top entry is the most recent commit and may absorb a merge.
	fresh bool
	now   func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MergeInterval <= 0 {
		cfg.MergeInterval = time.Second
	}
	return &Manager{cfg: cfg, cursor: -1, now: time.Now}
}

// Reset discards every entry and installs base as the only one.
func (m *Manager) Reset(base Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base = m.stamp(base)
	m.entries = []Entry{base}
	m.cursor = 0
	m.bytes = len(base.Blob)
	m.fresh = false
}

// Commit truncates everything after the cursor and appends e as the new current entry.
// It reports false when e was merged into the previous entry instead.
func (m *Manager) Commit(e Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e = m.stamp(e)
	m.truncateLocked()
	if n := len(m.entries); n > 1 && m.fresh && e.MergeKey != "" {
		top := m.entries[n-1]
		if top.MergeKey == e.MergeKey && e.TS.Sub(top.TS) < m.cfg.MergeInterval {
			m.bytes += len(e.Blob) - len(top.Blob)
			m.entries[n-1] = e
			return false
		}
	}
	m.entries = append(m.entries, e)
	m.cursor = len(m.entries) - 1
	m.bytes += len(e.Blob)
	m.fresh = true
	m.enforceCapsLocked()
	return true
}

// Amend replaces the current entry when the cursor is at the top and it is not the base entry,
// otherwise it behaves like Commit.
func (m *Manager) Amend(e Entry) {
	m.mu.Lock()
	if n := len(m.entries); n > 1 && m.cursor == n-1 {
		e = m.stamp(e)
		m.bytes += len(e.Blob) - len(m.entries[n-1].Blob)
		m.entries[n-1] = e
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.Commit(e)
}

// Undo moves the cursor back and returns the entry to restore. It is a no-op at the bottom.
func (m *Manager) Undo() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor <= 0 {
		return Entry{}, false
	}
	m.cursor--
	m.fresh = false
	return m.entries[m.cursor].clone(), true
}

// Redo moves the cursor forward and returns the entry to restore. It is a no-op at the top.
func (m *Manager) Redo() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 || m.cursor >= len(m.entries)-1 {
		return Entry{}, false
	}
	m.cursor++
	m.fresh = false
	return m.entries[m.cursor].clone(), true
}

// Current returns the entry at the cursor.
func (m *Manager) Current() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 {
		return Entry{}, false
	}
	return m.entries[m.cursor].clone(), true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor >= 0 && m.cursor < len(m.entries)-1
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes, entries, cursor int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes, len(m.entries), m.cursor
}

func (m *Manager) stamp(e Entry) Entry {
	e = e.clone()
	if e.TS.IsZero() {
		e.TS = m.now()
	}
	return e
}

func (m *Manager) truncateLocked() {
	if m.cursor < 0 {
		return
	}
	for _, e := range m.entries[m.cursor+1:] {
		m.bytes -= len(e.Blob)
	}
	clear(m.entries[m.cursor+1:])
	m.entries = m.entries[:m.cursor+1]
}

// enforceCapsLocked drops the oldest entries; the current entry always survives.
func (m *Manager) enforceCapsLocked() {
	drop := 0
	if m.cfg.MaxEntries > 0 && len(m.entries) > m.cfg.MaxEntries {
		drop = len(m.entries) - m.cfg.MaxEntries
	}
	b := m.bytes
	for i := 0; i < drop; i++ {
		b -= len(m.entries[i].Blob)
	}
	for drop < m.cursor && m.cfg.MaxBytes > 0 && b > m.cfg.MaxBytes {
		b -= len(m.entries[drop].Blob)
		drop++
	}
	drop = min(drop, m.cursor)
	if drop <= 0 {
		return
	}
	for _, e := range m.entries[:drop] {
		m.bytes -= len(e.Blob)
	}
	m.entries = append([]Entry(nil), m.entries[drop:]...)
	m.cursor -= drop
}

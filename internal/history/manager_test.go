/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import (
	"fmt"
	"testing"
	"time"
)

func blob(m *Manager) string {
	e, _ := m.Current()
	return string(e.Blob)
}

func TestUndoRedoInverse(t *testing.T) {
	m := NewManager(Config{})
	m.Reset(Entry{Blob: []byte("0")})
	for i := 1; i <= 5; i++ {
		m.Commit(Entry{Blob: []byte(fmt.Sprint(i))})
	}
	for depth := 5; depth > 0; depth-- {
		e, ok := m.Undo()
		if !ok || string(e.Blob) != fmt.Sprint(depth-1) {
			t.Fatalf("undo at depth %d: ok=%v blob=%q", depth, ok, e.Blob)
		}
		e, ok = m.Redo()
		if !ok || string(e.Blob) != fmt.Sprint(depth) {
			t.Fatalf("redo at depth %d: ok=%v blob=%q", depth, ok, e.Blob)
		}
		if _, ok := m.Undo(); !ok {
			t.Fatalf("second undo at depth %d failed", depth)
		}
	}
	if _, ok := m.Undo(); ok {
		t.Fatalf("undo at the bottom should be a no-op")
	}
	if blob(m) != "0" {
		t.Fatalf("expected base entry, got %q", blob(m))
	}
}

func TestRedoTruncation(t *testing.T) {
	m := NewManager(Config{})
	m.Reset(Entry{Blob: []byte("a")})
	m.Commit(Entry{Blob: []byte("b")})
	m.Commit(Entry{Blob: []byte("c")})
	m.Undo()
	m.Undo()
	m.Commit(Entry{Blob: []byte("d")})
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo after a fresh commit should be a no-op")
	}
	if _, n, cur := m.Stats(); n != 2 || cur != 1 {
		t.Fatalf("expected 2 entries with cursor 1, got n=%d cursor=%d", n, cur)
	}
	e, _ := m.Undo()
	if string(e.Blob) != "a" {
		t.Fatalf("expected base after undo, got %q", e.Blob)
	}
}

func TestMergeKey(t *testing.T) {
	m := NewManager(Config{MergeInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Reset(Entry{Blob: []byte("base"), TS: t0})
	m.Commit(Entry{Blob: []byte("G"), MergeKey: "meta:gameName", TS: t0})
	if m.Commit(Entry{Blob: []byte("Ga"), MergeKey: "meta:gameName", TS: t0.Add(10 * time.Millisecond)}) {
		t.Fatalf("expected merge within interval")
	}
	if !m.Commit(Entry{Blob: []byte("Gam"), MergeKey: "meta:gameName", TS: t0.Add(200 * time.Millisecond)}) {
		t.Fatalf("expected new entry after interval")
	}
	if !m.Commit(Entry{Blob: []byte("x"), MergeKey: "meta:notes", TS: t0.Add(210 * time.Millisecond)}) {
		t.Fatalf("different keys must not merge")
	}
	if _, n, _ := m.Stats(); n != 4 {
		t.Fatalf("expected 4 entries, got %d", n)
	}
}

func TestMergeDoesNotSwallowUndoneState(t *testing.T) {
	m := NewManager(Config{MergeInterval: time.Hour})
	m.Reset(Entry{Blob: []byte("base")})
	m.Commit(Entry{Blob: []byte("a"), MergeKey: "k"})
	m.Commit(Entry{Blob: []byte("b")})
	m.Undo()
	if !m.Commit(Entry{Blob: []byte("c"), MergeKey: "k"}) {
		t.Fatalf("commit after undo must not merge into the restored entry")
	}
	e, _ := m.Undo()
	if string(e.Blob) != "a" {
		t.Fatalf("expected 'a', got %q", e.Blob)
	}
}

func TestAmend(t *testing.T) {
	m := NewManager(Config{})
	m.Reset(Entry{Blob: []byte("0")})
	m.Amend(Entry{Blob: []byte("1")})
	m.Amend(Entry{Blob: []byte("2")})
	m.Amend(Entry{Blob: []byte("3")})
	if _, n, _ := m.Stats(); n != 2 {
		t.Fatalf("expected amend to keep a single entry above base, got %d", n)
	}
	e, _ := m.Undo()
	if string(e.Blob) != "0" {
		t.Fatalf("expected base, got %q", e.Blob)
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxEntries: 3})
	m.Reset(Entry{Blob: []byte("0")})
	for i := 1; i < 10; i++ {
		m.Commit(Entry{Blob: []byte(fmt.Sprint(i))})
	}
	if _, n, cur := m.Stats(); n != 3 || cur != 2 {
		t.Fatalf("expected 3 entries with cursor 2, got n=%d cursor=%d", n, cur)
	}
	m.Undo()
	e, _ := m.Undo()
	if string(e.Blob) != "7" {
		t.Fatalf("expected oldest kept entry '7', got %q", e.Blob)
	}

	mb := NewManager(Config{MaxBytes: 20})
	mb.Reset(Entry{Blob: []byte("xxxxx")})
	for i := 0; i < 10; i++ {
		mb.Commit(Entry{Blob: []byte("xxxxx")})
	}
	if total, n, _ := mb.Stats(); total > 20 || n != 4 {
		t.Fatalf("expected byte cap to hold 4 entries within 20 bytes, got total=%d n=%d", total, n)
	}
}

func TestEntriesAreCopied(t *testing.T) {
	m := NewManager(Config{})
	b := []byte("abc")
	m.Reset(Entry{Blob: b, Selection: []string{"x"}})
	b[0] = 'z'
	e, _ := m.Current()
	if string(e.Blob) != "abc" {
		t.Fatalf("manager must not alias caller blobs, got %q", e.Blob)
	}
	e.Selection[0] = "y"
	if again, _ := m.Current(); again.Selection[0] != "x" {
		t.Fatalf("manager must not hand out its own slices")
	}
}

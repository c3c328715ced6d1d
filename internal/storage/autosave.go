/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	applog "peplanner/internal/log"
)

// DefaultAutosaveInterval is the period between autosave writes.
const DefaultAutosaveInterval = 3 * time.Second

// AutosaveSink receives documents from the Autosaver.
type AutosaveSink interface {
	SaveAutosave(ctx context.Context, slot string, data []byte) error
}

// Autosaver keeps the latest document and writes it to a sink on a fixed interval and on
// Flush. A document identical to the last written one is not written again.
// It is safe for concurrent use.
type Autosaver struct {
	sink     AutosaveSink
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	slot    string
	pending []byte
	written []byte
	writes  int

	flushMu sync.Mutex
}

// NewAutosaver returns an Autosaver writing to slot; interval <= 0 uses DefaultAutosaveInterval.
func NewAutosaver(sink AutosaveSink, slot string, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if slot == "" {
		slot = DefaultSlot
	}
	return &Autosaver{sink: sink, slot: slot, interval: interval, log: applog.WithComponent("autosave")}
}

// Update records the latest document. It does not write.
func (a *Autosaver) Update(data []byte) {
	a.mu.Lock()
	a.pending = bytes.Clone(data)
	a.mu.Unlock()
}

// SetSlot switches the slot for subsequent writes, e.g. after a layout file was opened.
func (a *Autosaver) SetSlot(slot string) {
	if slot == "" {
		slot = DefaultSlot
	}
	a.mu.Lock()
	if slot != a.slot {
		a.slot = slot
		a.written = nil
	}
	a.mu.Unlock()
}

// Slot returns the current slot.
func (a *Autosaver) Slot() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.slot
}

// Writes reports how many documents were written.
func (a *Autosaver) Writes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writes
}

// Flush writes the latest document if it differs from the last written one.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	data, slot := a.pending, a.slot
	dirty := data != nil && !bytes.Equal(data, a.written)
	a.mu.Unlock()
	if !dirty {
		return nil
	}
	if err := a.sink.SaveAutosave(ctx, slot, data); err != nil {
		a.log.Warn("autosave failed", slog.String("slot", slot), slog.Any("err", err))
		return err
	}
	a.mu.Lock()
	if a.slot == slot {
		a.written = data
	}
	a.writes++
	a.mu.Unlock()
	a.log.Debug("autosaved", slog.String("slot", slot), slog.Int("bytes", len(data)))
	return nil
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (a *Autosaver) Run(ctx context.Context) {
	t := time.NewTicker(a.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = a.Flush(context.WithoutCancel(ctx))
			return
		case <-t.C:
			_ = a.Flush(ctx)
		}
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"io"
	"sync"

	"peplanner/internal/snapshot"
)

// ErrExportBusy is returned when an export is started while another is still running.
var ErrExportBusy = errors.New("export already in progress")

// Format selects the output encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// Guard serializes exports: at most one runs at a time and a concurrent request is
// rejected rather than queued.
type Guard struct {
	mu sync.Mutex
}

// Busy reports whether an export is currently running.
func (g *Guard) Busy() bool {
	if g.mu.TryLock() {
		g.mu.Unlock()
		return false
	}
	return true
}

// Run executes one export of doc to w. It returns ErrExportBusy without side effects
// when another export holds the guard.
func (g *Guard) Run(ctx context.Context, f Format, w io.Writer, doc snapshot.Document, opt Options) error {
	if !g.mu.TryLock() {
		return ErrExportBusy
	}
	defer g.mu.Unlock()
	return Write(ctx, f, w, doc, opt)
}

// Write renders doc in the given format.
func Write(ctx context.Context, f Format, w io.Writer, doc snapshot.Document, opt Options) error {
	switch f {
	case FormatPDF:
		return WritePDF(ctx, w, doc, opt)
	case FormatPNG:
		return WritePNG(ctx, w, doc, opt)
	}
	return errors.New("unsupported export format: " + string(f))
}

// FormatForPath picks a format from a file extension, defaulting to PNG.
func FormatForPath(path string) Format {
	if n := len(path); n >= 4 && (path[n-4:] == ".pdf" || path[n-4:] == ".PDF") {
		return FormatPDF
	}
	return FormatPNG
}

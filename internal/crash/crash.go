/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a top-level panic into a crash report, a last autosave and a
// non-zero exit.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "peplanner/internal/log"
	"peplanner/internal/telemetry"
	"peplanner/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// flushTimeout bounds the final autosave write.
const flushTimeout = 2 * time.Second

// Flusher persists pending state; storage.Autosaver satisfies it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Handler configures Recover.
type Handler struct {
	// Dir receives crash-<stamp>.log; os.TempDir() when empty.
	Dir string
	// Autosave is flushed before exiting when set.
	Autosave Flusher
	// Layout is recorded in the report when set.
	Layout string
}

// Recover captures a panic, logs it with a stacktrace, writes a report file and
// flushes the pending autosave.
//
// Usage: defer crash.Handler{Dir: dir, Autosave: saver}.Recover()
func (h Handler) Recover() {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := h.writeReport(r, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if h.Autosave != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := h.Autosave.Flush(ctx); err != nil {
			l.Error("autosave flush failed", slog.Any("err", err))
		} else {
			l.Info("autosave flushed after panic")
		}
		cancel()
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

func (h Handler) writeReport(panicVal any, stack []byte) (string, error) {
	dir := h.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "PE Planner Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if h.Layout != "" {
		_, _ = fmt.Fprintf(&buf, "Layout: %s\n", h.Layout)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

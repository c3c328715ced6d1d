/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"peplanner/internal/config"
	"peplanner/internal/library"
	applog "peplanner/internal/log"
	"peplanner/internal/storage"
)

// Workspace is a session plus the stores it was wired to.
type Workspace struct {
	Session *Session
	Local   *storage.Local
	Library *library.Store

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OpenWorkspace opens the autosave database and, when enabled, the layout library, and
// creates a session bound to them. An unusable library is reported and skipped; an
// unusable autosave database disables autosave.
func OpenWorkspace(ctx context.Context, cfg config.AppConfig, password string, n Notifier) (*Workspace, error) {
	l := applog.WithOperation(applog.WithComponent("workspace"), "open")
	if n == nil {
		n = LogNotifier{}
	}
	ws := &Workspace{}
	opts := []Option{WithNotifier(n)}

	if path, err := cfg.AutosavePath(); err != nil {
		l.Warn("autosave disabled", slog.Any("err", err))
	} else if local, err := storage.OpenLocal(ctx, path); err != nil {
		l.Warn("autosave disabled", slog.String("path", path), slog.Any("err", err))
		n.Notice("Autosave is unavailable for this session.")
	} else {
		ws.Local = local
		opts = append(opts, WithAutosave(local, storage.DefaultSlot))
	}

	if cfg.Library.Enabled && cfg.Library.DSN != "" {
		if lib, err := library.Open(ctx, cfg.Library.DSN, password); err != nil {
			l.Warn("layout library unavailable", slog.Any("err", err))
			n.Alert("Layout library unavailable", err)
		} else {
			ws.Library = lib
			opts = append(opts, WithLibrary(lib))
		}
	}

	ws.Session = NewSession(cfg, opts...)
	return ws, nil
}

// Start runs the autosave loop until Close.
func (w *Workspace) Start(ctx context.Context) {
	a := w.Session.Autosaver()
	if a == nil || w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		a.Run(ctx)
	}()
}

// Close stops autosave after a final flush and releases the stores.
func (w *Workspace) Close() error {
	if w.cancel != nil {
		w.cancel()
		w.wg.Wait()
	} else if err := w.Session.FlushAutosave(context.Background()); err != nil {
		applog.WithComponent("workspace").Warn("final autosave failed", slog.Any("err", err))
	}
	var errs []error
	if w.Local != nil {
		errs = append(errs, w.Local.Close())
	}
	if w.Library != nil {
		errs = append(errs, w.Library.Close())
	}
	return errors.Join(errs...)
}

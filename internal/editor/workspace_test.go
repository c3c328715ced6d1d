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
	"path/filepath"
	"testing"

	"peplanner/internal/config"
	"peplanner/internal/geom"
	"peplanner/internal/storage"
)

func TestWorkspaceAutosavesOnClose(t *testing.T) {
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.Autosave.Path = filepath.Join(t.TempDir(), "autosave.sqlite")

	ws, err := OpenWorkspace(ctx, cfg, "", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if ws.Local == nil || ws.Library != nil || ws.Session.HasLibrary() {
		t.Fatalf("expected autosave only")
	}
	ws.Start(ctx)
	ws.Session.PlaceItem("cone", geom.Pt{X: 40, Y: 40})
	if err := ws.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	local, err := storage.OpenLocal(ctx, cfg.Autosave.Path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer local.Close()
	if _, _, err := local.LoadAutosave(ctx, storage.DefaultSlot); err != nil {
		t.Fatalf("expected an autosave after close: %v", err)
	}
}

func TestWorkspaceSkipsUnreachableLibrary(t *testing.T) {
	cfg := config.Defaults()
	cfg.Autosave.Path = filepath.Join(t.TempDir(), "autosave.sqlite")
	cfg.Library = config.LibraryConfig{Enabled: true, DSN: "postgres://nobody@127.0.0.1:1/layouts?connect_timeout=1"}
	n := &recordingNotifier{}

	ws, err := OpenWorkspace(context.Background(), cfg, "", n)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Library != nil || len(n.alerts) != 1 {
		t.Fatalf("unreachable library should alert and be skipped")
	}
}

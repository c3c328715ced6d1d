/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"peplanner/internal/config"
	"peplanner/internal/crash"
	"peplanner/internal/export"
	"peplanner/internal/library"
	applog "peplanner/internal/log"
	"peplanner/internal/snapshot"
	"peplanner/internal/telemetry"
	"peplanner/internal/ui"
	"peplanner/internal/version"
)

func usage() {
	fmt.Println("PE Planner")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  peplanner version|-v|--version             Show version")
	fmt.Println("  peplanner ui [<layout.json>]                Launch desktop UI (build with -tags fyne for full UI)")
	fmt.Println("  peplanner export <layout.json> <out>        Render a layout to .png or .pdf")
	fmt.Println("  peplanner validate <layout.json>            Check a layout against the document schema")
	fmt.Println("  peplanner library list [filter]             List layouts in the shared library")
}

func fail(l *slog.Logger, msg string, err error) int {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	return 1
}

func main() {
	os.Exit(run(os.Args))
}

// run executes the command line and returns the process exit code. Deferred cleanup runs
// before main exits.
func run(args []string) int {
	cfg, password, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config unreadable, using defaults", slog.Any("err", cfgErr))
	}
	telemetry.Configure(cfg.General.TelemetryOptIn)
	defer telemetry.Flush(context.Background())
	defer crash.Handler{}.Recover()

	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return 0
	}
	telemetry.Event(telemetry.EventStarted, nil)
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("PE Planner")
		fmt.Println(version.String())
	case "ui":
		var path string
		if len(args) >= 3 {
			path, _ = filepath.Abs(args[2])
		}
		if err := ui.Run(path); err != nil {
			fmt.Println("Error:", err)
			return 1
		}
	case "export":
		if len(args) < 4 {
			fmt.Println("export requires <layout.json> and <out>")
			usage()
			return 2
		}
		if err := exportLayout(cfg, args[2], args[3]); err != nil {
			return fail(l, "export failed", err)
		}
		fmt.Println("Exported", args[3])
	case "validate":
		if len(args) < 3 {
			fmt.Println("validate requires <layout.json>")
			usage()
			return 2
		}
		warnings, err := validateLayout(args[2])
		if err != nil {
			return fail(l, "validate failed", err)
		}
		for _, w := range warnings {
			fmt.Println("warning:", w)
		}
		if len(warnings) > 0 {
			return 3
		}
		fmt.Println("OK")
	case "library":
		if len(args) < 3 || args[2] != "list" {
			usage()
			return 2
		}
		var filter string
		if len(args) >= 4 {
			filter = args[3]
		}
		if err := listLibrary(cfg, password, filter); err != nil {
			return fail(l, "library list failed", err)
		}
	default:
		usage()
		return 2
	}
	return 0
}

func exportLayout(cfg config.AppConfig, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	doc, err := snapshot.Decode(data)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	opt := export.Options{Scale: cfg.Export.Scale, ShowGrid: cfg.Export.ShowGrid, Footer: cfg.Export.Footer, Font: cfg.Export.Font}
	ctx := applog.WithLayout(context.Background(), filepath.Base(in))
	if err := export.Write(ctx, export.FormatForPath(out), f, doc, opt); err != nil {
		_ = f.Close()
		_ = os.Remove(out)
		return err
	}
	telemetry.Event(telemetry.EventExported, map[string]any{"items": len(doc.Items), "headless": true})
	return f.Close()
}

func validateLayout(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := snapshot.Decode(data); err != nil {
		return nil, err
	}
	return snapshot.Validate(data)
}

func listLibrary(cfg config.AppConfig, password, filter string) error {
	if !cfg.Library.Enabled || cfg.Library.DSN == "" {
		return errors.New("library is not configured (set library.dsn or PEP_LIBRARY_DSN)")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := library.Open(ctx, cfg.Library.DSN, password)
	if err != nil {
		return err
	}
	defer store.Close()
	entries, err := store.List(ctx, filter, 100)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %-30s  %s\n", e.ID, e.Name, e.UpdatedAt.Local().Format(time.RFC3339))
	}
	return nil
}

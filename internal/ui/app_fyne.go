//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"peplanner/internal/config"
	"peplanner/internal/crash"
	"peplanner/internal/editor"
	"peplanner/internal/export"
	applog "peplanner/internal/log"
	"peplanner/internal/scene"
	"peplanner/internal/snapshot"
	"peplanner/internal/version"
)

const libraryTimeout = 10 * time.Second

var gridSizes = []string{"10", "20", "40"}

// windowNotifier shows notices in the status bar and alerts as error dialogs.
type windowNotifier struct {
	w      fyne.Window
	status *widget.Label
	log    *slog.Logger
}

func (n *windowNotifier) Notice(msg string) {
	n.log.Info(msg)
	fyne.Do(func() { n.status.SetText(msg) })
}

func (n *windowNotifier) Alert(title string, err error) {
	n.log.Error(title, slog.Any("err", err))
	fyne.Do(func() { dialog.ShowError(fmt.Errorf("%s: %w", title, err), n.w) })
}

// Run starts the desktop editor, optionally opening the layout at path.
func Run(path string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	cfg, password, err := config.Load()
	if err != nil {
		l.Warn("config unreadable, using defaults", slog.Any("err", err))
	}

	fyneApp := app.NewWithID("peplanner")
	w := fyneApp.NewWindow("PE Planner")
	prefs := fyneApp.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(1000, prefs.IntWithFallback("window.width", 1280))),
		float32(max(700, prefs.IntWithFallback("window.height", 800))),
	))

	status := widget.NewLabel("Ready")
	notifier := &windowNotifier{w: w, status: status, log: l}

	ctx := context.Background()
	ws, err := editor.OpenWorkspace(ctx, cfg, password, notifier)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			l.Warn("workspace close", slog.Any("err", err))
		}
	}()
	sess := ws.Session
	handler := crash.Handler{Dir: crashDir()}
	if a := sess.Autosaver(); a != nil {
		handler.Autosave = a
	}
	defer handler.Recover()

	court := NewCourtCanvas(sess)

	// Metadata form
	gameName := widget.NewEntry()
	objective := widget.NewMultiLineEntry()
	equipment := widget.NewMultiLineEntry()
	modifications := widget.NewMultiLineEntry()
	notes := widget.NewMultiLineEntry()
	syncing := false
	readMeta := func() snapshot.Metadata {
		return snapshot.Metadata{
			GameName:      gameName.Text,
			Objective:     objective.Text,
			Equipment:     equipment.Text,
			Modifications: modifications.Text,
			Notes:         notes.Text,
		}
	}
	for _, e := range []*widget.Entry{gameName, objective, equipment, modifications, notes} {
		e.OnChanged = func(string) {
			if !syncing {
				sess.SetMetadata(readMeta())
			}
		}
	}
	metaForm := widget.NewForm(
		widget.NewFormItem("Game", gameName),
		widget.NewFormItem("Objective", objective),
		widget.NewFormItem("Equipment", equipment),
		widget.NewFormItem("Modifications", modifications),
		widget.NewFormItem("Notes", notes),
	)

	// Court settings
	snapCheck := widget.NewCheck("Snap to grid", func(on bool) {
		if !syncing {
			sess.SetSnapEnabled(on)
		}
	})
	gridSelect := widget.NewSelect(gridSizes, func(v string) {
		if syncing {
			return
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			_ = sess.SetGridSize(n)
		}
	})
	courtSelect := widget.NewSelect(export.CourtTemplates(), func(v string) {
		if !syncing {
			_ = sess.SetCourtTemplate(v)
		}
	})

	var (
		mainMenu           *fyne.MainMenu
		undoItem, redoItem *fyne.MenuItem
	)
	updateTitle := func() {
		if mainMenu != nil {
			undoItem.Disabled = !sess.CanUndo()
			redoItem.Disabled = !sess.CanRedo()
			mainMenu.Refresh()
		}
		name := "Untitled"
		if p := sess.Path(); p != "" {
			name = filepath.Base(p)
		}
		if sess.Dirty() {
			name += " *"
		}
		w.SetTitle(name + " - PE Planner")
	}
	syncControls := func() {
		syncing = true
		defer func() { syncing = false }()
		m := sess.Metadata()
		gameName.SetText(m.GameName)
		objective.SetText(m.Objective)
		equipment.SetText(m.Equipment)
		modifications.SetText(m.Modifications)
		notes.SetText(m.Notes)
		st := sess.Scene().Settings()
		snapCheck.SetChecked(st.SnapEnabled)
		gridSelect.SetSelected(strconv.FormatFloat(st.GridSize, 'f', -1, 64))
		courtSelect.SetSelected(st.CourtTemplate)
	}
	sess.Scene().Subscribe(func(ch scene.Change) {
		if ch.Kind == scene.ChangeReset || ch.Kind == scene.ChangeSettings {
			syncControls()
		}
	})
	sess.OnHistoryChange(updateTitle)
	syncControls()
	updateTitle()

	// Palette
	palette := container.NewVBox(widget.NewLabelWithStyle("Palette", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	for _, typ := range scene.PaletteTypes() {
		typ := typ
		palette.Add(widget.NewButton(typ, func() { sess.PlaceItem(typ, editor.DefaultPlacement) }))
	}

	// Arrange
	arrange := container.NewGridWithColumns(2)
	for _, e := range []scene.Edge{scene.AlignLeft, scene.AlignRight, scene.AlignTop, scene.AlignBottom, scene.AlignHCenter, scene.AlignVCenter} {
		e := e
		arrange.Add(widget.NewButton("Align "+e.String(), func() { _ = sess.Align(e) }))
	}
	arrange.Add(widget.NewButton("Distribute H", func() { _ = sess.Distribute(scene.Horizontal) }))
	arrange.Add(widget.NewButton("Distribute V", func() { _ = sess.Distribute(scene.Vertical) }))
	arrange.Add(widget.NewButton("Group", func() { _ = sess.Group() }))
	arrange.Add(widget.NewButton("Ungroup", func() { _ = sess.Ungroup() }))

	left := container.NewVBox(
		palette,
		widget.NewSeparator(),
		snapCheck,
		widget.NewForm(widget.NewFormItem("Grid", gridSelect), widget.NewFormItem("Court", courtSelect)),
		widget.NewSeparator(),
		arrange,
	)

	// File actions
	layoutFilter := fstorage.NewExtensionFileFilter([]string{".json"})
	saveAs := func() {
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			p := uc.URI().Path()
			_ = uc.Close()
			if err := sess.SaveFile(p); err == nil {
				status.SetText("Saved " + p)
				updateTitle()
			}
		}, w)
		fd.SetFileName("layout.json")
		fd.SetFilter(layoutFilter)
		fd.Show()
	}
	save := func() {
		if sess.Path() == "" {
			saveAs()
			return
		}
		if err := sess.SaveFile(sess.Path()); err == nil {
			status.SetText("Saved " + sess.Path())
			updateTitle()
		}
	}
	open := func() {
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil || ur == nil {
				return
			}
			p := ur.URI().Path()
			_ = ur.Close()
			if err := sess.OpenFile(p); err == nil {
				status.SetText("Opened " + p)
			}
			updateTitle()
		}, w)
		fd.SetFilter(layoutFilter)
		fd.Show()
	}
	newLayout := func() {
		dialog.ShowConfirm("New layout", "Clear the court? You can undo this.", func(ok bool) {
			if ok {
				sess.NewLayout()
				syncControls()
			}
		}, w)
	}
	exportAs := func(name string) {
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			p := uc.URI().Path()
			_ = uc.Close()
			status.SetText("Exporting...")
			done := sess.ExportFile(ctx, p)
			go func() {
				if err := <-done; err == nil {
					fyne.Do(func() { status.SetText("Exported " + p) })
				}
			}()
		}, w)
		fd.SetFileName(name)
		if cfg.Export.Dir != "" {
			if lister, err := fstorage.ListerForURI(fstorage.NewFileURI(cfg.Export.Dir)); err == nil {
				fd.SetLocation(lister)
			}
		}
		fd.Show()
	}

	// Library actions
	publish := func() {
		name := widget.NewEntry()
		name.SetText(sess.Metadata().GameName)
		dialog.ShowForm("Publish to library", "Publish", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Name", name),
		}, func(ok bool) {
			if !ok {
				return
			}
			pctx, cancel := context.WithTimeout(ctx, libraryTimeout)
			defer cancel()
			if id, err := sess.Publish(pctx, name.Text); err == nil {
				status.SetText("Published " + id)
			}
		}, w)
	}
	openFromLibrary := func() {
		if ws.Library == nil {
			_ = sess.OpenFromLibrary(ctx, "")
			return
		}
		lctx, cancel := context.WithTimeout(ctx, libraryTimeout)
		entries, err := ws.Library.List(lctx, "", 100)
		cancel()
		if err != nil {
			notifier.Alert("Library unavailable", err)
			return
		}
		if len(entries) == 0 {
			dialog.ShowInformation("Layout library", "The library is empty.", w)
			return
		}
		labels := make([]string, len(entries))
		for i, e := range entries {
			labels[i] = e.Name + "  (" + e.UpdatedAt.Local().Format("2006-01-02 15:04") + ")"
		}
		showPicker(w, "Open from library", labels, func(i int) {
			octx, cancel := context.WithTimeout(ctx, libraryTimeout)
			defer cancel()
			_ = sess.OpenFromLibrary(octx, entries[i].ID)
		})
	}
	restoreEarlier := func() {
		versions, err := sess.AutosaveHistory(ctx, 0)
		if err != nil {
			notifier.Alert("Autosave could not be read", err)
			return
		}
		if len(versions) == 0 {
			dialog.ShowInformation("Autosave", "No earlier autosaves for this layout.", w)
			return
		}
		labels := make([]string, len(versions))
		for i, v := range versions {
			labels[i] = v.TS.Local().Format("2006-01-02 15:04:05")
		}
		showPicker(w, "Restore earlier autosave", labels, func(i int) {
			if err := sess.RestoreSnapshot(ctx, versions[i].ID); err == nil {
				syncControls()
			}
		})
	}
	exportGrid := fyne.NewMenuItem("Include Grid in Exports", nil)
	exportGrid.Checked = sess.ExportOptions().ShowGrid
	exportGrid.Action = func() {
		opt := sess.ExportOptions()
		opt.ShowGrid = !opt.ShowGrid
		sess.SetExportOptions(opt)
		exportGrid.Checked = opt.ShowGrid
		mainMenu.Refresh()
	}

	// Keyboard: modifier tracking for the canvas and repeat detection for held keys.
	ctrl := sess.Controller()
	var mods editor.Modifiers
	held := map[fyne.KeyName]bool{}
	fired := map[fyne.KeyName]bool{}
	if dc, ok := w.Canvas().(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(e *fyne.KeyEvent) {
			mods |= modifierKey(e.Name)
			held[e.Name] = true
			court.SetModifiers(mods)
		})
		dc.SetOnKeyUp(func(e *fyne.KeyEvent) {
			mods &^= modifierKey(e.Name)
			delete(held, e.Name)
			delete(fired, e.Name)
			court.SetModifiers(mods)
		})
	}
	w.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		key, ok := keyNames[e.Name]
		if !ok {
			return
		}
		repeat := held[e.Name] && fired[e.Name]
		fired[e.Name] = true
		ctrl.KeyDown(editor.KeyEvent{Key: key, Mods: mods, Repeat: repeat})
	})
	w.Canvas().SetOnTypedRune(func(r rune) {
		if r == 'r' || r == 'R' {
			repeat := held[fyne.KeyR] && fired[fyne.KeyR]
			fired[fyne.KeyR] = true
			ctrl.KeyDown(editor.KeyEvent{Key: "r", Repeat: repeat})
		}
	})
	shortcut := func(name fyne.KeyName, m fyne.KeyModifier, key string) {
		w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: name, Modifier: m}, func(fyne.Shortcut) {
			ctrl.KeyDown(editor.KeyEvent{Key: key, Mods: modifiersFrom(m)})
		})
	}
	shortcut(fyne.KeyZ, fyne.KeyModifierShortcutDefault, "z")
	shortcut(fyne.KeyZ, fyne.KeyModifierShortcutDefault|fyne.KeyModifierShift, "z")
	shortcut(fyne.KeyY, fyne.KeyModifierShortcutDefault, "y")
	shortcut(fyne.KeyG, fyne.KeyModifierShortcutDefault, "g")
	shortcut(fyne.KeyG, fyne.KeyModifierShortcutDefault|fyne.KeyModifierShift, "g")
	shortcut(fyne.KeyA, fyne.KeyModifierShortcutDefault, "a")
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { save() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { open() })

	// Menus
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New", newLayout),
		fyne.NewMenuItem("Open...", open),
		fyne.NewMenuItem("Save", save),
		fyne.NewMenuItem("Save As...", saveAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PNG...", func() { exportAs(export.DefaultPNGName) }),
		fyne.NewMenuItem("Export PDF...", func() { exportAs(export.DefaultPDFName) }),
		exportGrid,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Restore Earlier Autosave...", restoreEarlier),
	)
	if sess.HasLibrary() {
		fileMenu.Items = append(fileMenu.Items,
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Publish to Library...", publish),
			fyne.NewMenuItem("Open from Library...", openFromLibrary),
		)
	}
	undoItem = fyne.NewMenuItem("Undo", func() { sess.Undo() })
	redoItem = fyne.NewMenuItem("Redo", func() { sess.Redo() })
	editMenu := fyne.NewMenu("Edit",
		undoItem,
		redoItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Select All", func() { sess.Scene().SelectAll() }),
		fyne.NewMenuItem("Delete", func() { _ = sess.DeleteSelection() }),
		fyne.NewMenuItem("Group", func() { _ = sess.Group() }),
		fyne.NewMenuItem("Ungroup", func() { _ = sess.Ungroup() }),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("PE Planner", "Version "+version.String(), w)
		}),
	)
	mainMenu = fyne.NewMainMenu(fileMenu, editMenu, helpMenu)
	w.SetMainMenu(mainMenu)
	updateTitle()

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), open),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), save),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { sess.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { sess.Redo() }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { _ = sess.DeleteSelection() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DownloadIcon(), func() { exportAs(export.DefaultPDFName) }),
	)

	center := container.NewScroll(court)
	split := container.NewHSplit(center, container.NewVScroll(metaForm))
	split.Offset = 0.72
	w.SetContent(container.NewBorder(toolbar, status, container.NewVScroll(left), nil, split))

	if path != "" {
		_ = sess.OpenFile(path)
	} else if ok, _ := sess.RestoreAutosave(ctx); !ok {
		status.SetText("Ready")
	}
	syncControls()
	updateTitle()
	ws.Start(ctx)

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if err := sess.FlushAutosave(ctx); err != nil {
			l.Warn("autosave on close failed", slog.Any("err", err))
		}
		w.Close()
	})
	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

var keyNames = map[fyne.KeyName]string{
	fyne.KeyLeft:      editor.KeyLeft,
	fyne.KeyRight:     editor.KeyRight,
	fyne.KeyUp:        editor.KeyUp,
	fyne.KeyDown:      editor.KeyDown,
	fyne.KeyDelete:    editor.KeyDelete,
	fyne.KeyBackspace: editor.KeyBackspace,
	fyne.KeyEscape:    editor.KeyEscape,
}

func modifierKey(name fyne.KeyName) editor.Modifiers {
	switch name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return editor.ModShift
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return editor.ModCtrl
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return editor.ModAlt
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		return editor.ModMeta
	}
	return 0
}

func crashDir() string {
	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "crash")
}

// showPicker lists labels in a dialog and calls pick with the chosen index.
func showPicker(w fyne.Window, title string, labels []string, pick func(i int)) {
	var d dialog.Dialog
	list := widget.NewList(
		func() int { return len(labels) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(labels[i]) },
	)
	list.OnSelected = func(i widget.ListItemID) {
		d.Hide()
		pick(int(i))
	}
	d = dialog.NewCustom(title, "Cancel", container.NewGridWrap(fyne.NewSize(420, 320), list), w)
	d.Show()
}

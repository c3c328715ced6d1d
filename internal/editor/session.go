/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor ties the scene, history, autosave and export together behind the
// operations a front-end calls.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"peplanner/internal/config"
	"peplanner/internal/export"
	"peplanner/internal/geom"
	"peplanner/internal/history"
	"peplanner/internal/library"
	applog "peplanner/internal/log"
	"peplanner/internal/scene"
	"peplanner/internal/snapshot"
	"peplanner/internal/storage"
	"peplanner/internal/telemetry"
)

var (
	ErrNoLibrary        = errors.New("no layout library configured")
	ErrNothingToUngroup = errors.New("selection contains no group")
	ErrUnknownTemplate  = errors.New("unknown court template")
	ErrInvalidGridSize  = errors.New("grid size must be positive")
)

// DefaultPlacement is where palette items land when no drop position is given.
var DefaultPlacement = geom.Pt{X: 40, Y: 40}

const metadataMergeKey = "metadata"

// AutosaveStore persists autosaves; storage.Local satisfies it.
type AutosaveStore interface {
	storage.AutosaveSink
	LoadAutosave(ctx context.Context, slot string) ([]byte, time.Time, error)
	ListSnapshots(ctx context.Context, slot string, limit int) ([]storage.Snapshot, error)
	GetSnapshot(ctx context.Context, id int64) (storage.Snapshot, error)
}

// Library is the shared layout library; library.Store satisfies it.
type Library interface {
	Publish(ctx context.Context, name string, doc []byte) (library.Entry, error)
	Update(ctx context.Context, id string, doc []byte) error
	Fetch(ctx context.Context, id string) (library.Layout, error)
}

type Option func(*Session)

func WithNotifier(n Notifier) Option { return func(s *Session) { s.notifier = n } }

// WithAutosave enables autosave into store under slot.
func WithAutosave(store AutosaveStore, slot string) Option {
	return func(s *Session) { s.store, s.slot = store, slot }
}

func WithLibrary(lib Library) Option { return func(s *Session) { s.lib = lib } }

func WithSceneOptions(opts ...scene.Option) Option {
	return func(s *Session) { s.sceneOpts = append(s.sceneOpts, opts...) }
}

// Session owns one open layout: its scene, history, controller, metadata and autosave.
// All methods except the export worker run on the goroutine that owns the scene.
type Session struct {
	cfg       config.AppConfig
	log       *slog.Logger
	notifier  Notifier
	sceneOpts []scene.Option

	scene *scene.Scene
	hist  *history.Manager
	ctrl  *Controller
	meta  snapshot.Metadata

	store    AutosaveStore
	slot     string
	autosave *storage.Autosaver

	guard     export.Guard
	exportOpt export.Options

	lib       Library
	libraryID string

	path  string
	dirty bool

	encode  func(snapshot.Document) ([]byte, error)
	changed func()
}

func NewSession(cfg config.AppConfig, opts ...Option) *Session {
	s := &Session{
		cfg:      cfg,
		log:      applog.WithComponent("session"),
		notifier: LogNotifier{},
		slot:     storage.DefaultSlot,
		encode:   snapshot.Encode,
	}
	for _, o := range opts {
		o(s)
	}
	s.scene = scene.New(s.defaultSettings(), s.sceneOpts...)
	s.hist = history.NewManager(history.Config{
		MaxEntries:    cfg.History.MaxEntries,
		MaxBytes:      cfg.History.MaxBytes,
		MergeInterval: cfg.History.MergeInterval(),
	})
	s.ctrl = NewController(s.scene, s, ControllerConfig{
		NudgeStep:   cfg.Editor.NudgeStep,
		RotateStep:  cfg.Editor.RotateStep,
		MinZoneSize: cfg.Editor.MinZoneSize,
	})
	if s.store != nil {
		s.autosave = storage.NewAutosaver(s.store, s.slot, cfg.Autosave.Interval())
	}
	s.exportOpt = export.Options{Scale: cfg.Export.Scale, ShowGrid: cfg.Export.ShowGrid, Footer: cfg.Export.Footer, Font: cfg.Export.Font}
	s.reset(s.defaultDocument(), "New layout", false)
	return s
}

func (s *Session) Scene() *scene.Scene               { return s.scene }
func (s *Session) Controller() *Controller           { return s.ctrl }
func (s *Session) Metadata() snapshot.Metadata       { return s.meta }
func (s *Session) Path() string                      { return s.path }
func (s *Session) Dirty() bool                       { return s.dirty }
func (s *Session) CanUndo() bool                     { return s.hist.CanUndo() }
func (s *Session) CanRedo() bool                     { return s.hist.CanRedo() }
func (s *Session) Autosaver() *storage.Autosaver     { return s.autosave }
func (s *Session) HasLibrary() bool                  { return s.lib != nil }
func (s *Session) ExportOptions() export.Options     { return s.exportOpt }
func (s *Session) SetExportOptions(o export.Options) { s.exportOpt = o }

// OnHistoryChange registers fn to run after every commit, undo, redo, load and save, when
// CanUndo, CanRedo and Dirty may have changed.
func (s *Session) OnHistoryChange(fn func()) { s.changed = fn }

func (s *Session) historyChanged() {
	if s.changed != nil {
		s.changed()
	}
}

func (s *Session) defaultSettings() scene.Settings {
	return scene.Settings{
		GridSize:      s.cfg.Editor.GridSize,
		SnapEnabled:   s.cfg.Editor.SnapEnabled,
		CourtTemplate: s.cfg.Editor.CourtTemplate,
	}
}

func (s *Session) defaultDocument() snapshot.Document {
	doc := snapshot.Empty()
	st := s.defaultSettings()
	if st.GridSize > 0 {
		doc.GridSize = st.GridSize
	}
	doc.SnapEnabled = st.SnapEnabled
	if st.CourtTemplate != "" {
		doc.CourtTemplate = st.CourtTemplate
	}
	return doc
}

// Snapshot returns the current layout as a document.
func (s *Session) Snapshot() snapshot.Document {
	return snapshot.FromScene(s.scene, s.meta)
}

// reset replaces the scene with doc and starts a fresh history with doc as its base.
func (s *Session) reset(doc snapshot.Document, label string, persist bool) {
	s.meta = doc.Metadata
	doc.Restore(s.scene, nil)
	s.ctrl.Reset()
	blob, err := s.encode(s.Snapshot())
	if err != nil {
		// History must never describe a different layout than the scene shows.
		s.log.Error("encode layout", slog.String("label", label), slog.Any("err", err))
		s.notifier.Notice("The layout could not be stored and was replaced by an empty court.")
		def := s.defaultDocument()
		s.meta = def.Metadata
		def.Restore(s.scene, nil)
		if blob, err = s.encode(s.Snapshot()); err != nil {
			s.log.Error("encode empty layout", slog.Any("err", err))
		}
	}
	s.hist.Reset(history.Entry{Label: label, Blob: blob})
	s.dirty = false
	if persist && s.autosave != nil {
		s.autosave.Update(blob)
	}
	s.historyChanged()
}

// Commit records the current state as one history entry.
func (s *Session) Commit(label string) { s.record(label, "", false) }

// Amend replaces the newest entry with the current state, as for key auto-repeat.
func (s *Session) Amend(label string) { s.record(label, "", true) }

func (s *Session) record(label, mergeKey string, amend bool) {
	blob, err := s.encode(s.Snapshot())
	if err != nil {
		s.log.Error("encode layout", slog.String("label", label), slog.Any("err", err))
		return
	}
	e := history.Entry{Label: label, Blob: blob, Selection: s.scene.Selected(), MergeKey: mergeKey}
	if amend {
		s.hist.Amend(e)
	} else {
		s.hist.Commit(e)
	}
	s.dirty = true
	if s.autosave != nil {
		s.autosave.Update(blob)
	}
	s.log.Debug("committed", slog.String("label", label))
	s.historyChanged()
}

func (s *Session) restore(e history.Entry) {
	doc, err := snapshot.Decode(e.Blob)
	if err != nil {
		s.log.Error("restore history entry", slog.String("label", e.Label), slog.Any("err", err))
		return
	}
	s.meta = doc.Metadata
	doc.Restore(s.scene, e.Selection)
	s.ctrl.Reset()
	s.dirty = true
	if s.autosave != nil {
		s.autosave.Update(e.Blob)
	}
	s.historyChanged()
}

// Undo restores the previous entry. It reports false at the oldest entry.
func (s *Session) Undo() bool {
	e, ok := s.hist.Undo()
	if ok {
		s.restore(e)
	}
	return ok
}

// Redo restores the next entry. It reports false at the newest entry.
func (s *Session) Redo() bool {
	e, ok := s.hist.Redo()
	if ok {
		s.restore(e)
	}
	return ok
}

// refuse reports a guard violation to the user and returns err unchanged.
func (s *Session) refuse(err error) error {
	s.notifier.Notice(userMessage(err))
	s.log.Debug("command refused", slog.Any("err", err))
	return err
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, scene.ErrGroupTooSmall):
		return "Select at least two items to group."
	case errors.Is(err, scene.ErrAlignTooFew):
		return "Select at least two items or groups."
	case errors.Is(err, scene.ErrNotResizable):
		return "Only zones can be resized."
	case errors.Is(err, ErrNothingToUngroup):
		return "The selection contains no group."
	case errors.Is(err, ErrUnknownTemplate):
		return "Unknown court template."
	case errors.Is(err, ErrInvalidGridSize):
		return "Grid size must be positive."
	case errors.Is(err, export.ErrExportBusy):
		return "An export is already running."
	case errors.Is(err, ErrNoLibrary):
		return "No layout library is configured."
	}
	return err.Error()
}

// PlaceItem adds a palette item at pos, snapped when snapping is on, and selects it.
func (s *Session) PlaceItem(typ string, pos geom.Pt) scene.Item {
	it := s.scene.AddItem(typ, pos)
	s.scene.SnapItems([]string{it.ID})
	s.scene.SetSelection([]string{it.ID})
	s.Commit("Add " + it.Type)
	it, _ = s.scene.Item(it.ID)
	return it
}

// SetItemText edits the text of an item. Consecutive edits of the same item merge.
func (s *Session) SetItemText(id, text string) error {
	it, ok := s.scene.Item(id)
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrUnknownItem, id)
	}
	if it.Text == text {
		return nil
	}
	if err := s.scene.UpdateItem(id, scene.ItemPatch{Text: &text}); err != nil {
		return err
	}
	s.record("Edit text", "text:"+id, false)
	return nil
}

func (s *Session) Group() error {
	if _, err := s.scene.Group(s.scene.Selected()); err != nil {
		return s.refuse(err)
	}
	s.Commit("Group")
	return nil
}

// Ungroup dissolves every group that has a selected member.
func (s *Session) Ungroup() error {
	var gids []string
	seen := map[string]bool{}
	for _, id := range s.scene.Selected() {
		if g, ok := s.scene.GroupOf(id); ok && !seen[g.ID] {
			seen[g.ID] = true
			gids = append(gids, g.ID)
		}
	}
	if len(gids) == 0 {
		return s.refuse(ErrNothingToUngroup)
	}
	for _, gid := range gids {
		if err := s.scene.Ungroup(gid); err != nil {
			return s.refuse(err)
		}
	}
	s.Commit("Ungroup")
	return nil
}

func (s *Session) Align(edge scene.Edge) error {
	changed, err := s.scene.Align(edge)
	if err != nil {
		return s.refuse(err)
	}
	if changed {
		s.Commit("Align " + edge.String())
	}
	return nil
}

func (s *Session) Distribute(axis scene.Axis) error {
	changed, err := s.scene.Distribute(axis, s.cfg.Editor.DistributeStep)
	if err != nil {
		return s.refuse(err)
	}
	if changed {
		s.Commit("Distribute " + axis.String())
	}
	return nil
}

// DeleteSelection removes the selected items. Groups left with fewer than two members dissolve.
func (s *Session) DeleteSelection() error {
	sel := s.scene.Selected()
	if len(sel) == 0 {
		return nil
	}
	if err := s.scene.RemoveItems(sel); err != nil {
		return err
	}
	s.Commit("Delete")
	return nil
}

// Clear removes every item. It is undoable.
func (s *Session) Clear() {
	if s.scene.Len() == 0 {
		return
	}
	s.scene.Clear()
	s.Commit("Clear")
}

// NewLayout empties the court and the game details as a single undoable edit.
func (s *Session) NewLayout() {
	if s.scene.Len() == 0 && s.meta == (snapshot.Metadata{}) {
		return
	}
	s.scene.Clear()
	s.meta = snapshot.Metadata{}
	s.ctrl.Reset()
	s.Commit("New layout")
}

func (s *Session) updateSettings(label string, fn func(*scene.Settings)) {
	st := s.scene.Settings()
	next := st
	fn(&next)
	if next == st {
		return
	}
	s.scene.SetSettings(next)
	s.Commit(label)
}

func (s *Session) SetGridSize(size float64) error {
	if size <= 0 || !geom.IsFinite(size) {
		return s.refuse(ErrInvalidGridSize)
	}
	s.updateSettings("Grid size", func(st *scene.Settings) { st.GridSize = size })
	return nil
}

func (s *Session) SetSnapEnabled(on bool) {
	s.updateSettings("Snap", func(st *scene.Settings) { st.SnapEnabled = on })
}

func (s *Session) SetCourtTemplate(name string) error {
	if !export.KnownCourt(name) {
		return s.refuse(fmt.Errorf("%w: %q", ErrUnknownTemplate, name))
	}
	s.updateSettings("Court", func(st *scene.Settings) { st.CourtTemplate = name })
	return nil
}

// SetMetadata replaces the text fields. Edits within the merge interval collapse into one entry.
func (s *Session) SetMetadata(m snapshot.Metadata) {
	if m == s.meta {
		return
	}
	s.meta = m
	s.record("Edit details", metadataMergeKey, false)
}

// LoadDocument replaces the layout with data. A document that cannot be read resets the
// session to an empty court and returns an error wrapping snapshot.ErrMalformed.
func (s *Session) LoadDocument(data []byte) error {
	l := applog.WithOperation(s.log, "load")
	doc, err := snapshot.Decode(data)
	if err != nil {
		l.Warn("layout unreadable", slog.Any("err", err))
		s.notifier.Notice("The layout could not be read. Starting with an empty court.")
		s.reset(s.defaultDocument(), "New layout", false)
		return fmt.Errorf("load layout: %w", err)
	}
	if problems, verr := snapshot.Validate(data); verr == nil && len(problems) > 0 {
		for _, p := range problems {
			l.Warn("layout field problem", slog.String("problem", p))
		}
		s.notifier.Notice(fmt.Sprintf("Layout loaded with %d warning(s); defaults were used where needed.", len(problems)))
	}
	s.reset(doc, "Open", true)
	telemetry.Event(telemetry.EventLayoutOpened, map[string]any{"items": len(doc.Items)})
	l.Info("layout loaded", slog.Int("items", len(doc.Items)), slog.Int("groups", len(doc.Groups)))
	return nil
}

// SaveFile writes the layout as indented JSON, keeping a backup of the previous file.
func (s *Session) SaveFile(path string) error {
	data, err := snapshot.EncodeIndent(s.Snapshot())
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	if err := storage.SaveLayout(path, data); err != nil {
		s.notifier.Alert("Save failed", err)
		return fmt.Errorf("save layout: %w", err)
	}
	s.path = path
	s.dirty = false
	if s.autosave != nil {
		s.autosave.SetSlot(path)
		s.autosave.Update(data)
	}
	applog.WithOperation(s.log, "save").Info("layout saved", slog.String("path", path))
	s.historyChanged()
	return nil
}

// OpenFile loads a layout file, falling back to its newest backup when the file is damaged.
func (s *Session) OpenFile(path string) error {
	data, fromBackup, err := storage.OpenLayout(path)
	if err != nil {
		s.notifier.Alert("Open failed", err)
		return fmt.Errorf("open layout: %w", err)
	}
	if fromBackup {
		s.notifier.Notice("The layout file was damaged; its latest backup was opened.")
	}
	// Switch slots first so no autosave of the opened layout lands in the previous slot.
	var prevSlot string
	if s.autosave != nil {
		prevSlot = s.autosave.Slot()
		s.autosave.SetSlot(path)
	}
	if err := s.LoadDocument(data); err != nil {
		if s.autosave != nil {
			s.autosave.SetSlot(prevSlot)
		}
		return err
	}
	s.path = path
	s.libraryID = ""
	return nil
}

// RestoreAutosave loads the last autosave for the current slot. It reports false when
// there is none.
func (s *Session) RestoreAutosave(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	slot := s.slot
	if s.autosave != nil {
		slot = s.autosave.Slot()
	}
	data, ts, err := s.store.LoadAutosave(ctx, slot)
	if errors.Is(err, storage.ErrNoAutosave) {
		return false, nil
	}
	if err != nil {
		s.notifier.Alert("Autosave could not be read", err)
		return false, fmt.Errorf("restore autosave: %w", err)
	}
	if err := s.LoadDocument(data); err != nil {
		return false, err
	}
	s.dirty = true
	s.historyChanged()
	s.notifier.Notice("Restored autosave from " + ts.Local().Format("2006-01-02 15:04:05") + ".")
	return true, nil
}

// AutosaveHistory lists the most recent autosaved versions of the current slot, newest first.
func (s *Session) AutosaveHistory(ctx context.Context, limit int) ([]storage.Snapshot, error) {
	if s.store == nil {
		return nil, nil
	}
	slot := s.slot
	if s.autosave != nil {
		slot = s.autosave.Slot()
	}
	return s.store.ListSnapshots(ctx, slot, limit)
}

// RestoreSnapshot replaces the layout with an earlier autosaved version. Unlike opening a
// file it is an ordinary edit, so Undo returns to the layout it replaced.
func (s *Session) RestoreSnapshot(ctx context.Context, id int64) error {
	if s.store == nil {
		return nil
	}
	sn, err := s.store.GetSnapshot(ctx, id)
	if err != nil {
		s.notifier.Alert("Autosave could not be read", err)
		return fmt.Errorf("restore snapshot: %w", err)
	}
	doc, err := snapshot.Decode(sn.Data)
	if err != nil {
		s.notifier.Alert("Autosave could not be read", err)
		return fmt.Errorf("restore snapshot %d: %w", id, err)
	}
	s.meta = doc.Metadata
	doc.Restore(s.scene, nil)
	s.ctrl.Reset()
	s.Commit("Restore autosave")
	s.notifier.Notice("Restored autosave from " + sn.TS.Local().Format("2006-01-02 15:04:05") + ".")
	return nil
}

// FlushAutosave writes the pending autosave now.
func (s *Session) FlushAutosave(ctx context.Context) error {
	if s.autosave == nil {
		return nil
	}
	return s.autosave.Flush(ctx)
}

// Export renders a snapshot of the current layout to w on a worker goroutine. The
// snapshot is taken before Export returns; the result arrives on the channel.
func (s *Session) Export(ctx context.Context, f export.Format, w io.Writer) <-chan error {
	return s.exportTo(ctx, f, w, nil)
}

// ExportFile is Export into a new file at path; the format follows the extension.
func (s *Session) ExportFile(ctx context.Context, path string) <-chan error {
	if s.guard.Busy() {
		done := make(chan error, 1)
		done <- s.refuse(export.ErrExportBusy)
		return done
	}
	f, err := os.Create(path)
	if err != nil {
		done := make(chan error, 1)
		s.notifier.Alert("Export failed", err)
		done <- fmt.Errorf("create export file: %w", err)
		return done
	}
	return s.exportTo(ctx, export.FormatForPath(path), f, f)
}

func (s *Session) exportTo(ctx context.Context, f export.Format, w io.Writer, c io.Closer) <-chan error {
	doc := s.Snapshot()
	opt := s.exportOpt
	l := applog.WithOperation(s.log, "export")
	done := make(chan error, 1)
	go func() {
		err := s.guard.Run(ctx, f, w, doc, opt)
		if c != nil {
			if cerr := c.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("close export: %w", cerr)
			}
		}
		switch {
		case errors.Is(err, export.ErrExportBusy):
			s.refuse(err)
		case err != nil:
			l.Error("export failed", slog.String("format", string(f)), slog.Any("err", err))
			s.notifier.Alert("Export failed", err)
		default:
			l.Info("exported", slog.String("format", string(f)), slog.Int("items", len(doc.Items)))
			telemetry.Event(telemetry.EventExported, map[string]any{"items": len(doc.Items), "pdf": f == export.FormatPDF})
		}
		done <- err
	}()
	return done
}

func (s *Session) ExportPNG(ctx context.Context, w io.Writer) error {
	return <-s.Export(ctx, export.FormatPNG, w)
}

func (s *Session) ExportPDF(ctx context.Context, w io.Writer) error {
	return <-s.Export(ctx, export.FormatPDF, w)
}

// Publish stores the layout in the shared library. The first publish creates an entry
// named name; later publishes of the same layout update it.
func (s *Session) Publish(ctx context.Context, name string) (string, error) {
	if s.lib == nil {
		return "", s.refuse(ErrNoLibrary)
	}
	blob, err := snapshot.Encode(s.Snapshot())
	if err != nil {
		return "", fmt.Errorf("encode layout: %w", err)
	}
	l := applog.WithOperation(s.log, "publish")
	if s.libraryID != "" {
		if err := s.lib.Update(ctx, s.libraryID, blob); err == nil {
			l.Info("library layout updated", slog.String("id", s.libraryID))
			return s.libraryID, nil
		} else if !errors.Is(err, library.ErrNotFound) {
			s.notifier.Alert("Publish failed", err)
			return "", fmt.Errorf("update library layout: %w", err)
		}
	}
	entry, err := s.lib.Publish(ctx, name, blob)
	if err != nil {
		s.notifier.Alert("Publish failed", err)
		return "", fmt.Errorf("publish layout: %w", err)
	}
	s.libraryID = entry.ID
	l.Info("layout published", slog.String("id", entry.ID), slog.String("name", entry.Name))
	telemetry.Event(telemetry.EventPublished, map[string]any{"items": s.scene.Len()})
	return entry.ID, nil
}

// OpenFromLibrary replaces the layout with a library entry.
func (s *Session) OpenFromLibrary(ctx context.Context, id string) error {
	if s.lib == nil {
		return s.refuse(ErrNoLibrary)
	}
	layout, err := s.lib.Fetch(ctx, id)
	if err != nil {
		s.notifier.Alert("Library layout could not be opened", err)
		return fmt.Errorf("fetch library layout: %w", err)
	}
	if err := s.LoadDocument(layout.Document); err != nil {
		return err
	}
	s.libraryID = layout.ID
	s.path = ""
	return nil
}

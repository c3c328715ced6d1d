/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"log/slog"
	"math"

	"peplanner/internal/geom"
	applog "peplanner/internal/log"
	"peplanner/internal/scene"
)

// State is the controller's gesture state.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
	MarqueeSelecting
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case MarqueeSelecting:
		return "marquee"
	}
	return "idle"
}

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

func (m Modifiers) Has(o Modifiers) bool { return m&o != 0 }

// additive reports whether a click extends the selection instead of replacing it.
func (m Modifiers) additive() bool { return m.Has(ModShift | ModCtrl | ModMeta) }

// command reports whether Ctrl or Cmd is held.
func (m Modifiers) command() bool { return m.Has(ModCtrl | ModMeta) }

// PointerEvent is a pointer sample in scene coordinates.
type PointerEvent struct {
	ID   int
	Pos  geom.Pt
	Mods Modifiers
}

// Key names understood by KeyDown. Letter keys are their lower-case rune.
const (
	KeyLeft      = "ArrowLeft"
	KeyRight     = "ArrowRight"
	KeyUp        = "ArrowUp"
	KeyDown      = "ArrowDown"
	KeyDelete    = "Delete"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
)

// KeyEvent is a key press. Repeat is set for auto-repeat frames of a held key.
type KeyEvent struct {
	Key    string
	Mods   Modifiers
	Repeat bool
}

// Host receives the commands a controller cannot complete on the scene alone.
// Session implements it.
type Host interface {
	Commit(label string)
	Amend(label string)
	Undo() bool
	Redo() bool
	Group() error
	Ungroup() error
	DeleteSelection() error
}

// ControllerConfig holds the keyboard and resize steps.
type ControllerConfig struct {
	NudgeStep   float64
	RotateStep  float64
	MinZoneSize float64
}

// Controller turns pointer and key input into scene mutations and history commits.
// It must be used from the goroutine that owns the scene.
type Controller struct {
	scene *scene.Scene
	host  Host
	cfg   ControllerConfig
	log   *slog.Logger

	state   State
	pointer int
	last    geom.Pt
	origin  geom.Pt

	// dragging
	dragIDs []string
	moved   bool
	cloned  bool
	// toggle is an already-selected item whose click is deferred until release without movement.
	toggle   string
	additive bool

	// resizing
	target   string
	origSize geom.Size

	// marquee
	base    []string
	marquee geom.Rect
}

func NewController(s *scene.Scene, host Host, cfg ControllerConfig) *Controller {
	if cfg.NudgeStep <= 0 {
		cfg.NudgeStep = 5
	}
	if cfg.RotateStep == 0 {
		cfg.RotateStep = 15
	}
	if cfg.MinZoneSize <= 0 {
		cfg.MinZoneSize = scene.MinZoneSize
	}
	return &Controller{scene: s, host: host, cfg: cfg, log: applog.WithComponent("controller")}
}

func (c *Controller) State() State { return c.state }

// Marquee returns the rubber-band rectangle while a marquee gesture is active.
func (c *Controller) Marquee() (geom.Rect, bool) {
	return c.marquee, c.state == MarqueeSelecting
}

// Guides returns the alignment guides between the dragged items and the rest of the scene.
func (c *Controller) Guides() []geom.Guide {
	if c.state != Dragging || !c.moved {
		return nil
	}
	dragged := make(map[string]bool, len(c.dragIDs))
	var boxes []geom.Rect
	for _, id := range c.dragIDs {
		if it, ok := c.scene.Item(id); ok {
			dragged[id] = true
			boxes = append(boxes, it.Bounds())
		}
	}
	moving, ok := geom.UnionAll(boxes)
	if !ok {
		return nil
	}
	var anchors []geom.Rect
	for _, it := range c.scene.Items() {
		if !dragged[it.ID] {
			anchors = append(anchors, it.Bounds())
		}
	}
	return geom.AlignmentGuides(moving, anchors, geom.GuideTolerance)
}

// Reset abandons any gesture without committing. Used after undo, redo and loads.
func (c *Controller) Reset() {
	c.state = Idle
	c.dragIDs = nil
	c.base = nil
	c.toggle = ""
	c.target = ""
	c.moved, c.cloned = false, false
	c.marquee = geom.Rect{}
}

// PointerDown starts a gesture. It is ignored while another gesture is active.
func (c *Controller) PointerDown(ev PointerEvent) {
	if c.state != Idle {
		return
	}
	c.pointer = ev.ID
	c.last, c.origin = ev.Pos, ev.Pos
	c.additive = ev.Mods.additive()

	if it, ok := c.scene.ResizeHandleAt(ev.Pos); ok {
		if !c.scene.IsSelected(it.ID) {
			c.check(c.scene.ClickSelect(it.ID, c.additive))
		}
		c.state = Resizing
		c.target = it.ID
		c.origSize = it.Size
		return
	}

	it, ok := c.scene.HitTest(ev.Pos)
	if !ok {
		if !c.additive {
			c.scene.ClearSelection()
		}
		c.base = c.scene.Selected()
		c.marquee = geom.Rect{X: ev.Pos.X, Y: ev.Pos.Y}
		c.state = MarqueeSelecting
		return
	}

	if ev.Mods.Has(ModAlt) {
		src := c.scene.Selected()
		if len(src) == 0 {
			src = []string{it.ID}
		}
		clones, err := c.scene.CloneItems(c.scene.ExpandGroups(src))
		if err != nil {
			c.check(err)
			return
		}
		c.scene.SetSelection(clones)
		c.cloned = true
	} else if c.scene.IsSelected(it.ID) {
		c.toggle = it.ID
	} else {
		c.check(c.scene.ClickSelect(it.ID, c.additive))
	}
	c.dragIDs = c.scene.ExpandGroups(c.scene.Selected())
	c.state = Dragging
}

// PointerMove continues the active gesture. Moves from other pointers are ignored.
func (c *Controller) PointerMove(ev PointerEvent) {
	if c.state == Idle || ev.ID != c.pointer {
		return
	}
	switch c.state {
	case Dragging:
		d := ev.Pos.Sub(c.last)
		c.last = ev.Pos
		if d.IsZero() || len(c.dragIDs) == 0 {
			return
		}
		if err := c.scene.MoveItems(c.dragIDs, d); err != nil {
			c.check(err)
			return
		}
		c.moved = true
	case Resizing:
		d := ev.Pos.Sub(c.origin)
		size := geom.Size{
			W: math.Max(c.cfg.MinZoneSize, c.origSize.W+d.X),
			H: math.Max(c.cfg.MinZoneSize, c.origSize.H+d.Y),
		}
		c.check(c.scene.ResizeItem(c.target, size))
	case MarqueeSelecting:
		c.marquee = geom.RectFromPoints(c.origin, ev.Pos)
		ids := c.scene.MarqueeSelect(c.marquee)
		if c.additive && len(c.base) > 0 {
			c.scene.SetSelection(append(append([]string(nil), c.base...), ids...))
		}
	}
}

// PointerUp ends the gesture, snapping and committing as needed. A stray release is ignored.
func (c *Controller) PointerUp(ev PointerEvent) {
	if c.state == Idle || ev.ID != c.pointer {
		return
	}
	c.finish(true)
}

// CaptureLost ends the active gesture as if the pointer were released where it last was.
func (c *Controller) CaptureLost() {
	if c.state == Idle {
		return
	}
	c.finish(false)
}

func (c *Controller) finish(released bool) {
	switch c.state {
	case Dragging:
		if c.moved {
			c.scene.SnapItems(c.dragIDs)
		}
		if !c.moved && released && c.toggle != "" {
			c.check(c.scene.ClickSelect(c.toggle, c.additive))
		}
		switch {
		case c.cloned:
			c.host.Commit("Duplicate")
		case c.moved:
			c.host.Commit("Move")
		}
	case Resizing:
		if it, ok := c.scene.Item(c.target); ok && it.Size != c.origSize {
			c.host.Commit("Resize")
		}
	}
	c.Reset()
}

// KeyDown handles editing shortcuts. Keys are ignored during a gesture.
func (c *Controller) KeyDown(ev KeyEvent) {
	if c.state != Idle {
		return
	}
	cmd := ev.Mods.command()
	switch {
	case isArrow(ev.Key) && ev.Mods.Has(ModShift|ModCtrl|ModAlt):
		c.nudge(ev)
	case ev.Key == KeyDelete || ev.Key == KeyBackspace:
		if !c.scene.SelectionEmpty() {
			c.check(c.host.DeleteSelection())
		}
	case ev.Key == KeyEscape:
		c.scene.ClearSelection()
	case cmd && ev.Key == "z" && ev.Mods.Has(ModShift), cmd && ev.Key == "y":
		c.host.Redo()
	case cmd && ev.Key == "z":
		c.host.Undo()
	case cmd && ev.Key == "g" && ev.Mods.Has(ModShift):
		c.check(c.host.Ungroup())
	case cmd && ev.Key == "g":
		c.check(c.host.Group())
	case cmd && ev.Key == "a":
		c.scene.SelectAll()
	case !cmd && ev.Key == "r":
		c.rotate(ev)
	}
}

func isArrow(k string) bool {
	return k == KeyLeft || k == KeyRight || k == KeyUp || k == KeyDown
}

// nudge moves the selection one step. With snapping on, the step is one grid cell
// and the result is snapped.
func (c *Controller) nudge(ev KeyEvent) {
	ids := c.scene.ExpandGroups(c.scene.Selected())
	if len(ids) == 0 {
		return
	}
	st := c.scene.Settings()
	step := c.cfg.NudgeStep
	// With snapping on, a step smaller than a grid cell would snap straight back to the
	// start, so the nudge moves at least one cell.
	if st.SnapEnabled {
		step = math.Max(step, st.GridSize)
	}
	var d geom.Pt
	switch ev.Key {
	case KeyLeft:
		d.X = -step
	case KeyRight:
		d.X = step
	case KeyUp:
		d.Y = -step
	case KeyDown:
		d.Y = step
	}
	if err := c.scene.MoveItems(ids, d); err != nil {
		c.check(err)
		return
	}
	c.scene.SnapItems(ids)
	c.record("Nudge", ev.Repeat)
}

func (c *Controller) rotate(ev KeyEvent) {
	ids := c.scene.Selected()
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if err := c.scene.RotateItem(id, c.cfg.RotateStep); err != nil {
			c.check(err)
			return
		}
	}
	c.record("Rotate", ev.Repeat)
}

func (c *Controller) record(label string, repeat bool) {
	if repeat {
		c.host.Amend(label)
		return
	}
	c.host.Commit(label)
}

// check logs a rejected scene call. Stale references are expected after undo and are
// not reported to the user.
func (c *Controller) check(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, scene.ErrUnknownItem) || errors.Is(err, scene.ErrUnknownGroup) {
		c.log.Debug("stale reference ignored", slog.Any("err", err))
		return
	}
	c.log.Debug("command rejected", slog.Any("err", err))
}

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
	"image"
	"image/color"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"peplanner/internal/editor"
	"peplanner/internal/export"
	"peplanner/internal/geom"
	applog "peplanner/internal/log"
	"peplanner/internal/scene"
	"peplanner/internal/snapshot"
)

var (
	selectionColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	groupColor     = color.RGBA{R: 255, G: 170, B: 0, A: 255}
	guideColor     = color.RGBA{R: 255, G: 0, B: 200, A: 255}
	marqueeFill    = color.RGBA{R: 0, G: 170, B: 255, A: 40}
	transparent    = color.RGBA{}
)

// CourtCanvas shows the layout and forwards pointer input to the session's controller.
// One scene unit is one canvas unit; the court starts at the widget origin.
type CourtCanvas struct {
	widget.BaseWidget

	session *editor.Session
	log     *slog.Logger
	mods    editor.Modifiers
	last    geom.Pt
	down    bool
	unsub   func()
}

func NewCourtCanvas(s *editor.Session) *CourtCanvas {
	c := &CourtCanvas{session: s, log: applog.WithComponent("canvas")}
	c.unsub = s.Scene().Subscribe(func(scene.Change) { c.Refresh() })
	c.ExtendBaseWidget(c)
	return c
}

// SetModifiers records the held modifier keys; the window tracks them from key events.
func (c *CourtCanvas) SetModifiers(m editor.Modifiers) { c.mods = m }

func (c *CourtCanvas) MinSize() fyne.Size {
	return fyne.NewSize(export.CanvasWidth, export.CanvasHeight)
}

func toPt(p fyne.Position) geom.Pt { return geom.Pt{X: float64(p.X), Y: float64(p.Y)} }

func modifiersFrom(m fyne.KeyModifier) editor.Modifiers {
	var out editor.Modifiers
	if m&fyne.KeyModifierShift != 0 {
		out |= editor.ModShift
	}
	if m&fyne.KeyModifierControl != 0 {
		out |= editor.ModCtrl
	}
	if m&fyne.KeyModifierAlt != 0 {
		out |= editor.ModAlt
	}
	if m&fyne.KeyModifierSuper != 0 {
		out |= editor.ModMeta
	}
	return out
}

// MouseDown starts a gesture. Only the primary button is used.
func (c *CourtCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	c.down = true
	c.last = toPt(e.Position)
	c.session.Controller().PointerDown(editor.PointerEvent{ID: 1, Pos: c.last, Mods: modifiersFrom(e.Modifier) | c.mods})
	c.Refresh()
}

func (c *CourtCanvas) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	c.release(toPt(e.Position))
}

func (c *CourtCanvas) Dragged(e *fyne.DragEvent) {
	if !c.down {
		return
	}
	c.last = toPt(e.Position)
	c.session.Controller().PointerMove(editor.PointerEvent{ID: 1, Pos: c.last})
	c.Refresh()
}

// DragEnd may arrive before or after MouseUp; whichever comes second is a stray release.
func (c *CourtCanvas) DragEnd() { c.release(c.last) }

func (c *CourtCanvas) release(p geom.Pt) {
	if !c.down {
		return
	}
	c.down = false
	c.session.Controller().PointerUp(editor.PointerEvent{ID: 1, Pos: p})
	c.Refresh()
}

func (c *CourtCanvas) MouseIn(*desktop.MouseEvent)    {}
func (c *CourtCanvas) MouseMoved(*desktop.MouseEvent) {}

// MouseOut cancels the gesture when the pointer leaves the canvas mid-drag.
func (c *CourtCanvas) MouseOut() {
	if c.down && c.session.Controller().State() != editor.Idle {
		c.down = false
		c.session.Controller().CaptureLost()
		c.Refresh()
	}
}

func (c *CourtCanvas) CreateRenderer() fyne.WidgetRenderer {
	img := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	img.FillMode = canvas.ImageFillOriginal
	img.ScaleMode = canvas.ImageScaleFastest
	marquee := canvas.NewRectangle(marqueeFill)
	marquee.StrokeColor = selectionColor
	marquee.StrokeWidth = 1
	marquee.Hide()
	r := &courtRenderer{c: c, img: img, marquee: marquee}
	r.Refresh()
	return r
}

type courtRenderer struct {
	c        *CourtCanvas
	img      *canvas.Image
	outlines []fyne.CanvasObject
	marquee  *canvas.Rectangle
}

func (r *courtRenderer) Destroy() {
	if r.c.unsub != nil {
		r.c.unsub()
	}
}

func (r *courtRenderer) MinSize() fyne.Size { return r.c.MinSize() }

func (r *courtRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, len(r.outlines)+2)
	objs = append(objs, r.img)
	objs = append(objs, r.outlines...)
	return append(objs, r.marquee)
}

func (r *courtRenderer) Layout(fyne.Size) {
	if r.img.Image != nil {
		b := r.img.Image.Bounds()
		r.img.Move(fyne.NewPos(0, 0))
		r.img.Resize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))
	}
}

func outline(rc geom.Rect, col color.Color, width float32) *canvas.Rectangle {
	o := canvas.NewRectangle(transparent)
	o.StrokeColor = col
	o.StrokeWidth = width
	o.Move(fyne.NewPos(float32(rc.X), float32(rc.Y)))
	o.Resize(fyne.NewSize(float32(rc.W), float32(rc.H)))
	return o
}

func (r *courtRenderer) Refresh() {
	s := r.c.session
	doc := snapshot.FromScene(s.Scene(), s.Metadata())
	img, err := export.Rasterize(doc, export.Options{Scale: 1, ShowGrid: true})
	if err != nil {
		r.c.log.Warn("render failed", slog.Any("err", err))
	} else {
		r.img.Image = img
	}

	r.outlines = r.outlines[:0]
	sc := s.Scene()
	for _, g := range sc.Groups() {
		r.outlines = append(r.outlines, outline(g.Bounds, groupColor, 1))
	}
	for _, id := range sc.Selected() {
		if it, ok := sc.Item(id); ok {
			r.outlines = append(r.outlines, outline(it.Bounds(), selectionColor, 2))
			if h, ok := it.ResizeHandle(); ok {
				hr := canvas.NewRectangle(selectionColor)
				hr.Move(fyne.NewPos(float32(h.X), float32(h.Y)))
				hr.Resize(fyne.NewSize(float32(h.W), float32(h.H)))
				r.outlines = append(r.outlines, hr)
			}
		}
	}
	for _, g := range s.Controller().Guides() {
		l := canvas.NewLine(guideColor)
		l.StrokeWidth = 1
		if g.Vertical {
			l.Position1 = fyne.NewPos(float32(g.Pos), float32(g.From))
			l.Position2 = fyne.NewPos(float32(g.Pos), float32(g.To))
		} else {
			l.Position1 = fyne.NewPos(float32(g.From), float32(g.Pos))
			l.Position2 = fyne.NewPos(float32(g.To), float32(g.Pos))
		}
		r.outlines = append(r.outlines, l)
	}
	if m, ok := s.Controller().Marquee(); ok {
		r.marquee.Move(fyne.NewPos(float32(m.X), float32(m.Y)))
		r.marquee.Resize(fyne.NewSize(float32(m.W), float32(m.H)))
		r.marquee.Show()
	} else {
		r.marquee.Hide()
	}
	r.Layout(r.c.Size())
	canvas.Refresh(r.img)
	for _, o := range r.outlines {
		canvas.Refresh(o)
	}
	canvas.Refresh(r.marquee)
}

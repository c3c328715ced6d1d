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
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"peplanner/internal/geom"
	"peplanner/internal/scene"
	"peplanner/internal/snapshot"
)

// Default canvas extent in scene units. The canvas grows to fit items beyond it.
const (
	CanvasWidth  = 800.0
	CanvasHeight = 500.0
	// MaxScale bounds Options.Scale to keep bitmaps reasonable.
	MaxScale = 4.0
	// MaxExtent is the largest canvas side, in scene units, that can be rendered.
	MaxExtent = 20000.0
	// MaxPixels is the largest bitmap side; the scale is lowered to stay within it.
	MaxPixels = 8192
)

// Default file names offered by save dialogs.
const (
	DefaultPNGName = "PEPlanner.png"
	DefaultPDFName = "PEPlanner.pdf"
)

// Options controls rasterization.
// - Scale: device pixels per scene unit (defaults to 2, clamped to MaxScale)
// - ShowGrid: draw grid lines at the document's grid size
// - Footer: attribution line printed on every PDF page
// - Font: optional TTF/OTF file for item labels
type Options struct {
	Scale    float64
	ShowGrid bool
	Footer   string
	Font     string
}

func (o Options) scale() float64 {
	switch {
	case o.Scale <= 0:
		return 2
	case o.Scale > MaxScale:
		return MaxScale
	}
	return o.Scale
}

// ErrEmptyCanvas is returned when the canvas computes to zero pixels.
var ErrEmptyCanvas = errors.New("export: empty canvas")

// ErrCanvasTooLarge is returned when items lie so far out that the canvas exceeds MaxExtent.
var ErrCanvasTooLarge = errors.New("export: canvas too large")

var (
	playerColor  = color.RGBA{R: 0x1f, G: 0x6f, B: 0xd1, A: 0xff}
	player2Color = color.RGBA{R: 0xd1, G: 0x3b, B: 0x1f, A: 0xff}
	coachColor   = color.RGBA{R: 0x2e, G: 0x8b, B: 0x57, A: 0xff}
	coneColor    = color.RGBA{R: 0xff, G: 0x8c, B: 0x00, A: 0xff}
	ballColor    = color.RGBA{R: 0xe0, G: 0x6c, B: 0x1b, A: 0xff}
	zoneFill     = color.RGBA{R: 0x1f, G: 0x6f, B: 0xd1, A: 0x30}
	inkColor     = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
)

// canvasBounds returns the scene-space extent to render: the default canvas, grown to
// include every item's rotated bounds.
func canvasBounds(items []scene.Item) geom.Rect {
	r := geom.R(0, 0, CanvasWidth, CanvasHeight)
	for _, it := range items {
		r = r.Union(it.Bounds())
	}
	return r
}

// Rasterize renders the document to a bitmap. It never touches a live scene.
func Rasterize(doc snapshot.Document, opt Options) (image.Image, error) {
	face, err := labelFace(opt.Font)
	if err != nil {
		return nil, err
	}
	items, _ := doc.SceneItems()
	bounds := canvasBounds(items)
	if !(bounds.W <= MaxExtent && bounds.H <= MaxExtent) {
		return nil, fmt.Errorf("%w: %gx%g units (limit %g)", ErrCanvasTooLarge, bounds.W, bounds.H, MaxExtent)
	}
	s := math.Min(opt.scale(), MaxPixels/math.Max(bounds.W, bounds.H))
	w := min(int(math.Ceil(bounds.W*s)), MaxPixels)
	h := min(int(math.Ceil(bounds.H*s)), MaxPixels)
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyCanvas
	}

	dc := gg.NewContext(w, h)
	dc.Scale(s, s)
	dc.Translate(-bounds.X, -bounds.Y)
	drawCourt(dc, doc.CourtTemplate, CanvasWidth, CanvasHeight)

	if opt.ShowGrid {
		drawGrid(dc, bounds, doc.Settings().GridSize, s)
	}

	dc.SetFontFace(face)
	for _, it := range items {
		drawItem(dc, it)
	}
	return dc.Image(), nil
}

func drawGrid(dc *gg.Context, bounds geom.Rect, grid, s float64) {
	xs, ys := geom.GridLines(bounds.Right(), bounds.Bottom(), grid)
	dc.SetColor(gridColor)
	dc.SetLineWidth(1 / s)
	for _, x := range xs {
		dc.DrawLine(x, bounds.Y, x, bounds.Bottom())
	}
	for _, y := range ys {
		dc.DrawLine(bounds.X, y, bounds.Right(), y)
	}
	dc.Stroke()
}

func drawItem(dc *gg.Context, it scene.Item) {
	r := it.Rect()
	c := r.Center()
	dc.Push()
	defer dc.Pop()
	if it.Rotation != 0 {
		dc.RotateAbout(gg.Radians(it.Rotation), c.X, c.Y)
	}
	dc.SetLineWidth(2)

	switch it.Kind {
	case scene.KindZone:
		dc.DrawRectangle(r.X, r.Y, r.W, r.H)
		dc.SetColor(zoneFill)
		dc.FillPreserve()
		dc.SetDash(6, 4)
		dc.SetColor(playerColor)
		dc.Stroke()
		dc.SetDash()
		drawLabel(dc, it.Text, c.X, r.Y+12)
		return
	case scene.KindLabel:
		drawLabel(dc, it.Text, c.X, c.Y)
		return
	}

	rad := math.Min(r.W, r.H) / 2
	switch it.Type {
	case "player", "player2", "coach":
		fill := map[string]color.Color{"player": playerColor, "player2": player2Color, "coach": coachColor}[it.Type]
		dc.DrawCircle(c.X, c.Y, rad-1)
		dc.SetColor(fill)
		dc.FillPreserve()
		dc.SetColor(inkColor)
		dc.Stroke()
		dc.SetColor(color.White)
		dc.DrawStringAnchored(initial(it.Type), c.X, c.Y, 0.5, 0.35)
	case "cone":
		dc.MoveTo(c.X, r.Y+2)
		dc.LineTo(r.Right()-4, r.Bottom()-2)
		dc.LineTo(r.X+4, r.Bottom()-2)
		dc.ClosePath()
		dc.SetColor(coneColor)
		dc.FillPreserve()
		dc.SetColor(inkColor)
		dc.Stroke()
	case "ball":
		dc.DrawCircle(c.X, c.Y, rad*0.6)
		dc.SetColor(ballColor)
		dc.FillPreserve()
		dc.SetColor(inkColor)
		dc.Stroke()
	case "hoop":
		dc.SetColor(coneColor)
		dc.DrawCircle(c.X, c.Y, rad*0.8)
		dc.Stroke()
		dc.DrawLine(r.X+2, r.Y+4, r.Right()-2, r.Y+4)
		dc.Stroke()
	case "arrow":
		dc.SetColor(inkColor)
		dc.DrawLine(r.X+2, c.Y, r.Right()-4, c.Y)
		dc.MoveTo(r.Right()-2, c.Y)
		dc.LineTo(r.Right()-12, c.Y-7)
		dc.MoveTo(r.Right()-2, c.Y)
		dc.LineTo(r.Right()-12, c.Y+7)
		dc.Stroke()
	default:
		// Unknown icon types render as a box with their text.
		dc.DrawRoundedRectangle(r.X+1, r.Y+1, r.W-2, r.H-2, 4)
		dc.SetColor(color.White)
		dc.FillPreserve()
		dc.SetColor(inkColor)
		dc.Stroke()
		drawLabel(dc, it.Text, c.X, c.Y)
	}
}

func drawLabel(dc *gg.Context, text string, x, y float64) {
	if text == "" {
		return
	}
	dc.SetColor(inkColor)
	dc.DrawStringAnchored(text, x, y, 0.5, 0.35)
}

func initial(typ string) string {
	switch typ {
	case "player2":
		return "B"
	case "coach":
		return "C"
	}
	return strings.ToUpper(typ[:1])
}

// WritePNG rasterizes doc and encodes it as PNG to w.
func WritePNG(ctx context.Context, w io.Writer, doc snapshot.Document, opt Options) error {
	img, err := Rasterize(doc, opt)
	if err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

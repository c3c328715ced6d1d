/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg"
)

// Court templates drawn under the grid. Unknown names render as "blank".
const (
	CourtBlank      = "blank"
	CourtBasketball = "basketball"
	CourtVolleyball = "volleyball"
	CourtBadminton  = "badminton"
	CourtFutsal     = "futsal"
	CourtGym        = "gym"
)

type courtPainter func(dc *gg.Context, w, h float64)

var courts = map[string]courtPainter{
	CourtBlank:      func(*gg.Context, float64, float64) {},
	CourtBasketball: drawBasketball,
	CourtVolleyball: drawVolleyball,
	CourtBadminton:  drawBadminton,
	CourtFutsal:     drawFutsal,
	CourtGym:        drawGym,
}

var (
	floorColor = color.RGBA{R: 0xf6, G: 0xf1, B: 0xe7, A: 0xff}
	lineColor  = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	gridColor  = color.RGBA{R: 0xd8, G: 0xd8, B: 0xd8, A: 0xff}
)

// CourtTemplates lists the known template names, sorted.
func CourtTemplates() []string {
	out := make([]string, 0, len(courts))
	for k := range courts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KnownCourt reports whether name is a known template.
func KnownCourt(name string) bool {
	_, ok := courts[name]
	return ok
}

func drawCourt(dc *gg.Context, name string, w, h float64) {
	dc.SetColor(color.White)
	dc.Clear()
	p, ok := courts[name]
	if !ok || name == CourtBlank {
		return
	}
	dc.SetColor(floorColor)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()
	dc.SetColor(lineColor)
	dc.SetLineWidth(2)
	p(dc, w, h)
}

// outline draws the playing area inset by m on every side and returns it.
func outline(dc *gg.Context, w, h, m float64) (x, y, cw, ch float64) {
	x, y, cw, ch = m, m, w-2*m, h-2*m
	dc.DrawRectangle(x, y, cw, ch)
	dc.Stroke()
	return
}

func halfway(dc *gg.Context, x, y, cw, ch float64) {
	dc.DrawLine(x+cw/2, y, x+cw/2, y+ch)
	dc.Stroke()
}

func drawBasketball(dc *gg.Context, w, h float64) {
	x, y, cw, ch := outline(dc, w, h, 20)
	halfway(dc, x, y, cw, ch)
	cy := y + ch/2
	dc.DrawCircle(x+cw/2, cy, ch*0.12)
	dc.Stroke()
	keyW, keyH := cw*0.19, ch*0.32
	arc := math.Pi / 2 * 0.78
	for _, left := range []bool{true, false} {
		kx, ftx, rimX, facing := x, x+keyW, x+cw*0.06, 0.0
		if !left {
			kx, ftx, rimX, facing = x+cw-keyW, x+cw-keyW, x+cw*0.94, math.Pi
		}
		dc.DrawRectangle(kx, cy-keyH/2, keyW, keyH)
		dc.Stroke()
		dc.DrawArc(ftx, cy, keyH/2, facing-math.Pi/2, facing+math.Pi/2)
		dc.Stroke()
		dc.DrawArc(rimX, cy, ch*0.45, facing-arc, facing+arc)
		dc.Stroke()
	}
}

func drawVolleyball(dc *gg.Context, w, h float64) {
	x, y, cw, ch := outline(dc, w, h, 40)
	halfway(dc, x, y, cw, ch)
	attack := cw / 6
	dc.DrawLine(x+cw/2-attack, y, x+cw/2-attack, y+ch)
	dc.DrawLine(x+cw/2+attack, y, x+cw/2+attack, y+ch)
	dc.Stroke()
}

func drawBadminton(dc *gg.Context, w, h float64) {
	x, y, cw, ch := outline(dc, w, h, 30)
	halfway(dc, x, y, cw, ch)
	side := ch * 0.075
	dc.DrawLine(x, y+side, x+cw, y+side)
	dc.DrawLine(x, y+ch-side, x+cw, y+ch-side)
	short := cw * 0.15
	dc.DrawLine(x+cw/2-short, y, x+cw/2-short, y+ch)
	dc.DrawLine(x+cw/2+short, y, x+cw/2+short, y+ch)
	long := cw * 0.055
	dc.DrawLine(x+long, y, x+long, y+ch)
	dc.DrawLine(x+cw-long, y, x+cw-long, y+ch)
	dc.DrawLine(x, y+ch/2, x+cw/2-short, y+ch/2)
	dc.DrawLine(x+cw/2+short, y+ch/2, x+cw, y+ch/2)
	dc.Stroke()
}

func drawFutsal(dc *gg.Context, w, h float64) {
	x, y, cw, ch := outline(dc, w, h, 20)
	halfway(dc, x, y, cw, ch)
	cy := y + ch/2
	dc.DrawCircle(x+cw/2, cy, ch*0.15)
	dc.Stroke()
	boxW, boxH := cw*0.15, ch*0.5
	dc.DrawRectangle(x, cy-boxH/2, boxW, boxH)
	dc.DrawRectangle(x+cw-boxW, cy-boxH/2, boxW, boxH)
	dc.Stroke()
	goalH := ch * 0.15
	dc.DrawRectangle(x-10, cy-goalH/2, 10, goalH)
	dc.DrawRectangle(x+cw, cy-goalH/2, 10, goalH)
	dc.Stroke()
}

// drawGym draws a multi-purpose hall: outer boundary, centre line and circle, and a
// dashed inner activity zone.
func drawGym(dc *gg.Context, w, h float64) {
	x, y, cw, ch := outline(dc, w, h, 15)
	halfway(dc, x, y, cw, ch)
	dc.DrawCircle(x+cw/2, y+ch/2, ch*0.1)
	dc.Stroke()
	dc.SetDash(8, 6)
	dc.DrawRectangle(x+cw*0.1, y+ch*0.1, cw*0.8, ch*0.8)
	dc.Stroke()
	dc.SetDash()
}

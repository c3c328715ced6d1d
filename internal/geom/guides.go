/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"sort"
)

// Guide is an alignment line shown while items are dragged. Vertical guides sit at
// x = Pos and span From..To along y; horizontal guides the other way round.
type Guide struct {
	Vertical bool
	Pos      float64
	From     float64
	To       float64
}

// GuideTolerance is the default distance at which two edges count as aligned.
const GuideTolerance = 0.5

// AlignmentGuides reports where the edges or centers of moving line up with those of
// the anchors. Positions are not adjusted; snapping is the grid's job.
func AlignmentGuides(moving Rect, anchors []Rect, tol float64) []Guide {
	if tol <= 0 {
		tol = GuideTolerance
	}
	type key struct {
		vertical bool
		pos      float64
	}
	found := map[key]Guide{}
	add := func(vertical bool, pos float64, a Rect) {
		var from, to float64
		if vertical {
			from, to = math.Min(moving.Y, a.Y), math.Max(moving.Bottom(), a.Bottom())
		} else {
			from, to = math.Min(moving.X, a.X), math.Max(moving.Right(), a.Right())
		}
		k := key{vertical, FloatRound(pos, 3)}
		if g, ok := found[k]; ok {
			from, to = math.Min(from, g.From), math.Max(to, g.To)
		}
		found[k] = Guide{Vertical: vertical, Pos: k.pos, From: from, To: to}
	}
	mx := []float64{moving.X, moving.Center().X, moving.Right()}
	my := []float64{moving.Y, moving.Center().Y, moving.Bottom()}
	for _, a := range anchors {
		for _, ax := range []float64{a.X, a.Center().X, a.Right()} {
			for _, x := range mx {
				if math.Abs(x-ax) <= tol {
					add(true, ax, a)
				}
			}
		}
		for _, ay := range []float64{a.Y, a.Center().Y, a.Bottom()} {
			for _, y := range my {
				if math.Abs(y-ay) <= tol {
					add(false, ay, a)
				}
			}
		}
	}
	out := make([]Guide, 0, len(found))
	for _, g := range found {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vertical != out[j].Vertical {
			return out[i].Vertical
		}
		return out[i].Pos < out[j].Pos
	})
	return out
}

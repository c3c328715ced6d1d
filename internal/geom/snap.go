/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "math"

// SnapValue rounds v to the nearest multiple of grid. A non-positive grid leaves v unchanged.
func SnapValue(v, grid float64) float64 {
	if grid <= 0 || math.IsNaN(grid) || math.IsInf(grid, 0) {
		return v
	}
	return math.Round(v/grid) * grid
}

// SnapPosition rounds each coordinate of p independently to the nearest multiple of grid.
// It is pure and idempotent: SnapPosition(SnapPosition(p, g), g) == SnapPosition(p, g).
func SnapPosition(p Pt, grid float64) Pt {
	return Pt{X: SnapValue(p.X, grid), Y: SnapValue(p.Y, grid)}
}

// GridLines returns the x and y offsets of grid lines inside a w x h area, starting at 0.
// Used by renderers that draw the background grid.
func GridLines(w, h, grid float64) (xs, ys []float64) {
	if grid <= 0 {
		return nil, nil
	}
	for x := 0.0; x < w; x += grid {
		xs = append(xs, x)
	}
	for y := 0.0; y < h; y += grid {
		ys = append(ys, y)
	}
	return xs, ys
}

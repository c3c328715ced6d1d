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
	"testing"
)

func TestRectContainsAndOverlaps(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	cases := []struct {
		name string
		o    Rect
		want bool
	}{
		{"inside", R(20, 30, 5, 5), true},
		{"partial", R(100, 60, 50, 50), true},
		{"touching edge", R(110, 20, 10, 10), true},
		{"left of", R(0, 20, 9, 10), false},
		{"below", R(10, 71, 10, 10), false},
	}
	for _, c := range cases {
		if got := r.Overlaps(c.o); got != c.want {
			t.Errorf("%s: Overlaps = %v, want %v", c.name, got, c.want)
		}
		if got := c.o.Overlaps(r); got != c.want {
			t.Errorf("%s (swapped): Overlaps = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRectFromPointsNormalizes(t *testing.T) {
	r := RectFromPoints(Pt{50, 10}, Pt{10, 40})
	if r != R(10, 10, 40, 30) {
		t.Fatalf("unexpected rect: %+v", r)
	}
}

func TestUnionAll(t *testing.T) {
	if _, ok := UnionAll(nil); ok {
		t.Fatalf("expected !ok for empty input")
	}
	b, ok := UnionAll([]Rect{R(0, 0, 10, 10), R(100, 50, 40, 40)})
	if !ok || b != R(0, 0, 140, 90) {
		t.Fatalf("unexpected union: %+v ok=%v", b, ok)
	}
}

func TestRotatedBounds(t *testing.T) {
	r := R(0, 0, 40, 20)
	if got := r.RotatedBounds(0); got != r {
		t.Fatalf("zero rotation changed bounds: %+v", got)
	}
	got := r.RotatedBounds(90)
	if got != R(10, -10, 20, 40) {
		t.Fatalf("unexpected 90deg bounds: %+v", got)
	}
	if got := r.RotatedBounds(180); got != r {
		t.Fatalf("unexpected 180deg bounds: %+v", got)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	cases := map[float64]float64{0: 0, 15: 15, 360: 0, 375: 15, -15: 345, -720: 0, 359.5: 359.5}
	for in, want := range cases {
		if got := NormalizeDegrees(in); got != want {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", in, got, want)
		}
	}
	if got := NormalizeDegrees(math.NaN()); got != 0 {
		t.Errorf("NaN should normalize to 0, got %v", got)
	}
}

func TestSnapPosition(t *testing.T) {
	if got := SnapPosition(Pt{55, 43}, 20); got != (Pt{60, 40}) {
		t.Fatalf("SnapPosition = %+v, want (60,40)", got)
	}
	if got := SnapPosition(Pt{7, -7}, 0); got != (Pt{7, -7}) {
		t.Fatalf("grid 0 must leave point unchanged, got %+v", got)
	}
}

func TestSnapIdempotent(t *testing.T) {
	grids := []float64{1, 5, 10, 20, 25, 40, 7.5}
	pts := []Pt{{0, 0}, {55, 43}, {-13.2, 99.9}, {1e4 + 0.3, -2.5}, {19.999, 10}, {30, 50}}
	for _, g := range grids {
		for _, p := range pts {
			once := SnapPosition(p, g)
			twice := SnapPosition(once, g)
			if once != twice {
				t.Errorf("not idempotent for p=%+v g=%v: %+v vs %+v", p, g, once, twice)
			}
		}
	}
}

func TestGridLines(t *testing.T) {
	xs, ys := GridLines(60, 40, 20)
	if len(xs) != 3 || len(ys) != 2 || xs[2] != 40 || ys[1] != 20 {
		t.Fatalf("unexpected grid lines xs=%v ys=%v", xs, ys)
	}
	if xs, ys := GridLines(60, 40, 0); xs != nil || ys != nil {
		t.Fatalf("expected no lines for grid 0")
	}
}

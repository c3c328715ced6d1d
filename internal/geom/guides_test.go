/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "testing"

func TestAlignmentGuides(t *testing.T) {
	moving := R(100, 40, 40, 40)
	got := AlignmentGuides(moving, []Rect{R(100, 200, 40, 40)}, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 vertical guides, got %+v", got)
	}
	for i, want := range []float64{100, 120, 140} {
		g := got[i]
		if !g.Vertical || g.Pos != want || g.From != 40 || g.To != 240 {
			t.Fatalf("guide %d = %+v, want vertical at %v spanning 40..240", i, g, want)
		}
	}
}

func TestAlignmentGuidesAbuttingAndNone(t *testing.T) {
	if got := AlignmentGuides(R(0, 0, 10, 10), []Rect{R(50, 50, 10, 10)}, 0); len(got) != 0 {
		t.Fatalf("expected no guides, got %+v", got)
	}
	got := AlignmentGuides(R(0, 0, 40, 40), []Rect{R(40, 100, 20, 20)}, 0)
	if len(got) != 1 || !got[0].Vertical || got[0].Pos != 40 {
		t.Fatalf("expected one vertical guide at 40, got %+v", got)
	}
}

func TestAlignmentGuidesMergesAnchors(t *testing.T) {
	got := AlignmentGuides(R(0, 50, 20, 20), []Rect{R(100, 50, 20, 20), R(200, 50, 20, 20)}, 0)
	// top, center and bottom line up with both anchors; each guide spans all three.
	if len(got) != 3 {
		t.Fatalf("expected 3 horizontal guides, got %+v", got)
	}
	for _, g := range got {
		if g.Vertical || g.From != 0 || g.To != 220 {
			t.Fatalf("unexpected guide %+v", g)
		}
	}
}

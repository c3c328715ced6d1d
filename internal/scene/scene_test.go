/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"peplanner/internal/geom"
)

func seqIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
}

func newTestScene() *Scene { return New(DefaultSettings(), seqIDs()) }

func TestAddItemDefaults(t *testing.T) {
	s := newTestScene()
	cone := s.AddItem("cone", geom.Pt{X: 40, Y: 40})
	zone := s.AddItem("zone", geom.Pt{})
	odd := s.AddItem("trampoline", geom.Pt{})
	if cone.Kind != KindIcon || cone.Size != (geom.Size{W: 40, H: 40}) || cone.Text != "cone" {
		t.Fatalf("unexpected cone %+v", cone)
	}
	if zone.Kind != KindZone || zone.Size.W != DefaultZoneWidth {
		t.Fatalf("unexpected zone %+v", zone)
	}
	if odd.Kind != KindIcon || odd.Text != "trampoline" {
		t.Fatalf("unknown types should fall back to an icon labelled with the type, got %+v", odd)
	}
	if cone.ID == zone.ID || zone.ID == odd.ID {
		t.Fatalf("ids must be unique")
	}
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	if err := s.MoveItems([]string{a.ID, "nope"}, geom.Pt{X: 5}); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	if it, _ := s.Item(a.ID); it.Pos != (geom.Pt{}) {
		t.Fatalf("partial move applied: %+v", it.Pos)
	}
	if err := s.RemoveItem("nope"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	if err := s.Ungroup("nope"); !errors.Is(err, ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("scene changed")
	}
}

func TestResizeClampAndKind(t *testing.T) {
	s := newTestScene()
	z := s.AddItem("zone", geom.Pt{})
	c := s.AddItem("cone", geom.Pt{})
	if err := s.ResizeItem(z.ID, geom.Size{W: 5, H: 300}); err != nil {
		t.Fatal(err)
	}
	if it, _ := s.Item(z.ID); it.Size != (geom.Size{W: MinZoneSize, H: 300}) {
		t.Fatalf("expected clamp to min size, got %+v", it.Size)
	}
	if err := s.ResizeItem(c.ID, geom.Size{W: 50, H: 50}); !errors.Is(err, ErrNotResizable) {
		t.Fatalf("expected ErrNotResizable, got %v", err)
	}
	if err := s.UpdateItem(z.ID, ItemPatch{Size: &geom.Size{W: 0, H: 10}}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestRotateNormalizes(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("arrow", geom.Pt{})
	_ = s.RotateItem(a.ID, 350)
	_ = s.RotateItem(a.ID, 15)
	if it, _ := s.Item(a.ID); it.Rotation != 5 {
		t.Fatalf("expected 5, got %v", it.Rotation)
	}
	_ = s.RotateItem(a.ID, -10)
	if it, _ := s.Item(a.ID); it.Rotation != 355 {
		t.Fatalf("expected 355, got %v", it.Rotation)
	}
}

func TestClickSelect(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	b := s.AddItem("ball", geom.Pt{X: 100})
	_ = s.ClickSelect(a.ID, false)
	_ = s.ClickSelect(b.ID, false)
	if sel := s.Selected(); len(sel) != 1 || sel[0] != b.ID {
		t.Fatalf("non-additive click should replace the selection, got %v", sel)
	}
	_ = s.ClickSelect(a.ID, true)
	if len(s.Selected()) != 2 {
		t.Fatalf("additive click should extend the selection")
	}
	_ = s.ClickSelect(a.ID, true)
	if sel := s.Selected(); len(sel) != 1 || sel[0] != b.ID {
		t.Fatalf("additive click on a selected item should toggle it off, got %v", sel)
	}
	_ = s.ClickSelect(b.ID, false)
	if !s.SelectionEmpty() {
		t.Fatalf("click on the only selected item toggles it off")
	}
}

func TestClickSelectTargetsWholeGroup(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	b := s.AddItem("ball", geom.Pt{X: 100})
	c := s.AddItem("hoop", geom.Pt{X: 200})
	if _, err := s.Group([]string{a.ID, b.ID}); err != nil {
		t.Fatal(err)
	}
	_ = s.ClickSelect(b.ID, false)
	if sel := s.Selected(); len(sel) != 2 || sel[0] != a.ID || sel[1] != b.ID {
		t.Fatalf("expected whole group selected, got %v", sel)
	}
	if s.IsSelected(c.ID) {
		t.Fatalf("c should not be selected")
	}
}

func TestMarqueeSelectTouchingCounts(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{X: 0, Y: 0})
	b := s.AddItem("cone", geom.Pt{X: 100, Y: 0})
	s.AddItem("cone", geom.Pt{X: 300, Y: 300})
	got := s.MarqueeSelect(geom.RectFromPoints(geom.Pt{X: 120, Y: 50}, geom.Pt{X: 40, Y: 10}))
	if len(got) != 2 || got[0] != a.ID || got[1] != b.ID {
		t.Fatalf("expected a and b, got %v", got)
	}
	got = s.MarqueeSelect(geom.R(500, 500, 10, 10))
	if len(got) != 0 {
		t.Fatalf("marquee must replace the selection, got %v", got)
	}
}

func TestSelectionRemovalCoupling(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	b := s.AddItem("ball", geom.Pt{})
	s.SelectAll()
	if err := s.RemoveItem(a.ID); err != nil {
		t.Fatal(err)
	}
	if s.IsSelected(a.ID) || s.Has(a.ID) {
		t.Fatalf("removed item must leave scene and selection")
	}
	if sel := s.Selected(); len(sel) != 1 || sel[0] != b.ID {
		t.Fatalf("unexpected selection %v", sel)
	}
}

func TestGroupUngroupRoundTrip(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{X: 10, Y: 20})
	b := s.AddItem("ball", geom.Pt{X: 110, Y: 70})
	g, err := s.Group([]string{a.ID, b.ID})
	if err != nil {
		t.Fatal(err)
	}
	if g.Bounds != geom.R(10, 20, 140, 90) {
		t.Fatalf("unexpected group bounds %+v", g.Bounds)
	}
	if err := s.Ungroup(g.ID); err != nil {
		t.Fatal(err)
	}
	for _, want := range []Item{a, b} {
		got, _ := s.Item(want.ID)
		if got.Pos != want.Pos || got.GroupID != "" {
			t.Fatalf("after ungroup %s: %+v", want.ID, got)
		}
	}
	if len(s.Groups()) != 0 {
		t.Fatalf("group not removed")
	}
}

func TestGroupGuards(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	if _, err := s.Group([]string{a.ID, a.ID}); !errors.Is(err, ErrGroupTooSmall) {
		t.Fatalf("expected ErrGroupTooSmall, got %v", err)
	}
}

func TestGroupDissolutionFloor(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	b := s.AddItem("ball", geom.Pt{X: 50})
	if _, err := s.Group([]string{a.ID, b.ID}); err != nil {
		t.Fatal(err)
	}
	_ = s.RemoveItem(a.ID)
	if len(s.Groups()) != 0 {
		t.Fatalf("group should dissolve below two members")
	}
	if it, _ := s.Item(b.ID); it.GroupID != "" {
		t.Fatalf("remaining member still grouped: %+v", it)
	}
}

func TestRegroupMovesMembers(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	b := s.AddItem("cone", geom.Pt{})
	c := s.AddItem("cone", geom.Pt{})
	_, _ = s.Group([]string{a.ID, b.ID})
	g2, err := s.Group([]string{b.ID, c.ID})
	if err != nil {
		t.Fatal(err)
	}
	if gs := s.Groups(); len(gs) != 1 || gs[0].ID != g2.ID {
		t.Fatalf("old group should dissolve, got %+v", gs)
	}
	if it, _ := s.Item(a.ID); it.GroupID != "" {
		t.Fatalf("a should be ungrouped")
	}
}

func TestMoveUpdatesGroupBounds(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	b := s.AddItem("cone", geom.Pt{X: 60})
	g, _ := s.Group([]string{a.ID, b.ID})
	_ = s.MoveItems(s.ExpandGroups([]string{a.ID}), geom.Pt{X: 10, Y: 10})
	got, _ := s.GroupOf(b.ID)
	if got.ID != g.ID || got.Bounds != geom.R(10, 10, 100, 40) {
		t.Fatalf("unexpected bounds %+v", got.Bounds)
	}
}

func TestAlignLeftScenario(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{X: 0, Y: 0})
	b := s.AddItem("ball", geom.Pt{X: 100, Y: 50})
	s.SetSelection([]string{a.ID, b.ID})
	moved, err := s.Align(AlignLeft)
	if err != nil || !moved {
		t.Fatalf("align: moved=%v err=%v", moved, err)
	}
	ia, _ := s.Item(a.ID)
	ib, _ := s.Item(b.ID)
	if ia.Pos != (geom.Pt{X: 0, Y: 0}) || ib.Pos != (geom.Pt{X: 0, Y: 50}) {
		t.Fatalf("unexpected positions a=%+v b=%+v", ia.Pos, ib.Pos)
	}
}

func TestAlignTreatsGroupAsUnit(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{X: 100, Y: 0})
	b := s.AddItem("cone", geom.Pt{X: 160, Y: 0})
	c := s.AddItem("cone", geom.Pt{X: 0, Y: 200})
	_, _ = s.Group([]string{a.ID, b.ID})
	s.SetSelection([]string{a.ID, c.ID})
	if _, err := s.Align(AlignRight); err != nil {
		t.Fatal(err)
	}
	ia, _ := s.Item(a.ID)
	ib, _ := s.Item(b.ID)
	ic, _ := s.Item(c.ID)
	if ia.Pos.X != 100 || ib.Pos.X != 160 || ic.Pos.X != 160 {
		t.Fatalf("unexpected x: a=%v b=%v c=%v", ia.Pos.X, ib.Pos.X, ic.Pos.X)
	}
}

func TestAlignNeedsTwoUnits(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{})
	b := s.AddItem("cone", geom.Pt{X: 70})
	_, _ = s.Group([]string{a.ID, b.ID})
	s.SetSelection([]string{a.ID, b.ID})
	if _, err := s.Align(AlignTop); !errors.Is(err, ErrAlignTooFew) {
		t.Fatalf("a single group is one unit, expected ErrAlignTooFew, got %v", err)
	}
}

func TestAlignDeltaCenters(t *testing.T) {
	box := geom.R(0, 0, 200, 100)
	if d := AlignDelta(AlignHCenter, box, geom.R(10, 10, 20, 20)); d != (geom.Pt{X: 80}) {
		t.Fatalf("hcenter delta %+v", d)
	}
	if d := AlignDelta(AlignVCenter, box, geom.R(10, 10, 20, 20)); d != (geom.Pt{Y: 30}) {
		t.Fatalf("vcenter delta %+v", d)
	}
	if d := AlignDelta(AlignBottom, box, geom.R(10, 10, 20, 20)); d != (geom.Pt{Y: 70}) {
		t.Fatalf("bottom delta %+v", d)
	}
}

func TestDistribute(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{X: 0})
	b := s.AddItem("cone", geom.Pt{X: 30})
	c := s.AddItem("cone", geom.Pt{X: 200})
	s.SelectAll()
	if _, err := s.Distribute(Horizontal, 0); err != nil {
		t.Fatal(err)
	}
	ib, _ := s.Item(b.ID)
	if ib.Pos.X != 100 {
		t.Fatalf("even spacing: expected b at 100, got %v", ib.Pos.X)
	}
	if _, err := s.Distribute(Horizontal, 50); err != nil {
		t.Fatal(err)
	}
	ia, _ := s.Item(a.ID)
	ib, _ = s.Item(b.ID)
	ic, _ := s.Item(c.ID)
	if ia.Pos.X != 0 || ib.Pos.X != 50 || ic.Pos.X != 100 {
		t.Fatalf("fixed step: got %v %v %v", ia.Pos.X, ib.Pos.X, ic.Pos.X)
	}
}

func TestCloneItems(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{X: 1})
	b := s.AddItem("ball", geom.Pt{X: 2})
	c := s.AddItem("hoop", geom.Pt{X: 3})
	_, _ = s.Group([]string{a.ID, b.ID})
	clones, err := s.CloneItems([]string{a.ID, b.ID, c.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(clones) != 3 || s.Len() != 6 {
		t.Fatalf("expected 3 clones, got %v", clones)
	}
	ca, _ := s.Item(clones[0])
	if ca.Pos != a.Pos || ca.Type != "cone" || ca.ID == a.ID {
		t.Fatalf("bad clone %+v", ca)
	}
	if ca.GroupID == "" || ca.GroupID == a.GroupID {
		t.Fatalf("fully cloned group should be recreated among clones, got %q", ca.GroupID)
	}
	if cc, _ := s.Item(clones[2]); cc.GroupID != "" {
		t.Fatalf("ungrouped source yields ungrouped clone")
	}
	if len(s.Groups()) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(s.Groups()))
	}
}

func TestHitTestTopMost(t *testing.T) {
	s := newTestScene()
	s.AddItem("zone", geom.Pt{})
	top := s.AddItem("cone", geom.Pt{X: 10, Y: 10})
	if it, ok := s.HitTest(geom.Pt{X: 20, Y: 20}); !ok || it.ID != top.ID {
		t.Fatalf("expected top-most cone, got %+v ok=%v", it, ok)
	}
	if _, ok := s.HitTest(geom.Pt{X: 500, Y: 500}); ok {
		t.Fatalf("expected miss")
	}
	if it, ok := s.ResizeHandleAt(geom.Pt{X: 155, Y: 95}); !ok || it.Kind != KindZone {
		t.Fatalf("expected zone handle hit, got %+v ok=%v", it, ok)
	}
}

func TestSnapItems(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{X: 55, Y: 43})
	if !s.SnapItems([]string{a.ID}) {
		t.Fatalf("expected snap to move the item")
	}
	if it, _ := s.Item(a.ID); it.Pos != (geom.Pt{X: 60, Y: 40}) {
		t.Fatalf("unexpected snapped pos %+v", it.Pos)
	}
	st := s.Settings()
	st.SnapEnabled = false
	s.SetSettings(st)
	_ = s.MoveItems([]string{a.ID}, geom.Pt{X: 3})
	if s.SnapItems([]string{a.ID}) {
		t.Fatalf("snap disabled must leave positions alone")
	}
}

func TestReplaceValidates(t *testing.T) {
	s := newTestScene()
	var kinds []ChangeKind
	unsub := s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })
	defer unsub()
	s.Replace(
		[]Item{
			{ID: "a", Type: "cone", Pos: geom.Pt{X: 1}, Rotation: 370},
			{ID: "a", Type: "ball"},
			{ID: "b", Type: "", Size: geom.Size{W: -1, H: 3}},
		},
		[]Group{{ID: "g", Members: []string{"a", "b", "ghost"}}, {ID: "h", Members: []string{"a"}}},
		Settings{GridSize: 0},
		[]string{"a", "ghost"},
	)
	if s.Len() != 2 {
		t.Fatalf("duplicate id should be dropped, got %d items", s.Len())
	}
	a, _ := s.Item("a")
	b, _ := s.Item("b")
	if a.Rotation != 10 || a.GroupID != "g" || b.GroupID != "g" {
		t.Fatalf("unexpected a=%+v b=%+v", a, b)
	}
	if b.Type != UnknownType || b.Size != DefaultSize(KindIcon) {
		t.Fatalf("unexpected b=%+v", b)
	}
	if s.Settings().GridSize != DefaultGridSize {
		t.Fatalf("grid size should default")
	}
	if sel := s.Selected(); len(sel) != 1 || sel[0] != "a" {
		t.Fatalf("selection should be filtered, got %v", sel)
	}
	if len(kinds) != 1 || kinds[0] != ChangeReset {
		t.Fatalf("expected a single reset notification, got %v", kinds)
	}
}

func TestNonFiniteGeometryRejected(t *testing.T) {
	s := newTestScene()
	a := s.AddItem("cone", geom.Pt{X: 40, Y: 40})
	zone := s.AddItem("zone", geom.Pt{X: 100, Y: 100})
	nan := math.NaN()

	if err := s.MoveItems([]string{a.ID, zone.ID}, geom.Pt{X: math.Inf(1)}); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("move by +Inf: got %v", err)
	}
	bad := geom.Pt{X: nan, Y: 0}
	if err := s.UpdateItem(a.ID, ItemPatch{Pos: &bad}); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("update with NaN: got %v", err)
	}
	if err := s.ResizeItem(zone.ID, geom.Size{W: nan, H: 50}); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("resize with NaN: got %v", err)
	}
	if it, _ := s.Item(a.ID); it.Pos != (geom.Pt{X: 40, Y: 40}) {
		t.Fatalf("rejected edits must not move the item, got %+v", it.Pos)
	}
	if it := s.AddItem("ball", geom.Pt{X: nan, Y: nan}); it.Pos != DefaultPos {
		t.Fatalf("non-finite placement should land at the default, got %+v", it.Pos)
	}

	s.Replace([]Item{{ID: "x", Type: "cone", Pos: geom.Pt{X: math.Inf(-1), Y: 3}}}, nil, DefaultSettings(), nil)
	if it, _ := s.Item("x"); it.Pos != DefaultPos {
		t.Fatalf("replace should repair non-finite positions, got %+v", it.Pos)
	}
}

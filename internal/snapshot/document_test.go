/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"errors"
	"testing"

	"peplanner/internal/geom"
	"peplanner/internal/scene"
)

func TestDecodeDefaults(t *testing.T) {
	d, err := Decode([]byte(`{"items":[{"type":"cone"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.GridSize != 20 || !d.SnapEnabled || d.CourtTemplate != "blank" || d.Version != FormatVersion {
		t.Fatalf("unexpected settings %+v", d)
	}
	if len(d.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(d.Items))
	}
	it := d.Items[0]
	if it.ID == "" || it.Left != 40 || it.Top != 40 || it.Width != 40 || it.Text != "cone" {
		t.Fatalf("unexpected item %+v", it)
	}
}

func TestDecodeBrowserPixelStrings(t *testing.T) {
	d, err := Decode([]byte(`{"gridSize":"big","snapEnabled":false,"items":[
		{"id":"a","type":"player","left":"120px","top":"35.5px","rotate":-30,"text":"A"},
		{"id":"b","type":"ball","left":"abc","top":null}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if d.GridSize != 20 || d.SnapEnabled {
		t.Fatalf("unexpected settings %+v", d)
	}
	a, b := d.Items[0], d.Items[1]
	if a.Left != 120 || a.Top != 35.5 || a.Rotate != 330 || a.Text != "A" {
		t.Fatalf("unexpected a %+v", a)
	}
	if b.Left != 40 || b.Top != 40 {
		t.Fatalf("unreadable coordinates should default to 40, got %+v", b)
	}
}

func TestDecodeRejectsNonFiniteCoordinates(t *testing.T) {
	d, err := Decode([]byte(`{"gridSize":"NaN","items":[
		{"id":"a","type":"cone","left":"NaN","top":"inf"},
		{"id":"b","type":"zone","left":"Infinitypx","top":"-Infinity","width":"NaN","rotate":"inf"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if d.GridSize != 20 {
		t.Fatalf("gridSize = %v, want default", d.GridSize)
	}
	for _, it := range d.Items {
		if it.Left != DefaultCoord || it.Top != DefaultCoord {
			t.Fatalf("%s: non-finite coordinates should default, got (%v,%v)", it.ID, it.Left, it.Top)
		}
	}
	if d.Items[1].Width != 160 || d.Items[1].Rotate != 0 {
		t.Fatalf("unexpected zone %+v", d.Items[1])
	}
	if _, err := Encode(d); err != nil {
		t.Fatalf("decoded document must encode: %v", err)
	}
}

func TestUnknownTypeLoads(t *testing.T) {
	d, err := Decode([]byte(`{"items":[{"id":"x","type":"trampoline","left":10,"top":10}]}`))
	if err != nil {
		t.Fatal(err)
	}
	s := scene.New(scene.DefaultSettings())
	d.Restore(s, nil)
	it, ok := s.Item("x")
	if !ok {
		t.Fatalf("unknown type item was dropped")
	}
	if it.Kind != scene.KindIcon || it.Text != "trampoline" || it.Size.W != scene.DefaultIconSize {
		t.Fatalf("unexpected fallback item %+v", it)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, in := range []string{"", "not json", "[1,2]", "null", `"str"`} {
		if _, err := Decode([]byte(in)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q): expected ErrMalformed, got %v", in, err)
		}
	}
}

func TestDecodeDuplicateAndMissingIDs(t *testing.T) {
	d, err := Decode([]byte(`{"items":[{"id":"a","type":"cone"},{"id":"a","type":"ball"},{"type":"hoop"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]bool{}
	for _, it := range d.Items {
		if it.ID == "" || ids[it.ID] {
			t.Fatalf("ids must be unique and non-empty: %+v", d.Items)
		}
		ids[it.ID] = true
	}
	if d.Items[0].ID != "a" {
		t.Fatalf("first occurrence keeps its id")
	}
}

func TestGroupsCleanedAndDerived(t *testing.T) {
	d, err := Decode([]byte(`{"items":[{"id":"a","type":"cone"},{"id":"b","type":"cone"},{"id":"c","type":"cone"}],
		"groups":[{"id":"g1","members":["a","ghost"]},{"id":"g2","members":["b","c","c"]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Groups) != 1 || d.Groups[0].ID != "g2" || len(d.Groups[0].Members) != 2 {
		t.Fatalf("unexpected groups %+v", d.Groups)
	}

	d, err = Decode([]byte(`{"items":[{"id":"a","type":"cone","groupId":"g"},{"id":"b","type":"cone","groupId":"g"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Groups) != 1 || d.Groups[0].ID != "g" {
		t.Fatalf("groups should be derived from item back-references, got %+v", d.Groups)
	}
}

func TestSceneRoundTrip(t *testing.T) {
	s := scene.New(scene.Settings{GridSize: 10, SnapEnabled: false, CourtTemplate: "basketball"})
	a := s.AddItem("zone", geom.Pt{X: 5, Y: 7})
	b := s.AddItem("label", geom.Pt{X: 50, Y: 70})
	_ = s.RotateItem(b.ID, 45)
	if _, err := s.Group([]string{a.ID, b.ID}); err != nil {
		t.Fatal(err)
	}
	meta := Metadata{GameName: "Sharks and Minnows", Notes: "warm-up"}
	data, err := Encode(FromScene(s, meta))
	if err != nil {
		t.Fatal(err)
	}
	d, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if d.Metadata != meta {
		t.Fatalf("metadata lost: %+v", d.Metadata)
	}
	restored := scene.New(scene.DefaultSettings())
	d.Restore(restored, []string{a.ID})
	if restored.Settings() != s.Settings() {
		t.Fatalf("settings lost: %+v", restored.Settings())
	}
	want, got := s.Items(), restored.Items()
	if len(want) != len(got) {
		t.Fatalf("item count %d != %d", len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("item %d differs:\n got %+v\nwant %+v", i, got[i], want[i])
		}
	}
	if sel := restored.Selected(); len(sel) != 1 || sel[0] != a.ID {
		t.Fatalf("selection should restore as given, got %v", sel)
	}
}

func TestEncodedDocumentConformsToSchema(t *testing.T) {
	s := scene.New(scene.DefaultSettings())
	s.AddItem("cone", geom.Pt{X: 1, Y: 2})
	data, err := EncodeIndent(FromScene(s, Metadata{}))
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := Validate(data)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	for _, m := range msgs {
		t.Logf("schema error: %s", m)
	}
	if len(msgs) > 0 {
		t.Fatalf("encoded document does not conform to schema")
	}
}

func TestValidateReportsProblems(t *testing.T) {
	msgs, err := Validate([]byte(`{"gridSize":-5,"items":[{"type":"cone","left":"far"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) == 0 {
		t.Fatalf("expected schema violations")
	}
}

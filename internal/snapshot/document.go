/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snapshot defines the portable layout document used for history entries, autosave,
// layout files and the shared library.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"peplanner/internal/geom"
	"peplanner/internal/scene"
)

// FormatVersion is written into every encoded document.
const FormatVersion = 1

// DefaultCoord is used for a missing or unreadable left/top.
const DefaultCoord = 40.0

// ErrMalformed is returned when a document cannot be read at all.
var ErrMalformed = errors.New("malformed layout document")

// Metadata holds the free-text fields bound to a layout.
type Metadata struct {
	GameName      string `json:"gameName"`
	Objective     string `json:"objective"`
	Notes         string `json:"notes"`
	Equipment     string `json:"equipment"`
	Modifications string `json:"modifications"`
}

// Document is the serialized form of a scene plus its metadata.
type Document struct {
	Version       int     `json:"version"`
	GridSize      float64 `json:"gridSize"`
	SnapEnabled   bool    `json:"snapEnabled"`
	CourtTemplate string  `json:"courtTemplate"`
	Metadata
	Items  []ItemDoc  `json:"items"`
	Groups []GroupDoc `json:"groups"`
}

type ItemDoc struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
	Rotate  float64 `json:"rotate"`
	Text    string  `json:"text,omitempty"`
	GroupID string  `json:"groupId,omitempty"`
}

type GroupDoc struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// Empty returns a document for an empty scene with default settings.
func Empty() Document {
	st := scene.DefaultSettings()
	return Document{
		Version:       FormatVersion,
		GridSize:      st.GridSize,
		SnapEnabled:   st.SnapEnabled,
		CourtTemplate: st.CourtTemplate,
		Items:         []ItemDoc{},
		Groups:        []GroupDoc{},
	}
}

// FromScene captures the scene state and metadata.
func FromScene(s *scene.Scene, meta Metadata) Document {
	st := s.Settings()
	d := Document{
		Version:       FormatVersion,
		GridSize:      st.GridSize,
		SnapEnabled:   st.SnapEnabled,
		CourtTemplate: st.CourtTemplate,
		Metadata:      meta,
		Items:         make([]ItemDoc, 0, s.Len()),
		Groups:        []GroupDoc{},
	}
	for _, it := range s.Items() {
		d.Items = append(d.Items, ItemDoc{
			ID:      it.ID,
			Type:    it.Type,
			Left:    it.Pos.X,
			Top:     it.Pos.Y,
			Width:   it.Size.W,
			Height:  it.Size.H,
			Rotate:  it.Rotation,
			Text:    it.Text,
			GroupID: it.GroupID,
		})
	}
	for _, g := range s.Groups() {
		d.Groups = append(d.Groups, GroupDoc{ID: g.ID, Members: g.Members})
	}
	return d
}

// Settings returns the scene settings stored in d.
func (d Document) Settings() scene.Settings {
	return scene.Settings{GridSize: d.GridSize, SnapEnabled: d.SnapEnabled, CourtTemplate: d.CourtTemplate}
}

// SceneItems converts the stored items and groups to scene values.
func (d Document) SceneItems() ([]scene.Item, []scene.Group) {
	items := make([]scene.Item, 0, len(d.Items))
	for _, in := range d.Items {
		items = append(items, scene.Item{
			ID:       in.ID,
			Type:     in.Type,
			Kind:     scene.KindOf(in.Type),
			Pos:      geom.Pt{X: in.Left, Y: in.Top},
			Size:     geom.Size{W: in.Width, H: in.Height},
			Rotation: in.Rotate,
			Text:     in.Text,
		})
	}
	groups := make([]scene.Group, 0, len(d.Groups))
	for _, g := range d.Groups {
		groups = append(groups, scene.Group{ID: g.ID, Members: append([]string(nil), g.Members...)})
	}
	return items, groups
}

// Restore replaces the scene contents with d. selected is filtered to existing ids.
func (d Document) Restore(s *scene.Scene, selected []string) {
	items, groups := d.SceneItems()
	s.Replace(items, groups, d.Settings(), selected)
}

// Encode returns the compact JSON form used for history and autosave.
func Encode(d Document) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return b, nil
}

// EncodeIndent returns the indented JSON form written to layout files.
func EncodeIndent(d Document) ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return b, nil
}

// Decode reads a layout document. Absent or unreadable fields get their defaults; only
// input that is not a JSON object fails with ErrMalformed.
func Decode(data []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil || raw == nil {
		if err == nil {
			err = errors.New("document is null")
		}
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	d := Empty()
	if v, ok := number(raw["version"]); ok && v >= 1 {
		d.Version = int(v)
	}
	if v, ok := number(raw["gridSize"]); ok && v > 0 {
		d.GridSize = v
	}
	if v, ok := boolean(raw["snapEnabled"]); ok {
		d.SnapEnabled = v
	}
	if v, ok := str(raw["courtTemplate"]); ok && strings.TrimSpace(v) != "" {
		d.CourtTemplate = v
	}
	d.GameName, _ = str(raw["gameName"])
	d.Objective, _ = str(raw["objective"])
	d.Notes, _ = str(raw["notes"])
	d.Equipment, _ = str(raw["equipment"])
	d.Modifications, _ = str(raw["modifications"])

	var rawItems []map[string]json.RawMessage
	_ = json.Unmarshal(raw["items"], &rawItems)
	seen := make(map[string]bool, len(rawItems))
	for _, ri := range rawItems {
		if ri == nil {
			continue
		}
		it := decodeItem(ri)
		if it.ID == "" || seen[it.ID] {
			it.ID = uuid.NewString()
		}
		seen[it.ID] = true
		d.Items = append(d.Items, it)
	}

	if _, present := raw["groups"]; present {
		var rawGroups []map[string]json.RawMessage
		_ = json.Unmarshal(raw["groups"], &rawGroups)
		for _, rg := range rawGroups {
			id, _ := str(rg["id"])
			var members []string
			_ = json.Unmarshal(rg["members"], &members)
			d.Groups = append(d.Groups, GroupDoc{ID: id, Members: members})
		}
	} else {
		d.Groups = groupsFromItems(d.Items)
	}
	d.Groups = cleanGroups(d.Groups, seen)
	return d, nil
}

func decodeItem(ri map[string]json.RawMessage) ItemDoc {
	var it ItemDoc
	it.ID, _ = str(ri["id"])
	it.Type, _ = str(ri["type"])
	it.Type = strings.TrimSpace(it.Type)
	if it.Type == "" {
		it.Type = scene.UnknownType
	}
	it.Left = DefaultCoord
	if v, ok := coord(ri["left"]); ok {
		it.Left = v
	}
	it.Top = DefaultCoord
	if v, ok := coord(ri["top"]); ok {
		it.Top = v
	}
	def := scene.DefaultSize(scene.KindOf(it.Type))
	it.Width, it.Height = def.W, def.H
	if v, ok := number(ri["width"]); ok && v > 0 {
		it.Width = v
	}
	if v, ok := number(ri["height"]); ok && v > 0 {
		it.Height = v
	}
	if v, ok := number(ri["rotate"]); ok {
		it.Rotate = geom.NormalizeDegrees(v)
	}
	if v, ok := str(ri["text"]); ok {
		it.Text = v
	} else {
		it.Text = it.Type
	}
	it.GroupID, _ = str(ri["groupId"])
	return it
}

// groupsFromItems rebuilds groups from per-item back-references when a document has no
// explicit group list.
func groupsFromItems(items []ItemDoc) []GroupDoc {
	var out []GroupDoc
	idx := make(map[string]int)
	for _, it := range items {
		if it.GroupID == "" {
			continue
		}
		i, ok := idx[it.GroupID]
		if !ok {
			i = len(out)
			idx[it.GroupID] = i
			out = append(out, GroupDoc{ID: it.GroupID})
		}
		out[i].Members = append(out[i].Members, it.ID)
	}
	return out
}

// cleanGroups drops unknown or repeated members and groups left with fewer than two.
func cleanGroups(groups []GroupDoc, known map[string]bool) []GroupDoc {
	out := make([]GroupDoc, 0, len(groups))
	taken := make(map[string]bool)
	for _, g := range groups {
		var members []string
		for _, m := range g.Members {
			if known[m] && !taken[m] {
				members = append(members, m)
			}
		}
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			taken[m] = true
		}
		out = append(out, GroupDoc{ID: g.ID, Members: members})
	}
	return out
}

func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || !geom.IsFinite(f) {
		return 0, false
	}
	return f, true
}

// coord accepts a number or a CSS pixel string such as "40px".
func coord(raw json.RawMessage) (float64, bool) {
	if f, ok := number(raw); ok {
		return f, true
	}
	s, ok := str(raw)
	if !ok {
		return 0, false
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !geom.IsFinite(f) {
		return 0, false
	}
	return f, true
}

func str(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func boolean(raw json.RawMessage) (bool, bool) {
	if len(raw) == 0 {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene holds the plain-data model of a court layout: placed items in z-order,
// groups, ambient settings and the transient selection. The model is mutated only through
// Scene methods; renderers observe it through Subscribe and never own its state.
package scene

import (
	"strings"

	"peplanner/internal/geom"
)

// Kind is the behavioral variant of an item.
type Kind string

const (
	KindIcon  Kind = "icon"
	KindZone  Kind = "zone"
	KindLabel Kind = "label"
)

// Default geometry for newly placed items.
const (
	DefaultIconSize   = 40.0
	DefaultZoneWidth  = 160.0
	DefaultZoneHeight = 100.0
	// MinZoneSize is the floor applied while resizing zones.
	MinZoneSize = 20.0
	// HandleSize is the edge length of the square resize handle in a zone's bottom-right corner.
	HandleSize = 12.0
)

// DefaultPos replaces a position that is not a finite point.
var DefaultPos = geom.Pt{X: 40, Y: 40}

// UnknownType is the type recorded for items whose type is missing altogether.
const UnknownType = "unknown"

// palette maps the built-in palette types to their variant. Any other type is an icon.
var palette = map[string]Kind{
	"player":  KindIcon,
	"player2": KindIcon,
	"coach":   KindIcon,
	"cone":    KindIcon,
	"ball":    KindIcon,
	"hoop":    KindIcon,
	"arrow":   KindIcon,
	"zone":    KindZone,
	"label":   KindLabel,
	"text":    KindLabel,
}

// PaletteTypes lists the built-in item types in palette order.
func PaletteTypes() []string {
	return []string{"player", "player2", "coach", "cone", "ball", "hoop", "arrow", "zone", "label"}
}

// KindOf returns the variant for a palette type; unknown types are icons.
func KindOf(typ string) Kind {
	if k, ok := palette[strings.ToLower(strings.TrimSpace(typ))]; ok {
		return k
	}
	return KindIcon
}

// DefaultSize returns the size seeded for a new item of the given kind.
func DefaultSize(k Kind) geom.Size {
	if k == KindZone {
		return geom.Size{W: DefaultZoneWidth, H: DefaultZoneHeight}
	}
	return geom.Size{W: DefaultIconSize, H: DefaultIconSize}
}

// Item is a placed diagram element. Values handed out by Scene are copies.
type Item struct {
	ID       string
	Type     string
	Kind     Kind
	Pos      geom.Pt
	Size     geom.Size
	Rotation float64 // degrees in [0, 360)
	Text     string
	GroupID  string // empty when ungrouped
}

// Rect is the unrotated frame of the item.
func (it Item) Rect() geom.Rect {
	return geom.Rect{X: it.Pos.X, Y: it.Pos.Y, W: it.Size.W, H: it.Size.H}
}

// Bounds is the axis-aligned bounding box of the item including its rotation.
func (it Item) Bounds() geom.Rect { return it.Rect().RotatedBounds(it.Rotation) }

// Resizable reports whether the item can be resized by the user.
func (it Item) Resizable() bool { return it.Kind == KindZone }

// ResizeHandle returns the hit area of the resize handle; ok is false for non-resizable items.
func (it Item) ResizeHandle() (geom.Rect, bool) {
	if !it.Resizable() {
		return geom.Rect{}, false
	}
	r := it.Rect()
	return geom.R(r.Right()-HandleSize, r.Bottom()-HandleSize, HandleSize, HandleSize), true
}

// ItemPatch carries the optional fields of an UpdateItem call. Nil fields are left unchanged.
type ItemPatch struct {
	Pos      *geom.Pt
	Size     *geom.Size
	Rotation *float64
	Text     *string
}

// Group is a set of items moved and aligned as one unit.
type Group struct {
	ID      string
	Members []string // item ids in z-order
	Bounds  geom.Rect
}

// Settings are the ambient, persisted editor settings of a scene.
type Settings struct {
	GridSize      float64
	SnapEnabled   bool
	CourtTemplate string
}

// DefaultGridSize is the grid spacing used when none (or an invalid one) is configured.
const DefaultGridSize = 20.0

// DefaultCourtTemplate is the background used when none is configured.
const DefaultCourtTemplate = "blank"

// DefaultSettings returns the settings of a fresh session.
func DefaultSettings() Settings {
	return Settings{GridSize: DefaultGridSize, SnapEnabled: true, CourtTemplate: DefaultCourtTemplate}
}

// normalized fills invalid fields with defaults.
func (st Settings) normalized() Settings {
	if st.GridSize <= 0 || !geom.IsFinite(st.GridSize) {
		st.GridSize = DefaultGridSize
	}
	if strings.TrimSpace(st.CourtTemplate) == "" {
		st.CourtTemplate = DefaultCourtTemplate
	}
	return st
}

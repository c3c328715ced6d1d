/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"fmt"
	"sort"

	"peplanner/internal/geom"
)

// Edge names an alignment target.
type Edge int

const (
	AlignLeft Edge = iota
	AlignRight
	AlignTop
	AlignBottom
	AlignHCenter
	AlignVCenter
)

var edgeNames = map[Edge]string{
	AlignLeft:    "left",
	AlignRight:   "right",
	AlignTop:     "top",
	AlignBottom:  "bottom",
	AlignHCenter: "hcenter",
	AlignVCenter: "vcenter",
}

func (e Edge) String() string {
	if n, ok := edgeNames[e]; ok {
		return n
	}
	return fmt.Sprintf("edge(%d)", int(e))
}

// Axis selects the distribution direction.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Unit is an alignment participant: a whole group or a single ungrouped item.
type Unit struct {
	IDs    []string
	Bounds geom.Rect
}

// AlignDelta returns the translation that puts unit's edge (or center) on the matching edge
// of box.
func AlignDelta(edge Edge, box, unit geom.Rect) geom.Pt {
	switch edge {
	case AlignLeft:
		return geom.Pt{X: box.X - unit.X}
	case AlignRight:
		return geom.Pt{X: box.Right() - unit.Right()}
	case AlignTop:
		return geom.Pt{Y: box.Y - unit.Y}
	case AlignBottom:
		return geom.Pt{Y: box.Bottom() - unit.Bottom()}
	case AlignHCenter:
		return geom.Pt{X: box.Center().X - unit.Center().X}
	case AlignVCenter:
		return geom.Pt{Y: box.Center().Y - unit.Center().Y}
	}
	return geom.Pt{}
}

// SelectionUnits partitions the selection into units, in z-order of their first member.
// A group touched by the selection participates as a whole.
func (s *Scene) SelectionUnits() []Unit {
	var units []Unit
	seen := make(map[string]bool)
	for _, id := range s.expand(s.Selected()) {
		it := s.index[id]
		if it.GroupID == "" {
			units = append(units, Unit{IDs: []string{id}, Bounds: it.Bounds()})
			continue
		}
		if seen[it.GroupID] {
			continue
		}
		seen[it.GroupID] = true
		g := s.groups[it.GroupID]
		units = append(units, Unit{IDs: append([]string(nil), g.Members...), Bounds: g.Bounds})
	}
	return units
}

// Align moves every selected unit so its edge or center coincides with the corresponding
// edge or center of the selection's overall bounding box. It reports whether anything moved.
func (s *Scene) Align(edge Edge) (bool, error) {
	units := s.SelectionUnits()
	if len(units) < 2 {
		return false, ErrAlignTooFew
	}
	rs := make([]geom.Rect, len(units))
	for i, u := range units {
		rs[i] = u.Bounds
	}
	box, _ := geom.UnionAll(rs)
	return s.applyDeltas(units, func(i int, u Unit) geom.Pt { return AlignDelta(edge, box, u.Bounds) }), nil
}

// Distribute lays the selected units out along axis, sorted by their leading edge and starting
// at the first one. A positive step places consecutive leading edges step apart; step 0 spaces
// them evenly between the first and last unit.
func (s *Scene) Distribute(axis Axis, step float64) (bool, error) {
	units := s.SelectionUnits()
	if len(units) < 2 {
		return false, ErrAlignTooFew
	}
	lead := func(r geom.Rect) float64 {
		if axis == Vertical {
			return r.Y
		}
		return r.X
	}
	sort.SliceStable(units, func(i, j int) bool { return lead(units[i].Bounds) < lead(units[j].Bounds) })
	origin := lead(units[0].Bounds)
	if step <= 0 {
		step = (lead(units[len(units)-1].Bounds) - origin) / float64(len(units)-1)
	}
	return s.applyDeltas(units, func(i int, u Unit) geom.Pt {
		d := origin + float64(i)*step - lead(u.Bounds)
		if axis == Vertical {
			return geom.Pt{Y: d}
		}
		return geom.Pt{X: d}
	}), nil
}

func (s *Scene) applyDeltas(units []Unit, delta func(int, Unit) geom.Pt) bool {
	var moved []string
	for i, u := range units {
		d := delta(i, u)
		if d.IsZero() {
			continue
		}
		for _, id := range u.IDs {
			it := s.index[id]
			it.Pos = it.Pos.Add(d)
		}
		moved = append(moved, u.IDs...)
	}
	if len(moved) == 0 {
		return false
	}
	s.refreshGroups(moved)
	s.notify(ChangeUpdated, moved...)
	return true
}

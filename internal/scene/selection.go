/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "peplanner/internal/geom"

// Selected returns the selected item ids in z-order.
func (s *Scene) Selected() []string { return s.zOrder(s.selected) }

// IsSelected reports whether id is selected.
func (s *Scene) IsSelected(id string) bool { return s.selected[id] }

// SelectionEmpty reports whether nothing is selected.
func (s *Scene) SelectionEmpty() bool { return len(s.selected) == 0 }

// ClickSelect applies click semantics to id. A non-additive click on an unselected target
// clears the selection first; the target is then toggled. When id belongs to a group the
// target is every member of that group.
func (s *Scene) ClickSelect(id string, additive bool) error {
	if !s.Has(id) {
		return unknownItem(id)
	}
	target := s.expand([]string{id})
	allSelected := true
	for _, t := range target {
		if !s.selected[t] {
			allSelected = false
			break
		}
	}
	if !additive && !allSelected {
		s.selected = make(map[string]bool)
	}
	for _, t := range target {
		if allSelected {
			delete(s.selected, t)
		} else {
			s.selected[t] = true
		}
	}
	s.notify(ChangeSelection, target...)
	return nil
}

// ClearSelection empties the selection.
func (s *Scene) ClearSelection() {
	if len(s.selected) == 0 {
		return
	}
	s.selected = make(map[string]bool)
	s.notify(ChangeSelection)
}

// SetSelection replaces the selection. Unknown ids are ignored.
func (s *Scene) SetSelection(ids []string) {
	s.selected = make(map[string]bool, len(ids))
	for _, id := range ids {
		if s.Has(id) {
			s.selected[id] = true
		}
	}
	s.notify(ChangeSelection, s.Selected()...)
}

// SelectAll selects every item.
func (s *Scene) SelectAll() {
	s.selected = make(map[string]bool, len(s.items))
	for _, it := range s.items {
		s.selected[it.ID] = true
	}
	s.notify(ChangeSelection, s.Selected()...)
}

// MarqueeSelect replaces the selection with exactly the items whose bounds overlap rect.
// Touching edges count as overlap.
func (s *Scene) MarqueeSelect(rect geom.Rect) []string {
	s.selected = make(map[string]bool)
	for _, it := range s.items {
		if it.Bounds().Overlaps(rect) {
			s.selected[it.ID] = true
		}
	}
	ids := s.Selected()
	s.notify(ChangeSelection, ids...)
	return ids
}

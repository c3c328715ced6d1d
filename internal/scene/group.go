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

	"peplanner/internal/geom"
)

// Groups returns copies of all groups in creation order.
func (s *Scene) Groups() []Group {
	out := make([]Group, 0, len(s.groupOrder))
	for _, gid := range s.groupOrder {
		g := s.groups[gid]
		out = append(out, Group{ID: g.ID, Members: append([]string(nil), g.Members...), Bounds: g.Bounds})
	}
	return out
}

// GroupOf returns the group containing item id.
func (s *Scene) GroupOf(id string) (Group, bool) {
	it, ok := s.index[id]
	if !ok || it.GroupID == "" {
		return Group{}, false
	}
	g := s.groups[it.GroupID]
	return Group{ID: g.ID, Members: append([]string(nil), g.Members...), Bounds: g.Bounds}, true
}

// Group creates a group from at least two distinct existing items. Members of other groups
// are moved out of them first; a group left with fewer than two members dissolves.
func (s *Scene) Group(ids []string) (Group, error) {
	if err := s.checkIDs(ids); err != nil {
		return Group{}, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	if len(set) < 2 {
		return Group{}, ErrGroupTooSmall
	}
	members := s.zOrder(set)
	for _, id := range members {
		if gid := s.index[id].GroupID; gid != "" {
			s.dropMember(gid, id)
		}
	}
	gid := s.newID()
	s.addGroup(gid, members)
	s.notify(ChangeGroups, members...)
	g := s.groups[gid]
	return Group{ID: g.ID, Members: append([]string(nil), g.Members...), Bounds: g.Bounds}, nil
}

// Ungroup dissolves a group. Members keep their absolute positions.
func (s *Scene) Ungroup(groupID string) error {
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	members := g.Members
	s.dissolve(groupID)
	s.notify(ChangeGroups, members...)
	return nil
}

// ExpandGroups returns ids plus every member of any group they touch, in z-order.
func (s *Scene) ExpandGroups(ids []string) []string { return s.expand(ids) }

func (s *Scene) expand(ids []string) []string {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		it, ok := s.index[id]
		if !ok {
			continue
		}
		set[id] = true
		if it.GroupID != "" {
			for _, m := range s.groups[it.GroupID].Members {
				set[m] = true
			}
		}
	}
	return s.zOrder(set)
}

func (s *Scene) addGroup(gid string, members []string) {
	g := &Group{ID: gid, Members: members}
	for _, m := range members {
		s.index[m].GroupID = gid
	}
	s.groups[gid] = g
	s.groupOrder = append(s.groupOrder, gid)
	s.refreshBounds(g)
}

func (s *Scene) dissolve(gid string) {
	g := s.groups[gid]
	for _, m := range g.Members {
		if it, ok := s.index[m]; ok {
			it.GroupID = ""
		}
	}
	delete(s.groups, gid)
	for i, id := range s.groupOrder {
		if id == gid {
			s.groupOrder = append(s.groupOrder[:i], s.groupOrder[i+1:]...)
			break
		}
	}
}

// dropMember removes id from group gid and dissolves the group below two members.
func (s *Scene) dropMember(gid, id string) {
	g, ok := s.groups[gid]
	if !ok {
		return
	}
	if it, ok := s.index[id]; ok {
		it.GroupID = ""
	}
	kept := g.Members[:0]
	for _, m := range g.Members {
		if m != id {
			kept = append(kept, m)
		}
	}
	g.Members = kept
	if len(g.Members) < 2 {
		s.dissolve(gid)
		return
	}
	s.refreshBounds(g)
}

func (s *Scene) refreshBounds(g *Group) {
	rs := make([]geom.Rect, 0, len(g.Members))
	for _, m := range g.Members {
		if it, ok := s.index[m]; ok {
			rs = append(rs, it.Bounds())
		}
	}
	g.Bounds, _ = geom.UnionAll(rs)
}

func (s *Scene) refreshGroupOf(it *Item) {
	if it.GroupID == "" {
		return
	}
	if g, ok := s.groups[it.GroupID]; ok {
		s.refreshBounds(g)
	}
}

func (s *Scene) refreshGroups(ids []string) {
	done := make(map[string]bool)
	for _, id := range ids {
		it := s.index[id]
		if it == nil || it.GroupID == "" || done[it.GroupID] {
			continue
		}
		done[it.GroupID] = true
		s.refreshBounds(s.groups[it.GroupID])
	}
}

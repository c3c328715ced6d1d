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
	"strings"

	"github.com/google/uuid"

	"peplanner/internal/geom"
)

// ChangeKind classifies a model notification.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeUpdated
	ChangeSelection
	ChangeGroups
	ChangeSettings
	// ChangeReset means the whole scene was replaced; observers must rebuild their views.
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeUpdated:
		return "updated"
	case ChangeSelection:
		return "selection"
	case ChangeGroups:
		return "groups"
	case ChangeSettings:
		return "settings"
	case ChangeReset:
		return "reset"
	default:
		return fmt.Sprintf("change(%d)", int(k))
	}
}

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind ChangeKind
	IDs  []string
}

// Option configures a Scene.
type Option func(*Scene)

// WithIDGenerator replaces the UUID generator, e.g. for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scene) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Scene is the ordered collection of items plus groups, settings and selection.
// It is not safe for concurrent use; drive it from the UI goroutine.
type Scene struct {
	items      []*Item // z-order, later is on top
	index      map[string]*Item
	groups     map[string]*Group
	groupOrder []string
	selected   map[string]bool
	settings   Settings

	listeners map[int]func(Change)
	nextSub   int
	newID     func() string
}

// New creates an empty scene.
func New(settings Settings, opts ...Option) *Scene {
	s := &Scene{
		index:     make(map[string]*Item),
		groups:    make(map[string]*Group),
		selected:  make(map[string]bool),
		settings:  settings.normalized(),
		listeners: make(map[int]func(Change)),
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers fn for change notifications and returns a function that removes it.
func (s *Scene) Subscribe(fn func(Change)) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

func (s *Scene) notify(kind ChangeKind, ids ...string) {
	if len(s.listeners) == 0 {
		return
	}
	c := Change{Kind: kind, IDs: ids}
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.listeners[i]; ok {
			fn(c)
		}
	}
}

// Settings returns the ambient settings.
func (s *Scene) Settings() Settings { return s.settings }

// SetSettings replaces the ambient settings; invalid values fall back to defaults.
func (s *Scene) SetSettings(st Settings) {
	s.settings = st.normalized()
	s.notify(ChangeSettings)
}

// Len returns the number of items.
func (s *Scene) Len() int { return len(s.items) }

// Items returns copies of all items in z-order.
func (s *Scene) Items() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

// Item returns a copy of the item with the given id.
func (s *Scene) Item(id string) (Item, bool) {
	it, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Has reports whether the item exists.
func (s *Scene) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func unknownItem(id string) error { return fmt.Errorf("%w: %s", ErrUnknownItem, id) }

// AddItem places a new item of the given palette type with its top-left corner at pos.
// Zones are seeded with the default zone size; every other kind gets the fixed icon size.
func (s *Scene) AddItem(typ string, pos geom.Pt) Item {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		typ = UnknownType
	}
	if !pos.Finite() {
		pos = DefaultPos
	}
	k := KindOf(typ)
	it := &Item{
		ID:   s.newID(),
		Type: typ,
		Kind: k,
		Pos:  pos,
		Size: DefaultSize(k),
		Text: typ,
	}
	s.insert(it)
	s.notify(ChangeAdded, it.ID)
	return *it
}

func (s *Scene) insert(it *Item) {
	s.items = append(s.items, it)
	s.index[it.ID] = it
}

// RemoveItem deletes an item, drops it from the selection and from its group.
// A group left with fewer than 2 members is dissolved.
func (s *Scene) RemoveItem(id string) error {
	return s.RemoveItems([]string{id})
}

// RemoveItems deletes several items at once. Unknown ids make the whole call a no-op.
func (s *Scene) RemoveItems(ids []string) error {
	if err := s.checkIDs(ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	touchedGroups := false
	kept := s.items[:0]
	for _, it := range s.items {
		if !drop[it.ID] {
			kept = append(kept, it)
			continue
		}
		delete(s.index, it.ID)
		delete(s.selected, it.ID)
		if it.GroupID != "" {
			s.dropMember(it.GroupID, it.ID)
			touchedGroups = true
		}
	}
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = nil
	}
	s.items = kept
	s.notify(ChangeRemoved, ids...)
	if touchedGroups {
		s.notify(ChangeGroups)
	}
	return nil
}

// UpdateItem applies a partial update to one item.
func (s *Scene) UpdateItem(id string, p ItemPatch) error {
	it, ok := s.index[id]
	if !ok {
		return unknownItem(id)
	}
	if p.Size != nil && (p.Size.W <= 0 || p.Size.H <= 0) {
		return ErrInvalidSize
	}
	if (p.Pos != nil && !p.Pos.Finite()) ||
		(p.Size != nil && !(geom.Pt{X: p.Size.W, Y: p.Size.H}).Finite()) ||
		(p.Rotation != nil && !geom.IsFinite(*p.Rotation)) {
		return ErrNonFinite
	}
	if p.Pos != nil {
		it.Pos = *p.Pos
	}
	if p.Size != nil {
		it.Size = *p.Size
	}
	if p.Rotation != nil {
		it.Rotation = geom.NormalizeDegrees(*p.Rotation)
	}
	if p.Text != nil {
		it.Text = *p.Text
	}
	s.refreshGroupOf(it)
	s.notify(ChangeUpdated, id)
	return nil
}

// MoveItems translates every listed item by delta. All ids are validated first; an unknown id
// leaves the scene untouched.
func (s *Scene) MoveItems(ids []string, delta geom.Pt) error {
	if err := s.checkIDs(ids); err != nil {
		return err
	}
	if len(ids) == 0 || delta.IsZero() {
		return nil
	}
	for _, id := range ids {
		if !s.index[id].Pos.Add(delta).Finite() {
			return ErrNonFinite
		}
	}
	for _, id := range ids {
		it := s.index[id]
		it.Pos = it.Pos.Add(delta)
	}
	s.refreshGroups(ids)
	s.notify(ChangeUpdated, ids...)
	return nil
}

// ResizeItem sets the size of a zone. Dimensions below MinZoneSize are clamped.
func (s *Scene) ResizeItem(id string, size geom.Size) error {
	it, ok := s.index[id]
	if !ok {
		return unknownItem(id)
	}
	if !it.Resizable() {
		return ErrNotResizable
	}
	if !(geom.Pt{X: size.W, Y: size.H}).Finite() {
		return ErrNonFinite
	}
	it.Size = geom.Size{W: max(MinZoneSize, size.W), H: max(MinZoneSize, size.H)}
	s.refreshGroupOf(it)
	s.notify(ChangeUpdated, id)
	return nil
}

// RotateItem adds deltaDeg to the item's rotation, normalized to [0, 360).
func (s *Scene) RotateItem(id string, deltaDeg float64) error {
	it, ok := s.index[id]
	if !ok {
		return unknownItem(id)
	}
	it.Rotation = geom.NormalizeDegrees(it.Rotation + deltaDeg)
	s.refreshGroupOf(it)
	s.notify(ChangeUpdated, id)
	return nil
}

// SnapItems snaps the positions of the listed items to the grid when snapping is enabled.
// It reports whether any position changed.
func (s *Scene) SnapItems(ids []string) bool {
	if !s.settings.SnapEnabled {
		return false
	}
	var changed []string
	for _, id := range ids {
		it, ok := s.index[id]
		if !ok {
			continue
		}
		p := geom.SnapPosition(it.Pos, s.settings.GridSize)
		if p != it.Pos {
			it.Pos = p
			changed = append(changed, id)
		}
	}
	if len(changed) == 0 {
		return false
	}
	s.refreshGroups(changed)
	s.notify(ChangeUpdated, changed...)
	return true
}

// CloneItems copies the listed items with fresh ids and appends them on top, preserving their
// relative z-order. Groups whose members are all cloned are recreated among the clones.
// It returns the clone ids in z-order.
func (s *Scene) CloneItems(ids []string) ([]string, error) {
	if err := s.checkIDs(ids); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	mapping := make(map[string]string, len(ids))
	var out []string
	var sources []*Item
	for _, it := range s.items {
		if want[it.ID] {
			sources = append(sources, it)
		}
	}
	for _, src := range sources {
		c := *src
		c.ID = s.newID()
		c.GroupID = ""
		s.insert(&c)
		mapping[src.ID] = c.ID
		out = append(out, c.ID)
	}
	if len(out) > 0 {
		s.notify(ChangeAdded, out...)
	}
	for _, gid := range append([]string(nil), s.groupOrder...) {
		g := s.groups[gid]
		members := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			if cid, ok := mapping[m]; ok {
				members = append(members, cid)
			}
		}
		if len(members) == len(g.Members) {
			_, _ = s.Group(members)
		}
	}
	return out, nil
}

// Clear removes every item and group and empties the selection. Settings are kept.
func (s *Scene) Clear() {
	s.items = nil
	s.index = make(map[string]*Item)
	s.groups = make(map[string]*Group)
	s.groupOrder = nil
	s.selected = make(map[string]bool)
	s.notify(ChangeReset)
}

// HitTest returns the top-most item whose bounds contain p.
func (s *Scene) HitTest(p geom.Pt) (Item, bool) {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].Bounds().Contains(p) {
			return *s.items[i], true
		}
	}
	return Item{}, false
}

// ResizeHandleAt returns the top-most zone whose resize handle contains p.
func (s *Scene) ResizeHandleAt(p geom.Pt) (Item, bool) {
	for i := len(s.items) - 1; i >= 0; i-- {
		if h, ok := s.items[i].ResizeHandle(); ok && h.Contains(p) {
			return *s.items[i], true
		}
	}
	return Item{}, false
}

// Replace swaps in a whole new state, as used by undo/redo and document loading.
// Duplicate ids are dropped (first wins), rotations normalized, non-positive sizes reset to
// kind defaults, and groups re-validated against the invariants; group membership in the
// given groups is authoritative over Item.GroupID.
func (s *Scene) Replace(items []Item, groups []Group, st Settings, selected []string) {
	s.items = make([]*Item, 0, len(items))
	s.index = make(map[string]*Item, len(items))
	for _, in := range items {
		if in.ID == "" {
			in.ID = s.newID()
		}
		if _, dup := s.index[in.ID]; dup {
			continue
		}
		it := in
		if strings.TrimSpace(it.Type) == "" {
			it.Type = UnknownType
		}
		it.Kind = KindOf(it.Type)
		if !it.Pos.Finite() {
			it.Pos = DefaultPos
		}
		if it.Size.W <= 0 || it.Size.H <= 0 || !(geom.Pt{X: it.Size.W, Y: it.Size.H}).Finite() {
			it.Size = DefaultSize(it.Kind)
		}
		it.Rotation = geom.NormalizeDegrees(it.Rotation)
		it.GroupID = ""
		s.insert(&it)
	}
	s.groups = make(map[string]*Group)
	s.groupOrder = nil
	for _, g := range groups {
		var members []string
		seen := make(map[string]bool)
		for _, m := range g.Members {
			it, ok := s.index[m]
			if !ok || seen[m] || it.GroupID != "" {
				continue
			}
			seen[m] = true
			members = append(members, m)
		}
		if len(members) < 2 {
			continue
		}
		gid := g.ID
		if gid == "" || s.groups[gid] != nil {
			gid = s.newID()
		}
		s.addGroup(gid, members)
	}
	s.settings = st.normalized()
	s.selected = make(map[string]bool)
	for _, id := range selected {
		if s.Has(id) {
			s.selected[id] = true
		}
	}
	s.notify(ChangeReset)
}

func (s *Scene) checkIDs(ids []string) error {
	for _, id := range ids {
		if _, ok := s.index[id]; !ok {
			return unknownItem(id)
		}
	}
	return nil
}

// zOrder sorts ids by their position in the item list, dropping unknown ids and duplicates.
func (s *Scene) zOrder(ids map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, it := range s.items {
		if ids[it.ID] {
			out = append(out, it.ID)
		}
	}
	return out
}

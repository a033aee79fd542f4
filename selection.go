package main

import "sort"

// selectionState is the bulk-selection controller: the set of selected
// product ids plus the anchor used for shift-range selection. Ids are
// not re-validated when the filtered order changes; a hidden id stays
// selected and bulk actions still apply to it.
type selectionState struct {
	selected     map[string]struct{}
	lastSelected string
}

func newSelectionState() *selectionState {
	return &selectionState{selected: make(map[string]struct{})}
}

// Toggle flips membership of id, or, when shift is held and the anchor
// is usable, selects the whole contiguous range between anchor and id
// in the given filtered order (inclusive, additive). The anchor moves
// to id on every call regardless of branch.
func (s *selectionState) Toggle(id string, shift bool, order []string) {
	defer func() { s.lastSelected = id }()

	if shift && s.lastSelected != "" {
		anchorPos := indexOf(order, s.lastSelected)
		targetPos := indexOf(order, id)
		if anchorPos >= 0 && targetPos >= 0 {
			if anchorPos > targetPos {
				anchorPos, targetPos = targetPos, anchorPos
			}
			for i := anchorPos; i <= targetPos; i++ {
				s.selected[order[i]] = struct{}{}
			}
			return
		}
	}

	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
}

func (s *selectionState) SelectAll(order []string) {
	for _, id := range order {
		s.selected[id] = struct{}{}
	}
}

func (s *selectionState) Clear() {
	s.selected = make(map[string]struct{})
	s.lastSelected = ""
}

func (s *selectionState) Has(id string) bool {
	_, ok := s.selected[id]
	return ok
}

func (s *selectionState) Count() int {
	return len(s.selected)
}

// IDs returns the selected ids, visible ones first in filtered order,
// then any selected-but-hidden ids in a stable order.
func (s *selectionState) IDs(order []string) []string {
	ids := make([]string, 0, len(s.selected))
	seen := make(map[string]struct{}, len(s.selected))
	for _, id := range order {
		if _, ok := s.selected[id]; ok {
			ids = append(ids, id)
			seen[id] = struct{}{}
		}
	}
	var hidden []string
	for id := range s.selected {
		if _, ok := seen[id]; !ok {
			hidden = append(hidden, id)
		}
	}
	sort.Strings(hidden)
	return append(ids, hidden...)
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

package reorder

import (
	"cmp"
	"slices"
	"strings"

	"github.com/hylla/dragboard/internal/domain"
)

// Selection is the multi-select set of task ids that move together when one of them is dragged.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns a selection seeded with ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: map[string]struct{}{}}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// IsSelected reports whether id is part of the selection.
func (s *Selection) IsSelected(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[strings.TrimSpace(id)]
	return ok
}

// Add selects id.
func (s *Selection) Add(id string) {
	id = strings.TrimSpace(id)
	if s == nil || id == "" {
		return
	}
	if s.ids == nil {
		s.ids = map[string]struct{}{}
	}
	s.ids[id] = struct{}{}
}

// Remove deselects id.
func (s *Selection) Remove(id string) {
	if s == nil {
		return
	}
	delete(s.ids, strings.TrimSpace(id))
}

// Toggle flips membership of id and reports whether it is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if s.IsSelected(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return s.IsSelected(id)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	if s == nil {
		return
	}
	clear(s.ids)
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the selected ids sorted lexically.
func (s *Selection) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Retain drops selected ids that are absent from tasks.
func (s *Selection) Retain(tasks []domain.Task) {
	if s == nil {
		return
	}
	present := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		present[task.ID] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := present[id]; !ok {
			delete(s.ids, id)
		}
	}
}

// IDsOrderedBy returns the selected ids present in tasks, sorted by order key.
// Equal keys across columns resolve left column first, then by id.
func (s *Selection) IDsOrderedBy(tasks []domain.Task) []string {
	if s.Len() == 0 {
		return nil
	}
	selected := make([]domain.Task, 0, s.Len())
	for _, task := range tasks {
		if s.IsSelected(task.ID) {
			selected = append(selected, task)
		}
	}
	slices.SortStableFunc(selected, func(a, b domain.Task) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Status.Index(), b.Status.Index()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	out := make([]string, 0, len(selected))
	for _, task := range selected {
		out = append(out, task.ID)
	}
	return out
}

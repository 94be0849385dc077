package listsync

// Selection tracks the active record shown in the detail panel and, in
// edit mode, the set of records picked for a bulk action. The selected set
// is always empty outside edit mode.
type Selection struct {
	active   string
	editMode bool
	selected map[string]struct{}
	order    []string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{selected: map[string]struct{}{}}
}

// Active returns the active id, or "" when nothing is open.
func (s *Selection) Active() string {
	return s.active
}

// Select makes id the active record.
func (s *Selection) Select(id string) {
	s.active = id
}

// Close clears the active record.
func (s *Selection) Close() {
	s.active = ""
}

// EditMode reports whether bulk selection is on.
func (s *Selection) EditMode() bool {
	return s.editMode
}

// ToggleEditMode flips bulk selection. Leaving edit mode drops every
// selected id; the active id is left alone.
func (s *Selection) ToggleEditMode() {
	s.editMode = !s.editMode
	if !s.editMode {
		s.clearSelected()
	}
}

// Toggle adds or removes id from the bulk set. Outside edit mode it does
// nothing.
func (s *Selection) Toggle(id string) {
	if !s.editMode || id == "" {
		return
	}
	if _, ok := s.selected[id]; ok {
		s.unselect(id)
		return
	}
	s.selected[id] = struct{}{}
	s.order = append(s.order, id)
}

// ToggleAll selects every visible id, or clears them when all of them are
// already selected. Ids outside visible are untouched.
func (s *Selection) ToggleAll(visible []string) {
	if !s.editMode || len(visible) == 0 {
		return
	}
	all := true
	for _, id := range visible {
		if _, ok := s.selected[id]; !ok {
			all = false
			break
		}
	}
	for _, id := range visible {
		_, ok := s.selected[id]
		switch {
		case all:
			s.unselect(id)
		case !ok:
			s.selected[id] = struct{}{}
			s.order = append(s.order, id)
		}
	}
}

// IsSelected reports whether id is in the bulk set.
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// Count returns the size of the bulk set.
func (s *Selection) Count() int {
	return len(s.selected)
}

// Selected returns the bulk set in the order ids were picked.
func (s *Selection) Selected() []string {
	return append([]string(nil), s.order...)
}

// Clear empties the bulk set. Edit mode stays on.
func (s *Selection) Clear() {
	s.clearSelected()
}

// Forget removes every reference to id. It reports whether id was active.
func (s *Selection) Forget(id string) bool {
	s.unselect(id)
	if s.active == id {
		s.active = ""
		return true
	}
	return false
}

// Reconcile drops references to ids missing from existing. It reports
// whether the active id was dropped.
func (s *Selection) Reconcile(existing []string) bool {
	present := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		present[id] = struct{}{}
	}
	for _, id := range s.Selected() {
		if _, ok := present[id]; !ok {
			s.unselect(id)
		}
	}
	if s.active == "" {
		return false
	}
	if _, ok := present[s.active]; !ok {
		s.active = ""
		return true
	}
	return false
}

func (s *Selection) unselect(id string) {
	if _, ok := s.selected[id]; !ok {
		return
	}
	delete(s.selected, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Selection) clearSelected() {
	s.selected = map[string]struct{}{}
	s.order = nil
}

package store

import "strings"

// Selectable wraps a store entry with the selection flag a pane maintains
// for it. Selection lives in the view, not the store, so two panes over the
// same data keep independent selections.
type Selectable[T Keyed] struct {
	Item     T
	Selected bool
}

// View is a filtered, selectable projection of a store's change stream. It
// keeps its own rows keyed by identity and recomputes the visible subset
// whenever the rows or the filter change. Feed it with Apply from the same
// Update step that mutated the store: selection and visibility reads are
// always consistent with the last change applied, never eventually.
type View[T Keyed] struct {
	text    func(T) string
	rows    []Selectable[T]
	index   map[string]int
	filter  string
	visible []int
}

// NewView returns an empty view. text extracts the free-text searched by
// SetFilter; a nil text disables filtering.
func NewView[T Keyed](text func(T) string) *View[T] {
	return &View[T]{
		text:  text,
		index: make(map[string]int),
	}
}

// Load replaces all rows with items, dropping any selection.
func (v *View[T]) Load(items []T) {
	v.rows = make([]Selectable[T], 0, len(items))
	v.index = make(map[string]int, len(items))
	for _, item := range items {
		id := item.Identity()
		if at, dup := v.index[id]; dup {
			v.rows[at].Item = item
			continue
		}
		v.index[id] = len(v.rows)
		v.rows = append(v.rows, Selectable[T]{Item: item})
	}
	v.recompute()
}

// Apply folds one store change into the rows. Updates keep the row's
// selection flag; removals drop it with the row.
func (v *View[T]) Apply(c Change[T]) {
	v.apply(c)
	v.recompute()
}

// ApplyAll folds a batch of changes, recomputing visibility once.
func (v *View[T]) ApplyAll(changes []Change[T]) {
	for _, c := range changes {
		v.apply(c)
	}
	v.recompute()
}

func (v *View[T]) apply(c Change[T]) {
	switch c.Type {
	case ChangeAdded:
		if at, dup := v.index[c.Identity]; dup {
			v.rows[at].Item = c.Item
			break
		}
		v.index[c.Identity] = len(v.rows)
		v.rows = append(v.rows, Selectable[T]{Item: c.Item})
	case ChangeUpdated:
		at, ok := v.index[c.Identity]
		if !ok {
			v.index[c.Identity] = len(v.rows)
			v.rows = append(v.rows, Selectable[T]{Item: c.Item})
			break
		}
		v.rows[at].Item = c.Item
	case ChangeRemoved:
		at, ok := v.index[c.Identity]
		if !ok {
			break
		}
		v.rows = append(v.rows[:at], v.rows[at+1:]...)
		delete(v.index, c.Identity)
		for i := at; i < len(v.rows); i++ {
			v.index[v.rows[i].Item.Identity()] = i
		}
	}
}

// SetFilter installs a case-insensitive free-text filter over the view's
// text func. An empty query shows every row.
func (v *View[T]) SetFilter(query string) {
	v.filter = query
	v.recompute()
}

// Filter returns the current filter query.
func (v *View[T]) Filter() string {
	return v.filter
}

// Len returns the total row count, ignoring the filter.
func (v *View[T]) Len() int {
	return len(v.rows)
}

// VisibleLen returns the number of rows matching the filter.
func (v *View[T]) VisibleLen() int {
	return len(v.visible)
}

// Visible returns the filtered rows in view order.
func (v *View[T]) Visible() []Selectable[T] {
	out := make([]Selectable[T], 0, len(v.visible))
	for _, at := range v.visible {
		out = append(out, v.rows[at])
	}
	return out
}

// At returns the row at the given position among visible rows.
func (v *View[T]) At(visibleIndex int) (Selectable[T], bool) {
	if visibleIndex < 0 || visibleIndex >= len(v.visible) {
		var zero Selectable[T]
		return zero, false
	}
	return v.rows[v.visible[visibleIndex]], true
}

// Toggle flips the selection flag on the row with the given identity.
func (v *View[T]) Toggle(identity string) bool {
	at, ok := v.index[identity]
	if !ok {
		return false
	}
	v.rows[at].Selected = !v.rows[at].Selected
	return true
}

// SetSelected sets the selection flag on the row with the given identity.
func (v *View[T]) SetSelected(identity string, selected bool) bool {
	at, ok := v.index[identity]
	if !ok {
		return false
	}
	v.rows[at].Selected = selected
	return true
}

// ClearSelection deselects every row.
func (v *View[T]) ClearSelection() {
	for i := range v.rows {
		v.rows[i].Selected = false
	}
}

// SelectedItems returns the selected entries in view order. It reads the
// flags directly, so a selection made a moment ago in the same Update step
// is already included.
func (v *View[T]) SelectedItems() []T {
	var out []T
	for _, row := range v.rows {
		if row.Selected {
			out = append(out, row.Item)
		}
	}
	return out
}

// SelectedCount returns the number of selected rows.
func (v *View[T]) SelectedCount() int {
	n := 0
	for _, row := range v.rows {
		if row.Selected {
			n++
		}
	}
	return n
}

func (v *View[T]) recompute() {
	v.visible = v.visible[:0]
	query := strings.ToLower(strings.TrimSpace(v.filter))
	for i, row := range v.rows {
		if query == "" || v.text == nil || strings.Contains(strings.ToLower(v.text(row.Item)), query) {
			v.visible = append(v.visible, i)
		}
	}
}

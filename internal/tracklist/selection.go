package tracklist

import (
	"slices"
)

// ClickKind is the mouse button of a click.
type ClickKind int

const (
	// Primary is the main button
	Primary ClickKind = iota

	// Secondary opens the context menu
	Secondary
)

// Modifier is the keyboard modifier held during a click.
type Modifier int

// Click modifiers.
const (
	NoModifier Modifier = iota
	Ctrl                // Ctrl, or Cmd on macOS
	Shift
	Alt
)

// ClickEvent is a click on the row at Index holding ID.
type ClickEvent struct {
	Kind     ClickKind
	Modifier Modifier
	ID       string
	Index    int
}

// HandleClick applies a click to the selection.
//
//   - plain: select only the row and anchor on it
//   - ctrl: toggle the row, keep the anchor, keep the selection in list order
//   - shift: extend the selected block from its far edge to the row
//   - secondary: select the row unless it is already selected
//
// Alt clicks and clicks outside ids leave the state unchanged.
func (w Window) HandleClick(ids []string, st State, ev ClickEvent) State {
	if ev.Index < 0 || ev.Index >= len(ids) || ids[ev.Index] != ev.ID {
		return st
	}

	if ev.Kind == Secondary {
		if st.IsSelected(ev.ID) {
			return st
		}
		return selectOne(st, ev.ID, ev.Index)
	}

	switch ev.Modifier {
	case Ctrl:
		return toggle(ids, st, ev.ID)
	case Shift:
		return extend(ids, st, ev.Index)
	case Alt:
		return st
	default:
		return selectOne(st, ev.ID, ev.Index)
	}
}

func selectOne(st State, id string, index int) State {
	next := st.Clone()
	next.Selected = []string{id}
	next.Anchor = index
	return next
}

func toggle(ids []string, st State, id string) State {
	next := st.Clone()
	if i := slices.Index(next.Selected, id); i >= 0 {
		next.Selected = slices.Delete(next.Selected, i, i+1)
	} else {
		next.Selected = append(next.Selected, id)
	}
	next.Selected = inListOrder(ids, next.Selected)
	return next
}

// extend selects from the far edge of the current block to index.
// A click inside the block selects from its top edge to index.
func extend(ids []string, st State, index int) State {
	lo, hi, ok := bounds(ids, st.Selected)
	if !ok {
		return selectOne(st, ids[index], index)
	}

	from, to := lo, index
	switch {
	case index < lo:
		from, to = index, hi
	case index > hi:
		from, to = lo, index
	}

	next := st.Clone()
	next.Selected = slices.Clone(ids[from : to+1])
	return next
}

// bounds returns the lowest and highest list indices of the selected ids.
func bounds(ids, selected []string) (lo, hi int, ok bool) {
	lo, hi = -1, -1
	for _, i := range indices(ids, selected) {
		if lo < 0 || i < lo {
			lo = i
		}
		if i > hi {
			hi = i
		}
	}
	return lo, hi, lo >= 0
}

// indices maps selected ids to their positions in ids, skipping ids not listed.
func indices(ids, selected []string) []int {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := pos[id]; !dup {
			pos[id] = i
		}
	}

	out := make([]int, 0, len(selected))
	for _, id := range selected {
		if i, ok := pos[id]; ok {
			out = append(out, i)
		}
	}
	return out
}

// inListOrder sorts selected ids by list position and drops duplicates and unlisted ids.
func inListOrder(ids, selected []string) []string {
	idx := indices(ids, selected)
	slices.Sort(idx)
	idx = slices.Compact(idx)

	out := make([]string, len(idx))
	for i, at := range idx {
		out[i] = ids[at]
	}
	return out
}

// SelectAll selects every row.
func (w Window) SelectAll(ids []string, st State) State {
	next := st.Clone()
	next.Selected = inListOrder(ids, ids)
	return next
}

// ClearSelection deselects every row.
func (w Window) ClearSelection(st State) State {
	next := st.Clone()
	next.Selected = nil
	next.Anchor = -1
	return next
}

// Prune drops selected ids that are no longer listed, after the list changed.
func (w Window) Prune(ids []string, st State) State {
	next := st.Clone()
	next.Selected = inListOrder(ids, st.Selected)
	if next.Anchor >= len(ids) {
		next.Anchor = -1
	}
	if next.Reordered != "" && !slices.Contains(ids, next.Reordered) {
		next.Reordered = ""
	}
	next.ScrollTop = min(next.ScrollTop, w.maxScroll(len(ids)))
	return next
}

package tracklist

import (
	"slices"
)

// Key is a navigation key.
type Key int

// Navigation keys.
const (
	KeyUp Key = iota
	KeyDown
	KeyEnter
)

// StartCommand asks the queue to play Source starting at StartID.
type StartCommand struct {
	Source  []string
	StartID string
}

// HandleKey applies a navigation key. Up and Down move a single selection by one row and
// scroll just enough to show it. Enter returns a StartCommand for the selected row; the
// boolean is false when there is nothing to start.
//
// Down with nothing selected selects the first row; Up with nothing selected does nothing.
func (w Window) HandleKey(ids []string, st State, key Key) (State, StartCommand, bool) {
	if len(ids) == 0 {
		return st, StartCommand{}, false
	}

	switch key {
	case KeyEnter:
		at := w.cursor(ids, st)
		if at < 0 {
			return st, StartCommand{}, false
		}
		return st, StartCommand{Source: slices.Clone(ids), StartID: ids[at]}, true

	case KeyUp, KeyDown:
		at := w.cursor(ids, st)
		switch {
		case at < 0 && key == KeyUp:
			return st, StartCommand{}, false
		case at < 0:
			at = 0
		case key == KeyUp:
			at = max(at-1, 0)
		default:
			at = min(at+1, len(ids)-1)
		}

		next := selectOne(st, ids[at], at)
		next.ScrollTop = w.reveal(len(ids), st.ScrollTop, at)
		return next, StartCommand{}, false
	}

	return st, StartCommand{}, false
}

// cursor is the row keyboard navigation starts from: the anchor when it is selected,
// otherwise the last selected row in list order.
func (w Window) cursor(ids []string, st State) int {
	if st.Anchor >= 0 && st.Anchor < len(ids) && st.IsSelected(ids[st.Anchor]) {
		return st.Anchor
	}
	idx := indices(ids, st.Selected)
	if len(idx) == 0 {
		return -1
	}
	return slices.Max(idx)
}

// reveal returns the smallest scroll change that brings row into the viewport.
func (w Window) reveal(count, scrollTop, row int) int {
	top := row * w.cfg.RowHeight
	bottom := top + w.cfg.RowHeight

	switch {
	case top < scrollTop:
		scrollTop = top
	case bottom > scrollTop+w.cfg.Viewport:
		scrollTop = bottom - w.cfg.Viewport
	}
	return min(max(scrollTop, 0), w.maxScroll(count))
}

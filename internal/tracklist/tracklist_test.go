package tracklist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%03d", i)
	}
	return ids
}

func click(ids []string, index int, mod Modifier) ClickEvent {
	return ClickEvent{Kind: Primary, Modifier: mod, ID: ids[index], Index: index}
}

func TestNew_Defaults(t *testing.T) {
	cfg := New(Config{}).Config()

	assert.Equal(t, 30, cfg.RowHeight)
	assert.Equal(t, 20, cfg.TileSize)
	assert.Equal(t, 5, cfg.TilesToDisplay)
	assert.Equal(t, 600, cfg.Viewport)
	assert.False(t, cfg.Reorderable)

	assert.Equal(t, 90, New(Config{RowHeight: 15, TileSize: 6}).Config().Viewport)
}

func TestHandleKey_DefaultViewportKeepsFirstRowVisible(t *testing.T) {
	w := New(Config{})
	ids := makeIDs(50)

	st, _, _ := w.HandleKey(ids, NewState(), KeyDown)
	assert.Equal(t, []string{ids[0]}, st.Selected)
	assert.Equal(t, 0, st.ScrollTop)

	// Row 20 is the first one past a single tile
	st = w.HandleClick(ids, st, click(ids, 19, NoModifier))
	st, _, _ = w.HandleKey(ids, st, KeyDown)
	assert.Equal(t, 21*30-600, st.ScrollTop)
}

func TestVisible_Tiles(t *testing.T) {
	w := New(Config{Viewport: 600})
	ids := makeIDs(250)

	st := NewState()
	st.ScrollTop = 1250 // tile height is 600
	st.Selected = []string{ids[45], ids[200]}
	st.Reordered = ids[46]

	view := w.Visible(ids, st, ids[47])

	assert.Equal(t, 2, view.TilesScrolled)
	assert.Equal(t, 250*30, view.TotalHeight)
	require.Len(t, view.Tiles, 5)

	first := view.Tiles[0]
	assert.Equal(t, 2, first.Index)
	assert.Equal(t, 1200, first.Translate)
	require.Len(t, first.Rows, 20)
	assert.Equal(t, 40, first.Rows[0].Index)
	assert.Equal(t, ids[40], first.Rows[0].ID)

	row45, row46, row47 := first.Rows[5], first.Rows[6], first.Rows[7]
	assert.True(t, row45.Selected)
	assert.False(t, row45.Playing)
	assert.True(t, row46.Reordered)
	assert.True(t, row47.Playing)
	assert.False(t, row47.Selected)

	last := view.Tiles[4]
	assert.Equal(t, 6, last.Index)
	assert.Equal(t, 139, last.Rows[len(last.Rows)-1].Index)
}

func TestVisible_ClipsAtEnd(t *testing.T) {
	w := New(Config{Viewport: 600})
	ids := makeIDs(45)

	view := w.Visible(ids, NewState(), "")
	require.Len(t, view.Tiles, 3)
	assert.Len(t, view.Tiles[2].Rows, 5)

	empty := w.Visible(nil, NewState(), "")
	assert.Empty(t, empty.Tiles)
	assert.Equal(t, 0, empty.TotalHeight)
}

func TestScroll_OnlyTileCrossingsRerender(t *testing.T) {
	w := New(Config{Viewport: 300})
	ids := makeIDs(1000)
	st := NewState()

	st, changed := w.Scroll(ids, st, 599)
	assert.False(t, changed)
	assert.Equal(t, 599, st.ScrollTop)

	st, changed = w.Scroll(ids, st, 600)
	assert.True(t, changed)

	st, changed = w.Scroll(ids, st, -40)
	assert.True(t, changed)
	assert.Equal(t, 0, st.ScrollTop)

	st, _ = w.Scroll(ids, st, 1_000_000)
	assert.Equal(t, 1000*30-300, st.ScrollTop)
}

func TestHandleClick_Plain(t *testing.T) {
	w := New(Config{})
	ids := makeIDs(10)

	st := w.HandleClick(ids, NewState(), click(ids, 3, NoModifier))
	assert.Equal(t, []string{ids[3]}, st.Selected)
	assert.Equal(t, 3, st.Anchor)

	st = w.HandleClick(ids, st, click(ids, 7, NoModifier))
	assert.Equal(t, []string{ids[7]}, st.Selected)
	assert.Equal(t, 7, st.Anchor)
}

func TestHandleClick_ShiftExtendsFromFarEdge(t *testing.T) {
	w := New(Config{})
	ids := makeIDs(100)

	st := w.HandleClick(ids, NewState(), click(ids, 5, NoModifier))
	st = w.HandleClick(ids, st, click(ids, 10, Shift))
	assert.Equal(t, ids[5:11], st.Selected)
	assert.Len(t, st.Selected, 6)

	st = w.HandleClick(ids, st, click(ids, 2, Shift))
	assert.Equal(t, ids[2:11], st.Selected)
	assert.Len(t, st.Selected, 9)

	// Inside the block: from the top edge to the click
	st = w.HandleClick(ids, st, click(ids, 6, Shift))
	assert.Equal(t, ids[2:7], st.Selected)

	// The anchor stays where the plain click put it
	assert.Equal(t, 5, st.Anchor)
}

func TestHandleClick_ShiftWithoutSelection(t *testing.T) {
	w := New(Config{})
	ids := makeIDs(10)

	st := w.HandleClick(ids, NewState(), click(ids, 4, Shift))
	assert.Equal(t, []string{ids[4]}, st.Selected)
	assert.Equal(t, 4, st.Anchor)
}

func TestHandleClick_CtrlToggles(t *testing.T) {
	w := New(Config{})
	ids := makeIDs(10)

	st := w.HandleClick(ids, NewState(), click(ids, 6, NoModifier))
	st = w.HandleClick(ids, st, click(ids, 2, Ctrl))
	st = w.HandleClick(ids, st, click(ids, 8, Ctrl))

	// List order, not click order
	assert.Equal(t, []string{ids[2], ids[6], ids[8]}, st.Selected)
	assert.Equal(t, 6, st.Anchor)

	st = w.HandleClick(ids, st, click(ids, 6, Ctrl))
	assert.Equal(t, []string{ids[2], ids[8]}, st.Selected)
	assert.Equal(t, 6, st.Anchor)

	// Shift after ctrl uses the block bounds
	st = w.HandleClick(ids, st, click(ids, 9, Shift))
	assert.Equal(t, ids[2:10], st.Selected)
}

func TestHandleClick_Secondary(t *testing.T) {
	w := New(Config{})
	ids := makeIDs(10)

	st := w.HandleClick(ids, NewState(), click(ids, 1, NoModifier))
	st = w.HandleClick(ids, st, click(ids, 4, Shift))
	require.Len(t, st.Selected, 4)

	// Inside the selection: kept for the context action
	right := ClickEvent{Kind: Secondary, ID: ids[3], Index: 3}
	assert.Equal(t, st, w.HandleClick(ids, st, right))

	// Outside: selects the row
	right = ClickEvent{Kind: Secondary, ID: ids[8], Index: 8}
	next := w.HandleClick(ids, st, right)
	assert.Equal(t, []string{ids[8]}, next.Selected)
	assert.Equal(t, 8, next.Anchor)
}

func TestHandleClick_Ignored(t *testing.T) {
	w := New(Config{})
	ids := makeIDs(5)
	st := w.HandleClick(ids, NewState(), click(ids, 1, NoModifier))

	assert.Equal(t, st, w.HandleClick(ids, st, click(ids, 3, Alt)))
	assert.Equal(t, st, w.HandleClick(ids, st, ClickEvent{ID: "other", Index: 2}))
	assert.Equal(t, st, w.HandleClick(ids, st, ClickEvent{ID: ids[0], Index: 9}))
}

func TestSelectAllClearAndPrune(t *testing.T) {
	w := New(Config{Viewport: 60})
	ids := makeIDs(6)

	st := w.SelectAll(ids, NewState())
	assert.Equal(t, ids, st.Selected)

	st.ScrollTop = 120
	st.Anchor = 5
	pruned := w.Prune(ids[:3], st)
	assert.Equal(t, ids[:3], pruned.Selected)
	assert.Equal(t, -1, pruned.Anchor)
	assert.Equal(t, 30, pruned.ScrollTop)

	cleared := w.ClearSelection(st)
	assert.Empty(t, cleared.Selected)
	assert.Equal(t, -1, cleared.Anchor)
}

func TestDrag_NotReorderable(t *testing.T) {
	w := New(Config{})
	ids := makeIDs(5)

	_, err := w.BeginDrag(ids, NewState(), ids[1])
	assert.ErrorIs(t, err, ErrNotReorderable)

	st := NewState()
	st.Reordered = ids[1]
	_, _, err = w.HandleDrop(ids, st, ids[3], domain.DropAbove)
	assert.ErrorIs(t, err, ErrNotReorderable)
}

func TestDrag_Drop(t *testing.T) {
	w := New(Config{Reorderable: true})
	ids := makeIDs(5)

	_, _, err := w.HandleDrop(ids, NewState(), ids[3], domain.DropAbove)
	assert.ErrorIs(t, err, ErrNoDrag)

	st, err := w.BeginDrag(ids, NewState(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], st.Reordered)
	assert.True(t, w.Visible(ids, st, "").Tiles[0].Rows[0].Reordered)

	st, cmd, err := w.HandleDrop(ids, st, ids[3], domain.DropBelow)
	require.NoError(t, err)
	assert.Equal(t, "", st.Reordered)
	assert.Equal(t, DropCommand{Dragged: ids[0], Target: ids[3], Position: domain.DropBelow}, cmd)

	assert.Equal(t, []string{ids[1], ids[2], ids[3], ids[0], ids[4]}, ApplyDrop(ids, cmd))

	_, err = w.BeginDrag(ids, NewState(), "missing")
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)
}

func TestApplyDrop(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}

	tests := []struct {
		name string
		cmd  DropCommand
		want []string
	}{
		{"above", DropCommand{Dragged: "d", Target: "b", Position: domain.DropAbove}, []string{"a", "d", "b", "c"}},
		{"below", DropCommand{Dragged: "a", Target: "c", Position: domain.DropBelow}, []string{"b", "c", "a", "d"}},
		{"below last", DropCommand{Dragged: "b", Target: "d", Position: domain.DropBelow}, []string{"a", "c", "d", "b"}},
		{"onto itself", DropCommand{Dragged: "b", Target: "b", Position: domain.DropAbove}, ids},
		{"unknown", DropCommand{Dragged: "x", Target: "b", Position: domain.DropAbove}, ids},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyDrop(ids, tt.cmd))
		})
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestHandleKey_Navigation(t *testing.T) {
	w := New(Config{Viewport: 90}) // three rows
	ids := makeIDs(10)

	// Up with nothing selected does nothing
	st, _, _ := w.HandleKey(ids, NewState(), KeyUp)
	assert.Empty(t, st.Selected)

	// Down with nothing selected picks the first row
	st, _, _ = w.HandleKey(ids, st, KeyDown)
	assert.Equal(t, []string{ids[0]}, st.Selected)
	assert.Equal(t, 0, st.ScrollTop)

	for range 3 {
		st, _, _ = w.HandleKey(ids, st, KeyDown)
	}
	assert.Equal(t, []string{ids[3]}, st.Selected)
	assert.Equal(t, 3, st.Anchor)
	// Row 3 spans 90..120: scrolled just enough to show its bottom edge
	assert.Equal(t, 30, st.ScrollTop)

	st, _, _ = w.HandleKey(ids, st, KeyUp)
	assert.Equal(t, 30, st.ScrollTop, "row 2 is already visible")
	st, _, _ = w.HandleKey(ids, st, KeyUp)
	assert.Equal(t, []string{ids[1]}, st.Selected)
	assert.Equal(t, 30, st.ScrollTop)
	st, _, _ = w.HandleKey(ids, st, KeyUp)
	assert.Equal(t, 0, st.ScrollTop)

	// Clamped at both ends
	st, _, _ = w.HandleKey(ids, st, KeyUp)
	assert.Equal(t, []string{ids[0]}, st.Selected)

	st = w.HandleClick(ids, st, click(ids, 9, NoModifier))
	st, _, _ = w.HandleKey(ids, st, KeyDown)
	assert.Equal(t, []string{ids[9]}, st.Selected)
	assert.Equal(t, 10*30-90, st.ScrollTop)
}

func TestHandleKey_Enter(t *testing.T) {
	w := New(Config{Viewport: 90})
	ids := makeIDs(4)

	_, _, ok := w.HandleKey(ids, NewState(), KeyEnter)
	assert.False(t, ok)

	st := w.HandleClick(ids, NewState(), click(ids, 2, NoModifier))
	_, cmd, ok := w.HandleKey(ids, st, KeyEnter)
	require.True(t, ok)
	assert.Equal(t, ids[2], cmd.StartID)
	assert.Equal(t, ids, cmd.Source)

	_, _, ok = w.HandleKey(nil, st, KeyEnter)
	assert.False(t, ok)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{59.9, "00:59"},
		{61, "01:01"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{36125, "10:02:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds), "%v seconds", tt.seconds)
	}
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "0 tracks, 00:00", StatusLine(nil))

	records := make([]domain.TrackRecord, 1234)
	for i := range records {
		records[i].Duration = 10
	}
	assert.Equal(t, "1,234 tracks, 03:25:40", StatusLine(records))
}

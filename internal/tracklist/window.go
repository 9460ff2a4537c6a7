// Package tracklist is the presentation model of a virtualized, multi-selectable,
// optionally reorderable track list.
//
// A Window is immutable configuration. Every operation is a pure function of the
// previous State and one input event and returns the next State, so the presentation
// layer only renders View values and forwards user events.
package tracklist

import (
	"errors"
	"slices"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// Default layout values.
const (
	DefaultRowHeight      = 30
	DefaultTileSize       = 20
	DefaultTilesToDisplay = 5
)

var (
	// ErrNotReorderable is returned by drag operations on a list whose order is canonical.
	ErrNotReorderable = domain.ErrNotReorderable

	// ErrNoDrag is returned by HandleDrop when no row is being dragged.
	ErrNoDrag = errors.New("no row is being dragged")
)

// Config describes the list layout. Zero values take the defaults.
type Config struct {
	// RowHeight is the height of one row in pixels
	RowHeight int

	// TileSize is the number of rows per tile
	TileSize int

	// TilesToDisplay is the number of consecutive tiles rendered
	TilesToDisplay int

	// Viewport is the visible height in pixels, one tile when unset
	Viewport int

	// Reorderable enables drag reordering (user-owned sequences such as playlists)
	Reorderable bool
}

// State is the interaction state of one list.
type State struct {
	// Selected holds the selected ids without duplicates
	Selected []string

	// Anchor is the index of the last plainly clicked row, -1 when none
	Anchor int

	// ScrollTop is the scroll offset in pixels
	ScrollTop int

	// Reordered is the id being dragged, "" when none
	Reordered string
}

// NewState returns an empty state.
func NewState() State {
	return State{Anchor: -1}
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	c := s
	c.Selected = slices.Clone(s.Selected)
	return c
}

// IsSelected reports whether id is selected.
func (s State) IsSelected(id string) bool {
	return slices.Contains(s.Selected, id)
}

// Row is one materialized row.
type Row struct {
	Index     int
	ID        string
	Selected  bool
	Playing   bool
	Reordered bool
}

// Tile is a block of consecutive rows translated into place as a whole.
type Tile struct {
	Index     int
	Translate int
	Rows      []Row
}

// View describes what the presentation layer must render.
type View struct {
	TilesScrolled int
	Tiles         []Tile
	TotalHeight   int
}

// Window computes views and state transitions for one list layout.
type Window struct {
	cfg Config
}

// New creates a window, applying defaults to unset layout values.
func New(cfg Config) Window {
	if cfg.RowHeight <= 0 {
		cfg.RowHeight = DefaultRowHeight
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = DefaultTileSize
	}
	if cfg.TilesToDisplay <= 0 {
		cfg.TilesToDisplay = DefaultTilesToDisplay
	}
	if cfg.Viewport <= 0 {
		cfg.Viewport = cfg.TileSize * cfg.RowHeight
	}
	return Window{cfg: cfg}
}

// Config returns the effective layout.
func (w Window) Config() Config {
	return w.cfg
}

func (w Window) tileHeight() int {
	return w.cfg.RowHeight * w.cfg.TileSize
}

// TilesScrolled returns the index of the first rendered tile for a scroll offset.
func (w Window) TilesScrolled(scrollTop int) int {
	if scrollTop <= 0 {
		return 0
	}
	return scrollTop / w.tileHeight()
}

// maxScroll is the largest offset that still fills the viewport.
func (w Window) maxScroll(count int) int {
	return max(count*w.cfg.RowHeight-w.cfg.Viewport, 0)
}

// Visible materializes the rendered tiles for ids. playingID highlights the current track.
func (w Window) Visible(ids []string, st State, playingID string) View {
	first := w.TilesScrolled(st.ScrollTop)
	view := View{
		TilesScrolled: first,
		TotalHeight:   len(ids) * w.cfg.RowHeight,
	}

	selected := make(map[string]struct{}, len(st.Selected))
	for _, id := range st.Selected {
		selected[id] = struct{}{}
	}

	for tile := first; tile < first+w.cfg.TilesToDisplay; tile++ {
		start := tile * w.cfg.TileSize
		if start >= len(ids) {
			break
		}
		end := min(start+w.cfg.TileSize, len(ids))

		rows := make([]Row, 0, end-start)
		for i := start; i < end; i++ {
			id := ids[i]
			_, isSelected := selected[id]
			rows = append(rows, Row{
				Index:     i,
				ID:        id,
				Selected:  isSelected,
				Playing:   playingID != "" && id == playingID,
				Reordered: st.Reordered != "" && id == st.Reordered,
			})
		}
		view.Tiles = append(view.Tiles, Tile{
			Index:     tile,
			Translate: tile * w.tileHeight(),
			Rows:      rows,
		})
	}
	return view
}

// Scroll moves the viewport to offset, clamped to the list. The boolean reports whether a
// tile boundary was crossed, the only case that needs a new View.
func (w Window) Scroll(ids []string, st State, offset int) (State, bool) {
	next := st.Clone()
	next.ScrollTop = min(max(offset, 0), w.maxScroll(len(ids)))
	return next, w.TilesScrolled(next.ScrollTop) != w.TilesScrolled(st.ScrollTop)
}

package tracklist

import (
	"slices"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// DropCommand asks the owner of the list to move Dragged above or below Target.
type DropCommand struct {
	Dragged  string
	Target   string
	Position domain.DropPosition
}

// BeginDrag marks id as being reordered.
func (w Window) BeginDrag(ids []string, st State, id string) (State, error) {
	if !w.cfg.Reorderable {
		return st, ErrNotReorderable
	}
	if !slices.Contains(ids, id) {
		return st, domain.ErrTrackNotFound
	}
	next := st.Clone()
	next.Reordered = id
	return next, nil
}

// EndDrag clears the drag mark, whether or not a drop happened.
func (w Window) EndDrag(st State) State {
	next := st.Clone()
	next.Reordered = ""
	return next
}

// HandleDrop ends the drag on target and returns the move for the list owner to apply.
func (w Window) HandleDrop(ids []string, st State, target string, position domain.DropPosition) (State, DropCommand, error) {
	if !w.cfg.Reorderable {
		return st, DropCommand{}, ErrNotReorderable
	}
	if st.Reordered == "" {
		return st, DropCommand{}, ErrNoDrag
	}
	if !slices.Contains(ids, target) {
		return w.EndDrag(st), DropCommand{}, domain.ErrTrackNotFound
	}

	cmd := DropCommand{
		Dragged:  st.Reordered,
		Target:   target,
		Position: position,
	}
	return w.EndDrag(st), cmd, nil
}

// ApplyDrop returns ids with the command applied: Dragged is spliced out and reinserted
// next to Target. Unknown ids or a drop onto itself return a copy of ids.
func ApplyDrop(ids []string, cmd DropCommand) []string {
	out := slices.Clone(ids)
	from := slices.Index(out, cmd.Dragged)
	if from < 0 || cmd.Dragged == cmd.Target || !slices.Contains(out, cmd.Target) {
		return out
	}

	out = slices.Delete(out, from, from+1)
	at := slices.Index(out, cmd.Target)
	if cmd.Position == domain.DropBelow {
		at++
	}
	return slices.Insert(out, at, cmd.Dragged)
}

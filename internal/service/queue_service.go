package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// QueueService is the playback queue state machine: the ordered (or shuffled) sequence,
// the cursor and the shuffle and repeat modes.
//
// Operations never block and never fail. On an empty sequence they are no-ops and the
// status stays stopped. Events are published after the lock is released.
type QueueService struct {
	// Dependencies (injected)
	bus    ports.EventBus
	logger *slog.Logger
	rng    *rand.Rand

	// State
	state domain.QueueState

	// slots[i] is the Origin index of Sequence[i]. Ids may repeat, so the
	// position in the source order cannot be found by looking the id up.
	slots []int

	// Concurrency control
	mu sync.Mutex
}

// NewQueueService creates an empty, stopped queue. A nil rng uses a randomly seeded source.
func NewQueueService(logger *slog.Logger, bus ports.EventBus, rng *rand.Rand) *QueueService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &QueueService{
		bus:    bus,
		logger: logger.With(slog.String("service", "QueueService")),
		rng:    rng,
		state:  domain.QueueState{Cursor: domain.NoCursor, Status: domain.StatusStopped},
	}
}

// queueUpdate collects what a transition must announce once the lock is released.
type queueUpdate struct {
	changed    bool
	nowPlaying bool
	status     bool
	snapshot   domain.QueueState
}

func (s *QueueService) publish(u queueUpdate) {
	if u.changed {
		s.bus.Publish(domain.NewQueueChangedEvent(u.snapshot))
	}
	if u.nowPlaying {
		id, _ := u.snapshot.CurrentID()
		s.bus.Publish(domain.NewNowPlayingEvent(id, u.snapshot.Cursor))
	}
	if u.status {
		s.bus.Publish(domain.NewStatusChangedEvent(u.snapshot.Status))
	}
}

// apply runs fn under the lock and publishes its update.
func (s *QueueService) apply(fn func() queueUpdate) {
	s.mu.Lock()
	u := fn()
	u.snapshot = s.state.Clone()
	s.mu.Unlock()

	s.publish(u)
}

// State returns a copy of the queue state.
func (s *QueueService) State() domain.QueueState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Current returns the id under the cursor.
func (s *QueueService) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentID()
}

// Start replaces the sequence with source and starts playing startID.
// With shuffle on, startID goes first and the rest is shuffled. An unknown or empty
// startID starts from the first track. An empty source is a no-op.
func (s *QueueService) Start(source []string, startID string) {
	if len(source) == 0 {
		return
	}

	s.apply(func() queueUpdate {
		origin := slices.Clone(source)
		start := max(slices.Index(origin, startID), 0)

		s.state.Origin = origin
		s.state.Sequence = slices.Clone(origin)
		s.state.Cursor = start
		s.slots = identity(len(origin))

		if s.state.Shuffle {
			s.swap(0, start)
			s.shuffleTail(0)
			s.state.Cursor = 0
		}

		s.state.Status = domain.StatusPlaying
		s.logger.Debug("queue started", slog.Int("tracks", len(origin)), slog.String("start", origin[start]))
		return queueUpdate{changed: true, nowPlaying: true, status: true}
	})
}

// shuffleTail applies an unbiased Fisher-Yates shuffle to the sequence after cursor.
func (s *QueueService) shuffleTail(cursor int) {
	s.rng.Shuffle(len(s.state.Sequence)-cursor-1, func(i, j int) {
		s.swap(cursor+1+i, cursor+1+j)
	})
}

// swap exchanges two sequence positions together with their slots.
func (s *QueueService) swap(i, j int) {
	s.state.Sequence[i], s.state.Sequence[j] = s.state.Sequence[j], s.state.Sequence[i]
	s.slots[i], s.slots[j] = s.slots[j], s.slots[i]
}

func identity(n int) []int {
	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}
	return slots
}

// matchSlots pairs every sequence entry with an unused origin entry of the same id.
// It reports false when the two lists are not permutations of each other.
func matchSlots(sequence, origin []string) ([]int, bool) {
	if len(sequence) != len(origin) {
		return nil, false
	}
	free := make(map[string][]int, len(origin))
	for i, id := range origin {
		free[id] = append(free[id], i)
	}
	slots := make([]int, len(sequence))
	for i, id := range sequence {
		idx := free[id]
		if len(idx) == 0 {
			return nil, false
		}
		slots[i], free[id] = idx[0], idx[1:]
	}
	return slots, true
}

// PlayPause toggles between playing and paused. It is a no-op when stopped.
func (s *QueueService) PlayPause() {
	s.apply(func() queueUpdate {
		switch s.state.Status {
		case domain.StatusPlaying:
			s.state.Status = domain.StatusPaused
		case domain.StatusPaused:
			s.state.Status = domain.StatusPlaying
		default:
			return queueUpdate{}
		}
		return queueUpdate{status: true}
	})
}

// Stop stops playback and keeps the sequence and cursor.
func (s *QueueService) Stop() {
	s.apply(func() queueUpdate {
		if s.state.Status == domain.StatusStopped {
			return queueUpdate{}
		}
		s.state.Status = domain.StatusStopped
		return queueUpdate{status: true}
	})
}

// Next advances the cursor. With repeat one the current track is reissued; past the end
// the queue wraps with repeat all and stops otherwise.
func (s *QueueService) Next() {
	s.apply(func() queueUpdate { return s.step(+1) })
}

// Previous moves the cursor back, mirroring Next.
func (s *QueueService) Previous() {
	s.apply(func() queueUpdate { return s.step(-1) })
}

func (s *QueueService) step(delta int) queueUpdate {
	n := len(s.state.Sequence)
	if n == 0 || s.state.Cursor == domain.NoCursor {
		return queueUpdate{}
	}

	wasPlaying := s.state.Status == domain.StatusPlaying
	s.state.Status = domain.StatusPlaying

	if s.state.Repeat == domain.RepeatOne {
		return queueUpdate{nowPlaying: true, status: !wasPlaying}
	}

	cursor := s.state.Cursor + delta
	if cursor < 0 || cursor >= n {
		if s.state.Repeat != domain.RepeatAll {
			return s.stopAtEnd()
		}
		cursor = (cursor + n) % n
	}

	s.state.Cursor = cursor
	return queueUpdate{changed: true, nowPlaying: true, status: !wasPlaying}
}

// stopAtEnd handles running off either end of the sequence.
func (s *QueueService) stopAtEnd() queueUpdate {
	s.state.Cursor = domain.NoCursor
	s.state.Status = domain.StatusStopped
	s.logger.Debug("queue exhausted")
	return queueUpdate{changed: true, nowPlaying: true, status: true}
}

// ToggleShuffle flips shuffle. Enabling shuffles the not-yet-played part of the
// sequence, keeping the current track at the cursor; disabling restores the source
// order and moves the cursor to the current track there.
func (s *QueueService) ToggleShuffle() {
	s.apply(func() queueUpdate {
		s.state.Shuffle = !s.state.Shuffle
		if len(s.state.Sequence) == 0 {
			return queueUpdate{changed: true}
		}

		if s.state.Shuffle {
			s.shuffleTail(s.state.Cursor)
			return queueUpdate{changed: true}
		}

		if s.state.Cursor != domain.NoCursor {
			s.state.Cursor = s.slots[s.state.Cursor]
		}
		s.state.Sequence = slices.Clone(s.state.Origin)
		s.slots = identity(len(s.state.Origin))
		return queueUpdate{changed: true}
	})
}

// SetRepeat sets the repeat mode.
func (s *QueueService) SetRepeat(mode domain.RepeatMode) {
	s.apply(func() queueUpdate {
		if s.state.Repeat == mode {
			return queueUpdate{}
		}
		s.state.Repeat = mode
		return queueUpdate{changed: true}
	})
}

// CycleRepeat moves none -> all -> one -> none.
func (s *QueueService) CycleRepeat() domain.RepeatMode {
	var mode domain.RepeatMode
	s.apply(func() queueUpdate {
		switch s.state.Repeat {
		case domain.RepeatNone:
			s.state.Repeat = domain.RepeatAll
		case domain.RepeatAll:
			s.state.Repeat = domain.RepeatOne
		default:
			s.state.Repeat = domain.RepeatNone
		}
		mode = s.state.Repeat
		return queueUpdate{changed: true}
	})
	return mode
}

// SetShuffle sets the shuffle mode, shuffling or restoring as ToggleShuffle does.
func (s *QueueService) SetShuffle(enabled bool) {
	s.mu.Lock()
	same := s.state.Shuffle == enabled
	s.mu.Unlock()
	if !same {
		s.ToggleShuffle()
	}
}

// AddNext queues ids right after the current track (at the front when nothing plays).
func (s *QueueService) AddNext(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.apply(func() queueUpdate {
		at := s.state.Cursor + 1 // NoCursor + 1 is the front
		originAt := 0
		if s.state.Cursor != domain.NoCursor {
			originAt = s.slots[s.state.Cursor] + 1
		}

		for i, slot := range s.slots {
			if slot >= originAt {
				s.slots[i] = slot + len(ids)
			}
		}
		added := make([]int, len(ids))
		for i := range added {
			added[i] = originAt + i
		}

		s.state.Sequence = slices.Insert(s.state.Sequence, at, ids...)
		s.slots = slices.Insert(s.slots, at, added...)
		s.state.Origin = slices.Insert(s.state.Origin, originAt, ids...)
		return queueUpdate{changed: true}
	})
}

// AddLast appends ids to the queue.
func (s *QueueService) AddLast(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.apply(func() queueUpdate {
		for i := range ids {
			s.slots = append(s.slots, len(s.state.Origin)+i)
		}
		s.state.Sequence = append(s.state.Sequence, ids...)
		s.state.Origin = append(s.state.Origin, ids...)
		return queueUpdate{changed: true}
	})
}

// RemoveTracks splices ids out of the queue. When the current track goes, the queue
// moves on to the track that followed it, or stops if it was the last one.
func (s *QueueService) RemoveTracks(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	dropped := func(id string) bool {
		_, ok := drop[id]
		return ok
	}

	s.apply(func() queueUpdate {
		if !slices.ContainsFunc(s.state.Sequence, dropped) && !slices.ContainsFunc(s.state.Origin, dropped) {
			return queueUpdate{}
		}

		cursor := s.state.Cursor
		currentRemoved := false
		if cursor != domain.NoCursor {
			before := 0
			for _, id := range s.state.Sequence[:cursor] {
				if dropped(id) {
					before++
				}
			}
			currentRemoved = dropped(s.state.Sequence[cursor])
			cursor -= before
		}

		// Renumber the surviving origin entries, then keep the slots of surviving positions
		renumber := make([]int, len(s.state.Origin))
		next := 0
		for i, id := range s.state.Origin {
			renumber[i] = next
			if !dropped(id) {
				next++
			}
		}
		slots := s.slots[:0]
		for i, id := range s.state.Sequence {
			if !dropped(id) {
				slots = append(slots, renumber[s.slots[i]])
			}
		}
		s.slots = slots

		s.state.Sequence = slices.DeleteFunc(s.state.Sequence, dropped)
		s.state.Origin = slices.DeleteFunc(s.state.Origin, dropped)

		if len(s.state.Sequence) == 0 {
			s.state.Cursor = domain.NoCursor
			wasStopped := s.state.Status == domain.StatusStopped
			s.state.Status = domain.StatusStopped
			return queueUpdate{changed: true, nowPlaying: currentRemoved, status: !wasStopped}
		}

		if !currentRemoved {
			s.state.Cursor = cursor
			return queueUpdate{changed: true}
		}

		// The track after the removed one now sits at cursor
		if cursor >= len(s.state.Sequence) {
			wasStopped := s.state.Status == domain.StatusStopped
			s.state.Cursor = domain.NoCursor
			s.state.Status = domain.StatusStopped
			return queueUpdate{changed: true, nowPlaying: true, status: !wasStopped}
		}
		s.state.Cursor = cursor
		return queueUpdate{changed: true, nowPlaying: true}
	})
}

// Clear empties the queue and stops. Modes are kept.
func (s *QueueService) Clear() {
	s.apply(func() queueUpdate {
		if len(s.state.Sequence) == 0 && s.state.Status == domain.StatusStopped {
			return queueUpdate{}
		}
		hadCurrent := s.state.Cursor != domain.NoCursor
		s.state.Sequence = nil
		s.state.Origin = nil
		s.slots = nil
		s.state.Cursor = domain.NoCursor
		s.state.Status = domain.StatusStopped
		return queueUpdate{changed: true, nowPlaying: hadCurrent, status: true}
	})
}

// Restore replaces the state with a saved one. The restored queue is paused on its
// current track, or stopped when it has none.
func (s *QueueService) Restore(saved domain.QueueState) {
	s.apply(func() queueUpdate {
		state := saved.Clone()
		slots, ok := matchSlots(state.Sequence, state.Origin)
		if !ok {
			state.Origin = slices.Clone(state.Sequence)
			slots = identity(len(state.Sequence))
		}
		s.slots = slots
		if state.Cursor < 0 || state.Cursor >= len(state.Sequence) {
			state.Cursor = domain.NoCursor
		}
		if state.Cursor == domain.NoCursor {
			state.Status = domain.StatusStopped
		} else {
			state.Status = domain.StatusPaused
		}
		s.state = state
		return queueUpdate{changed: true, nowPlaying: state.Cursor != domain.NoCursor}
	})
}

// DropTracks implements TrackReferrer.
func (s *QueueService) DropTracks(_ context.Context, ids []string) error {
	s.RemoveTracks(ids)
	return nil
}

// DropAll implements TrackReferrer.
func (s *QueueService) DropAll(_ context.Context) error {
	s.Clear()
	return nil
}

// Verify that QueueService implements the expected interface patterns
var _ TrackReferrer = (*QueueService)(nil)

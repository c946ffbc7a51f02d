package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
)

// Registry maps appointment rooms to their connected participants.
// A room exists only while it has at least one participant.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID][]core.Participant
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.RoomID][]core.Participant),
	}
}

// Join adds p to the room, creating the room if absent.
func (r *Registry) Join(room domain.RoomID, p core.Participant) {
	_ = r.JoinIf(room, p, nil)
}

// JoinIf runs admit against the current members and joins only if it returns nil.
// The check and the insert happen under one lock.
func (r *Registry) JoinIf(room domain.RoomID, p core.Participant, admit func(members []core.Participant) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	if admit != nil {
		others := lo.Filter(members, func(m core.Participant, _ int) bool { return m.SID != p.SID })
		if err := admit(others); err != nil {
			return err
		}
	}

	// Always build a new slice so snapshots handed out earlier stay intact.
	next := make([]core.Participant, 0, len(members)+1)
	for _, m := range members {
		if m.SID != p.SID {
			next = append(next, m)
		}
	}
	p.Room = room
	next = append(next, p)
	r.rooms[room] = next

	log.Info().
		Str("module", "app.registry").
		Str("sid", string(p.SID)).
		Str("room", string(room)).
		Str("role", string(p.Role)).
		Int("count", len(next)).
		Msg("participant joined")
	return nil
}

// Leave removes the participant with sid from the room and drops the room once
// it is empty. Leaving an absent participant is a no-op that returns false.
func (r *Registry) Leave(room domain.RoomID, sid core.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	_, idx, found := lo.FindIndexOf(members, func(m core.Participant) bool { return m.SID == sid })
	if !found {
		return false
	}

	if len(members) == 1 {
		delete(r.rooms, room)
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("room deleted")
		return true
	}

	next := make([]core.Participant, 0, len(members)-1)
	next = append(next, members[:idx]...)
	next = append(next, members[idx+1:]...)
	r.rooms[room] = next
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Int("count", len(next)).Msg("participant left")
	return true
}

// PeersExcept returns a snapshot of everyone in the room but sid.
// A missing room yields an empty slice.
func (r *Registry) PeersExcept(room domain.RoomID, sid core.SessionID) []core.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Filter(r.rooms[room], func(m core.Participant, _ int) bool { return m.SID != sid })
}

func (r *Registry) Members(room domain.RoomID) []core.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Participant, len(r.rooms[room]))
	copy(out, r.rooms[room])
	return out
}

func (r *Registry) Count(room domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

func (r *Registry) Has(room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room]
	return ok
}

// List returns every live room ordered by id.
func (r *Registry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for id, members := range r.rooms {
		out = append(out, core.RoomInfo{
			ID:    id,
			Count: len(members),
			Roles: lo.Map(members, func(m core.Participant, _ int) domain.Role { return m.Role }),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

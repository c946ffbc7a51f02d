package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
)

var ErrHubClosed = errors.New("hub closed")

// Hub admits signaling connections into appointment rooms and relays their
// messages to the other participants of the same room.
type Hub struct {
	Registry     *Registry
	Admission    AdmissionPolicy
	Backpressure BackpressurePolicy

	mu       sync.RWMutex
	sessions map[core.SessionID]*Session
	closed   bool
}

func NewHub(reg *Registry, admission AdmissionPolicy, backpressure BackpressurePolicy) *Hub {
	if admission == nil {
		admission = SharedAdmission{}
	}
	if backpressure == nil {
		backpressure = DropPolicy{}
	}
	return &Hub{
		Registry:     reg,
		Admission:    admission,
		Backpressure: backpressure,
		sessions:     make(map[core.SessionID]*Session),
	}
}

// Serve runs one connection from accept to teardown and blocks until the
// transport stops delivering frames. A failed join is returned after the
// transport has been rejected; transport errors after joining are not.
func (h *Hub) Serve(sid core.SessionID, params domain.JoinParams, t core.Transport) error {
	s := newSession(h, sid, t)
	if err := s.join(params); err != nil {
		return err
	}
	defer s.Close()

	for {
		frame, err := t.Receive()
		if err != nil {
			if s.State() == StateActive {
				s.logger.Info().Err(err).Msg("transport closed")
			}
			return nil
		}
		s.relay(frame)
	}
}

// Kick closes the session with sid. It reports whether such a session was active.
func (h *Hub) Kick(sid core.SessionID) bool {
	h.mu.RLock()
	s, ok := h.sessions[sid]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	s.Close()
	log.Info().Str("module", "app.hub").Str("sid", string(sid)).Msg("kicked")
	return true
}

// Evict closes every session in the room and returns how many were closed.
func (h *Hub) Evict(room domain.RoomID) int {
	n := 0
	for _, p := range h.Registry.Members(room) {
		if h.Kick(p.SID) {
			n++
		}
	}
	log.Info().Str("module", "app.hub").Str("room", string(room)).Int("closed", n).Msg("room evicted")
	return n
}

// CloseAll closes every session and refuses new ones.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	all := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	log.Info().Str("module", "app.hub").Int("closed", len(all)).Msg("all sessions closed")
}

// Session returns the active session with sid, if any.
func (h *Hub) Session(sid core.SessionID) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[sid]
	return s, ok
}

func (h *Hub) track(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s.id] = s
	return true
}

func (h *Hub) untrack(sid core.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sid)
}

// onSendFailure handles a peer that refused a relayed frame. Closed peers are
// skipped silently; full buffers go through the backpressure policy.
func (h *Hub) onSendFailure(peer core.Participant, err error) {
	if !errors.Is(err, core.ErrBackpressure) {
		log.Debug().Err(err).Str("module", "app.hub").Str("peer", string(peer.SID)).Msg("peer not writable")
		return
	}
	switch h.Backpressure.OnBackPressure(peer) {
	case KickPeer:
		log.Warn().Str("module", "app.hub").Str("peer", string(peer.SID)).Msg("slow peer, kicking")
		if !h.Kick(peer.SID) {
			peer.Conn.Close()
		}
	case DropMessage:
		log.Warn().Str("module", "app.hub").Str("peer", string(peer.SID)).Msg("slow peer, message dropped")
	case NoAction:
	}
}

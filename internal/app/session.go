package app

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
	"github.com/dkeye/Telemed/internal/protocol"
)

type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the hub side of one connection: Connecting -> Active -> Closed.
// Closed is terminal and is entered at most once.
type Session struct {
	hub    *Hub
	id     core.SessionID
	t      core.Transport
	p      core.Participant
	state  atomic.Int32
	logger zerolog.Logger
}

func newSession(h *Hub, sid core.SessionID, t core.Transport) *Session {
	return &Session{
		hub:    h,
		id:     sid,
		t:      t,
		logger: log.With().Str("module", "app.session").Str("sid", string(sid)).Logger(),
	}
}

func (s *Session) ID() core.SessionID { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Participant() core.Participant { return s.p }

func (s *Session) join(params domain.JoinParams) error {
	role, room, err := params.Validate()
	if err != nil {
		return s.reject(err)
	}
	s.p = core.Participant{SID: s.id, Role: role, Room: room, Conn: s.t}
	s.logger = s.logger.With().Str("room", string(room)).Str("role", string(role)).Logger()

	admit := func(members []core.Participant) error {
		return s.hub.Admission.Admit(members, s.p)
	}
	if err := s.hub.Registry.JoinIf(room, s.p, admit); err != nil {
		return s.reject(err)
	}
	s.state.Store(int32(StateActive))

	if !s.hub.track(s) {
		s.Close()
		return ErrHubClosed
	}
	s.logger.Info().Msg("joined")
	return nil
}

// reject ends a join attempt before the registry was touched.
func (s *Session) reject(err error) error {
	s.state.Store(int32(StateClosed))
	s.logger.Warn().Err(err).Msg("join rejected")
	s.t.Reject(err.Error())
	return err
}

// Close moves an Active session to Closed, leaves its room and closes the
// transport. Further calls do nothing.
func (s *Session) Close() {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateClosed)) {
		return
	}
	s.hub.Registry.Leave(s.p.Room, s.id)
	s.hub.untrack(s.id)
	s.t.Close()
	s.logger.Info().Msg("closed")
}

func (s *Session) relay(frame core.Frame) {
	env, err := protocol.Parse(frame)
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding message")
		return
	}
	out, err := protocol.Enrich(env, s.p.Room, s.p.Role)
	if err != nil {
		s.logger.Error().Err(err).Str("type", env.Type).Msg("enrich")
		return
	}

	peers := s.hub.Registry.PeersExcept(s.p.Room, s.id)
	sent := 0
	for _, peer := range peers {
		if !peer.Conn.IsOpen() {
			continue
		}
		if err := peer.Conn.TrySend(out); err != nil {
			s.hub.onSendFailure(peer, err)
			continue
		}
		sent++
	}
	s.logger.Debug().Str("type", env.Type).Int("peers", len(peers)).Int("sent_to", sent).Msg("relayed")
}

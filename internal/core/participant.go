package core

import "github.com/dkeye/Telemed/internal/domain"

// Participant is one connection's membership record within a room.
// It is a value: the registry stores copies and hands out copies.
type Participant struct {
	SID  SessionID
	Role domain.Role
	Room domain.RoomID
	Conn SignalConnection
}

// ParticipantDTO is a read-only view for APIs (no transport fields).
type ParticipantDTO struct {
	SID  SessionID   `json:"sid"`
	Role domain.Role `json:"role"`
}

func (p Participant) DTO() ParticipantDTO {
	return ParticipantDTO{SID: p.SID, Role: p.Role}
}

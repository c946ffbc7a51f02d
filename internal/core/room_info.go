package core

import "github.com/dkeye/Telemed/internal/domain"

type RoomInfo struct {
	ID    domain.RoomID `json:"appointmentId"`
	Count int           `json:"participant_count"`
	Roles []domain.Role `json:"roles"`
}

// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingRole        = errors.New("missing role")
	ErrMissingAppointment = errors.New("missing appointmentId")
	ErrUnknownRole        = errors.New("unknown role")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JoinParams are the query parameters a client opens the signaling socket with.
type JoinParams struct {
	Role          string `form:"role" validate:"required,oneof=doctor patient"`
	AppointmentID string `form:"appointmentId" validate:"required"`
}

// Validate checks the parameters and returns the typed role and room.
// Role problems are reported before appointment problems.
func (p JoinParams) Validate() (Role, RoomID, error) {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return "", "", err
		}
		fe := verrs[0]
		switch {
		case fe.StructField() == "Role" && fe.Tag() == "required":
			return "", "", ErrMissingRole
		case fe.StructField() == "Role":
			return "", "", fmt.Errorf("%w: %q", ErrUnknownRole, p.Role)
		default:
			return "", "", ErrMissingAppointment
		}
	}
	return Role(p.Role), RoomID(p.AppointmentID), nil
}

package domain

// Role is the side a participant claims in an appointment.
// No transport or lifecycle logic here.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the two recognized roles.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

func (r Role) String() string { return string(r) }

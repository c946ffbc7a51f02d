package domain

// RoomID is the appointment identifier a room is keyed by. It is opaque to the hub.
type RoomID string

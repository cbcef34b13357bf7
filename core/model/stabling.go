package model

// StablingStatus describes the occupancy of a stabling position.
type StablingStatus string

const (
	StablingAvailable StablingStatus = "available"
	StablingOccupied  StablingStatus = "occupied"
	StablingReserved  StablingStatus = "reserved"
)

// StablingPosition is a named depot track slot. At most one trainset
// occupies a position at a time; the track position determines how many
// shunting moves are needed to stage the occupant for departure.
type StablingPosition struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Status          StablingStatus `json:"status"`
	TrackPosition   int            `json:"track_position"`
	CurrentOccupant string         `json:"current_occupant"`
}

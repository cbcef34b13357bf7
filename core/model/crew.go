package model

import "time"

// CrewAssignment binds a crew to a trainset for one service date. The
// roster is per date; a trainset missing from a non-empty roster has no
// crew assignable that night.
type CrewAssignment struct {
	TrainsetID string    `json:"trainset_id"`
	Date       time.Time `json:"date"`
	CrewID     string    `json:"crew_id"`
}

package model

import "time"

// OverrideDecision records a proposed or executed substitution of a standby
// trainset for a scheduled one. Records are append-only.
type OverrideDecision struct {
	ID             string    `json:"id"`
	PlanDate       time.Time `json:"plan_date"`
	ScheduledID    string    `json:"scheduled_train_id"`
	StandbyID      string    `json:"standby_train_id"`
	ReadinessDelta float64   `json:"readiness_delta"`
	ShuntingMoves  int       `json:"shunting_moves"`
	Tier           string    `json:"recommendation"`
	Executed       bool      `json:"executed"`
	Reason         string    `json:"reason"`
	DecidedBy      string    `json:"decided_by"`
	DecidedAt      time.Time `json:"decided_at"`
}

// Package events defines the payloads emitted on the event bus by the
// induction planner. The UI layer subscribes to them (directly or through
// the MQTT bridge) instead of the core pushing updates itself.
package events

import "time"

// RunCompletedEvent is published after a nightly planning run persists its
// plan set.
type RunCompletedEvent struct {
	PlanDate       time.Time
	OptimizationID string
	ServiceCount   int
	StandbyCount   int
	Maintenance    int
	Unassigned     int
	FleetCritical  bool
}

// RunErrorEvent reports a per-record failure that the run continued past.
type RunErrorEvent struct {
	PlanDate   time.Time
	TrainsetID string
	Err        error
}

// SwapExecutedEvent is published when an override swap has been applied.
type SwapExecutedEvent struct {
	DecisionID  string
	PlanDate    time.Time
	ScheduledID string
	StandbyID   string
	Tier        string
}

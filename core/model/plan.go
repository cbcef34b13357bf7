package model

import "time"

// PlanStatus tracks the lifecycle of a daily induction plan entry.
type PlanStatus string

const (
	PlanPlanned    PlanStatus = "planned"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanCancelled  PlanStatus = "cancelled"
	PlanDelayed    PlanStatus = "delayed"
)

// PlanPriority ranks plan entries for operational triage.
type PlanPriority string

const (
	PlanCritical PlanPriority = "critical"
	PlanHigh     PlanPriority = "high"
	PlanNormal   PlanPriority = "normal"
	PlanLow      PlanPriority = "low"
)

// RuleViolation records one constraint outcome attached to a plan entry.
type RuleViolation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
}

// InductionPlan is one row of the nightly plan, keyed by (trainset, date).
// A locked plan may only change through the override path, which records a
// reason and an audit entry. Plans are never hard-deleted; cancellation is
// a status.
type InductionPlan struct {
	ID             string          `json:"id"`
	TrainsetID     string          `json:"trainset_id"`
	PlanDate       time.Time       `json:"plan_date"`
	SlotIndex      int             `json:"slot_index"`
	ScheduledStart time.Time       `json:"scheduled_start"`
	ScheduledEnd   time.Time       `json:"scheduled_end"`
	ActualStart    *time.Time      `json:"actual_start,omitempty"`
	ActualEnd      *time.Time      `json:"actual_end,omitempty"`
	StablingID     string          `json:"stabling_id"`
	Crew           string          `json:"assigned_crew"`
	Status         PlanStatus      `json:"status"`
	Priority       PlanPriority    `json:"priority"`
	Category       string          `json:"category"` // for_service, on_standby, in_maintenance
	Confidence     float64         `json:"ai_confidence"`
	BlockingIssues []string        `json:"blocking_issues"`
	Violations     []RuleViolation `json:"constraint_violations"`
	RiskScore      float64         `json:"risk_score"`
	Approved       bool            `json:"approved"`
	ApprovedBy     string          `json:"approved_by,omitempty"`
	Locked         bool            `json:"locked"`
	LockedBy       string          `json:"locked_by,omitempty"`
	LockedAt       *time.Time      `json:"locked_at,omitempty"`
	OverrideReason string          `json:"override_reason,omitempty"`
	OverrideBy     string          `json:"override_by,omitempty"`
	OverrideAt     *time.Time      `json:"override_at,omitempty"`
	Version        int             `json:"version"`
}

// Key identifies the plan row within a date's plan set.
func (p InductionPlan) Key() string {
	return p.TrainsetID + "@" + p.PlanDate.Format("2006-01-02")
}

// PlanDay truncates t to the calendar day used as a plan key.
func PlanDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

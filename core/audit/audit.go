// Package audit persists the append-only trail of planning actions. Every
// override, approval and executed swap writes exactly one record with the
// before/after state and a free-text reason.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Actions recorded on the trail.
const (
	ActionRunCompleted = "run_completed"
	ActionApproved     = "plan_approved"
	ActionOverride     = "plan_override"
	ActionSwapExecuted = "swap_executed"
)

// Record is one immutable audit entry.
type Record struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Action     string          `json:"action"`
	PlanDate   time.Time       `json:"plan_date"`
	TrainsetID string          `json:"trainset_id,omitempty"`
	Actor      string          `json:"actor,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// Query filters the trail. Zero fields match everything.
type Query struct {
	Start      time.Time
	End        time.Time
	Action     string
	TrainsetID string
}

// Matches reports whether the record passes the filter.
func (q Query) Matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Action != "" && r.Action != q.Action {
		return false
	}
	if q.TrainsetID != "" && r.TrainsetID != q.TrainsetID {
		return false
	}
	return true
}

// Store is the append-only sink contract.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records. Used when auditing is disabled in tests.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// Marshal renders the state snapshot attached to a record, swallowing
// marshal errors into an empty payload since audit writes must not fail the
// planning action they describe.
func Marshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

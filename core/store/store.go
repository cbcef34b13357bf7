// Package store defines the persistence contract consumed by the planning
// core. Implementations live under infra (in-memory, postgres); the core
// only sees these interfaces and error values.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
)

var (
	// ErrNotFound is returned for point lookups that match nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict signals an optimistic-lock version mismatch. Callers may
	// retry or escalate to manual review; the write never happened.
	ErrConflict = errors.New("store: version conflict")
	// ErrLocked rejects a non-override mutation of a locked plan.
	ErrLocked = errors.New("store: plan is locked")
	// ErrPlanApproved rejects a re-run for a date whose plan set has been
	// approved.
	ErrPlanApproved = errors.New("store: plan already approved")
)

// FleetStore exposes trainset state and satellite records.
type FleetStore interface {
	Trainset(ctx context.Context, id string) (model.Trainset, error)
	ListTrainsets(ctx context.Context) ([]model.Trainset, error)
	UpdateTrainsetStatus(ctx context.Context, id string, status model.TrainsetStatus) error

	CertificatesFor(ctx context.Context, trainsetID string) ([]model.FitnessCertificate, error)
	// RenewCertificate stores the new certificate and marks prior
	// certificates of the same type superseded. A logical replace, never a
	// physical delete.
	RenewCertificate(ctx context.Context, cert model.FitnessCertificate) error

	JobsFor(ctx context.Context, trainsetID string) ([]model.MaintenanceJob, error)
	SaveJob(ctx context.Context, job model.MaintenanceJob) error

	BrandingFor(ctx context.Context, trainsetID string) ([]model.BrandingObligation, error)
	StablingPositions(ctx context.Context) ([]model.StablingPosition, error)
	// CrewAssignments returns the roster for a service date. An empty
	// roster means crew data is not maintained and no crew constraint
	// applies.
	CrewAssignments(ctx context.Context, date time.Time) ([]model.CrewAssignment, error)
	ActiveRules(ctx context.Context) ([]model.ConstraintRule, error)
}

// ForecastStore exposes the persisted context signals for a target date.
type ForecastStore interface {
	LatestWeather(ctx context.Context, date time.Time) (model.WeatherSnapshot, error)
	LatestCongestion(ctx context.Context, date time.Time) (model.CongestionSnapshot, error)
	EventsOn(ctx context.Context, date time.Time) ([]model.CalendarEvent, error)
}

// PlanStore persists induction plans with optimistic locking.
type PlanStore interface {
	Plan(ctx context.Context, id string) (model.InductionPlan, error)
	PlansFor(ctx context.Context, date time.Time) ([]model.InductionPlan, error)
	// UpsertPlan writes the draft row keyed by (trainset, plan date). A
	// locked existing row is rejected with ErrLocked, an approved one with
	// ErrPlanApproved.
	UpsertPlan(ctx context.Context, plan model.InductionPlan) error
	// UpdatePlan replaces the row only if the stored version still equals
	// expectedVersion, otherwise ErrConflict. The override path is the only
	// caller allowed to pass allowLocked.
	UpdatePlan(ctx context.Context, plan model.InductionPlan, expectedVersion int, allowLocked bool) error

	AppendOverride(ctx context.Context, dec model.OverrideDecision) error
	ListOverrides(ctx context.Context, date time.Time) ([]model.OverrideDecision, error)
}

// Store is the full persistence collaborator.
type Store interface {
	FleetStore
	ForecastStore
	PlanStore
}

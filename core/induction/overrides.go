package induction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/audit"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/events"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/metrics"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/readiness"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/store"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/whatif"
)

// MutateFunc receives the current plan row and returns the edited one. The
// identity fields and version are managed by the planner.
type MutateFunc func(model.InductionPlan) model.InductionPlan

// OverrideRequest describes a supervisor edit of one plan row.
type OverrideRequest struct {
	TrainsetID string     `json:"trainset_id"`
	PlanDate   time.Time  `json:"plan_date"`
	Mutate     MutateFunc `json:"-"`
	Reason     string     `json:"reason"`
	Actor      string     `json:"actor"`
}

// ApplyOverride edits a plan row through the optimistic-lock discipline.
// A reason and actor are mandatory; the change is allowed on locked rows
// and leaves an audit record. Version conflicts surface as
// store.ErrConflict for the caller to retry.
func (p *Planner) ApplyOverride(ctx context.Context, req OverrideRequest) (model.InductionPlan, error) {
	if req.Reason == "" {
		return model.InductionPlan{}, fmt.Errorf("override reason is required")
	}
	if req.Actor == "" {
		return model.InductionPlan{}, fmt.Errorf("override actor is required")
	}
	if req.Mutate == nil {
		return model.InductionPlan{}, fmt.Errorf("override mutation is required")
	}
	current, err := p.planFor(ctx, req.TrainsetID, req.PlanDate)
	if err != nil {
		return model.InductionPlan{}, err
	}

	next := req.Mutate(current)
	next.ID = current.ID
	next.TrainsetID = current.TrainsetID
	next.PlanDate = current.PlanDate
	now := p.now()
	next.OverrideReason = req.Reason
	next.OverrideBy = req.Actor
	next.OverrideAt = &now

	if err := p.store.UpdatePlan(ctx, next, current.Version, true); err != nil {
		return model.InductionPlan{}, err
	}
	next.Version = current.Version + 1

	if err := p.audit.Append(ctx, audit.Record{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Action:     audit.ActionOverride,
		PlanDate:   model.PlanDay(req.PlanDate),
		TrainsetID: req.TrainsetID,
		Actor:      req.Actor,
		Reason:     req.Reason,
		Before:     audit.Marshal(current),
		After:      audit.Marshal(next),
	}); err != nil {
		p.log.Errorf("override audit not recorded: %v", err)
	}
	return next, nil
}

// Lock freezes a plan row against further planner writes. Only the
// override path may change a locked row.
func (p *Planner) Lock(ctx context.Context, trainsetID string, date time.Time, actor string) error {
	current, err := p.planFor(ctx, trainsetID, date)
	if err != nil {
		return err
	}
	if current.Locked {
		return nil
	}
	now := p.now()
	next := current
	next.Locked = true
	next.LockedBy = actor
	next.LockedAt = &now
	return p.store.UpdatePlan(ctx, next, current.Version, false)
}

// Approve marks every plan row of the date approved and locked. Approval is
// terminal for the date: subsequent nightly runs are rejected.
func (p *Planner) Approve(ctx context.Context, date time.Time, actor string) error {
	if actor == "" {
		return fmt.Errorf("approval actor is required")
	}
	plans, err := p.store.PlansFor(ctx, date)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return store.ErrNotFound
	}
	now := p.now()
	for _, pl := range plans {
		if pl.Approved {
			continue
		}
		next := pl
		next.Approved = true
		next.ApprovedBy = actor
		if !next.Locked {
			next.Locked = true
			next.LockedBy = actor
			next.LockedAt = &now
		}
		if err := p.store.UpdatePlan(ctx, next, pl.Version, true); err != nil {
			return fmt.Errorf("approve %s: %w", pl.TrainsetID, err)
		}
	}
	if err := p.audit.Append(ctx, audit.Record{
		ID:        uuid.NewString(),
		Timestamp: now,
		Action:    audit.ActionApproved,
		PlanDate:  model.PlanDay(date),
		Actor:     actor,
	}); err != nil {
		p.log.Errorf("approval audit not recorded: %v", err)
	}
	return nil
}

// AnalyzeSwap evaluates substituting a standby trainset for a scheduled one
// without executing anything. The decision is persisted for the record and
// counted in telemetry.
func (p *Planner) AnalyzeSwap(ctx context.Context, date time.Time, scheduledID, standbyID string) (whatif.Analysis, error) {
	scheduled, standby, err := p.swapTrains(ctx, date, scheduledID, standbyID)
	if err != nil {
		return whatif.Analysis{}, err
	}
	a := p.whatif.Analyze(model.PlanDay(date), scheduled, standby, p.now())
	dec := decisionFrom(a, false, "", "")
	if err := p.store.AppendOverride(ctx, dec); err != nil {
		p.log.Errorf("swap analysis not persisted: %v", err)
	}
	if err := p.sink.RecordSwap(metrics.SwapRecord{
		PlanDate:       a.PlanDate,
		Tier:           a.Tier,
		ReadinessDelta: a.ReadinessDelta,
		ShuntingMoves:  a.ShuntingMoves,
	}); err != nil {
		p.log.Errorf("swap metrics not recorded: %v", err)
	}
	return a, nil
}

// ExecuteSwap analyzes the substitution and, when it is not rejected,
// applies the status change to both trainsets. The second status update is
// rolled back if the first cannot be undone, keeping the pair consistent.
func (p *Planner) ExecuteSwap(ctx context.Context, date time.Time, scheduledID, standbyID, actor, reason string) (whatif.Analysis, error) {
	if actor == "" {
		return whatif.Analysis{}, fmt.Errorf("swap actor is required")
	}
	scheduled, standby, err := p.swapTrains(ctx, date, scheduledID, standbyID)
	if err != nil {
		return whatif.Analysis{}, err
	}
	a := p.whatif.Analyze(model.PlanDay(date), scheduled, standby, p.now())
	if a.Tier == whatif.TierRejected {
		return a, fmt.Errorf("swap %s for %s is rejected (delta %.1f)", standbyID, scheduledID, a.ReadinessDelta)
	}

	if err := p.store.UpdateTrainsetStatus(ctx, standbyID, model.StatusOperational); err != nil {
		return a, fmt.Errorf("promote standby %s: %w", standbyID, err)
	}
	if err := p.store.UpdateTrainsetStatus(ctx, scheduledID, model.StatusStandby); err != nil {
		if rbErr := p.store.UpdateTrainsetStatus(ctx, standbyID, model.StatusStandby); rbErr != nil {
			p.log.Errorf("rollback of %s failed, statuses inconsistent: %v", standbyID, rbErr)
		}
		return a, fmt.Errorf("demote scheduled %s: %w", scheduledID, err)
	}

	dec := decisionFrom(a, true, actor, reason)
	if err := p.store.AppendOverride(ctx, dec); err != nil {
		p.log.Errorf("swap decision not persisted: %v", err)
	}
	if err := p.audit.Append(ctx, audit.Record{
		ID:         uuid.NewString(),
		Timestamp:  p.now(),
		Action:     audit.ActionSwapExecuted,
		PlanDate:   a.PlanDate,
		TrainsetID: scheduledID,
		Actor:      actor,
		Reason:     reason,
		After:      audit.Marshal(a),
	}); err != nil {
		p.log.Errorf("swap audit not recorded: %v", err)
	}
	if err := p.sink.RecordSwap(metrics.SwapRecord{
		PlanDate:       a.PlanDate,
		Tier:           a.Tier,
		ReadinessDelta: a.ReadinessDelta,
		ShuntingMoves:  a.ShuntingMoves,
		Executed:       true,
	}); err != nil {
		p.log.Errorf("swap metrics not recorded: %v", err)
	}
	p.bus.Publish(events.SwapExecutedEvent{
		DecisionID:  dec.ID,
		PlanDate:    a.PlanDate,
		ScheduledID: scheduledID,
		StandbyID:   standbyID,
		Tier:        a.Tier,
	})
	return a, nil
}

func (p *Planner) planFor(ctx context.Context, trainsetID string, date time.Time) (model.InductionPlan, error) {
	plans, err := p.store.PlansFor(ctx, date)
	if err != nil {
		return model.InductionPlan{}, err
	}
	for _, pl := range plans {
		if pl.TrainsetID == trainsetID {
			return pl, nil
		}
	}
	return model.InductionPlan{}, store.ErrNotFound
}

// swapTrains loads and scores both sides of a proposed swap.
func (p *Planner) swapTrains(ctx context.Context, date time.Time, scheduledID, standbyID string) (whatif.Train, whatif.Train, error) {
	if scheduledID == standbyID {
		return whatif.Train{}, whatif.Train{}, fmt.Errorf("swap requires two distinct trainsets")
	}
	fleet, err := p.store.ListTrainsets(ctx)
	if err != nil {
		return whatif.Train{}, whatif.Train{}, err
	}
	avg, _ := readiness.FleetAverageMileage(fleet)
	now := p.now()

	load := func(id string) (whatif.Train, error) {
		t, err := p.store.Trainset(ctx, id)
		if err != nil {
			return whatif.Train{}, fmt.Errorf("trainset %s: %w", id, err)
		}
		rec, err := p.buildRecord(ctx, t, now)
		if err != nil {
			return whatif.Train{}, err
		}
		score := p.scorer.Score(rec, avg, now)
		critical, other := model.CountOpenJobs(rec.Jobs)
		return whatif.Train{
			ID:             t.ID,
			Readiness:      score.Percent(),
			TrackPosition:  t.TrackPosition,
			DueMaintenance: critical > 0 || other > 0,
		}, nil
	}

	scheduled, err := load(scheduledID)
	if err != nil {
		return whatif.Train{}, whatif.Train{}, err
	}
	standby, err := load(standbyID)
	if err != nil {
		return whatif.Train{}, whatif.Train{}, err
	}
	return scheduled, standby, nil
}

func decisionFrom(a whatif.Analysis, executed bool, actor, reason string) model.OverrideDecision {
	return model.OverrideDecision{
		ID:             a.ID,
		PlanDate:       a.PlanDate,
		ScheduledID:    a.ScheduledID,
		StandbyID:      a.StandbyID,
		ReadinessDelta: a.ReadinessDelta,
		ShuntingMoves:  a.ShuntingMoves,
		Tier:           a.Tier,
		Executed:       executed,
		Reason:         reason,
		DecidedBy:      actor,
		DecidedAt:      a.CreatedAt,
	}
}

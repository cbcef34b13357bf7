// Package induction orchestrates the nightly planning run: it assembles
// fleet records, scores and filters them, partitions the fleet, packs the
// service list into departure slots and persists the resulting plan set.
// Per-trainset failures are collected and reported; a bad record never
// aborts the whole run.
package induction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/allocation"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/audit"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/constraint"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/events"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/forecast"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/logger"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/metrics"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/readiness"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/slotplan"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/store"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/whatif"
	"github.com/ObsyanX/kmrl-prototype1-sub001/internal/eventbus"
)

// Planner coordinates the planning collaborators. All fields are set at
// construction and never mutated afterwards, so a Planner is safe for
// concurrent use.
type Planner struct {
	store     store.Store
	forecasts *forecast.Aggregator
	scorer    *readiness.Scorer
	consCfg   constraint.Config
	optimizer *allocation.Optimizer
	slots     *slotplan.Scheduler
	whatif    *whatif.Engine
	audit     audit.Store
	bus       eventbus.EventBus
	sink      metrics.Sink
	log       logger.Logger
	now       func() time.Time
}

// Deps bundles the planner collaborators.
type Deps struct {
	Store      store.Store
	Forecasts  *forecast.Aggregator
	Scorer     *readiness.Scorer
	Constraint constraint.Config
	Optimizer  *allocation.Optimizer
	Slots      *slotplan.Scheduler
	WhatIf     *whatif.Engine
	Audit      audit.Store
	Bus        eventbus.EventBus
	Metrics    metrics.Sink
	Logger     logger.Logger
	Now        func() time.Time
}

// NewPlanner validates and wires the dependencies. Optional collaborators
// (audit, bus, metrics) default to no-ops.
func NewPlanner(d Deps) (*Planner, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("induction: store is required")
	}
	if d.Forecasts == nil {
		return nil, fmt.Errorf("induction: forecast aggregator is required")
	}
	if d.Scorer == nil {
		d.Scorer = readiness.NewScorer(readiness.DefaultWeights())
	}
	if d.Optimizer == nil {
		d.Optimizer = allocation.NewOptimizer(allocation.Config{})
	}
	if d.Slots == nil {
		s, err := slotplan.NewScheduler(slotplan.Config{})
		if err != nil {
			return nil, err
		}
		d.Slots = s
	}
	if d.WhatIf == nil {
		d.WhatIf = whatif.NewEngine(whatif.Config{})
	}
	if d.Audit == nil {
		d.Audit = audit.NopStore{}
	}
	if d.Bus == nil {
		d.Bus = eventbus.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NopSink{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Planner{
		store:     d.Store,
		forecasts: d.Forecasts,
		scorer:    d.Scorer,
		consCfg:   d.Constraint,
		optimizer: d.Optimizer,
		slots:     d.Slots,
		whatif:    d.WhatIf,
		audit:     d.Audit,
		bus:       d.Bus,
		sink:      d.Metrics,
		log:       d.Logger,
		now:       d.Now,
	}, nil
}

// RunResult is the outcome of one nightly run.
type RunResult struct {
	PlanDate   time.Time         `json:"plan_date"`
	Forecast   forecast.Context  `json:"forecast"`
	Allocation allocation.Result `json:"allocation"`
	Slots      slotplan.Result   `json:"slots"`
	Plans      int               `json:"plans_written"`
	// LockConflicts lists trainsets whose existing plan row is locked and
	// was therefore left untouched by the run.
	LockConflicts []string `json:"lock_conflicts,omitempty"`
	// Errors maps trainset IDs to the failure that excluded them from the
	// run. The run continues past them.
	Errors map[string]error `json:"-"`
}

// RunNightly produces and persists the induction plan set for the given
// date. Re-running the same date overwrites draft rows idempotently; a date
// whose plan set has been approved is rejected with store.ErrPlanApproved.
func (p *Planner) RunNightly(ctx context.Context, date time.Time) (RunResult, error) {
	started := p.now()
	day := model.PlanDay(date)
	res := RunResult{PlanDate: day, Errors: make(map[string]error)}

	existing, err := p.store.PlansFor(ctx, day)
	if err != nil {
		return res, fmt.Errorf("load existing plans: %w", err)
	}
	for _, pl := range existing {
		if pl.Approved {
			return res, store.ErrPlanApproved
		}
	}

	fleet, err := p.store.ListTrainsets(ctx)
	if err != nil {
		return res, fmt.Errorf("list trainsets: %w", err)
	}
	if len(fleet) == 0 {
		return res, fmt.Errorf("no trainsets registered")
	}

	fleetAvg, ok := readiness.FleetAverageMileage(fleet)
	if !ok {
		p.log.Warnf("fleet average mileage unavailable, mileage scores are neutral")
	}

	res.Forecast = p.forecasts.Snapshot(ctx, day)

	rules, err := p.store.ActiveRules(ctx)
	if err != nil {
		return res, fmt.Errorf("load constraint rules: %w", err)
	}
	evaluator := constraint.NewEvaluator(p.consCfg, rules)

	roster, err := p.store.CrewAssignments(ctx, day)
	if err != nil {
		return res, fmt.Errorf("load crew roster: %w", err)
	}
	crewByTrain := make(map[string]string, len(roster))
	for _, a := range roster {
		crewByTrain[a.TrainsetID] = a.CrewID
	}

	positions, err := p.store.StablingPositions(ctx)
	if err != nil {
		p.log.Warnf("stabling geometry unavailable, using cached track positions: %v", err)
	}
	posByID := make(map[string]model.StablingPosition, len(positions))
	for _, pos := range positions {
		posByID[pos.ID] = pos
	}

	now := p.now()
	trainsets := make(map[string]model.Trainset, len(fleet))
	var candidates []allocation.Candidate
	for _, t := range fleet {
		trainsets[t.ID] = t
		rec, err := p.buildRecord(ctx, t, now)
		if err != nil {
			p.log.Errorf("trainset %s excluded from run: %v", t.ID, err)
			p.bus.Publish(events.RunErrorEvent{PlanDate: day, TrainsetID: t.ID, Err: err})
			res.Errors[t.ID] = err
			continue
		}
		// Without roster data the crew rule does not apply.
		rec.CrewAvailable = len(crewByTrain) == 0 || crewByTrain[t.ID] != ""
		candidates = append(candidates, allocation.Candidate{
			Trainset:   t,
			Score:      p.scorer.Score(rec, fleetAvg, now),
			Evaluation: evaluator.Evaluate(rec, fleetAvg, now),
		})
	}

	res.Allocation = p.optimizer.Allocate(candidates, res.Forecast, now)
	if res.Allocation.FleetCritical {
		p.log.Errorf("no trainset passes hard constraints for %s", day.Format("2006-01-02"))
	}

	holiday, err := p.isHoliday(ctx, day)
	if err != nil {
		p.log.Warnf("holiday lookup failed, assuming regular day: %v", err)
	}
	slotCands := make([]slotplan.Candidate, 0, len(res.Allocation.ForService))
	for _, r := range res.Allocation.ForService {
		t := trainsets[r.TrainsetID]
		slotCands = append(slotCands, slotplan.Candidate{
			TrainsetID:    r.TrainsetID,
			Readiness:     r.Readiness * 100,
			TrackPosition: stagedTrackPosition(t, posByID),
			StablingID:    t.StablingID,
		})
	}
	res.Slots = p.slots.Assign(day, slotCands, holiday, res.Forecast.Congestion)

	plans := p.buildPlans(day, res, trainsets, crewByTrain)
	for _, plan := range plans {
		switch err := p.store.UpsertPlan(ctx, plan); {
		case err == nil:
			res.Plans++
		case err == store.ErrLocked:
			p.log.Warnf("plan for %s is locked, leaving existing row", plan.TrainsetID)
			res.LockConflicts = append(res.LockConflicts, plan.TrainsetID)
		default:
			res.Errors[plan.TrainsetID] = err
		}
	}

	p.finishRun(ctx, res, started)
	return res, nil
}

func (p *Planner) buildRecord(ctx context.Context, t model.Trainset, now time.Time) (model.TrainsetRecord, error) {
	if err := t.Validate(); err != nil {
		return model.TrainsetRecord{}, err
	}
	certs, err := p.store.CertificatesFor(ctx, t.ID)
	if err != nil {
		return model.TrainsetRecord{}, fmt.Errorf("certificates: %w", err)
	}
	jobs, err := p.store.JobsFor(ctx, t.ID)
	if err != nil {
		return model.TrainsetRecord{}, fmt.Errorf("jobs: %w", err)
	}
	for i, j := range jobs {
		aged := j.Aged(now)
		if aged.Status != j.Status {
			if err := p.store.SaveJob(ctx, aged); err != nil {
				p.log.Warnf("job %s aging not persisted: %v", j.ID, err)
			}
			jobs[i] = aged
		}
	}
	branding, err := p.store.BrandingFor(ctx, t.ID)
	if err != nil {
		return model.TrainsetRecord{}, fmt.Errorf("branding: %w", err)
	}
	return model.TrainsetRecord{
		Trainset:     t,
		Certificates: certs,
		Jobs:         jobs,
		Branding:     branding,
	}, nil
}

// stagedTrackPosition resolves a trainset's staging depth from the depot
// geometry. The position record wins over the trainset's cached value
// unless it is reserved or recorded with a different occupant.
func stagedTrackPosition(t model.Trainset, positions map[string]model.StablingPosition) int {
	pos, ok := positions[t.StablingID]
	if !ok || pos.Status == model.StablingReserved {
		return t.TrackPosition
	}
	if pos.CurrentOccupant != "" && pos.CurrentOccupant != t.ID {
		return t.TrackPosition
	}
	return pos.TrackPosition
}

func (p *Planner) isHoliday(ctx context.Context, day time.Time) (bool, error) {
	evs, err := p.store.EventsOn(ctx, day)
	if err != nil {
		return false, err
	}
	for _, e := range evs {
		if e.Kind == model.EventHoliday || e.Kind == model.EventFestival {
			return true, nil
		}
	}
	return false, nil
}

func (p *Planner) buildPlans(day time.Time, res RunResult, trainsets map[string]model.Trainset, crew map[string]string) []model.InductionPlan {
	slotByTrain := make(map[string]slotplan.Assignment, len(res.Slots.Assignments))
	for _, a := range res.Slots.Assignments {
		slotByTrain[a.TrainsetID] = a
	}

	degradedPenalty := 0.0
	if len(res.Forecast.Degraded) > 0 {
		degradedPenalty = 0.05
	}

	var plans []model.InductionPlan
	add := func(r allocation.Ranked, category string) {
		t := trainsets[r.TrainsetID]
		plan := model.InductionPlan{
			ID:             uuid.NewString(),
			TrainsetID:     r.TrainsetID,
			PlanDate:       day,
			StablingID:     t.StablingID,
			Crew:           crew[r.TrainsetID],
			Status:         model.PlanPlanned,
			Priority:       planPriority(r, category),
			Category:       category,
			Confidence:     clamp01(r.Readiness - degradedPenalty),
			BlockingIssues: r.Issues,
			Violations:     r.Violations,
			RiskScore:      (1 - r.Readiness) * 100,
		}
		if a, ok := slotByTrain[r.TrainsetID]; ok {
			plan.SlotIndex = a.SlotIndex
			plan.ScheduledStart = a.Departure
			plan.ScheduledEnd = a.Departure.Add(16 * time.Hour)
			if a.Priority {
				plan.Priority = model.PlanHigh
			}
		}
		plans = append(plans, plan)
	}
	for _, r := range res.Allocation.ForService {
		add(r, allocation.CategoryService)
	}
	for _, r := range res.Allocation.OnStandby {
		add(r, allocation.CategoryStandby)
	}
	for _, r := range res.Allocation.InMaintenance {
		add(r, allocation.CategoryMaintenance)
	}
	return plans
}

func planPriority(r allocation.Ranked, category string) model.PlanPriority {
	switch {
	case category == allocation.CategoryMaintenance && len(r.Issues) > 0:
		return model.PlanCritical
	case category == allocation.CategoryService:
		return model.PlanNormal
	default:
		return model.PlanLow
	}
}

func (p *Planner) finishRun(ctx context.Context, res RunResult, started time.Time) {
	rec := metrics.RunRecord{
		PlanDate:         res.PlanDate,
		OptimizationID:   res.Allocation.OptimizationID,
		ServiceCount:     len(res.Allocation.ForService),
		StandbyCount:     len(res.Allocation.OnStandby),
		MaintenanceCount: len(res.Allocation.InMaintenance),
		UnassignedCount:  len(res.Slots.Unassigned),
		ErrorCount:       len(res.Errors),
		FleetCritical:    res.Allocation.FleetCritical,
		DemandFactor:     res.Forecast.DemandFactor,
		WeatherSeverity:  res.Forecast.WeatherSeverity,
		Congestion:       res.Forecast.Congestion,
		FloodingRisk:     res.Forecast.FloodingRisk,
		Duration:         p.now().Sub(started),
	}
	if err := p.sink.RecordRun(rec); err != nil {
		p.log.Errorf("run metrics not recorded: %v", err)
	}
	if err := p.audit.Append(ctx, audit.Record{
		ID:        uuid.NewString(),
		Timestamp: p.now(),
		Action:    audit.ActionRunCompleted,
		PlanDate:  res.PlanDate,
		After:     audit.Marshal(res.Allocation.Summary),
	}); err != nil {
		p.log.Errorf("run audit not recorded: %v", err)
	}
	p.bus.Publish(events.RunCompletedEvent{
		PlanDate:       res.PlanDate,
		OptimizationID: res.Allocation.OptimizationID,
		ServiceCount:   len(res.Allocation.ForService),
		StandbyCount:   len(res.Allocation.OnStandby),
		Maintenance:    len(res.Allocation.InMaintenance),
		Unassigned:     len(res.Slots.Unassigned),
		FleetCritical:  res.Allocation.FleetCritical,
	})
	p.log.Infof("run for %s: %d service, %d standby, %d maintenance, %d errors",
		res.PlanDate.Format("2006-01-02"), rec.ServiceCount, rec.StandbyCount,
		rec.MaintenanceCount, rec.ErrorCount)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

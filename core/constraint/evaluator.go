// Package constraint classifies trainsets against the active rule set.
// Hard rule violations force a trainset out of service regardless of its
// readiness score; soft violations accumulate a weighted penalty that only
// excludes when it crosses the configured threshold.
package constraint

import (
	"fmt"
	"math"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
)

// Rule names. ConstraintRule records override the parameters and weights of
// the built-in rules by name.
const (
	RuleFitnessCertificate = "fitness_certificate"
	RuleCriticalJob        = "critical_maintenance"
	RuleHealthFloor        = "health_floor"
	RuleCertificateExpiry  = "certificate_expiry"
	RuleMaintenanceBacklog = "maintenance_backlog"
	RuleMileageDeviation   = "mileage_deviation"
	RuleCrewAvailability   = "crew_availability"
	RuleStablingPosition   = "stabling_position"
)

// Config carries the default rule parameters.
type Config struct {
	HealthFloor         float64 `json:"health_floor"`
	CertWarningDays     int     `json:"cert_warning_days"`
	MaxPendingJobs      int     `json:"max_pending_jobs"`
	MileageDeviationPct float64 `json:"mileage_deviation_pct"`
	// PenaltyThreshold is the cumulative soft penalty beyond which a
	// trainset is excluded from service even without a hard violation.
	PenaltyThreshold float64 `json:"penalty_threshold"`
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.HealthFloor == 0 {
		c.HealthFloor = 50
	}
	if c.CertWarningDays == 0 {
		c.CertWarningDays = 30
	}
	if c.MaxPendingJobs == 0 {
		c.MaxPendingJobs = 3
	}
	if c.MileageDeviationPct == 0 {
		c.MileageDeviationPct = 30
	}
	if c.PenaltyThreshold == 0 {
		c.PenaltyThreshold = 5
	}
}

// Result is the outcome of one rule check.
type Result struct {
	Rule      string         `json:"rule_name"`
	Type      model.RuleType `json:"type"`
	Satisfied bool           `json:"satisfied"`
	Message   string         `json:"message,omitempty"`
	Penalty   float64        `json:"penalty,omitempty"`
}

// Evaluation aggregates all rule results for a trainset.
type Evaluation struct {
	TrainsetID     string   `json:"trainset_id"`
	Results        []Result `json:"results"`
	CanOperate     bool     `json:"can_operate"`
	HardViolations int      `json:"hard_violations"`
	SoftPenalty    float64  `json:"soft_penalty"`
	BlockingIssues []string `json:"blocking_issues"`
}

// Violations returns the violated results as plan annotations.
func (e Evaluation) Violations() []model.RuleViolation {
	var out []model.RuleViolation
	for _, r := range e.Results {
		if !r.Satisfied {
			out = append(out, model.RuleViolation{Rule: r.Rule, Severity: string(r.Type)})
		}
	}
	return out
}

// Evaluator applies the built-in rules, parameterized by config and by any
// matching active ConstraintRule records.
type Evaluator struct {
	cfg   Config
	rules map[string]model.ConstraintRule
}

// NewEvaluator builds an evaluator. Rule records are indexed by name; only
// active records are considered.
func NewEvaluator(cfg Config, rules []model.ConstraintRule) *Evaluator {
	cfg.SetDefaults()
	idx := make(map[string]model.ConstraintRule, len(rules))
	for _, r := range rules {
		if r.Active {
			idx[r.Name] = r
		}
	}
	return &Evaluator{cfg: cfg, rules: idx}
}

func (e *Evaluator) penalty(rule string) float64 {
	if r, ok := e.rules[rule]; ok {
		w := r.Weight
		if w == 0 {
			w = 1
		}
		p := r.Penalty
		if p == 0 {
			p = 1
		}
		return w * p
	}
	return 1
}

func (e *Evaluator) param(rule, name string, def float64) float64 {
	if r, ok := e.rules[rule]; ok {
		return r.Param(name, def)
	}
	return def
}

// Evaluate classifies one trainset record. A trainset with zero
// certificates on file is treated identically to one with only expired
// certificates: both hard-fail the fitness rule.
func (e *Evaluator) Evaluate(rec model.TrainsetRecord, fleetAvgKM float64, now time.Time) Evaluation {
	ev := Evaluation{TrainsetID: rec.Trainset.ID}

	best, hasCert := model.BestCertificate(rec.Certificates, now)
	critical, pending := model.CountOpenJobs(rec.Jobs)

	ev.hard(RuleFitnessCertificate, hasCert,
		"no valid fitness certificate on file")
	ev.hard(RuleCriticalJob, critical == 0,
		fmt.Sprintf("%d critical maintenance job(s) open", critical))
	floor := e.param(RuleHealthFloor, "floor", e.cfg.HealthFloor)
	ev.hard(RuleHealthFloor, rec.Trainset.HealthScore >= floor,
		fmt.Sprintf("component health %.0f below floor %.0f", rec.Trainset.HealthScore, floor))

	warn := time.Duration(e.param(RuleCertificateExpiry, "days", float64(e.cfg.CertWarningDays))) * 24 * time.Hour
	certOK := !hasCert || !best.ExpiresWithin(now, warn)
	ev.soft(RuleCertificateExpiry, certOK,
		fmt.Sprintf("fitness certificate expires %s", best.ExpiresAt.Format("2006-01-02")),
		e.penalty(RuleCertificateExpiry))

	maxJobs := int(e.param(RuleMaintenanceBacklog, "max_jobs", float64(e.cfg.MaxPendingJobs)))
	ev.soft(RuleMaintenanceBacklog, pending <= maxJobs,
		fmt.Sprintf("%d pending maintenance jobs exceed backlog limit %d", pending, maxJobs),
		e.penalty(RuleMaintenanceBacklog))

	devOK := true
	if fleetAvgKM > 0 {
		pct := math.Abs(rec.Trainset.TotalMileageKM-fleetAvgKM) / fleetAvgKM * 100
		devOK = pct <= e.param(RuleMileageDeviation, "max_pct", e.cfg.MileageDeviationPct)
	}
	ev.soft(RuleMileageDeviation, devOK,
		"mileage deviates from fleet average beyond the balancing band",
		e.penalty(RuleMileageDeviation))

	ev.soft(RuleCrewAvailability, rec.CrewAvailable,
		"no crew assignable for the target date",
		e.penalty(RuleCrewAvailability))

	ev.soft(RuleStablingPosition, rec.Trainset.StablingID != "",
		"stabling position unknown or unassigned",
		e.penalty(RuleStablingPosition))

	ev.CanOperate = ev.HardViolations == 0 && ev.SoftPenalty <= e.cfg.PenaltyThreshold
	return ev
}

func (ev *Evaluation) hard(rule string, ok bool, msg string) {
	r := Result{Rule: rule, Type: model.RuleHard, Satisfied: ok}
	if !ok {
		r.Message = msg
		ev.HardViolations++
		ev.BlockingIssues = append(ev.BlockingIssues, msg)
	}
	ev.Results = append(ev.Results, r)
}

func (ev *Evaluation) soft(rule string, ok bool, msg string, penalty float64) {
	r := Result{Rule: rule, Type: model.RuleSoft, Satisfied: ok}
	if !ok {
		r.Message = msg
		r.Penalty = penalty
		ev.SoftPenalty += penalty
		ev.BlockingIssues = append(ev.BlockingIssues, msg)
	}
	ev.Results = append(ev.Results, r)
}

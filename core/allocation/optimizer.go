// Package allocation partitions the fleet into service, standby and
// maintenance categories for a planning run and produces the ranked
// recommendation list consumed by the slot scheduler and the dashboards.
package allocation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/constraint"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/forecast"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/readiness"
)

// Category names used in plan rows and summaries.
const (
	CategoryService     = "for_service"
	CategoryStandby     = "on_standby"
	CategoryMaintenance = "in_maintenance"
)

// Config controls the partitioning.
type Config struct {
	// ServiceTarget is the baseline number of trainsets placed for_service.
	ServiceTarget int `json:"service_target"`
}

// SetDefaults applies the documented default fleet size.
func (c *Config) SetDefaults() {
	if c.ServiceTarget == 0 {
		c.ServiceTarget = 18
	}
}

// Candidate is one scored, constraint-checked trainset entering allocation.
type Candidate struct {
	Trainset   model.Trainset
	Score      readiness.Score
	Evaluation constraint.Evaluation
}

// Ranked is a candidate with its category decision and rationale.
type Ranked struct {
	TrainsetID string                `json:"trainset_id"`
	Category   string                `json:"category"`
	Readiness  float64               `json:"readiness"` // composite, 0-1
	MileageKM  float64               `json:"mileage_km"`
	Rationale  string                `json:"rationale"`
	Issues     []string              `json:"blocking_issues,omitempty"`
	Violations []model.RuleViolation `json:"constraint_violations,omitempty"`
}

// HardFailure identifies a trainset excluded by hard constraints.
type HardFailure struct {
	TrainsetID string   `json:"trainset_id"`
	Issues     []string `json:"blocking_issues"`
}

// Result is the full allocation outcome. A fleet where no trainset passes
// hard constraints is a critical operational state reported as data, never
// an error.
type Result struct {
	OptimizationID string        `json:"optimization_id"`
	GeneratedAt    time.Time     `json:"generated_at"`
	ForService     []Ranked      `json:"for_service"`
	OnStandby      []Ranked      `json:"on_standby"`
	InMaintenance  []Ranked      `json:"in_maintenance"`
	HardFailures   []HardFailure `json:"hard_constraint_failures"`
	// Recommendations lists every trainset sorted by readiness ascending:
	// the units needing attention come first.
	Recommendations []Ranked `json:"recommendations"`
	ServiceCutoff   int      `json:"service_cutoff"`
	FleetCritical   bool     `json:"fleet_critical"`
	StandbyAlert    bool     `json:"standby_alert"`
	Summary         Summary  `json:"summary"`
}

// Summary carries the category counts.
type Summary struct {
	Service     int `json:"for_service"`
	Standby     int `json:"on_standby"`
	Maintenance int `json:"in_maintenance"`
}

// Optimizer ranks candidates and cuts the service list.
type Optimizer struct {
	cfg Config
}

// NewOptimizer returns an optimizer with defaults applied.
func NewOptimizer(cfg Config) *Optimizer {
	cfg.SetDefaults()
	return &Optimizer{cfg: cfg}
}

// ServiceCutoff scales the baseline target with the demand factor, never
// below the configured baseline, never above the eligible count.
func (o *Optimizer) ServiceCutoff(eligible int, demandFactor float64) int {
	n := o.cfg.ServiceTarget
	if demandFactor > 1 {
		n = int(math.Round(float64(o.cfg.ServiceTarget) * demandFactor))
	}
	if n > eligible {
		n = eligible
	}
	return n
}

// Allocate partitions the candidates for the given contextual snapshot.
// Output ordering is deterministic: ties on readiness break by lower total
// mileage, then by trainset identifier.
func (o *Optimizer) Allocate(candidates []Candidate, fctx forecast.Context, now time.Time) Result {
	res := Result{
		OptimizationID: uuid.NewString(),
		GeneratedAt:    now,
		StandbyAlert:   fctx.SevereWeather() || fctx.HighCongestion(),
	}

	var eligible, penalized []Candidate
	for _, c := range candidates {
		if c.Evaluation.HardViolations > 0 {
			res.HardFailures = append(res.HardFailures, HardFailure{
				TrainsetID: c.Trainset.ID,
				Issues:     c.Evaluation.BlockingIssues,
			})
			res.InMaintenance = append(res.InMaintenance, ranked(c, CategoryMaintenance,
				"excluded by hard constraint"))
			continue
		}
		if !c.Evaluation.CanOperate {
			penalized = append(penalized, c)
			continue
		}
		eligible = append(eligible, c)
	}

	sortCandidates(eligible)

	cutoff := o.ServiceCutoff(len(eligible), fctx.DemandFactor)
	res.ServiceCutoff = cutoff
	for i, c := range eligible {
		if i < cutoff {
			res.ForService = append(res.ForService, ranked(c, CategoryService,
				fmt.Sprintf("ranked %d of %d eligible", i+1, len(eligible))))
		} else {
			res.OnStandby = append(res.OnStandby, ranked(c, CategoryStandby,
				fmt.Sprintf("below service cutoff %d", cutoff)))
		}
	}
	sortCandidates(penalized)
	for _, c := range penalized {
		res.OnStandby = append(res.OnStandby, ranked(c, CategoryStandby,
			"soft constraint penalty above threshold"))
	}

	sortHardFailures(res.HardFailures)
	// Fleet-critical means nothing passes the hard constraints. Trainsets
	// parked on standby by soft penalties still count as operable.
	res.FleetCritical = len(eligible)+len(penalized) == 0

	res.Recommendations = append(res.Recommendations, res.InMaintenance...)
	res.Recommendations = append(res.Recommendations, res.OnStandby...)
	res.Recommendations = append(res.Recommendations, res.ForService...)
	sort.SliceStable(res.Recommendations, func(i, j int) bool {
		a, b := res.Recommendations[i], res.Recommendations[j]
		if a.Readiness != b.Readiness {
			return a.Readiness < b.Readiness
		}
		if a.MileageKM != b.MileageKM {
			return a.MileageKM > b.MileageKM
		}
		return a.TrainsetID < b.TrainsetID
	})

	res.Summary = Summary{
		Service:     len(res.ForService),
		Standby:     len(res.OnStandby),
		Maintenance: len(res.InMaintenance),
	}
	return res
}

func ranked(c Candidate, category, why string) Ranked {
	return Ranked{
		TrainsetID: c.Trainset.ID,
		Category:   category,
		Readiness:  c.Score.Composite,
		MileageKM:  c.Trainset.TotalMileageKM,
		Rationale:  why,
		Issues:     c.Evaluation.BlockingIssues,
		Violations: c.Evaluation.Violations(),
	}
}

// sortCandidates orders by readiness descending with the mileage-balancing
// tie-break (lower mileage first), then by identifier for determinism.
func sortCandidates(list []Candidate) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Score.Composite != b.Score.Composite {
			return a.Score.Composite > b.Score.Composite
		}
		if a.Trainset.TotalMileageKM != b.Trainset.TotalMileageKM {
			return a.Trainset.TotalMileageKM < b.Trainset.TotalMileageKM
		}
		return a.Trainset.ID < b.Trainset.ID
	})
}

func sortHardFailures(list []HardFailure) {
	sort.Slice(list, func(i, j int) bool { return list[i].TrainsetID < list[j].TrainsetID })
}

// Package whatif evaluates proposed swaps between a scheduled trainset and
// a standby candidate. Analyses are pure and reproducible; executing an
// accepted swap is the planner's job.
package whatif

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation tiers.
const (
	TierAccepted = "accepted"
	TierFeasible = "feasible"
	TierReview   = "review_required"
	TierRejected = "rejected"
)

// Config holds the tier thresholds and risk limits. The feasible/review
// boundary is configuration on purpose: operators disagreed on it
// historically, and either behavior must be reproducible.
type Config struct {
	// FeasibleFloor is the lowest readiness delta still considered
	// feasible. Deltas in (FeasibleFloor, 0] are feasible.
	FeasibleFloor float64 `json:"feasible_floor"`
	// ReviewFloor is the lowest delta still worth manual review. Deltas in
	// (ReviewFloor, FeasibleFloor] require review; at or below, rejected.
	ReviewFloor float64 `json:"review_floor"`
	// CostPerMove is the operational cost charged per shunting move.
	CostPerMove float64 `json:"cost_per_move"`
	// SafetyReadinessFloor marks a standby below it as a safety risk.
	SafetyReadinessFloor float64 `json:"safety_readiness_floor"`
	// OperationalMoveLimit and SafetyMoveLimit bound acceptable shunting.
	OperationalMoveLimit int `json:"operational_move_limit"`
	SafetyMoveLimit      int `json:"safety_move_limit"`
}

// SetDefaults applies the documented thresholds.
func (c *Config) SetDefaults() {
	if c.FeasibleFloor == 0 {
		c.FeasibleFloor = -3
	}
	if c.ReviewFloor == 0 {
		c.ReviewFloor = -8
	}
	if c.CostPerMove == 0 {
		c.CostPerMove = 450
	}
	if c.SafetyReadinessFloor == 0 {
		c.SafetyReadinessFloor = 60
	}
	if c.OperationalMoveLimit == 0 {
		c.OperationalMoveLimit = 3
	}
	if c.SafetyMoveLimit == 0 {
		c.SafetyMoveLimit = 4
	}
}

// Train is the view of a trainset entering swap analysis. Readiness is on
// the 0-100 scale.
type Train struct {
	ID             string
	Readiness      float64
	TrackPosition  int
	DueMaintenance bool
}

// Risks groups the advisory findings by kind.
type Risks struct {
	Safety      []string `json:"safety,omitempty"`
	Operational []string `json:"operational,omitempty"`
	Maintenance []string `json:"maintenance,omitempty"`
}

// Analysis is the immutable outcome of one swap evaluation.
type Analysis struct {
	ID             string    `json:"id"`
	PlanDate       time.Time `json:"plan_date"`
	ScheduledID    string    `json:"scheduled_train_id"`
	StandbyID      string    `json:"standby_train_id"`
	ReadinessDelta float64   `json:"readiness_delta"`
	ShuntingMoves  int       `json:"shunting_moves"`
	EstimatedCost  float64   `json:"estimated_cost"`
	Tier           string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	Risks          Risks     `json:"risks"`
	CreatedAt      time.Time `json:"created_at"`
}

// Engine performs swap analyses.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine with defaults applied.
func NewEngine(cfg Config) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg}
}

// Analyze evaluates substituting standby for scheduled on the given date.
func (e *Engine) Analyze(date time.Time, scheduled, standby Train, now time.Time) Analysis {
	delta := standby.Readiness - scheduled.Readiness
	moves := ShuntingMoves(scheduled.TrackPosition, standby.TrackPosition)

	a := Analysis{
		ID:             uuid.NewString(),
		PlanDate:       date,
		ScheduledID:    scheduled.ID,
		StandbyID:      standby.ID,
		ReadinessDelta: delta,
		ShuntingMoves:  moves,
		EstimatedCost:  float64(moves) * e.cfg.CostPerMove,
		Tier:           e.tier(delta),
		Confidence:     confidence(delta),
		CreatedAt:      now,
	}

	if standby.Readiness < e.cfg.SafetyReadinessFloor {
		a.Risks.Safety = append(a.Risks.Safety, "standby readiness below safety floor")
	}
	if moves > e.cfg.SafetyMoveLimit {
		a.Risks.Safety = append(a.Risks.Safety, "shunting volume exceeds safe staging limit")
	} else if moves > e.cfg.OperationalMoveLimit {
		a.Risks.Operational = append(a.Risks.Operational, "shunting volume delays depot operations")
	}
	if standby.DueMaintenance {
		a.Risks.Maintenance = append(a.Risks.Maintenance, "standby trainset is due for maintenance")
	}
	return a
}

// tier maps the readiness delta through the configured floors, checked in
// order: positive deltas are accepted, then feasible, review, rejected.
func (e *Engine) tier(delta float64) string {
	switch {
	case delta > 0:
		return TierAccepted
	case delta > e.cfg.FeasibleFloor:
		return TierFeasible
	case delta > e.cfg.ReviewFloor:
		return TierReview
	default:
		return TierRejected
	}
}

// confidence grows linearly with the delta around a 0.5 midpoint, clamped
// to [0.05, 0.95].
func confidence(delta float64) float64 {
	c := 0.5 + delta/20
	if c < 0.05 {
		c = 0.05
	}
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// ShuntingMoves counts the staging moves for a swap: the track distance
// between both units plus each unit's own distance to the track head, one
// move per four slots.
func ShuntingMoves(scheduledPos, standbyPos int) int {
	diff := scheduledPos - standbyPos
	if diff < 0 {
		diff = -diff
	}
	total := diff + depth(scheduledPos) + depth(standbyPos)
	return (total + 3) / 4
}

func depth(pos int) int {
	if pos <= 1 {
		return 0
	}
	return pos - 1
}

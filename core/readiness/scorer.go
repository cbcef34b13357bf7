// Package readiness computes the composite service-readiness score of a
// trainset. Scores are weighted sums over five dimensions; the mileage
// dimension uses an inverse sigmoid of the trainset's ratio to the fleet
// average so that high-mileage units are steered towards rest.
package readiness

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
)

// Weights balances the five scoring dimensions. The weights must sum to 1.
type Weights struct {
	Mileage     float64 `json:"mileage"`
	Health      float64 `json:"health"`
	Maintenance float64 `json:"maintenance"`
	Fitness     float64 `json:"fitness"`
	Branding    float64 `json:"branding"`
}

// DefaultWeights returns the documented defaults: mileage 0.30, health
// 0.20, maintenance 0.25, fitness 0.15, branding 0.10.
func DefaultWeights() Weights {
	return Weights{Mileage: 0.30, Health: 0.20, Maintenance: 0.25, Fitness: 0.15, Branding: 0.10}
}

// Valid reports whether the weights sum to 1 within a small tolerance.
func (w Weights) Valid() bool {
	sum := w.Mileage + w.Health + w.Maintenance + w.Fitness + w.Branding
	return math.Abs(sum-1) < 1e-6
}

// Score is the composite readiness result with its per-dimension breakdown.
// All values are in [0,1].
type Score struct {
	Composite   float64  `json:"composite"`
	Fitness     float64  `json:"fitness"`
	Maintenance float64  `json:"maintenance"`
	Health      float64  `json:"health"`
	Mileage     float64  `json:"mileage"`
	Branding    float64  `json:"branding"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Percent returns the composite on a 0-100 scale, the unit used by the slot
// objective and the what-if thresholds.
func (s Score) Percent() float64 { return s.Composite * 100 }

// FleetAverageMileage returns the mean total mileage across the fleet. The
// second return value is false when the mean is zero or no trainsets exist;
// callers substitute a neutral ratio and flag a data-quality warning.
func FleetAverageMileage(fleet []model.Trainset) (float64, bool) {
	if len(fleet) == 0 {
		return 0, false
	}
	km := make([]float64, len(fleet))
	for i, t := range fleet {
		km[i] = t.TotalMileageKM
	}
	mean := stat.Mean(km, nil)
	return mean, mean > 0
}

// Scorer computes composite readiness scores.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer with the given weights, falling back to the
// defaults when they do not sum to 1.
func NewScorer(w Weights) *Scorer {
	if !w.Valid() {
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

// Score evaluates one trainset record against the fleet average mileage at
// the given instant. It is a pure computation over fetched data.
func (s *Scorer) Score(rec model.TrainsetRecord, fleetAvgKM float64, now time.Time) Score {
	var out Score

	out.Fitness = fitnessScore(rec.Certificates, now)
	out.Maintenance = maintenanceScore(rec.Jobs)
	out.Health = clamp01(rec.Trainset.HealthScore / 100)

	ratio := 1.0
	if fleetAvgKM > 0 {
		ratio = rec.Trainset.TotalMileageKM / fleetAvgKM
	} else {
		out.Warnings = append(out.Warnings, "fleet average mileage unavailable, assuming neutral ratio")
	}
	out.Mileage = MileageScore(ratio)

	out.Branding = brandingScore(rec.Branding)

	w := s.weights
	out.Composite = clamp01(
		out.Mileage*w.Mileage +
			out.Health*w.Health +
			out.Maintenance*w.Maintenance +
			out.Fitness*w.Fitness +
			out.Branding*w.Branding)
	return out
}

// MileageScore maps the mileage ratio through 1/(1+exp(5*(ratio-1))).
// A trainset at fleet average scores 0.5; far above average tends to 0,
// far below tends to 1.
func MileageScore(ratio float64) float64 {
	if ratio < 0 {
		ratio = 0
	}
	return clamp01(1 / (1 + math.Exp(5*(ratio-1))))
}

// fitnessScore: 1.0 with a certificate valid beyond the expiring-soon
// window, 0.3 when the best certificate runs out within it, 0 with no
// valid certificate at all. The zero case doubles as the hard-fail signal.
func fitnessScore(certs []model.FitnessCertificate, now time.Time) float64 {
	best, ok := model.BestCertificate(certs, now)
	if !ok {
		return 0
	}
	if best.ExpiresWithin(now, model.ExpiringSoonWindow) {
		return 0.3
	}
	return 1
}

// maintenanceScore: 1.0 clean sheet, 0.8 for 1-3 open non-critical jobs,
// 0.5 beyond 3, 0.2 whenever a critical job is open.
func maintenanceScore(jobs []model.MaintenanceJob) float64 {
	critical, other := model.CountOpenJobs(jobs)
	switch {
	case critical > 0:
		return 0.2
	case other == 0:
		return 1
	case other <= 3:
		return 0.8
	default:
		return 0.5
	}
}

// brandingScore: 1.0 with no active obligation, 0.8 with obligations on
// track, reduced proportionally to the worst shortfall with a 0.2 floor.
func brandingScore(obligations []model.BrandingObligation) float64 {
	if len(obligations) == 0 {
		return 1
	}
	worst := 0.0
	for _, o := range obligations {
		if o.RequiredHours <= 0 {
			continue
		}
		if r := o.Shortfall() / o.RequiredHours; r > worst {
			worst = r
		}
	}
	score := 0.8 - 0.6*worst
	if score < 0.2 {
		score = 0.2
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package constraint

import (
	"testing"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
)

var now = time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)

func healthyRecord() model.TrainsetRecord {
	return model.TrainsetRecord{
		Trainset: model.Trainset{ID: "ts-01", HealthScore: 90, TotalMileageKM: 1000, StablingID: "sp-1"},
		Certificates: []model.FitnessCertificate{
			{ExpiresAt: now.Add(90 * 24 * time.Hour)},
		},
		CrewAvailable: true,
	}
}

func findResult(t *testing.T, ev Evaluation, rule string) Result {
	t.Helper()
	for _, r := range ev.Results {
		if r.Rule == rule {
			return r
		}
	}
	t.Fatalf("rule %s not evaluated", rule)
	return Result{}
}

func TestHealthyTrainsetCanOperate(t *testing.T) {
	e := NewEvaluator(Config{}, nil)
	ev := e.Evaluate(healthyRecord(), 1000, now)
	if !ev.CanOperate || ev.HardViolations != 0 {
		t.Fatalf("expected operable, got %+v", ev)
	}
	if len(ev.BlockingIssues) != 0 {
		t.Fatalf("unexpected blocking issues: %v", ev.BlockingIssues)
	}
}

func TestZeroCertificatesEqualsExpired(t *testing.T) {
	e := NewEvaluator(Config{}, nil)

	none := healthyRecord()
	none.Certificates = nil
	expired := healthyRecord()
	expired.Certificates = []model.FitnessCertificate{{ExpiresAt: now.Add(-time.Hour)}}

	evNone := e.Evaluate(none, 1000, now)
	evExpired := e.Evaluate(expired, 1000, now)

	for _, ev := range []Evaluation{evNone, evExpired} {
		if ev.CanOperate {
			t.Fatal("missing certificate must hard-fail")
		}
		if r := findResult(t, ev, RuleFitnessCertificate); r.Satisfied {
			t.Fatal("fitness rule must be violated")
		}
	}
	if evNone.HardViolations != evExpired.HardViolations {
		t.Fatal("no-certificate and expired-only cases must classify identically")
	}
}

func TestCriticalJobBlocks(t *testing.T) {
	e := NewEvaluator(Config{}, nil)
	rec := healthyRecord()
	rec.Jobs = []model.MaintenanceJob{{Priority: model.PriorityCritical, Status: model.JobPending}}
	ev := e.Evaluate(rec, 1000, now)
	if ev.CanOperate {
		t.Fatal("open critical job must block induction")
	}
	if r := findResult(t, ev, RuleCriticalJob); r.Satisfied {
		t.Fatal("critical job rule must be violated")
	}
}

func TestHealthFloorBlocks(t *testing.T) {
	e := NewEvaluator(Config{}, nil)
	rec := healthyRecord()
	rec.Trainset.HealthScore = 49
	if ev := e.Evaluate(rec, 1000, now); ev.CanOperate {
		t.Fatal("health below floor must block induction")
	}
	rec.Trainset.HealthScore = 50
	if ev := e.Evaluate(rec, 1000, now); ev.HardViolations != 0 {
		t.Fatal("health at floor must pass")
	}
}

func TestSoftViolationsAdviseWithoutBlocking(t *testing.T) {
	e := NewEvaluator(Config{}, nil)
	rec := healthyRecord()
	rec.CrewAvailable = false
	rec.Trainset.StablingID = ""
	ev := e.Evaluate(rec, 1000, now)
	if ev.HardViolations != 0 {
		t.Fatalf("soft rules must not count as hard: %+v", ev)
	}
	if !ev.CanOperate {
		t.Fatalf("penalty %.1f under threshold must stay operable", ev.SoftPenalty)
	}
	if len(ev.BlockingIssues) != 2 {
		t.Fatalf("expected 2 advisories, got %v", ev.BlockingIssues)
	}
}

func TestCumulativePenaltyExcludes(t *testing.T) {
	e := NewEvaluator(Config{PenaltyThreshold: 1.5}, nil)
	rec := healthyRecord()
	rec.CrewAvailable = false
	rec.Trainset.StablingID = ""
	if ev := e.Evaluate(rec, 1000, now); ev.CanOperate {
		t.Fatal("penalty above threshold must exclude")
	}
}

func TestRuleRecordOverridesParameters(t *testing.T) {
	rules := []model.ConstraintRule{{
		Name:   RuleHealthFloor,
		Type:   model.RuleHard,
		Params: map[string]float64{"floor": 80},
		Active: true,
	}}
	e := NewEvaluator(Config{}, rules)
	rec := healthyRecord()
	rec.Trainset.HealthScore = 75
	if ev := e.Evaluate(rec, 1000, now); ev.CanOperate {
		t.Fatal("raised floor from rule record must apply")
	}
}

func TestInactiveRuleRecordIgnored(t *testing.T) {
	rules := []model.ConstraintRule{{
		Name:   RuleHealthFloor,
		Params: map[string]float64{"floor": 80},
		Active: false,
	}}
	e := NewEvaluator(Config{}, rules)
	rec := healthyRecord()
	rec.Trainset.HealthScore = 75
	if ev := e.Evaluate(rec, 1000, now); !ev.CanOperate {
		t.Fatal("inactive rule record must not apply")
	}
}

func TestMileageDeviationSoftRule(t *testing.T) {
	e := NewEvaluator(Config{}, nil)
	rec := healthyRecord()
	rec.Trainset.TotalMileageKM = 2000 // 100% above a 1000 average
	ev := e.Evaluate(rec, 1000, now)
	if r := findResult(t, ev, RuleMileageDeviation); r.Satisfied {
		t.Fatal("large deviation must violate the balancing rule")
	}
	if ev.HardViolations != 0 {
		t.Fatal("mileage deviation is advisory only")
	}
}

func TestViolationsProjection(t *testing.T) {
	e := NewEvaluator(Config{}, nil)
	rec := healthyRecord()
	rec.Certificates = nil
	v := e.Evaluate(rec, 1000, now).Violations()
	if len(v) == 0 || v[0].Rule != RuleFitnessCertificate || v[0].Severity != "hard" {
		t.Fatalf("unexpected violations: %+v", v)
	}
}

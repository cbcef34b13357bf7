package induction

import (
	"fmt"
	"sort"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/allocation"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/slotplan"
)

// Explanation is the deterministic, human-readable account of one run,
// built for supervisor consoles and report generators. No ranking or
// filtering decision is made here; the payload only restates the run.
type Explanation struct {
	PlanDate      time.Time        `json:"plan_date"`
	Headline      string           `json:"headline"`
	DemandFactor  float64          `json:"demand_factor"`
	WeatherNote   string           `json:"weather_note,omitempty"`
	Degraded      []string         `json:"degraded_inputs,omitempty"`
	Entries       []ExplainedEntry `json:"entries"`
	HardFailures  []string         `json:"hard_failures,omitempty"`
	Unassigned    []string         `json:"unassigned,omitempty"`
	LockConflicts []string         `json:"lock_conflicts,omitempty"`
}

// ExplainedEntry restates one trainset's outcome.
type ExplainedEntry struct {
	TrainsetID string   `json:"trainset_id"`
	Category   string   `json:"category"`
	Readiness  float64  `json:"readiness_pct"`
	SlotIndex  int      `json:"slot_index,omitempty"`
	Departure  string   `json:"departure,omitempty"`
	Rationale  string   `json:"rationale"`
	Issues     []string `json:"issues,omitempty"`
}

// Explain builds the explanation payload from a completed run.
func Explain(res RunResult) Explanation {
	out := Explanation{
		PlanDate:     res.PlanDate,
		DemandFactor: res.Forecast.DemandFactor,
		Degraded:     res.Forecast.Degraded,
	}
	out.Headline = fmt.Sprintf("%d for service, %d on standby, %d in maintenance",
		len(res.Allocation.ForService), len(res.Allocation.OnStandby), len(res.Allocation.InMaintenance))
	if res.Allocation.FleetCritical {
		out.Headline = "FLEET CRITICAL: no trainset passes hard constraints"
	}
	if res.Forecast.SevereWeather() {
		out.WeatherNote = fmt.Sprintf("severe weather (severity %.1f), standby activation advised", res.Forecast.WeatherSeverity)
	}

	slotByTrain := make(map[string]slotplan.Assignment, len(res.Slots.Assignments))
	for _, a := range res.Slots.Assignments {
		slotByTrain[a.TrainsetID] = a
	}
	add := func(group []allocation.Ranked) {
		for _, r := range group {
			e := ExplainedEntry{
				TrainsetID: r.TrainsetID,
				Category:   r.Category,
				Readiness:  r.Readiness * 100,
				Rationale:  r.Rationale,
				Issues:     r.Issues,
			}
			if a, ok := slotByTrain[r.TrainsetID]; ok {
				e.SlotIndex = a.SlotIndex
				e.Departure = a.Departure.Format("15:04")
			}
			out.Entries = append(out.Entries, e)
		}
	}
	add(res.Allocation.ForService)
	add(res.Allocation.OnStandby)
	add(res.Allocation.InMaintenance)

	for _, f := range res.Allocation.HardFailures {
		out.HardFailures = append(out.HardFailures, f.TrainsetID)
	}
	sort.Strings(out.HardFailures)
	out.Unassigned = res.Slots.Unassigned
	out.LockConflicts = res.LockConflicts
	return out
}

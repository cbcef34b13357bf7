// Package slotplan assigns the service-bound trainsets to the fixed daily
// departure slots. The packing is greedy per slot: each slot takes the
// unassigned trainset with the highest objective, so high-readiness units
// near the track head fill the rush-hour windows with minimal shunting.
package slotplan

import (
	"fmt"
	"time"
)

// Objective weights. Readiness is on a 0-100 scale here.
const (
	readinessWeight  = 1000.0
	preferenceWeight = 10.0
	positionWeight   = 800.0
	shuntingPenalty  = 500.0
	priorityBonus    = 2000.0

	prioritySlotPreference = 1.5
	priorityReadinessFloor = 85.0
)

// Config defines the slot grid.
type Config struct {
	RegularSlots int    `json:"regular_slots"`
	HolidaySlots int    `json:"holiday_slots"`
	ServiceStart string `json:"service_start"` // HH:MM
	ServiceEnd   string `json:"service_end"`   // HH:MM
}

// SetDefaults applies the documented defaults: 10 regular and 15 holiday
// slots between 05:30 and 22:30.
func (c *Config) SetDefaults() {
	if c.RegularSlots == 0 {
		c.RegularSlots = 10
	}
	if c.HolidaySlots == 0 {
		c.HolidaySlots = 15
	}
	if c.ServiceStart == "" {
		c.ServiceStart = "05:30"
	}
	if c.ServiceEnd == "" {
		c.ServiceEnd = "22:30"
	}
}

// Validate checks the time bounds.
func (c Config) Validate() error {
	for _, v := range []string{c.ServiceStart, c.ServiceEnd} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("invalid service time %q: %w", v, err)
		}
	}
	return nil
}

// Candidate is a service-bound trainset entering slot assignment.
type Candidate struct {
	TrainsetID    string
	Readiness     float64 // 0-100
	TrackPosition int     // 1 = track head
	StablingID    string
}

// ShuntingMoves estimates the staging moves for a candidate: one move per
// four slots of stabling depth.
func (c Candidate) ShuntingMoves() int {
	if c.TrackPosition <= 1 {
		return 0
	}
	return (c.TrackPosition - 1) / 4
}

// Assignment binds one trainset to one departure slot.
type Assignment struct {
	SlotIndex  int       `json:"slot_index"`
	Departure  time.Time `json:"departure"`
	TrainsetID string    `json:"trainset_id"`
	StablingID string    `json:"stabling_id"`
	Priority   bool      `json:"priority_slot"`
	Objective  float64   `json:"objective"`
}

// Result reports the packing. Trainsets beyond the slot capacity land in
// Unassigned; that is a capacity-planning signal, not an error.
type Result struct {
	Assignments []Assignment `json:"assignments"`
	Unassigned  []string     `json:"unassigned_trains"`
	SlotCount   int          `json:"slot_count"`
}

// Scheduler packs service candidates into departure slots.
type Scheduler struct {
	cfg Config
}

// NewScheduler returns a scheduler with defaults applied.
func NewScheduler(cfg Config) (*Scheduler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg}, nil
}

// Assign packs the candidates into the slot grid for the given date.
// holiday selects the extended grid; congestion (0-10) inflates the
// shunting cost, so on congested nights deep-stabled units lose slots to
// units nearer the track head. Equal objectives break towards the lower
// trainset identifier so identical input always yields identical output.
func (s *Scheduler) Assign(date time.Time, candidates []Candidate, holiday bool, congestion float64) Result {
	slots := s.cfg.RegularSlots
	if holiday {
		slots = s.cfg.HolidaySlots
	}
	res := Result{SlotCount: slots}

	remaining := append([]Candidate(nil), candidates...)
	for slot := 0; slot < slots && len(remaining) > 0; slot++ {
		dep := s.departure(date, slot, slots)
		priority := isPriorityWindow(dep)

		bestIdx := -1
		bestObj := 0.0
		for i, c := range remaining {
			obj := objective(c, priority, congestion)
			if bestIdx == -1 || obj > bestObj ||
				(obj == bestObj && c.TrainsetID < remaining[bestIdx].TrainsetID) {
				bestIdx, bestObj = i, obj
			}
		}

		chosen := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		res.Assignments = append(res.Assignments, Assignment{
			SlotIndex:  slot,
			Departure:  dep,
			TrainsetID: chosen.TrainsetID,
			StablingID: chosen.StablingID,
			Priority:   priority,
			Objective:  bestObj,
		})
	}

	for _, c := range remaining {
		res.Unassigned = append(res.Unassigned, c.TrainsetID)
	}
	return res
}

// objective scores a candidate for one slot:
// readiness*1000 + slotPreference*readiness*10 + 800/trackPosition
// - shuntingMoves*500*(1+congestion/10) + 2000 when the slot is a
// priority window and the candidate's readiness exceeds 85. A fully
// congested depot (score 10) doubles the cost of every shunting move.
func objective(c Candidate, prioritySlot bool, congestion float64) float64 {
	pref := 1.0
	if prioritySlot {
		pref = prioritySlotPreference
	}
	pos := c.TrackPosition
	if pos < 1 {
		pos = 1
	}
	if congestion < 0 {
		congestion = 0
	}
	obj := c.Readiness*readinessWeight +
		pref*c.Readiness*preferenceWeight +
		positionWeight/float64(pos) -
		float64(c.ShuntingMoves())*shuntingPenalty*(1+congestion/10)
	if prioritySlot && c.Readiness > priorityReadinessFloor {
		obj += priorityBonus
	}
	return obj
}

// departure spreads the slot times evenly across the service window.
func (s *Scheduler) departure(date time.Time, slot, total int) time.Time {
	start, _ := time.Parse("15:04", s.cfg.ServiceStart)
	end, _ := time.Parse("15:04", s.cfg.ServiceEnd)
	base := time.Date(date.Year(), date.Month(), date.Day(), start.Hour(), start.Minute(), 0, 0, time.UTC)
	if total <= 1 {
		return base
	}
	window := end.Sub(start)
	step := window / time.Duration(total-1)
	return base.Add(time.Duration(slot) * step)
}

// isPriorityWindow reports whether the departure lies in the morning
// (05-09h) or evening (17-21h) rush.
func isPriorityWindow(dep time.Time) bool {
	h := dep.Hour()
	return (h >= 5 && h < 9) || (h >= 17 && h < 21)
}

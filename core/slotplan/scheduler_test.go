package slotplan

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

var date = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func fleet(n int) []Candidate {
	var out []Candidate
	for i := 0; i < n; i++ {
		out = append(out, Candidate{
			TrainsetID:    fmt.Sprintf("ts-%02d", i+1),
			Readiness:     90 - float64(i),
			TrackPosition: i + 1,
		})
	}
	return out
}

func mustScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	return s
}

func TestCapacityOverflowReported(t *testing.T) {
	s := mustScheduler(t, Config{})
	res := s.Assign(date, fleet(12), false, 0)
	if len(res.Assignments) != 10 {
		t.Fatalf("expected 10 assignments got %d", len(res.Assignments))
	}
	if len(res.Unassigned) != 2 {
		t.Fatalf("expected exactly 2 unassigned got %v", res.Unassigned)
	}
}

func TestTotalityNoLossNoDuplication(t *testing.T) {
	s := mustScheduler(t, Config{})
	in := fleet(12)
	res := s.Assign(date, in, false, 0)
	seen := map[string]int{}
	for _, a := range res.Assignments {
		seen[a.TrainsetID]++
	}
	for _, id := range res.Unassigned {
		seen[id]++
	}
	if len(seen) != len(in) {
		t.Fatalf("expected %d distinct trainsets got %d", len(in), len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("trainset %s appears %d times", id, n)
		}
	}
}

func TestHolidayGrid(t *testing.T) {
	s := mustScheduler(t, Config{})
	res := s.Assign(date, fleet(12), true, 0)
	if res.SlotCount != 15 {
		t.Fatalf("expected 15 holiday slots got %d", res.SlotCount)
	}
	if len(res.Unassigned) != 0 {
		t.Fatalf("12 trainsets fit 15 slots, got unassigned %v", res.Unassigned)
	}
}

func TestDepartureSpread(t *testing.T) {
	s := mustScheduler(t, Config{})
	res := s.Assign(date, fleet(10), false, 0)
	first := res.Assignments[0].Departure
	last := res.Assignments[len(res.Assignments)-1].Departure
	if first.Format("15:04") != "05:30" {
		t.Fatalf("first departure %s", first.Format("15:04"))
	}
	if last.Format("15:04") != "22:30" {
		t.Fatalf("last departure %s", last.Format("15:04"))
	}
	for i := 1; i < len(res.Assignments); i++ {
		if !res.Assignments[i].Departure.After(res.Assignments[i-1].Departure) {
			t.Fatal("departures must be strictly increasing")
		}
	}
}

func TestPriorityWindowFlags(t *testing.T) {
	s := mustScheduler(t, Config{})
	res := s.Assign(date, fleet(10), false, 0)
	if !res.Assignments[0].Priority {
		t.Fatal("05:30 slot lies in the morning rush window")
	}
	var sawOffPeak bool
	for _, a := range res.Assignments {
		h := a.Departure.Hour()
		if a.Priority != ((h >= 5 && h < 9) || (h >= 17 && h < 21)) {
			t.Fatalf("slot %d priority flag wrong for %s", a.SlotIndex, a.Departure)
		}
		if !a.Priority {
			sawOffPeak = true
		}
	}
	if !sawOffPeak {
		t.Fatal("expected off-peak slots in the grid")
	}
}

func TestObjectivePrefersFrontPositions(t *testing.T) {
	front := Candidate{TrainsetID: "a", Readiness: 80, TrackPosition: 1}
	deep := Candidate{TrainsetID: "b", Readiness: 80, TrackPosition: 13}
	if objective(front, false, 0) <= objective(deep, false, 0) {
		t.Fatal("track head must outscore deep stabling at equal readiness")
	}
}

func TestPriorityBonusNeedsHighReadiness(t *testing.T) {
	hot := Candidate{TrainsetID: "a", Readiness: 90, TrackPosition: 1}
	warm := Candidate{TrainsetID: "b", Readiness: 85, TrackPosition: 1}
	gap := objective(hot, true, 0) - objective(warm, true, 0)
	if gap < priorityBonus {
		t.Fatalf("readiness >85 must collect the priority bonus, gap %v", gap)
	}
}

func TestCongestionRaisesShuntingCost(t *testing.T) {
	deep := Candidate{TrainsetID: "ts-deep", Readiness: 90, TrackPosition: 9}
	near := Candidate{TrainsetID: "ts-near", Readiness: 88, TrackPosition: 1}
	s := mustScheduler(t, Config{})

	calm := s.Assign(date, []Candidate{deep, near}, false, 0)
	if calm.Assignments[0].TrainsetID != "ts-deep" {
		t.Fatalf("calm night: highest readiness must take slot 0, got %s",
			calm.Assignments[0].TrainsetID)
	}
	congested := s.Assign(date, []Candidate{deep, near}, false, 10)
	if congested.Assignments[0].TrainsetID != "ts-near" {
		t.Fatalf("congested night: near unit must overtake the deep one, got %s",
			congested.Assignments[0].TrainsetID)
	}
}

func TestDeterministicTieBreakByID(t *testing.T) {
	in := []Candidate{
		{TrainsetID: "ts-09", Readiness: 80, TrackPosition: 2},
		{TrainsetID: "ts-03", Readiness: 80, TrackPosition: 2},
	}
	s := mustScheduler(t, Config{})
	res := s.Assign(date, in, false, 0)
	if res.Assignments[0].TrainsetID != "ts-03" {
		t.Fatalf("lower identifier must win ties, got %s", res.Assignments[0].TrainsetID)
	}
}

func TestRepeatedRunsIdentical(t *testing.T) {
	s := mustScheduler(t, Config{})
	in := fleet(12)
	first := s.Assign(date, in, false, 0)
	for i := 0; i < 5; i++ {
		if got := s.Assign(date, in, false, 0); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d diverged", i)
		}
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	if _, err := NewScheduler(Config{ServiceStart: "5 o'clock"}); err == nil {
		t.Fatal("expected error for malformed service start")
	}
}

func TestShuntingMoves(t *testing.T) {
	cases := map[int]int{1: 0, 2: 0, 5: 1, 9: 2, 13: 3}
	for pos, want := range cases {
		c := Candidate{TrackPosition: pos}
		if got := c.ShuntingMoves(); got != want {
			t.Fatalf("position %d: expected %d moves got %d", pos, want, got)
		}
	}
}

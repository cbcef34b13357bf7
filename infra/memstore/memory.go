// Package memstore provides an in-memory implementation of the persistence
// contract. It backs unit tests and single-node deployments without a
// database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/store"
)

// Store keeps all records in maps guarded by a single RWMutex. Plan rows
// carry a version counter for the optimistic-lock discipline.
type Store struct {
	mu        sync.RWMutex
	trainsets map[string]model.Trainset
	certs     map[string][]model.FitnessCertificate
	jobs      map[string][]model.MaintenanceJob
	branding  map[string][]model.BrandingObligation
	stabling  []model.StablingPosition
	crew      map[string][]model.CrewAssignment
	rules     []model.ConstraintRule
	weather   map[string]model.WeatherSnapshot
	congest   map[string]model.CongestionSnapshot
	events    map[string][]model.CalendarEvent
	plans     map[string]model.InductionPlan
	overrides []model.OverrideDecision
}

// New returns an empty store.
func New() *Store {
	return &Store{
		trainsets: map[string]model.Trainset{},
		certs:     map[string][]model.FitnessCertificate{},
		jobs:      map[string][]model.MaintenanceJob{},
		branding:  map[string][]model.BrandingObligation{},
		crew:      map[string][]model.CrewAssignment{},
		weather:   map[string]model.WeatherSnapshot{},
		congest:   map[string]model.CongestionSnapshot{},
		events:    map[string][]model.CalendarEvent{},
		plans:     map[string]model.InductionPlan{},
	}
}

func dayKey(t time.Time) string { return model.PlanDay(t).Format("2006-01-02") }

// PutTrainset inserts or replaces a trainset record.
func (s *Store) PutTrainset(t model.Trainset) {
	s.mu.Lock()
	s.trainsets[t.ID] = t
	s.mu.Unlock()
}

// PutCertificate appends a certificate without superseding anything.
func (s *Store) PutCertificate(c model.FitnessCertificate) {
	s.mu.Lock()
	s.certs[c.TrainsetID] = append(s.certs[c.TrainsetID], c)
	s.mu.Unlock()
}

// PutBranding appends a branding obligation for a trainset.
func (s *Store) PutBranding(o model.BrandingObligation) {
	s.mu.Lock()
	s.branding[o.TrainsetID] = append(s.branding[o.TrainsetID], o)
	s.mu.Unlock()
}

// PutStabling replaces the stabling geometry.
func (s *Store) PutStabling(positions ...model.StablingPosition) {
	s.mu.Lock()
	s.stabling = append(s.stabling, positions...)
	s.mu.Unlock()
}

// PutCrew adds roster entries for their respective dates.
func (s *Store) PutCrew(assignments ...model.CrewAssignment) {
	s.mu.Lock()
	for _, a := range assignments {
		k := dayKey(a.Date)
		s.crew[k] = append(s.crew[k], a)
	}
	s.mu.Unlock()
}

// PutRules replaces the active rule set.
func (s *Store) PutRules(rules ...model.ConstraintRule) {
	s.mu.Lock()
	s.rules = append(s.rules, rules...)
	s.mu.Unlock()
}

// PutWeather stores the weather snapshot for a date.
func (s *Store) PutWeather(date time.Time, w model.WeatherSnapshot) {
	s.mu.Lock()
	s.weather[dayKey(date)] = w
	s.mu.Unlock()
}

// PutCongestion stores the congestion snapshot for a date.
func (s *Store) PutCongestion(date time.Time, c model.CongestionSnapshot) {
	s.mu.Lock()
	s.congest[dayKey(date)] = c
	s.mu.Unlock()
}

// PutEvent registers a calendar event.
func (s *Store) PutEvent(e model.CalendarEvent) {
	s.mu.Lock()
	k := dayKey(e.Date)
	s.events[k] = append(s.events[k], e)
	s.mu.Unlock()
}

func (s *Store) Trainset(_ context.Context, id string) (model.Trainset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trainsets[id]
	if !ok {
		return model.Trainset{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTrainsets(context.Context) ([]model.Trainset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Trainset, 0, len(s.trainsets))
	for _, t := range s.trainsets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateTrainsetStatus(_ context.Context, id string, status model.TrainsetStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trainsets[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = status
	s.trainsets[id] = t
	return nil
}

func (s *Store) CertificatesFor(_ context.Context, trainsetID string) ([]model.FitnessCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.FitnessCertificate(nil), s.certs[trainsetID]...), nil
}

func (s *Store) RenewCertificate(_ context.Context, cert model.FitnessCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.certs[cert.TrainsetID]
	for i := range list {
		if list[i].Type == cert.Type {
			list[i].Superseded = true
		}
	}
	s.certs[cert.TrainsetID] = append(list, cert)
	return nil
}

func (s *Store) JobsFor(_ context.Context, trainsetID string) ([]model.MaintenanceJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.MaintenanceJob(nil), s.jobs[trainsetID]...), nil
}

func (s *Store) SaveJob(_ context.Context, job model.MaintenanceJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.jobs[job.TrainsetID]
	for i := range list {
		if list[i].ID == job.ID {
			list[i] = job
			return nil
		}
	}
	s.jobs[job.TrainsetID] = append(list, job)
	return nil
}

func (s *Store) BrandingFor(_ context.Context, trainsetID string) ([]model.BrandingObligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.BrandingObligation(nil), s.branding[trainsetID]...), nil
}

func (s *Store) StablingPositions(context.Context) ([]model.StablingPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.StablingPosition(nil), s.stabling...), nil
}

func (s *Store) CrewAssignments(_ context.Context, date time.Time) ([]model.CrewAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CrewAssignment(nil), s.crew[dayKey(date)]...), nil
}

func (s *Store) ActiveRules(context.Context) ([]model.ConstraintRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ConstraintRule
	for _, r := range s.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) LatestWeather(_ context.Context, date time.Time) (model.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weather[dayKey(date)]
	if !ok {
		return model.WeatherSnapshot{}, store.ErrNotFound
	}
	return w, nil
}

func (s *Store) LatestCongestion(_ context.Context, date time.Time) (model.CongestionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.congest[dayKey(date)]
	if !ok {
		return model.CongestionSnapshot{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) EventsOn(_ context.Context, date time.Time) ([]model.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CalendarEvent(nil), s.events[dayKey(date)]...), nil
}

func (s *Store) Plan(_ context.Context, id string) (model.InductionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return model.InductionPlan{}, store.ErrNotFound
}

func (s *Store) PlansFor(_ context.Context, date time.Time) ([]model.InductionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := model.PlanDay(date)
	var out []model.InductionPlan
	for _, p := range s.plans {
		if model.PlanDay(p.PlanDate).Equal(day) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrainsetID < out[j].TrainsetID })
	return out, nil
}

func (s *Store) UpsertPlan(_ context.Context, plan model.InductionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := plan.Key()
	if prev, ok := s.plans[key]; ok {
		if prev.Approved {
			return store.ErrPlanApproved
		}
		if prev.Locked {
			return store.ErrLocked
		}
		plan.Version = prev.Version + 1
	} else if plan.Version == 0 {
		plan.Version = 1
	}
	s.plans[key] = plan
	return nil
}

func (s *Store) UpdatePlan(_ context.Context, plan model.InductionPlan, expectedVersion int, allowLocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := plan.Key()
	prev, ok := s.plans[key]
	if !ok {
		return store.ErrNotFound
	}
	if prev.Version != expectedVersion {
		return store.ErrConflict
	}
	if prev.Locked && !allowLocked {
		return store.ErrLocked
	}
	plan.Version = prev.Version + 1
	s.plans[key] = plan
	return nil
}

func (s *Store) AppendOverride(_ context.Context, dec model.OverrideDecision) error {
	s.mu.Lock()
	s.overrides = append(s.overrides, dec)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListOverrides(_ context.Context, date time.Time) ([]model.OverrideDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := model.PlanDay(date)
	var out []model.OverrideDecision
	for _, d := range s.overrides {
		if model.PlanDay(d.PlanDate).Equal(day) {
			out = append(out, d)
		}
	}
	return out, nil
}

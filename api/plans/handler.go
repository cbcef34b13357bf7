// Package plans exposes the induction plan set and the what-if operations
// over HTTP for supervisor consoles.
package plans

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/induction"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/store"
)

// NewListHandler returns GET /api/plans?date=2006-01-02.
func NewListHandler(st store.PlanStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		date, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		plans, err := st.PlansFor(r.Context(), date)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if plans == nil {
			plans = []model.InductionPlan{}
		}
		writeJSON(w, plans)
	})
}

// RunRequest triggers a nightly run for a date.
type RunRequest struct {
	PlanDate string `json:"plan_date"`
}

// NewRunHandler returns POST /api/runs.
func NewRunHandler(p *induction.Planner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		date, err := parseDate(req.PlanDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res, err := p.RunNightly(r.Context(), date)
		switch {
		case errors.Is(err, store.ErrPlanApproved):
			http.Error(w, "plan set for this date is approved", http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, induction.Explain(res))
	})
}

// SwapRequest describes a what-if or executed swap.
type SwapRequest struct {
	PlanDate    string `json:"plan_date"`
	ScheduledID string `json:"scheduled_train_id"`
	StandbyID   string `json:"standby_train_id"`
	Execute     bool   `json:"execute"`
	Actor       string `json:"actor,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// NewSwapHandler returns POST /api/whatif.
func NewSwapHandler(p *induction.Planner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req SwapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		date, err := parseDate(req.PlanDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.ScheduledID == "" || req.StandbyID == "" {
			http.Error(w, "scheduled_train_id and standby_train_id are required", http.StatusBadRequest)
			return
		}
		if req.Execute {
			a, err := p.ExecuteSwap(r.Context(), date, req.ScheduledID, req.StandbyID, req.Actor, req.Reason)
			if err != nil {
				status := http.StatusUnprocessableEntity
				if errors.Is(err, store.ErrNotFound) {
					status = http.StatusNotFound
				}
				http.Error(w, err.Error(), status)
				return
			}
			writeJSON(w, a)
			return
		}
		a, err := p.AnalyzeSwap(r.Context(), date, req.ScheduledID, req.StandbyID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, a)
	})
}

// ApproveRequest marks a date's plan set approved.
type ApproveRequest struct {
	PlanDate string `json:"plan_date"`
	Actor    string `json:"actor"`
}

// NewApproveHandler returns POST /api/plans/approve.
func NewApproveHandler(p *induction.Planner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req ApproveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		date, err := parseDate(req.PlanDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch err := p.Approve(r.Context(), date, req.Actor); {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "no plans for this date", http.StatusNotFound)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is required (2006-01-02)")
	}
	return time.Parse("2006-01-02", s)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

package plans

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/allocation"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/forecast"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/induction"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/logger"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/whatif"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/memstore"
)

var testNow = time.Date(2025, 6, 9, 21, 0, 0, 0, time.UTC)

func seededPlanner(t *testing.T) (*induction.Planner, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("ts-%02d", i)
		s.PutTrainset(model.Trainset{
			ID: id, Status: model.StatusOperational,
			TotalMileageKM: 50000 + float64(i)*500,
			HealthScore:    90 + float64(i), TrackPosition: i,
			StablingID: fmt.Sprintf("pos-%02d", i),
		})
		s.PutCertificate(model.FitnessCertificate{
			ID: "cert-" + id, TrainsetID: id, Type: "rolling_stock",
			IssuedAt: testNow.AddDate(0, -6, 0), ExpiresAt: testNow.AddDate(1, 0, 0),
		})
	}
	agg := forecast.NewAggregator(
		forecast.StoreWeather{Reader: s},
		forecast.StoreCongestion{Reader: s},
		forecast.StoreCalendar{Reader: s},
		time.Second, logger.Nop(),
	)
	p, err := induction.NewPlanner(induction.Deps{
		Store:     s,
		Forecasts: agg,
		Optimizer: allocation.NewOptimizer(allocation.Config{ServiceTarget: 2}),
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatal(err)
	}
	return p, s
}

func TestRunThenListPlans(t *testing.T) {
	p, s := seededPlanner(t)

	run := httptest.NewRecorder()
	NewRunHandler(p).ServeHTTP(run, httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"plan_date": "2025-06-10"}`)))
	if run.Code != http.StatusOK {
		t.Fatalf("run status = %d: %s", run.Code, run.Body.String())
	}
	var expl induction.Explanation
	if err := json.Unmarshal(run.Body.Bytes(), &expl); err != nil {
		t.Fatalf("explanation: %v", err)
	}
	if len(expl.Entries) != 4 {
		t.Errorf("entries = %d", len(expl.Entries))
	}

	list := httptest.NewRecorder()
	NewListHandler(s).ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/plans?date=2025-06-10", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var plans []model.InductionPlan
	if err := json.Unmarshal(list.Body.Bytes(), &plans); err != nil {
		t.Fatal(err)
	}
	if len(plans) != 4 {
		t.Errorf("plans = %d", len(plans))
	}
}

func TestListRequiresDate(t *testing.T) {
	_, s := seededPlanner(t)
	rec := httptest.NewRecorder()
	NewListHandler(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plans", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRunOnApprovedDateConflicts(t *testing.T) {
	p, _ := seededPlanner(t)
	ctx := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"plan_date": "2025-06-10"}`))
	rec := httptest.NewRecorder()
	NewRunHandler(p).ServeHTTP(rec, ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("first run: %d", rec.Code)
	}
	if err := p.Approve(ctx.Context(), time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), "sup"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	rec = httptest.NewRecorder()
	NewRunHandler(p).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"plan_date": "2025-06-10"}`)))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSwapAnalysis(t *testing.T) {
	p, s := seededPlanner(t)
	s.PutTrainset(model.Trainset{
		ID: "ts-standby", Status: model.StatusStandby,
		TotalMileageKM: 50500, HealthScore: 99, TrackPosition: 1,
	})
	s.PutCertificate(model.FitnessCertificate{
		ID: "cert-standby", TrainsetID: "ts-standby", Type: "rolling_stock",
		IssuedAt: testNow.AddDate(0, -1, 0), ExpiresAt: testNow.AddDate(1, 0, 0),
	})

	body := `{"plan_date": "2025-06-10", "scheduled_train_id": "ts-01", "standby_train_id": "ts-standby"}`
	rec := httptest.NewRecorder()
	NewSwapHandler(p).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/whatif", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var a whatif.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if a.Tier == "" || a.ScheduledID != "ts-01" {
		t.Errorf("analysis = %+v", a)
	}

	scheduled, _ := s.Trainset(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "ts-01")
	if scheduled.Status != model.StatusOperational {
		t.Error("analysis must not change statuses")
	}
}

func TestSwapUnknownTrainset(t *testing.T) {
	p, _ := seededPlanner(t)
	body := `{"plan_date": "2025-06-10", "scheduled_train_id": "ts-01", "standby_train_id": "ghost", "execute": true, "actor": "sup"}`
	rec := httptest.NewRecorder()
	NewSwapHandler(p).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/whatif", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

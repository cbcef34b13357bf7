package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/logger"
)

type failingWeather struct{}

func (failingWeather) Weather(context.Context, time.Time) (model.WeatherSnapshot, error) {
	return model.WeatherSnapshot{}, errors.New("provider unreachable")
}

type fixedWeather struct{ w model.WeatherSnapshot }

func (f fixedWeather) Weather(context.Context, time.Time) (model.WeatherSnapshot, error) {
	return f.w, nil
}

func TestWeatherSeverityCapped(t *testing.T) {
	w := model.WeatherSnapshot{RainfallMM: 45, WindKPH: 35, VisibilityM: 1500}
	if got := WeatherSeverity(w); got != 10 {
		t.Fatalf("expected capped severity 10 got %v", got)
	}
}

func TestWeatherSeveritySteps(t *testing.T) {
	cases := []struct {
		w    model.WeatherSnapshot
		want float64
	}{
		{model.WeatherSnapshot{RainfallMM: 0, WindKPH: 0, VisibilityM: 10000}, 0},
		{model.WeatherSnapshot{RainfallMM: 6, WindKPH: 0, VisibilityM: 10000}, 1},
		{model.WeatherSnapshot{RainfallMM: 12, WindKPH: 12, VisibilityM: 7000}, 4},
		{model.WeatherSnapshot{RainfallMM: 30, WindKPH: 25, VisibilityM: 4000}, 7},
	}
	for i, c := range cases {
		if got := WeatherSeverity(c.w); got != c.want {
			t.Fatalf("case %d: expected %v got %v", i, c.want, got)
		}
	}
}

func TestDemandFactorClamp(t *testing.T) {
	// Saturday in February with two maintenance windows drags far below 0.5.
	sat := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	events := []model.CalendarEvent{
		{Kind: model.EventMaintenanceWindow},
		{Kind: model.EventMaintenanceWindow},
	}
	if got := DemandFactor(sat, events); got != MinDemandFactor {
		t.Fatalf("expected clamp to %v got %v", MinDemandFactor, got)
	}
	// Friday, end of December, with a festival factor pushes above 1.8.
	fri := time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC)
	festival := []model.CalendarEvent{{Kind: model.EventFestival, DemandFactor: 1.6}}
	if got := DemandFactor(fri, festival); got != MaxDemandFactor {
		t.Fatalf("expected clamp to %v got %v", MaxDemandFactor, got)
	}
}

func TestDemandFactorWeekdayRules(t *testing.T) {
	wed := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC) // plain mid-month Wednesday
	if got := DemandFactor(wed, nil); got != 1.0 {
		t.Fatalf("neutral day must stay at 1.0, got %v", got)
	}
	mon := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := DemandFactor(mon, nil); got != 1.1 {
		t.Fatalf("Monday must score 1.1, got %v", got)
	}
}

func TestSnapshotFallsBackOnProviderError(t *testing.T) {
	a := NewAggregator(failingWeather{}, nil, nil, time.Second, logger.NopLogger{})
	date := time.Date(2025, 3, 12, 6, 0, 0, 0, time.UTC)
	ctx := a.Snapshot(context.Background(), date)
	if len(ctx.Degraded) != 3 {
		t.Fatalf("expected weather, calendar and congestion degraded, got %v", ctx.Degraded)
	}
	if ctx.Congestion != 7.5 {
		t.Fatalf("06h falls in the morning peak window, expected 7.5 got %v", ctx.Congestion)
	}
	if ctx.WeatherSeverity != 0 {
		t.Fatalf("synthetic calm day must score 0 severity, got %v", ctx.WeatherSeverity)
	}
}

func TestSnapshotDeterministic(t *testing.T) {
	a := NewAggregator(fixedWeather{model.WeatherSnapshot{RainfallMM: 30, WindKPH: 15, VisibilityM: 6000}}, nil, nil, time.Second, logger.NopLogger{})
	date := time.Date(2025, 3, 12, 23, 0, 0, 0, time.UTC)
	first := a.Snapshot(context.Background(), date)
	for i := 0; i < 5; i++ {
		if got := a.Snapshot(context.Background(), date); got.WeatherSeverity != first.WeatherSeverity ||
			got.DemandFactor != first.DemandFactor || got.Congestion != first.Congestion {
			t.Fatalf("run %d diverged: %+v vs %+v", i, got, first)
		}
	}
}

func TestSevereWeatherFlag(t *testing.T) {
	if (Context{WeatherSeverity: 6.9}).SevereWeather() {
		t.Fatal("below 7 is not severe")
	}
	if !(Context{WeatherSeverity: 7}).SevereWeather() {
		t.Fatal("7 and above is severe")
	}
}

func TestSyntheticCongestionOffPeak(t *testing.T) {
	c, _ := SyntheticCongestion{}.Congestion(context.Background(), time.Date(2025, 3, 12, 13, 0, 0, 0, time.UTC))
	if c.Score != 3.0 {
		t.Fatalf("off-peak expected 3.0 got %v", c.Score)
	}
}

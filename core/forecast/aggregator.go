// Package forecast merges weather, demand and depot-congestion signals into
// the contextual snapshot consumed by the optimizer. The snapshot is
// advisory: it shifts prioritization but never hard-blocks service.
package forecast

import (
	"context"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/logger"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
)

// Demand factor bounds.
const (
	MinDemandFactor = 0.5
	MaxDemandFactor = 1.8
)

// Context is the aggregated snapshot for one planning run.
type Context struct {
	PlanDate        time.Time `json:"plan_date"`
	WeatherSeverity float64   `json:"weather_severity"` // 0-10
	FloodingRisk    float64   `json:"flooding_risk"`    // 0-10
	DemandFactor    float64   `json:"demand_factor"`    // 0.5-1.8
	Congestion      float64   `json:"congestion_score"` // 0-10
	// Degraded lists the providers that were replaced by their synthetic
	// fallback during aggregation.
	Degraded []string `json:"degraded,omitempty"`
}

// SevereWeather reports whether standby activation should be flagged.
func (c Context) SevereWeather() bool { return c.WeatherSeverity >= 7 }

// HighCongestion reports whether depot staging is expected to be slow
// enough to warrant standby cover.
func (c Context) HighCongestion() bool { return c.Congestion >= 7 }

// Aggregator combines the providers with bounded timeouts. Provider errors
// are absorbed by the synthetic fallbacks so the nightly run never blocks
// on a third-party dependency.
type Aggregator struct {
	weather    WeatherProvider
	congestion CongestionProvider
	calendar   CalendarSource
	timeout    time.Duration
	log        logger.Logger
}

// NewAggregator wires the real providers. Nil providers start degraded.
func NewAggregator(w WeatherProvider, c CongestionProvider, cal CalendarSource, timeout time.Duration, log logger.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{weather: w, congestion: c, calendar: cal, timeout: timeout, log: log}
}

// Snapshot produces the contextual snapshot for the target date.
func (a *Aggregator) Snapshot(ctx context.Context, date time.Time) Context {
	out := Context{PlanDate: model.PlanDay(date)}

	w, ok := a.fetchWeather(ctx, date)
	if !ok {
		w, _ = SyntheticWeather{}.Weather(ctx, date)
		out.Degraded = append(out.Degraded, "weather")
	}
	out.WeatherSeverity = WeatherSeverity(w)
	out.FloodingRisk = FloodingRisk(w)

	events, ok := a.fetchEvents(ctx, date)
	if !ok {
		out.Degraded = append(out.Degraded, "calendar")
	}
	out.DemandFactor = DemandFactor(date, events)

	c, ok := a.fetchCongestion(ctx, date)
	if !ok {
		c, _ = SyntheticCongestion{}.Congestion(ctx, date)
		out.Degraded = append(out.Degraded, "congestion")
	}
	out.Congestion = c.Score

	return out
}

func (a *Aggregator) fetchWeather(ctx context.Context, date time.Time) (model.WeatherSnapshot, bool) {
	if a.weather == nil {
		return model.WeatherSnapshot{}, false
	}
	tctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	w, err := a.weather.Weather(tctx, date)
	if err != nil {
		a.log.Warnf("weather provider failed, using synthetic fallback: %v", err)
		return model.WeatherSnapshot{}, false
	}
	return w, true
}

func (a *Aggregator) fetchCongestion(ctx context.Context, date time.Time) (model.CongestionSnapshot, bool) {
	if a.congestion == nil {
		return model.CongestionSnapshot{}, false
	}
	tctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	c, err := a.congestion.Congestion(tctx, date)
	if err != nil {
		a.log.Warnf("congestion provider failed, using synthetic fallback: %v", err)
		return model.CongestionSnapshot{}, false
	}
	return c, true
}

func (a *Aggregator) fetchEvents(ctx context.Context, date time.Time) ([]model.CalendarEvent, bool) {
	if a.calendar == nil {
		return nil, false
	}
	tctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	events, err := a.calendar.EventsOn(tctx, date)
	if err != nil {
		a.log.Warnf("calendar source failed, assuming no events: %v", err)
		return nil, false
	}
	return events, true
}

// WeatherSeverity scores the snapshot on a 0-10 scale using the documented
// step thresholds: rainfall >40/+4, >25/+3, >10/+2, >5/+1; wind >30/+3,
// >20/+2, >10/+1; visibility <2000/+3, <5000/+2, <8000/+1.
func WeatherSeverity(w model.WeatherSnapshot) float64 {
	score := 0.0
	switch {
	case w.RainfallMM > 40:
		score += 4
	case w.RainfallMM > 25:
		score += 3
	case w.RainfallMM > 10:
		score += 2
	case w.RainfallMM > 5:
		score += 1
	}
	switch {
	case w.WindKPH > 30:
		score += 3
	case w.WindKPH > 20:
		score += 2
	case w.WindKPH > 10:
		score += 1
	}
	switch {
	case w.VisibilityM < 2000:
		score += 3
	case w.VisibilityM < 5000:
		score += 2
	case w.VisibilityM < 8000:
		score += 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

// FloodingRisk scores depot flooding exposure from rainfall alone.
func FloodingRisk(w model.WeatherSnapshot) float64 {
	switch {
	case w.RainfallMM > 50:
		return 9
	case w.RainfallMM > 35:
		return 7
	case w.RainfallMM > 20:
		return 4
	case w.RainfallMM > 10:
		return 2
	default:
		return 1
	}
}

// DemandFactor derives the ridership multiplier for the date: base 1.0,
// weekend x0.8, Mon/Fri x1.1, start of month x1.05, end of month x1.08,
// Dec/Jan x1.15, Jun-Aug x1.1, calendar events applied multiplicatively
// (maintenance windows x0.7, others toward their declared factor), clamped
// to [0.5, 1.8].
func DemandFactor(date time.Time, events []model.CalendarEvent) float64 {
	f := 1.0

	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		f *= 0.8
	case time.Monday, time.Friday:
		f *= 1.1
	}

	switch {
	case date.Day() <= 5:
		f *= 1.05
	case date.Day() >= 25:
		f *= 1.08
	}

	switch date.Month() {
	case time.December, time.January:
		f *= 1.15
	case time.June, time.July, time.August:
		f *= 1.1
	}

	for _, ev := range events {
		if ev.Kind == model.EventMaintenanceWindow {
			f *= 0.7
			continue
		}
		if ev.DemandFactor > 0 {
			f *= ev.DemandFactor
		}
	}

	if f < MinDemandFactor {
		f = MinDemandFactor
	}
	if f > MaxDemandFactor {
		f = MaxDemandFactor
	}
	return f
}

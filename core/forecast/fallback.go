package forecast

import (
	"context"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
)

// SyntheticWeather is the deterministic fallback used when the weather
// provider is unreachable. It reports a calm day so that a provider outage
// never degrades the plan on its own.
type SyntheticWeather struct{}

func (SyntheticWeather) Weather(_ context.Context, date time.Time) (model.WeatherSnapshot, error) {
	return model.WeatherSnapshot{
		RecordedAt:  date,
		RainfallMM:  2,
		WindKPH:     8,
		VisibilityM: 9000,
		Source:      "synthetic",
	}, nil
}

// SyntheticCongestion derives depot congestion from the time-of-day peak
// windows when no sensor reading is available. Morning (05-09h) and evening
// (17-21h) windows report elevated congestion; the output depends only on
// the input time.
type SyntheticCongestion struct{}

func (SyntheticCongestion) Congestion(_ context.Context, date time.Time) (model.CongestionSnapshot, error) {
	score := 3.0
	h := date.Hour()
	if (h >= 5 && h < 9) || (h >= 17 && h < 21) {
		score = 7.5
	}
	return model.CongestionSnapshot{RecordedAt: date, Score: score}, nil
}

// EmptyCalendar is the fallback calendar with no events.
type EmptyCalendar struct{}

func (EmptyCalendar) EventsOn(context.Context, time.Time) ([]model.CalendarEvent, error) {
	return nil, nil
}

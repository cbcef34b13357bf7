package forecast

import (
	"context"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
)

// WeatherProvider supplies the weather observation for a target date.
type WeatherProvider interface {
	Weather(ctx context.Context, date time.Time) (model.WeatherSnapshot, error)
}

// CongestionProvider supplies the depot congestion reading for a date.
type CongestionProvider interface {
	Congestion(ctx context.Context, date time.Time) (model.CongestionSnapshot, error)
}

// CalendarSource lists the demand-relevant events for a date.
type CalendarSource interface {
	EventsOn(ctx context.Context, date time.Time) ([]model.CalendarEvent, error)
}

// StoreWeather adapts a persistence reader into a WeatherProvider.
type StoreWeather struct {
	Reader interface {
		LatestWeather(ctx context.Context, date time.Time) (model.WeatherSnapshot, error)
	}
}

func (s StoreWeather) Weather(ctx context.Context, date time.Time) (model.WeatherSnapshot, error) {
	return s.Reader.LatestWeather(ctx, date)
}

// StoreCongestion adapts a persistence reader into a CongestionProvider.
type StoreCongestion struct {
	Reader interface {
		LatestCongestion(ctx context.Context, date time.Time) (model.CongestionSnapshot, error)
	}
}

func (s StoreCongestion) Congestion(ctx context.Context, date time.Time) (model.CongestionSnapshot, error) {
	return s.Reader.LatestCongestion(ctx, date)
}

// StoreCalendar adapts a persistence reader into a CalendarSource.
type StoreCalendar struct {
	Reader interface {
		EventsOn(ctx context.Context, date time.Time) ([]model.CalendarEvent, error)
	}
}

func (s StoreCalendar) EventsOn(ctx context.Context, date time.Time) ([]model.CalendarEvent, error) {
	return s.Reader.EventsOn(ctx, date)
}

package model

import "time"

// WeatherSnapshot is the latest observation or forecast for the depot area.
type WeatherSnapshot struct {
	RecordedAt  time.Time `json:"recorded_at"`
	RainfallMM  float64   `json:"rainfall_mm"`
	WindKPH     float64   `json:"wind_kph"`
	VisibilityM float64   `json:"visibility_m"`
	Source      string    `json:"source"`
}

// CalendarEventKind classifies demand-relevant calendar entries.
type CalendarEventKind string

const (
	EventHoliday           CalendarEventKind = "holiday"
	EventFestival          CalendarEventKind = "festival"
	EventMaintenanceWindow CalendarEventKind = "maintenance_window"
)

// CalendarEvent influences the demand factor for its date.
type CalendarEvent struct {
	Date         time.Time         `json:"date"`
	Kind         CalendarEventKind `json:"kind"`
	Name         string            `json:"name"`
	DemandFactor float64           `json:"demand_factor"`
}

// CongestionSnapshot is a depot congestion sensor reading on a 0-10 scale.
type CongestionSnapshot struct {
	RecordedAt time.Time `json:"recorded_at"`
	Score      float64   `json:"score"`
}

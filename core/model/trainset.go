package model

import "fmt"

// TrainsetStatus describes the current operational state of a trainset.
type TrainsetStatus string

const (
	StatusOperational TrainsetStatus = "operational"
	StatusStandby     TrainsetStatus = "standby"
	StatusMaintenance TrainsetStatus = "maintenance"
	StatusCharging    TrainsetStatus = "charging"
	StatusCritical    TrainsetStatus = "critical"
)

// Trainset represents a physical train unit tracked as a fleet asset.
// Trainsets are never deleted; they only transition between statuses.
type Trainset struct {
	ID               string         `json:"id"`
	Status           TrainsetStatus `json:"status"`
	TotalMileageKM   float64        `json:"total_mileage_km"`
	OperationalHours float64        `json:"operational_hours"`
	BatteryLevel     float64        `json:"battery_level"`
	HealthScore      float64        `json:"health_score"` // component health, 0-100
	StablingID       string         `json:"stabling_id"`
	TrackPosition    int            `json:"track_position"` // 1 = front of the stabling track
	AlertCount       int            `json:"alert_count"`
}

// Validate checks that the trainset record is usable for planning.
func (t Trainset) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trainset id is empty")
	}
	if t.HealthScore < 0 || t.HealthScore > 100 {
		return fmt.Errorf("trainset %s: health score %.1f out of range", t.ID, t.HealthScore)
	}
	if t.TotalMileageKM < 0 {
		return fmt.Errorf("trainset %s: negative mileage", t.ID)
	}
	return nil
}

// DistanceToFront returns the number of stabling slots between the trainset
// and the track head.
func (t Trainset) DistanceToFront() int {
	if t.TrackPosition <= 1 {
		return 0
	}
	return t.TrackPosition - 1
}

// TrainsetRecord is the joined view of a trainset and its planning-relevant
// satellite data, assembled once per run from the persistence layer.
type TrainsetRecord struct {
	Trainset      Trainset
	Certificates  []FitnessCertificate
	Jobs          []MaintenanceJob
	Branding      []BrandingObligation
	CrewAvailable bool
}

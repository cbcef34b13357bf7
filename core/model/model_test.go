package model

import (
	"testing"
	"time"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestCertificateStatusAt(t *testing.T) {
	c := FitnessCertificate{ID: "c1", ExpiresAt: day.Add(30 * 24 * time.Hour)}
	if got := c.StatusAt(day); got != CertValid {
		t.Fatalf("expected valid got %s", got)
	}
	c.ExpiresAt = day.Add(3 * 24 * time.Hour)
	if got := c.StatusAt(day); got != CertExpiringSoon {
		t.Fatalf("expected expiring_soon got %s", got)
	}
	c.ExpiresAt = day.Add(-time.Hour)
	if got := c.StatusAt(day); got != CertExpired {
		t.Fatalf("expected expired got %s", got)
	}
}

func TestCertificateSupersededNeverValid(t *testing.T) {
	c := FitnessCertificate{ExpiresAt: day.Add(time.Hour), Superseded: true}
	if c.ValidAt(day) {
		t.Fatal("superseded certificate must not be valid")
	}
}

func TestBestCertificateEmpty(t *testing.T) {
	if _, ok := BestCertificate(nil, day); ok {
		t.Fatal("no certificates must behave like expired certificates")
	}
	expired := []FitnessCertificate{{ExpiresAt: day.Add(-time.Minute)}}
	if _, ok := BestCertificate(expired, day); ok {
		t.Fatal("expired-only set must behave like empty set")
	}
}

func TestMaintenanceJobAged(t *testing.T) {
	j := MaintenanceJob{Status: JobPending, ScheduledAt: day.Add(-24 * time.Hour)}
	if got := j.Aged(day).Status; got != JobOverdue {
		t.Fatalf("expected overdue got %s", got)
	}
	j = MaintenanceJob{Status: JobInProgress, ScheduledAt: day.Add(-24 * time.Hour)}
	if got := j.Aged(day).Status; got != JobInProgress {
		t.Fatalf("in-progress job must not age, got %s", got)
	}
}

func TestCountOpenJobs(t *testing.T) {
	jobs := []MaintenanceJob{
		{Priority: PriorityCritical, Status: JobPending},
		{Priority: PriorityLow, Status: JobPending},
		{Priority: PriorityHigh, Status: JobCompleted},
	}
	crit, other := CountOpenJobs(jobs)
	if crit != 1 || other != 1 {
		t.Fatalf("got critical=%d other=%d", crit, other)
	}
}

func TestBrandingShortfall(t *testing.T) {
	o := BrandingObligation{RequiredHours: 100, DeliveredHours: 80}
	if o.Shortfall() != 20 {
		t.Fatalf("expected 20 got %v", o.Shortfall())
	}
	o.DeliveredHours = 120
	if o.Shortfall() != 0 {
		t.Fatalf("expected 0 got %v", o.Shortfall())
	}
}

func TestTrainsetValidate(t *testing.T) {
	if err := (Trainset{ID: "ts-01", HealthScore: 90}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Trainset{HealthScore: 50}).Validate(); err == nil {
		t.Fatal("expected error for empty id")
	}
	if err := (Trainset{ID: "ts-01", HealthScore: 120}).Validate(); err == nil {
		t.Fatal("expected error for out-of-range health")
	}
}

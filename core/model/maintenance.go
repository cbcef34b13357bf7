package model

import "time"

// JobPriority orders maintenance work by urgency.
type JobPriority string

const (
	PriorityLow      JobPriority = "low"
	PriorityMedium   JobPriority = "medium"
	PriorityHigh     JobPriority = "high"
	PriorityCritical JobPriority = "critical"
)

// JobStatus tracks the lifecycle of a maintenance job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobOverdue    JobStatus = "overdue"
)

// MaintenanceJob is created when a defect or inspection is logged against a
// trainset.
type MaintenanceJob struct {
	ID            string        `json:"id"`
	TrainsetID    string        `json:"trainset_id"`
	Type          string        `json:"type"`
	Priority      JobPriority   `json:"priority"`
	Status        JobStatus     `json:"status"`
	ScheduledAt   time.Time     `json:"scheduled_at"`
	EstimatedTime time.Duration `json:"estimated_duration"`
}

// Open reports whether the job still demands work.
func (j MaintenanceJob) Open() bool {
	return j.Status != JobCompleted
}

// Aged returns the job with its status advanced to overdue when the
// scheduled date has passed without completion. Jobs already in progress
// keep their status.
func (j MaintenanceJob) Aged(now time.Time) MaintenanceJob {
	if j.Status == JobPending && now.After(j.ScheduledAt) {
		j.Status = JobOverdue
	}
	return j
}

// CountOpenJobs splits the open jobs of a trainset into critical and
// non-critical counts.
func CountOpenJobs(jobs []MaintenanceJob) (critical, other int) {
	for _, j := range jobs {
		if !j.Open() {
			continue
		}
		if j.Priority == PriorityCritical {
			critical++
		} else {
			other++
		}
	}
	return critical, other
}

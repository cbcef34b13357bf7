// Package postgres implements the persistence contract on PostgreSQL via
// the pgx stdlib driver. JSON-shaped columns (rule parameters, plan
// violations) are stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/model"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/store"
)

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	db *sql.DB
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool, mainly for tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Trainset(ctx context.Context, id string) (model.Trainset, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, status, total_mileage_km, operational_hours, battery_level,
       health_score, stabling_id, track_position, alert_count
FROM trainsets WHERE id = $1`, id)
	t, err := scanTrainset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trainset{}, store.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTrainsets(ctx context.Context) ([]model.Trainset, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, status, total_mileage_km, operational_hours, battery_level,
       health_score, stabling_id, track_position, alert_count
FROM trainsets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Trainset
	for rows.Next() {
		t, err := scanTrainset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTrainsetStatus(ctx context.Context, id string, status model.TrainsetStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trainsets SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CertificatesFor(ctx context.Context, trainsetID string) ([]model.FitnessCertificate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, trainset_id, cert_type, issued_at, expires_at, superseded
FROM fitness_certificates WHERE trainset_id = $1 ORDER BY issued_at`, trainsetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FitnessCertificate
	for rows.Next() {
		var c model.FitnessCertificate
		if err := rows.Scan(&c.ID, &c.TrainsetID, &c.Type, &c.IssuedAt, &c.ExpiresAt, &c.Superseded); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) RenewCertificate(ctx context.Context, cert model.FitnessCertificate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `
UPDATE fitness_certificates SET superseded = TRUE
WHERE trainset_id = $1 AND cert_type = $2 AND NOT superseded`,
		cert.TrainsetID, cert.Type); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO fitness_certificates (id, trainset_id, cert_type, issued_at, expires_at, superseded)
VALUES ($1, $2, $3, $4, $5, FALSE)`,
		cert.ID, cert.TrainsetID, cert.Type, cert.IssuedAt, cert.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) JobsFor(ctx context.Context, trainsetID string) ([]model.MaintenanceJob, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, trainset_id, job_type, priority, status, scheduled_at, estimated_minutes
FROM maintenance_jobs WHERE trainset_id = $1 ORDER BY scheduled_at`, trainsetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MaintenanceJob
	for rows.Next() {
		var j model.MaintenanceJob
		var minutes int64
		if err := rows.Scan(&j.ID, &j.TrainsetID, &j.Type, &j.Priority, &j.Status, &j.ScheduledAt, &minutes); err != nil {
			return nil, err
		}
		j.EstimatedTime = time.Duration(minutes) * time.Minute
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) SaveJob(ctx context.Context, job model.MaintenanceJob) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO maintenance_jobs (id, trainset_id, job_type, priority, status, scheduled_at, estimated_minutes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  priority = EXCLUDED.priority,
  status = EXCLUDED.status,
  scheduled_at = EXCLUDED.scheduled_at,
  estimated_minutes = EXCLUDED.estimated_minutes`,
		job.ID, job.TrainsetID, job.Type, string(job.Priority), string(job.Status),
		job.ScheduledAt, int64(job.EstimatedTime/time.Minute))
	return err
}

func (s *Store) BrandingFor(ctx context.Context, trainsetID string) ([]model.BrandingObligation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT contract_id, trainset_id, required_hours, delivered_hours
FROM branding_obligations WHERE trainset_id = $1 ORDER BY contract_id`, trainsetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BrandingObligation
	for rows.Next() {
		var o model.BrandingObligation
		if err := rows.Scan(&o.ContractID, &o.TrainsetID, &o.RequiredHours, &o.DeliveredHours); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) StablingPositions(ctx context.Context) ([]model.StablingPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, status, track_position, COALESCE(current_occupant, '')
FROM stabling_positions ORDER BY track_position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StablingPosition
	for rows.Next() {
		var p model.StablingPosition
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.TrackPosition, &p.CurrentOccupant); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CrewAssignments(ctx context.Context, date time.Time) ([]model.CrewAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT trainset_id, service_date, crew_id
FROM crew_assignments WHERE service_date = $1 ORDER BY trainset_id`, model.PlanDay(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CrewAssignment
	for rows.Next() {
		var a model.CrewAssignment
		if err := rows.Scan(&a.TrainsetID, &a.Date, &a.CrewID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ActiveRules(ctx context.Context) ([]model.ConstraintRule, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT rule_name, category, rule_type, parameters, weight, violation_penalty, active
FROM constraint_rules WHERE active ORDER BY rule_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ConstraintRule
	for rows.Next() {
		var r model.ConstraintRule
		var params []byte
		if err := rows.Scan(&r.Name, &r.Category, &r.Type, &params, &r.Weight, &r.Penalty, &r.Active); err != nil {
			return nil, err
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &r.Params); err != nil {
				return nil, fmt.Errorf("rule %s parameters: %w", r.Name, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) LatestWeather(ctx context.Context, date time.Time) (model.WeatherSnapshot, error) {
	var w model.WeatherSnapshot
	err := s.db.QueryRowContext(ctx, `
SELECT recorded_at, rainfall_mm, wind_kph, visibility_m, source
FROM weather_snapshots WHERE snapshot_date = $1
ORDER BY recorded_at DESC LIMIT 1`, model.PlanDay(date)).
		Scan(&w.RecordedAt, &w.RainfallMM, &w.WindKPH, &w.VisibilityM, &w.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WeatherSnapshot{}, store.ErrNotFound
	}
	return w, err
}

func (s *Store) LatestCongestion(ctx context.Context, date time.Time) (model.CongestionSnapshot, error) {
	var c model.CongestionSnapshot
	err := s.db.QueryRowContext(ctx, `
SELECT recorded_at, score
FROM congestion_snapshots WHERE snapshot_date = $1
ORDER BY recorded_at DESC LIMIT 1`, model.PlanDay(date)).
		Scan(&c.RecordedAt, &c.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CongestionSnapshot{}, store.ErrNotFound
	}
	return c, err
}

func (s *Store) EventsOn(ctx context.Context, date time.Time) ([]model.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT event_date, kind, name, demand_factor
FROM calendar_events WHERE event_date = $1 ORDER BY name`, model.PlanDay(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CalendarEvent
	for rows.Next() {
		var e model.CalendarEvent
		if err := rows.Scan(&e.Date, &e.Kind, &e.Name, &e.DemandFactor); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Plan(ctx context.Context, id string) (model.InductionPlan, error) {
	row := s.db.QueryRowContext(ctx, planSelect+` WHERE id = $1`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InductionPlan{}, store.ErrNotFound
	}
	return p, err
}

func (s *Store) PlansFor(ctx context.Context, date time.Time) ([]model.InductionPlan, error) {
	rows, err := s.db.QueryContext(ctx, planSelect+` WHERE plan_date = $1 ORDER BY trainset_id`,
		model.PlanDay(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.InductionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpsertPlan(ctx context.Context, plan model.InductionPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var locked, approved bool
	var version int
	err = tx.QueryRowContext(ctx, `
SELECT locked, approved, version FROM induction_plans
WHERE trainset_id = $1 AND plan_date = $2 FOR UPDATE`,
		plan.TrainsetID, model.PlanDay(plan.PlanDate)).Scan(&locked, &approved, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if plan.Version == 0 {
			plan.Version = 1
		}
		if err := insertPlan(ctx, tx, plan); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if approved {
			return store.ErrPlanApproved
		}
		if locked {
			return store.ErrLocked
		}
		plan.Version = version + 1
		if err := replacePlan(ctx, tx, plan); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) UpdatePlan(ctx context.Context, plan model.InductionPlan, expectedVersion int, allowLocked bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var locked bool
	var version int
	err = tx.QueryRowContext(ctx, `
SELECT locked, version FROM induction_plans
WHERE trainset_id = $1 AND plan_date = $2 FOR UPDATE`,
		plan.TrainsetID, model.PlanDay(plan.PlanDate)).Scan(&locked, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if version != expectedVersion {
		return store.ErrConflict
	}
	if locked && !allowLocked {
		return store.ErrLocked
	}
	plan.Version = version + 1
	if err := replacePlan(ctx, tx, plan); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) AppendOverride(ctx context.Context, dec model.OverrideDecision) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO override_decisions
  (id, plan_date, scheduled_train_id, standby_train_id, readiness_delta,
   shunting_moves, recommendation, executed, reason, decided_by, decided_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		dec.ID, model.PlanDay(dec.PlanDate), dec.ScheduledID, dec.StandbyID,
		dec.ReadinessDelta, dec.ShuntingMoves, dec.Tier, dec.Executed,
		dec.Reason, dec.DecidedBy, dec.DecidedAt)
	return err
}

func (s *Store) ListOverrides(ctx context.Context, date time.Time) ([]model.OverrideDecision, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, plan_date, scheduled_train_id, standby_train_id, readiness_delta,
       shunting_moves, recommendation, executed, reason, decided_by, decided_at
FROM override_decisions WHERE plan_date = $1 ORDER BY decided_at`, model.PlanDay(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OverrideDecision
	for rows.Next() {
		var d model.OverrideDecision
		if err := rows.Scan(&d.ID, &d.PlanDate, &d.ScheduledID, &d.StandbyID, &d.ReadinessDelta,
			&d.ShuntingMoves, &d.Tier, &d.Executed, &d.Reason, &d.DecidedBy, &d.DecidedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrainset(row rowScanner) (model.Trainset, error) {
	var t model.Trainset
	err := row.Scan(&t.ID, &t.Status, &t.TotalMileageKM, &t.OperationalHours,
		&t.BatteryLevel, &t.HealthScore, &t.StablingID, &t.TrackPosition, &t.AlertCount)
	return t, err
}

const planSelect = `
SELECT id, trainset_id, plan_date, slot_index, scheduled_start, scheduled_end,
       actual_start, actual_end, stabling_id, assigned_crew, status, priority,
       category, ai_confidence, blocking_issues, constraint_violations,
       risk_score, approved, COALESCE(approved_by, ''), locked,
       COALESCE(locked_by, ''), locked_at, COALESCE(override_reason, ''),
       COALESCE(override_by, ''), override_at, version
FROM induction_plans`

func scanPlan(row rowScanner) (model.InductionPlan, error) {
	var p model.InductionPlan
	var blocking, violations []byte
	err := row.Scan(&p.ID, &p.TrainsetID, &p.PlanDate, &p.SlotIndex, &p.ScheduledStart,
		&p.ScheduledEnd, &p.ActualStart, &p.ActualEnd, &p.StablingID, &p.Crew,
		&p.Status, &p.Priority, &p.Category, &p.Confidence, &blocking, &violations,
		&p.RiskScore, &p.Approved, &p.ApprovedBy, &p.Locked, &p.LockedBy, &p.LockedAt,
		&p.OverrideReason, &p.OverrideBy, &p.OverrideAt, &p.Version)
	if err != nil {
		return model.InductionPlan{}, err
	}
	if len(blocking) > 0 {
		if err := json.Unmarshal(blocking, &p.BlockingIssues); err != nil {
			return model.InductionPlan{}, fmt.Errorf("plan %s blocking issues: %w", p.ID, err)
		}
	}
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &p.Violations); err != nil {
			return model.InductionPlan{}, fmt.Errorf("plan %s violations: %w", p.ID, err)
		}
	}
	return p, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPlan(ctx context.Context, tx execer, p model.InductionPlan) error {
	blocking, violations, err := planJSON(p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO induction_plans
  (id, trainset_id, plan_date, slot_index, scheduled_start, scheduled_end,
   actual_start, actual_end, stabling_id, assigned_crew, status, priority,
   category, ai_confidence, blocking_issues, constraint_violations, risk_score,
   approved, approved_by, locked, locked_by, locked_at, override_reason,
   override_by, override_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		p.ID, p.TrainsetID, model.PlanDay(p.PlanDate), p.SlotIndex, p.ScheduledStart,
		p.ScheduledEnd, p.ActualStart, p.ActualEnd, p.StablingID, p.Crew,
		string(p.Status), string(p.Priority), p.Category, p.Confidence, blocking,
		violations, p.RiskScore, p.Approved, nullable(p.ApprovedBy), p.Locked,
		nullable(p.LockedBy), p.LockedAt, nullable(p.OverrideReason),
		nullable(p.OverrideBy), p.OverrideAt, p.Version)
	return err
}

func replacePlan(ctx context.Context, tx execer, p model.InductionPlan) error {
	blocking, violations, err := planJSON(p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
UPDATE induction_plans SET
  id = $3, slot_index = $4, scheduled_start = $5, scheduled_end = $6,
  actual_start = $7, actual_end = $8, stabling_id = $9, assigned_crew = $10,
  status = $11, priority = $12, category = $13, ai_confidence = $14,
  blocking_issues = $15, constraint_violations = $16, risk_score = $17,
  approved = $18, approved_by = $19, locked = $20, locked_by = $21,
  locked_at = $22, override_reason = $23, override_by = $24, override_at = $25,
  version = $26
WHERE trainset_id = $1 AND plan_date = $2`,
		p.TrainsetID, model.PlanDay(p.PlanDate), p.ID, p.SlotIndex, p.ScheduledStart,
		p.ScheduledEnd, p.ActualStart, p.ActualEnd, p.StablingID, p.Crew,
		string(p.Status), string(p.Priority), p.Category, p.Confidence, blocking,
		violations, p.RiskScore, p.Approved, nullable(p.ApprovedBy), p.Locked,
		nullable(p.LockedBy), p.LockedAt, nullable(p.OverrideReason),
		nullable(p.OverrideBy), p.OverrideAt, p.Version)
	return err
}

func planJSON(p model.InductionPlan) (blocking, violations []byte, err error) {
	if p.BlockingIssues != nil {
		if blocking, err = json.Marshal(p.BlockingIssues); err != nil {
			return nil, nil, err
		}
	}
	if p.Violations != nil {
		if violations, err = json.Marshal(p.Violations); err != nil {
			return nil, nil, err
		}
	}
	return blocking, violations, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

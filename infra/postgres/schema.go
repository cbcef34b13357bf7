package postgres

import "context"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trainsets (
		id                TEXT PRIMARY KEY,
		status            TEXT NOT NULL,
		total_mileage_km  DOUBLE PRECISION NOT NULL DEFAULT 0,
		operational_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		battery_level     DOUBLE PRECISION NOT NULL DEFAULT 0,
		health_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
		stabling_id       TEXT NOT NULL DEFAULT '',
		track_position    INTEGER NOT NULL DEFAULT 0,
		alert_count       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS fitness_certificates (
		id          TEXT PRIMARY KEY,
		trainset_id TEXT NOT NULL REFERENCES trainsets(id),
		cert_type   TEXT NOT NULL,
		issued_at   TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL,
		superseded  BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_certs_trainset ON fitness_certificates (trainset_id)`,
	`CREATE TABLE IF NOT EXISTS maintenance_jobs (
		id                TEXT PRIMARY KEY,
		trainset_id       TEXT NOT NULL REFERENCES trainsets(id),
		job_type          TEXT NOT NULL,
		priority          TEXT NOT NULL,
		status            TEXT NOT NULL,
		scheduled_at      TIMESTAMPTZ NOT NULL,
		estimated_minutes BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_trainset ON maintenance_jobs (trainset_id)`,
	`CREATE TABLE IF NOT EXISTS branding_obligations (
		contract_id     TEXT NOT NULL,
		trainset_id     TEXT NOT NULL REFERENCES trainsets(id),
		required_hours  DOUBLE PRECISION NOT NULL DEFAULT 0,
		delivered_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (contract_id, trainset_id)
	)`,
	`CREATE TABLE IF NOT EXISTS stabling_positions (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		status           TEXT NOT NULL,
		track_position   INTEGER NOT NULL,
		current_occupant TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS crew_assignments (
		trainset_id  TEXT NOT NULL REFERENCES trainsets(id),
		service_date TIMESTAMPTZ NOT NULL,
		crew_id      TEXT NOT NULL,
		PRIMARY KEY (trainset_id, service_date)
	)`,
	`CREATE TABLE IF NOT EXISTS constraint_rules (
		rule_name         TEXT PRIMARY KEY,
		category          TEXT NOT NULL DEFAULT '',
		rule_type         TEXT NOT NULL,
		parameters        JSONB,
		weight            DOUBLE PRECISION NOT NULL DEFAULT 0,
		violation_penalty DOUBLE PRECISION NOT NULL DEFAULT 0,
		active            BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS weather_snapshots (
		snapshot_date TIMESTAMPTZ NOT NULL,
		recorded_at   TIMESTAMPTZ NOT NULL,
		rainfall_mm   DOUBLE PRECISION NOT NULL DEFAULT 0,
		wind_kph      DOUBLE PRECISION NOT NULL DEFAULT 0,
		visibility_m  DOUBLE PRECISION NOT NULL DEFAULT 0,
		source        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weather_date ON weather_snapshots (snapshot_date, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS congestion_snapshots (
		snapshot_date TIMESTAMPTZ NOT NULL,
		recorded_at   TIMESTAMPTZ NOT NULL,
		score         DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_congestion_date ON congestion_snapshots (snapshot_date, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS calendar_events (
		event_date    TIMESTAMPTZ NOT NULL,
		kind          TEXT NOT NULL,
		name          TEXT NOT NULL,
		demand_factor DOUBLE PRECISION NOT NULL DEFAULT 1,
		PRIMARY KEY (event_date, name)
	)`,
	`CREATE TABLE IF NOT EXISTS induction_plans (
		id                    TEXT NOT NULL,
		trainset_id           TEXT NOT NULL REFERENCES trainsets(id),
		plan_date             TIMESTAMPTZ NOT NULL,
		slot_index            INTEGER NOT NULL DEFAULT 0,
		scheduled_start       TIMESTAMPTZ NOT NULL,
		scheduled_end         TIMESTAMPTZ NOT NULL,
		actual_start          TIMESTAMPTZ,
		actual_end            TIMESTAMPTZ,
		stabling_id           TEXT NOT NULL DEFAULT '',
		assigned_crew         TEXT NOT NULL DEFAULT '',
		status                TEXT NOT NULL,
		priority              TEXT NOT NULL,
		category              TEXT NOT NULL,
		ai_confidence         DOUBLE PRECISION NOT NULL DEFAULT 0,
		blocking_issues       JSONB,
		constraint_violations JSONB,
		risk_score            DOUBLE PRECISION NOT NULL DEFAULT 0,
		approved              BOOLEAN NOT NULL DEFAULT FALSE,
		approved_by           TEXT,
		locked                BOOLEAN NOT NULL DEFAULT FALSE,
		locked_by             TEXT,
		locked_at             TIMESTAMPTZ,
		override_reason       TEXT,
		override_by           TEXT,
		override_at           TIMESTAMPTZ,
		version               INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (trainset_id, plan_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_date ON induction_plans (plan_date)`,
	`CREATE TABLE IF NOT EXISTS override_decisions (
		id                 TEXT PRIMARY KEY,
		plan_date          TIMESTAMPTZ NOT NULL,
		scheduled_train_id TEXT NOT NULL,
		standby_train_id   TEXT NOT NULL,
		readiness_delta    DOUBLE PRECISION NOT NULL DEFAULT 0,
		shunting_moves     INTEGER NOT NULL DEFAULT 0,
		recommendation     TEXT NOT NULL,
		executed           BOOLEAN NOT NULL DEFAULT FALSE,
		reason             TEXT NOT NULL DEFAULT '',
		decided_by         TEXT NOT NULL DEFAULT '',
		decided_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_overrides_date ON override_decisions (plan_date)`,
}

// Migrate creates the schema when it does not exist yet. Statements are
// idempotent so repeated startups are safe.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

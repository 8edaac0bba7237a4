package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS streams (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    tz_offset_secs INTEGER NOT NULL,
    dst_amount_secs INTEGER NOT NULL DEFAULT 0,
    dst_start_secs INTEGER NOT NULL DEFAULT 0,
    dst_end_secs INTEGER NOT NULL DEFAULT 0,
    start_at DATETIME,
    first_hour INTEGER NOT NULL DEFAULT 0,
    last_hour INTEGER NOT NULL DEFAULT 0,
    ffmc_policy INTEGER NOT NULL DEFAULT 0,
    use_specified BOOLEAN NOT NULL DEFAULT FALSE,
    seed_ffmc REAL,
    seed_dmc REAL,
    seed_dc REAL,
    seed_bui REAL,
    seed_hffmc REAL,
    seed_hffmc_at_secs INTEGER,
    seed_rain REAL NOT NULL DEFAULT 0,
    seed_temp REAL NOT NULL DEFAULT 0,
    seed_ws REAL NOT NULL DEFAULT 0,
    temp_alpha REAL NOT NULL,
    temp_beta REAL NOT NULL,
    temp_gamma REAL NOT NULL,
    wind_alpha REAL NOT NULL,
    wind_beta REAL NOT NULL,
    wind_gamma REAL NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS stream_days (
    stream_id INTEGER NOT NULL REFERENCES streams(id) ON DELETE CASCADE,
    day_index INTEGER NOT NULL,
    mode INTEGER NOT NULL,
    origin_file BOOLEAN NOT NULL DEFAULT FALSE,
    min_temp REAL NOT NULL DEFAULT 0,
    max_temp REAL NOT NULL DEFAULT 0,
    min_ws REAL NOT NULL DEFAULT 0,
    max_ws REAL NOT NULL DEFAULT 0,
    min_wg REAL NOT NULL DEFAULT 0,
    max_wg REAL NOT NULL DEFAULT 0,
    rh REAL NOT NULL DEFAULT 0,
    precip REAL NOT NULL DEFAULT 0,
    wd REAL NOT NULL DEFAULT 0,
    spec_ffmc REAL,
    spec_dmc REAL,
    spec_dc REAL,
    spec_bui REAL,
    PRIMARY KEY (stream_id, day_index)
);

CREATE TABLE IF NOT EXISTS stream_hours (
    stream_id INTEGER NOT NULL REFERENCES streams(id) ON DELETE CASCADE,
    day_index INTEGER NOT NULL,
    hour INTEGER NOT NULL,
    temp REAL NOT NULL,
    rh REAL NOT NULL,
    ws REAL NOT NULL,
    wg REAL,
    wd REAL NOT NULL,
    precip REAL NOT NULL,
    dewpoint REAL,
    interpolated BOOLEAN NOT NULL DEFAULT FALSE,
    corrected BOOLEAN NOT NULL DEFAULT FALSE,
    spec_ffmc REAL,
    spec_isi REAL,
    spec_fwi REAL,
    PRIMARY KEY (stream_id, day_index, hour)
);

CREATE INDEX IF NOT EXISTS idx_stream_hours_stream ON stream_hours(stream_id, day_index);
`,
	},
	{
		Version:     2,
		Description: "Index stream days by stream for faster loads",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_stream_days_stream ON stream_days(stream_id);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// Package store persists weather streams to sqlite. Only raw
// observations, seeds and options are stored; synthesized curves and
// FWI values are derived again on load.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/fireweather/internal/stream"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// StreamInfo is one row of the stream listing.
type StreamInfo struct {
	Name      string
	Start     sql.NullTime
	Days      int
	UpdatedAt time.Time
}

// SaveStream writes a stream snapshot under the given name, replacing
// any previous snapshot with that name.
func (s *Store) SaveStream(name string, st stream.State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var startAt sql.NullTime
	if !st.Start.IsZero() {
		startAt = sql.NullTime{Time: st.Start.UTC(), Valid: true}
	}
	var seedAt sql.NullInt64
	if st.Seed.HourlyFFMCAt.Valid {
		seedAt = sql.NullInt64{Int64: int64(st.Seed.HourlyFFMCAt.Duration / time.Second), Valid: true}
	}

	var id int64
	err = tx.QueryRow(`
		INSERT INTO streams (name, latitude, longitude, tz_offset_secs, dst_amount_secs, dst_start_secs, dst_end_secs,
			start_at, first_hour, last_hour, ffmc_policy, use_specified,
			seed_ffmc, seed_dmc, seed_dc, seed_bui, seed_hffmc, seed_hffmc_at_secs, seed_rain, seed_temp, seed_ws,
			temp_alpha, temp_beta, temp_gamma, wind_alpha, wind_beta, wind_gamma, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			tz_offset_secs = excluded.tz_offset_secs,
			dst_amount_secs = excluded.dst_amount_secs,
			dst_start_secs = excluded.dst_start_secs,
			dst_end_secs = excluded.dst_end_secs,
			start_at = excluded.start_at,
			first_hour = excluded.first_hour,
			last_hour = excluded.last_hour,
			ffmc_policy = excluded.ffmc_policy,
			use_specified = excluded.use_specified,
			seed_ffmc = excluded.seed_ffmc,
			seed_dmc = excluded.seed_dmc,
			seed_dc = excluded.seed_dc,
			seed_bui = excluded.seed_bui,
			seed_hffmc = excluded.seed_hffmc,
			seed_hffmc_at_secs = excluded.seed_hffmc_at_secs,
			seed_rain = excluded.seed_rain,
			seed_temp = excluded.seed_temp,
			seed_ws = excluded.seed_ws,
			temp_alpha = excluded.temp_alpha,
			temp_beta = excluded.temp_beta,
			temp_gamma = excluded.temp_gamma,
			wind_alpha = excluded.wind_alpha,
			wind_beta = excluded.wind_beta,
			wind_gamma = excluded.wind_gamma,
			updated_at = excluded.updated_at
		RETURNING id
	`, name, st.Location.Latitude, st.Location.Longitude,
		int64(st.Location.TimezoneOffset/time.Second),
		int64(st.Location.DSTAmount/time.Second),
		int64(st.Location.DSTStart/time.Second),
		int64(st.Location.DSTEnd/time.Second),
		startAt, st.FirstHour, st.LastHour, int(st.Options.Policy), st.Options.UseSpecified,
		st.Seed.FFMC, st.Seed.DMC, st.Seed.DC, st.Seed.BUI, st.Seed.HourlyFFMC, seedAt,
		st.Seed.Rain, st.Seed.Temp, st.Seed.WS,
		st.Curve.TempAlpha, st.Curve.TempBeta, st.Curve.TempGamma,
		st.Curve.WindAlpha, st.Curve.WindBeta, st.Curve.WindGamma,
		time.Now().UTC()).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert stream %q: %w", name, err)
	}

	if _, err := tx.Exec(`DELETE FROM stream_days WHERE stream_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM stream_hours WHERE stream_id = ?`, id); err != nil {
		return err
	}

	dayStmt, err := tx.Prepare(`
		INSERT INTO stream_days (stream_id, day_index, mode, origin_file,
			min_temp, max_temp, min_ws, max_ws, min_wg, max_wg, rh, precip, wd,
			spec_ffmc, spec_dmc, spec_dc, spec_bui)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer dayStmt.Close()

	hourStmt, err := tx.Prepare(`
		INSERT INTO stream_hours (stream_id, day_index, hour,
			temp, rh, ws, wg, wd, precip, dewpoint, interpolated, corrected,
			spec_ffmc, spec_isi, spec_fwi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer hourStmt.Close()

	for i, d := range st.Days {
		if _, err := dayStmt.Exec(id, i, int(d.Mode), d.OriginFile,
			d.Summary.MinTemp, d.Summary.MaxTemp, d.Summary.MinWS, d.Summary.MaxWS,
			d.Summary.MinGust, d.Summary.MaxGust, d.Summary.RH, d.Summary.Precip, d.Summary.WD,
			d.SpecDay.FFMC, d.SpecDay.DMC, d.SpecDay.DC, d.SpecDay.BUI); err != nil {
			return fmt.Errorf("insert day %d: %w", i, err)
		}
		for h, hs := range d.Hours {
			if _, err := hourStmt.Exec(id, i, h,
				hs.Reading.Temp, hs.Reading.RH, hs.Reading.WS, hs.Reading.Gust,
				hs.Reading.WD, hs.Reading.Precip, hs.Reading.DewPoint,
				hs.Interpolated, hs.Corrected,
				d.SpecHours[h].FFMC, d.SpecHours[h].ISI, d.SpecHours[h].FWI); err != nil {
				return fmt.Errorf("insert day %d hour %d: %w", i, h, err)
			}
		}
	}

	return tx.Commit()
}

// LoadStream reads a snapshot by name. A missing name returns nil
// without error.
func (s *Store) LoadStream(name string) (*stream.State, error) {
	row := s.db.QueryRow(`
		SELECT id, latitude, longitude, tz_offset_secs, dst_amount_secs, dst_start_secs, dst_end_secs,
			start_at, first_hour, last_hour, ffmc_policy, use_specified,
			seed_ffmc, seed_dmc, seed_dc, seed_bui, seed_hffmc, seed_hffmc_at_secs, seed_rain, seed_temp, seed_ws,
			temp_alpha, temp_beta, temp_gamma, wind_alpha, wind_beta, wind_gamma
		FROM streams WHERE name = ?
	`, name)

	var (
		id      int64
		st      stream.State
		tzSecs  int64
		dstAmt  int64
		dstFrom int64
		dstTo   int64
		startAt sql.NullTime
		policy  int
		seedAt  sql.NullInt64
	)
	err := row.Scan(&id, &st.Location.Latitude, &st.Location.Longitude, &tzSecs, &dstAmt, &dstFrom, &dstTo,
		&startAt, &st.FirstHour, &st.LastHour, &policy, &st.Options.UseSpecified,
		&st.Seed.FFMC, &st.Seed.DMC, &st.Seed.DC, &st.Seed.BUI, &st.Seed.HourlyFFMC, &seedAt,
		&st.Seed.Rain, &st.Seed.Temp, &st.Seed.WS,
		&st.Curve.TempAlpha, &st.Curve.TempBeta, &st.Curve.TempGamma,
		&st.Curve.WindAlpha, &st.Curve.WindBeta, &st.Curve.WindGamma)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	st.Location.TimezoneOffset = time.Duration(tzSecs) * time.Second
	st.Location.DSTAmount = time.Duration(dstAmt) * time.Second
	st.Location.DSTStart = time.Duration(dstFrom) * time.Second
	st.Location.DSTEnd = time.Duration(dstTo) * time.Second
	st.Options.Policy = stream.FFMCPolicy(policy)
	if seedAt.Valid {
		st.Seed.HourlyFFMCAt = stream.NullDuration{Duration: time.Duration(seedAt.Int64) * time.Second, Valid: true}
	}
	if startAt.Valid {
		lt := startAt.Time.In(st.Location.Zone())
		st.Start = lt
	}

	dayRows, err := s.db.Query(`
		SELECT day_index, mode, origin_file,
			min_temp, max_temp, min_ws, max_ws, min_wg, max_wg, rh, precip, wd,
			spec_ffmc, spec_dmc, spec_dc, spec_bui
		FROM stream_days WHERE stream_id = ? ORDER BY day_index ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer dayRows.Close()

	for dayRows.Next() {
		var (
			idx  int
			mode int
			ds   stream.DayState
		)
		if err := dayRows.Scan(&idx, &mode, &ds.OriginFile,
			&ds.Summary.MinTemp, &ds.Summary.MaxTemp, &ds.Summary.MinWS, &ds.Summary.MaxWS,
			&ds.Summary.MinGust, &ds.Summary.MaxGust, &ds.Summary.RH, &ds.Summary.Precip, &ds.Summary.WD,
			&ds.SpecDay.FFMC, &ds.SpecDay.DMC, &ds.SpecDay.DC, &ds.SpecDay.BUI); err != nil {
			return nil, err
		}
		ds.Mode = stream.DayMode(mode)
		if !st.Start.IsZero() {
			ds.Start = st.Start.Add(time.Duration(idx) * 24 * time.Hour)
		}
		st.Days = append(st.Days, ds)
	}
	if err := dayRows.Err(); err != nil {
		return nil, err
	}

	hourRows, err := s.db.Query(`
		SELECT day_index, hour, temp, rh, ws, wg, wd, precip, dewpoint, interpolated, corrected,
			spec_ffmc, spec_isi, spec_fwi
		FROM stream_hours WHERE stream_id = ? ORDER BY day_index ASC, hour ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer hourRows.Close()

	for hourRows.Next() {
		var (
			idx, hour int
			hs        stream.HourState
			specFFMC  sql.NullFloat64
			specISI   sql.NullFloat64
			specFWI   sql.NullFloat64
		)
		if err := hourRows.Scan(&idx, &hour,
			&hs.Reading.Temp, &hs.Reading.RH, &hs.Reading.WS, &hs.Reading.Gust,
			&hs.Reading.WD, &hs.Reading.Precip, &hs.Reading.DewPoint,
			&hs.Interpolated, &hs.Corrected,
			&specFFMC, &specISI, &specFWI); err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(st.Days) || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("stream %q: hour row outside its days (%d, %d)", name, idx, hour)
		}
		d := &st.Days[idx]
		if d.Hours == nil {
			d.Hours = make([]stream.HourState, 24)
		}
		d.Hours[hour] = hs
		d.SpecHours[hour] = stream.HourlyCodes{FFMC: specFFMC, ISI: specISI, FWI: specFWI}
	}
	if err := hourRows.Err(); err != nil {
		return nil, err
	}

	return &st, nil
}

// ListStreams returns every saved stream, most recently updated first.
func (s *Store) ListStreams() ([]StreamInfo, error) {
	rows, err := s.db.Query(`
		SELECT s.name, s.start_at, s.updated_at,
			(SELECT COUNT(*) FROM stream_days d WHERE d.stream_id = s.id) AS days
		FROM streams s
		ORDER BY s.updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []StreamInfo
	for rows.Next() {
		var info StreamInfo
		if err := rows.Scan(&info.Name, &info.Start, &info.UpdatedAt, &info.Days); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteStream removes a saved stream and all its days and hours.
func (s *Store) DeleteStream(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(`SELECT id FROM streams WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM stream_hours WHERE stream_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM stream_days WHERE stream_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM streams WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

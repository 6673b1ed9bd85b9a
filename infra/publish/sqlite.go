package publish

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/availability"
	"github.com/kilianp07/parkcast/core/logger"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS zone_map (
    bay_id TEXT PRIMARY KEY,
    zone INTEGER,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
    source TEXT NOT NULL,
    run_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS zone_centroids (
    zone INTEGER PRIMARY KEY,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
    bays INTEGER NOT NULL,
    synthetic INTEGER NOT NULL,
    run_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bay_model (
    bay_id TEXT NOT NULL,
    weekday INTEGER NOT NULL,
    slot INTEGER NOT NULL,
    total_obs INTEGER NOT NULL,
    availability_rate REAL NOT NULL,
    run_id TEXT NOT NULL,
    PRIMARY KEY(bay_id, weekday, slot)
);
CREATE TABLE IF NOT EXISTS zone_model (
    zone TEXT NOT NULL,
    weekday INTEGER NOT NULL,
    slot INTEGER NOT NULL,
    total_obs INTEGER NOT NULL,
    availability_rate REAL NOT NULL,
    run_id TEXT NOT NULL,
    PRIMARY KEY(zone, weekday, slot)
);
CREATE TABLE IF NOT EXISTS forecast_points (
    bay_id TEXT NOT NULL,
    ts TEXT NOT NULL,
    prob REAL,
    level TEXT NOT NULL,
    run_id TEXT NOT NULL,
    PRIMARY KEY(bay_id, ts)
);
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    generated_at TEXT NOT NULL,
    bays INTEGER NOT NULL,
    zones INTEGER NOT NULL,
    start_time TEXT,
    null_points INTEGER NOT NULL
);`

// SQLitePublisher replaces the artifact tables of a SQLite database in a
// single transaction per run. Zone-only bundles leave the model and
// forecast tables untouched.
type SQLitePublisher struct {
	db  *sql.DB
	log logger.Logger
}

// NewSQLitePublisher opens or creates the database and ensures schema.
func NewSQLitePublisher(path string, log logger.Logger) (*SQLitePublisher, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLitePublisher{db: db, log: logger.OrNop(log)}, nil
}

// Publish writes b.
func (p *SQLitePublisher) Publish(ctx context.Context, b *artifact.Bundle) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = p.writeZones(ctx, tx, b); err != nil {
		return err
	}
	if b.HasModel() {
		if err = p.writeModel(ctx, tx, b); err != nil {
			return err
		}
	}
	if b.HasForecast() {
		if err = p.writeForecast(ctx, tx, b); err != nil {
			return err
		}
	}
	r := runSummaryRow(b)
	var start any
	if r.StartTime != nil {
		start = r.StartTime.Format(time.RFC3339)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO runs (run_id, generated_at, bays, zones, start_time, null_points)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id) DO UPDATE SET
            generated_at = excluded.generated_at,
            bays = excluded.bays,
            zones = excluded.zones,
            start_time = excluded.start_time,
            null_points = excluded.null_points`,
		r.RunID, r.GeneratedAt.Format(time.RFC3339Nano), r.Bays, r.Zones, start, r.NullPoints); err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	p.log.Infof("run %s stored in sqlite", b.RunID)
	return nil
}

func (p *SQLitePublisher) writeZones(ctx context.Context, tx *sql.Tx, b *artifact.Bundle) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM zone_map`); err != nil {
		return err
	}
	for _, r := range zoneMapRows(b) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO zone_map (bay_id, zone, lat, lon, source, run_id)
            VALUES (?, ?, ?, ?, ?, ?)`, r.BayID, nullable(r.Zone), r.Lat, r.Lon, r.Source, b.RunID); err != nil {
			return fmt.Errorf("zone_map %s: %w", r.BayID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM zone_centroids`); err != nil {
		return err
	}
	for _, c := range b.Centroids {
		if _, err := tx.ExecContext(ctx, `INSERT INTO zone_centroids (zone, lat, lon, bays, synthetic, run_id)
            VALUES (?, ?, ?, ?, ?, ?)`, int64(c.Zone), c.Lat, c.Lon, c.Bays, c.Synthetic, b.RunID); err != nil {
			return fmt.Errorf("zone_centroids %d: %w", c.Zone, err)
		}
	}
	return nil
}

func (p *SQLitePublisher) writeModel(ctx context.Context, tx *sql.Tx, b *artifact.Bundle) error {
	if err := insertModel(ctx, tx, "bay_model", "bay_id", b.RunID, b.BayModel); err != nil {
		return err
	}
	return insertModel(ctx, tx, "zone_model", "zone", b.RunID, b.ZoneModel)
}

func insertModel(ctx context.Context, tx *sql.Tx, table, entity, runID string, rows []availability.Row) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" ("+entity+
		", weekday, slot, total_obs, availability_rate, run_id) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Entity, r.Weekday, r.Slot, r.Count, r.Rate, runID); err != nil {
			return fmt.Errorf("%s %s: %w", table, r.Entity, err)
		}
	}
	return nil
}

func (p *SQLitePublisher) writeForecast(ctx context.Context, tx *sql.Tx, b *artifact.Bundle) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM forecast_points`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO forecast_points (bay_id, ts, prob, level, run_id)
        VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range pointRows(b) {
		if _, err := stmt.ExecContext(ctx, r.BayID, r.Time.Format(time.RFC3339), nullable(r.Prob), r.Level, b.RunID); err != nil {
			return fmt.Errorf("forecast_points %s: %w", r.BayID, err)
		}
	}
	return nil
}

// ForecastPoint is a stored forecast point.
type ForecastPoint struct {
	Time  time.Time
	Prob  *float64
	Level string
	RunID string
}

// ForecastPoints returns the stored points of a bay ordered by time.
func (p *SQLitePublisher) ForecastPoints(ctx context.Context, bayID string) ([]ForecastPoint, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT ts, prob, level, run_id
        FROM forecast_points WHERE bay_id = ? ORDER BY ts`, bayID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []ForecastPoint
	for rows.Next() {
		var ts string
		var prob sql.NullFloat64
		var fp ForecastPoint
		if err := rows.Scan(&ts, &prob, &fp.Level, &fp.RunID); err != nil {
			return nil, err
		}
		if fp.Time, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, err
		}
		if prob.Valid {
			v := prob.Float64
			fp.Prob = &v
		}
		res = append(res, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// BayZone returns the stored zone of a bay; ok is false for unzoned or
// unknown bays.
func (p *SQLitePublisher) BayZone(ctx context.Context, bayID string) (zone int64, ok bool, err error) {
	var z sql.NullInt64
	err = p.db.QueryRowContext(ctx, `SELECT zone FROM zone_map WHERE bay_id = ?`, bayID).Scan(&z)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return z.Int64, z.Valid, nil
}

// Count returns the number of rows of an artifact table.
func (p *SQLitePublisher) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "zone_map", "zone_centroids", "bay_model", "zone_model", "forecast_points", "runs":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// Close closes the underlying database.
func (p *SQLitePublisher) Close() error { return p.db.Close() }

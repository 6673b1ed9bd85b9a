package publish

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/availability"
	"github.com/kilianp07/parkcast/core/logger"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS zone_map (
        bay_id TEXT PRIMARY KEY,
        zone BIGINT,
        lat DOUBLE PRECISION NOT NULL,
        lon DOUBLE PRECISION NOT NULL,
        source TEXT NOT NULL,
        run_id TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS zone_centroids (
        zone BIGINT PRIMARY KEY,
        lat DOUBLE PRECISION NOT NULL,
        lon DOUBLE PRECISION NOT NULL,
        bays INTEGER NOT NULL,
        synthetic BOOLEAN NOT NULL,
        run_id TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS bay_model (
        bay_id TEXT NOT NULL,
        weekday SMALLINT NOT NULL,
        slot SMALLINT NOT NULL,
        total_obs INTEGER NOT NULL,
        availability_rate DOUBLE PRECISION NOT NULL,
        run_id TEXT NOT NULL,
        PRIMARY KEY (bay_id, weekday, slot)
    )`,
	`CREATE TABLE IF NOT EXISTS zone_model (
        zone TEXT NOT NULL,
        weekday SMALLINT NOT NULL,
        slot SMALLINT NOT NULL,
        total_obs INTEGER NOT NULL,
        availability_rate DOUBLE PRECISION NOT NULL,
        run_id TEXT NOT NULL,
        PRIMARY KEY (zone, weekday, slot)
    )`,
	`CREATE TABLE IF NOT EXISTS forecast_points (
        bay_id TEXT NOT NULL,
        ts TIMESTAMPTZ NOT NULL,
        prob DOUBLE PRECISION,
        level TEXT NOT NULL,
        run_id TEXT NOT NULL,
        PRIMARY KEY (bay_id, ts)
    )`,
	`CREATE TABLE IF NOT EXISTS runs (
        run_id TEXT PRIMARY KEY,
        generated_at TIMESTAMPTZ NOT NULL,
        bays INTEGER NOT NULL,
        zones INTEGER NOT NULL,
        start_time TIMESTAMPTZ,
        null_points INTEGER NOT NULL
    )`,
}

// PostgresPublisher upserts artifacts into PostgreSQL. Rows of a table
// that the run did not write are removed in the same transaction.
type PostgresPublisher struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresPublisher connects to dsn and ensures schema.
func NewPostgresPublisher(ctx context.Context, dsn string, log logger.Logger) (*PostgresPublisher, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
	}
	return &PostgresPublisher{pool: pool, log: logger.OrNop(log)}, nil
}

// Publish writes b in one transaction.
func (p *PostgresPublisher) Publish(ctx context.Context, b *artifact.Bundle) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	queueZones(batch, b)
	if b.HasModel() {
		queueModel(batch, "bay_model", "bay_id", b.RunID, b.BayModel)
		queueModel(batch, "zone_model", "zone", b.RunID, b.ZoneModel)
	}
	if b.HasForecast() {
		queueForecast(batch, b)
	}
	r := runSummaryRow(b)
	batch.Queue(`INSERT INTO runs (run_id, generated_at, bays, zones, start_time, null_points)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (run_id) DO UPDATE SET
            generated_at = EXCLUDED.generated_at,
            bays = EXCLUDED.bays,
            zones = EXCLUDED.zones,
            start_time = EXCLUDED.start_time,
            null_points = EXCLUDED.null_points`,
		r.RunID, r.GeneratedAt, r.Bays, r.Zones, r.StartTime, r.NullPoints)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.log.Infof("run %s stored in postgres (%d statements)", b.RunID, batch.Len())
	return nil
}

func queueZones(batch *pgx.Batch, b *artifact.Bundle) {
	for _, r := range zoneMapRows(b) {
		batch.Queue(`INSERT INTO zone_map (bay_id, zone, lat, lon, source, run_id)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (bay_id) DO UPDATE SET
                zone = EXCLUDED.zone,
                lat = EXCLUDED.lat,
                lon = EXCLUDED.lon,
                source = EXCLUDED.source,
                run_id = EXCLUDED.run_id`,
			r.BayID, r.Zone, r.Lat, r.Lon, r.Source, b.RunID)
	}
	batch.Queue(`DELETE FROM zone_map WHERE run_id <> $1`, b.RunID)
	for _, c := range b.Centroids {
		batch.Queue(`INSERT INTO zone_centroids (zone, lat, lon, bays, synthetic, run_id)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (zone) DO UPDATE SET
                lat = EXCLUDED.lat,
                lon = EXCLUDED.lon,
                bays = EXCLUDED.bays,
                synthetic = EXCLUDED.synthetic,
                run_id = EXCLUDED.run_id`,
			int64(c.Zone), c.Lat, c.Lon, c.Bays, c.Synthetic, b.RunID)
	}
	batch.Queue(`DELETE FROM zone_centroids WHERE run_id <> $1`, b.RunID)
}

func queueModel(batch *pgx.Batch, table, entity, runID string, rows []availability.Row) {
	insert := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, weekday, slot, total_obs, availability_rate, run_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (%[2]s, weekday, slot) DO UPDATE SET
            total_obs = EXCLUDED.total_obs,
            availability_rate = EXCLUDED.availability_rate,
            run_id = EXCLUDED.run_id`, table, entity)
	for _, r := range rows {
		batch.Queue(insert, r.Entity, r.Weekday, r.Slot, r.Count, r.Rate, runID)
	}
	batch.Queue(fmt.Sprintf(`DELETE FROM %s WHERE run_id <> $1`, table), runID)
}

func queueForecast(batch *pgx.Batch, b *artifact.Bundle) {
	for _, r := range pointRows(b) {
		batch.Queue(`INSERT INTO forecast_points (bay_id, ts, prob, level, run_id)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (bay_id, ts) DO UPDATE SET
                prob = EXCLUDED.prob,
                level = EXCLUDED.level,
                run_id = EXCLUDED.run_id`,
			r.BayID, r.Time, r.Prob, r.Level, b.RunID)
	}
	batch.Queue(`DELETE FROM forecast_points WHERE run_id <> $1`, b.RunID)
}

// Close releases the pool.
func (p *PostgresPublisher) Close() error {
	p.pool.Close()
	return nil
}

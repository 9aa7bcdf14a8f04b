package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
)

var errStoreDisconnected = errors.New("observation store is not connected")

const createObservationsTables = `
CREATE TABLE IF NOT EXISTS observations (
    indicator_id TEXT             NOT NULL,
    as_of        DATE             NOT NULL,
    value        DOUBLE PRECISION NOT NULL,
    unit         TEXT             NOT NULL DEFAULT '',
    source       TEXT             NOT NULL DEFAULT '',
    meta_json    JSONB            NOT NULL DEFAULT '{}',
    fetched_at   TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    inserted_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    PRIMARY KEY (indicator_id, as_of)
);

CREATE INDEX IF NOT EXISTS idx_observations_indicator_as_of
    ON observations (indicator_id, as_of DESC);

CREATE TABLE IF NOT EXISTS ingestion_runs (
    id           BIGSERIAL   PRIMARY KEY,
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL,
    providers    INT         NOT NULL,
    succeeded    INT         NOT NULL,
    observations INT         NOT NULL,
    report_json  JSONB       NOT NULL DEFAULT '{}'
);
`

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// ObservationRepository is the time-series store for indicator readings.
// One row per (indicator_id, as_of) day; re-fetching the same day is an
// update, never a duplicate. Concurrent writers for the same key are
// serialized by the upsert itself.
type ObservationRepository struct {
	pool   pool
	tracer trace.Tracer
}

func NewObservationRepository(p pool, tracer trace.Tracer) *ObservationRepository {
	// A process started without DATABASE_URL hands in a nil *pgxpool.Pool;
	// fold that into a plain nil so ready() catches it before any call.
	if pg, ok := p.(*pgxpool.Pool); ok && pg == nil {
		p = nil
	}
	return &ObservationRepository{pool: p, tracer: tracer}
}

// ready reports the store as unavailable when there is no pool, so a
// disconnected store is an error result, never a nil dereference.
func (r *ObservationRepository) ready() error {
	if r.pool == nil {
		return domain.NewStoreError(domain.StoreUnavailable, errStoreDisconnected)
	}
	return nil
}

func (r *ObservationRepository) RunMigrations(ctx context.Context) error {
	if err := r.ready(); err != nil {
		return err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createObservationsTables)
	return storeErr(err)
}

// UpsertBatch writes a provider's batch in one round trip. Returns the
// number of rows written; on error nothing past the failing row counts.
func (r *ObservationRepository) UpsertBatch(ctx context.Context, observations []domain.Observation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}
	if err := r.ready(); err != nil {
		return 0, err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.upsert-batch")
	defer span.End()

	batch := &pgx.Batch{}
	for _, obs := range observations {
		batch.Queue(`
INSERT INTO observations (indicator_id, as_of, value, unit, source, meta_json, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (indicator_id, as_of) DO UPDATE SET
    value = EXCLUDED.value,
    unit = EXCLUDED.unit,
    source = EXCLUDED.source,
    meta_json = EXCLUDED.meta_json,
    fetched_at = EXCLUDED.fetched_at,
    inserted_at = NOW()`,
			string(obs.IndicatorID),
			obs.AsOf.UTC(),
			obs.Value,
			obs.Unit,
			obs.Source,
			metaJSON(obs.Meta),
			fetchedAtOrNow(obs.FetchedAt),
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	for range observations {
		if _, err := br.Exec(); err != nil {
			return written, storeErr(err)
		}
		written++
	}
	return written, nil
}

// Latest returns the most recent observation for an indicator, or nil
// when the store has none.
func (r *ObservationRepository) Latest(ctx context.Context, id domain.IndicatorID) (*domain.Observation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.latest")
	defer span.End()

	row := r.pool.QueryRow(ctx, `
SELECT indicator_id, as_of, value, unit, source, meta_json, fetched_at
FROM observations
WHERE indicator_id = $1
ORDER BY as_of DESC
LIMIT 1`, string(id))

	obs, err := scanObservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &obs, nil
}

// History returns observations in [from, to] in ascending as_of order.
func (r *ObservationRepository) History(ctx context.Context, id domain.IndicatorID, from, to time.Time) ([]domain.Observation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.history")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT indicator_id, as_of, value, unit, source, meta_json, fetched_at
FROM observations
WHERE indicator_id = $1 AND as_of >= $2 AND as_of <= $3
ORDER BY as_of ASC`, string(id), from.UTC(), to.UTC())
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, obs)
	}
	return out, storeErr(rows.Err())
}

// Recent returns up to limit most recent observations, ascending, for
// trailing-window calculations.
func (r *ObservationRepository) Recent(ctx context.Context, id domain.IndicatorID, limit int) ([]domain.Observation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.recent")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT indicator_id, as_of, value, unit, source, meta_json, fetched_at
FROM (
    SELECT indicator_id, as_of, value, unit, source, meta_json, fetched_at
    FROM observations
    WHERE indicator_id = $1
    ORDER BY as_of DESC
    LIMIT $2
) recent
ORDER BY as_of ASC`, string(id), limit)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, obs)
	}
	return out, storeErr(rows.Err())
}

// ListLatest returns the newest observation per indicator.
func (r *ObservationRepository) ListLatest(ctx context.Context) ([]domain.Observation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.list-latest")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT DISTINCT ON (indicator_id)
       indicator_id, as_of, value, unit, source, meta_json, fetched_at
FROM observations
ORDER BY indicator_id, as_of DESC`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, obs)
	}
	return out, storeErr(rows.Err())
}

// RecordRun persists an ingestion run for the audit trail.
func (r *ObservationRepository) RecordRun(ctx context.Context, report domain.IngestionReport) error {
	if err := r.ready(); err != nil {
		return err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.record-run")
	defer span.End()

	encoded, err := json.Marshal(report)
	if err != nil {
		encoded = []byte("{}")
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO ingestion_runs (started_at, finished_at, providers, succeeded, observations, report_json)
VALUES ($1, $2, $3, $4, $5, $6)`,
		report.StartedAt.UTC(),
		report.FinishedAt.UTC(),
		len(report.Providers),
		report.Succeeded(),
		report.ObservationsWritten(),
		string(encoded),
	)
	return storeErr(err)
}

// LastRun returns the most recent persisted ingestion report, or nil
// when no run has happened yet.
func (r *ObservationRepository) LastRun(ctx context.Context) (*domain.IngestionReport, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.last-run")
	defer span.End()

	var raw []byte
	err := r.pool.QueryRow(ctx, `
SELECT report_json
FROM ingestion_runs
ORDER BY started_at DESC
LIMIT 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}

	var report domain.IngestionReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// LastUpdateTime is the newest write anywhere in the store.
func (r *ObservationRepository) LastUpdateTime(ctx context.Context) (time.Time, error) {
	if err := r.ready(); err != nil {
		return time.Time{}, err
	}

	_, span := r.tracer.Start(ctx, "observation-repo.last-update-time")
	defer span.End()

	var at *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(inserted_at) FROM observations`).Scan(&at)
	if err != nil {
		return time.Time{}, storeErr(err)
	}
	if at == nil {
		return time.Time{}, nil
	}
	return at.UTC(), nil
}

func scanObservation(s interface{ Scan(dest ...any) error }) (domain.Observation, error) {
	var obs domain.Observation
	var id string
	var rawMeta []byte

	if err := s.Scan(&id, &obs.AsOf, &obs.Value, &obs.Unit, &obs.Source, &rawMeta, &obs.FetchedAt); err != nil {
		return domain.Observation{}, err
	}

	obs.IndicatorID = domain.IndicatorID(id)
	obs.AsOf = obs.AsOf.UTC()
	obs.FetchedAt = obs.FetchedAt.UTC()
	if len(rawMeta) > 0 && string(rawMeta) != "{}" {
		meta := map[string]string{}
		if err := json.Unmarshal(rawMeta, &meta); err == nil && len(meta) > 0 {
			obs.Meta = meta
		}
	}
	return obs, nil
}

func metaJSON(meta map[string]string) string {
	if len(meta) == 0 {
		return "{}"
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func fetchedAtOrNow(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}

// storeErr folds driver errors into the store taxonomy: integrity
// violations (class 23) are the caller's data problem, everything else
// is the store being unavailable.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var storeError *domain.StoreError
	if errors.As(err, &storeError) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return domain.NewStoreError(domain.StoreConstraintViolation, err)
	}
	return domain.NewStoreError(domain.StoreUnavailable, err)
}

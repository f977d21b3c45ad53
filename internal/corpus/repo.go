package corpus

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Upsert writes events into the store, deduplicating by uid: a record
// seen twice keeps a single row with the latest field values.
func (r *PostgresRepo) Upsert(ctx context.Context, events []Event) error {
	query := `INSERT INTO events
		(uid, title, description, long_description, conditions, city, region, postal_code,
		 latitude, longitude, date_start, date_end, keywords, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (uid) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			long_description = EXCLUDED.long_description,
			conditions = EXCLUDED.conditions,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			postal_code = EXCLUDED.postal_code,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			date_start = EXCLUDED.date_start,
			date_end = EXCLUDED.date_end,
			keywords = EXCLUDED.keywords,
			updated_at = EXCLUDED.updated_at`

	for _, e := range events {
		_, err := r.db.ExecContext(ctx, query,
			e.UID, e.Title, e.Description, e.LongDescription, e.Conditions,
			e.City, e.Region, e.PostalCode, e.Latitude, e.Longitude,
			nullTime(e.DateStart), nullTime(e.DateEnd), pq.Array(e.Keywords), e.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepo) ListUpdatedSince(ctx context.Context, since time.Time) ([]Event, error) {
	query := `SELECT uid, title, description, long_description, conditions, city, region,
		postal_code, latitude, longitude, date_start, date_end, keywords, updated_at
		FROM events WHERE updated_at > $1 ORDER BY updated_at, uid`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var dateStart, dateEnd sql.NullTime
		if err := rows.Scan(&e.UID, &e.Title, &e.Description, &e.LongDescription,
			&e.Conditions, &e.City, &e.Region, &e.PostalCode, &e.Latitude, &e.Longitude,
			&dateStart, &dateEnd, pq.Array(&e.Keywords), &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.DateStart = dateStart.Time
		e.DateEnd = dateEnd.Time
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

// LastRun returns the most recent pipeline run, or nil when the pipeline
// has never completed successfully.
func (r *PostgresRepo) LastRun(ctx context.Context) (*PipelineRun, error) {
	run := &PipelineRun{}
	query := `SELECT run_at, events_processed, chunks_indexed, detail
		FROM pipeline_runs ORDER BY run_at DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&run.RunAt, &run.EventsProcessed, &run.ChunksIndexed, &run.Detail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *PostgresRepo) RecordRun(ctx context.Context, run PipelineRun) error {
	query := `INSERT INTO pipeline_runs (run_at, events_processed, chunks_indexed, detail)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, run.RunAt, run.EventsProcessed, run.ChunksIndexed, run.Detail)
	return err
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

package corpus

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	updated := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{UID: "1", Title: "Concert", City: "Toulouse", Keywords: []string{"musique"}, UpdatedAt: updated},
		{UID: "2", Title: "Expo", City: "Paris", UpdatedAt: updated},
	}

	for range events {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	repo := NewPostgresRepo(db)
	require.NoError(t, repo.Upsert(context.Background(), events))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_StopsOnFirstError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnError(errors.New("connection reset"))

	repo := NewPostgresRepo(db)
	err = repo.Upsert(context.Background(), []Event{{UID: "1"}, {UID: "2"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUpdatedSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)

	columns := []string{"uid", "title", "description", "long_description", "conditions",
		"city", "region", "postal_code", "latitude", "longitude",
		"date_start", "date_end", "keywords", "updated_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("1", "Concert", "desc", "", "", "Toulouse", "Occitanie", "31000",
			43.6, 1.44, start, start, pq.Array([]string{"musique"}), since.Add(time.Hour)).
		AddRow("2", "Expo", "desc", "", "", "Paris", "", "",
			0.0, 0.0, nil, nil, pq.Array([]string{}), since.Add(2*time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE updated_at > $1")).
		WithArgs(since).
		WillReturnRows(rows)

	repo := NewPostgresRepo(db)
	events, err := repo.ListUpdatedSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Concert", events[0].Title)
	assert.Equal(t, start, events[0].DateStart)
	assert.True(t, events[1].DateStart.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastRun_NoRowsMeansNeverRan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM pipeline_runs")).
		WillReturnRows(sqlmock.NewRows([]string{"run_at", "events_processed", "chunks_indexed", "detail"}))

	repo := NewPostgresRepo(db)
	run, err := repo.LastRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestLastRun_ReturnsLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	runAt := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM pipeline_runs")).
		WillReturnRows(sqlmock.NewRows([]string{"run_at", "events_processed", "chunks_indexed", "detail"}).
			AddRow(runAt, 12, 48, "ok"))

	repo := NewPostgresRepo(db)
	run, err := repo.LastRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, runAt, run.RunAt)
	assert.Equal(t, 12, run.EventsProcessed)
	assert.Equal(t, 48, run.ChunksIndexed)
}

func TestRecordRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	run := PipelineRun{RunAt: time.Now().UTC(), EventsProcessed: 5, ChunksIndexed: 20, Detail: "incremental"}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pipeline_runs")).
		WithArgs(run.RunAt, run.EventsProcessed, run.ChunksIndexed, run.Detail).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewPostgresRepo(db)
	require.NoError(t, repo.RecordRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM events")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(37))

	repo := NewPostgresRepo(db)
	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 37, count)
}

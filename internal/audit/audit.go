// Package audit persists import results as retrievable audit-log entries.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/genomehub/varimport/internal/ingest"
)

// Sink receives one import result per completed import, keyed by a
// caller-supplied job identifier.
type Sink interface {
	Record(ctx context.Context, jobID, source string, res *ingest.Result) error
}

// Entry is a stored audit-log row.
type Entry struct {
	JobID      string
	Source     string // caller-supplied label, typically the input file
	Total      int
	Successful int
	Failed     int
	Detail     string // full Result JSON, including errors and warnings
	CreatedAt  time.Time
}

// SQLSink stores audit entries in the same database as the variant data.
type SQLSink struct {
	db *sql.DB
}

// NewSQLSink creates a sink on the given database and bootstraps its table.
func NewSQLSink(db *sql.DB) (*SQLSink, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS import_runs (
		job_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		total BIGINT NOT NULL,
		successful BIGINT NOT NULL,
		failed BIGINT NOT NULL,
		detail TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}

	return &SQLSink{db: db}, nil
}

// Record stores one import result under the given job id.
func (s *SQLSink) Record(ctx context.Context, jobID, source string, res *ingest.Result) error {
	detail, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode import result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_runs (job_id, source, total, successful, failed, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		jobID, source, res.Total, res.Successful, res.Failed,
		string(detail), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}

	return nil
}

// Run retrieves a single audit entry by job id. Returns (nil, nil) when
// no entry exists.
func (s *SQLSink) Run(ctx context.Context, jobID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, source, total, successful, failed, detail, created_at
		 FROM import_runs WHERE job_id = $1`, jobID)

	e, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get import run: %w", err)
	}
	return e, nil
}

// Runs lists all audit entries, most recent first.
func (s *SQLSink) Runs(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, source, total, successful, failed, detail, created_at
		 FROM import_runs ORDER BY created_at DESC, job_id`)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import runs: %w", err)
	}
	return entries, nil
}

func scanEntry(scan func(dest ...any) error) (*Entry, error) {
	var e Entry
	var createdAt string
	if err := scan(&e.JobID, &e.Source, &e.Total, &e.Successful, &e.Failed,
		&e.Detail, &createdAt); err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		e.CreatedAt = ts
	}
	return &e, nil
}

// Result decodes the stored detail back into an ingest.Result.
func (e *Entry) Result() (*ingest.Result, error) {
	var res ingest.Result
	if err := json.Unmarshal([]byte(e.Detail), &res); err != nil {
		return nil, fmt.Errorf("decode import result: %w", err)
	}
	return &res, nil
}

// small contract description
// inputs: job table rows, handlers map
// outputs: job status updates, dead-letter moves on permanent failure
// error modes: db errors, handler errors
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/trailblazers/internal/db"
)

type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

const jobColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

// Enqueue inserts a job into the jobs table and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	payload := string(j.Payload)
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now()
	}
	now := time.Now().UTC().UnixMilli()
	q := `INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.db.Exec(ctx, q, j.Type, payload, StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().Unix(), now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

func scanJob(s interface{ Scan(...any) error }) (*Job, error) {
	var (
		id          int64
		typ         string
		payload     sql.NullString
		status      string
		attempts    int
		maxAttempts int
		priority    int
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := s.Scan(&id, &typ, &payload, &status, &attempts, &maxAttempts, &priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		return nil, err
	}
	j := &Job{
		ID:          id,
		Type:        typ,
		Status:      status,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Priority:    priority,
		ScheduledAt: time.Unix(scheduledAt, 0),
		Created:     time.UnixMilli(created),
		Updated:     time.UnixMilli(updated),
	}
	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		t := time.Unix(nextTry.Int64, 0)
		j.NextTryAt = &t
	}
	if lastError.Valid {
		j.LastError = lastError.String
	}
	return j, nil
}

// FetchNext fetches the next available job respecting priority and schedule
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE (status = 'queued' OR status = 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ? ORDER BY priority ASC, scheduled_at ASC, id ASC LIMIT 1`
	now := time.Now().UTC().Unix()
	j, err := scanJob(r.db.QueryRow(ctx, q, now, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch next job: %w", err)
	}
	return j, nil
}

// Claim fetches the next available job and marks it running. The status
// update is conditional, so a job taken by another worker in between is
// skipped and the next candidate is tried.
func (r *Repository) Claim(ctx context.Context) (*Job, error) {
	for range 3 {
		j, err := r.FetchNext(ctx)
		if err != nil || j == nil {
			return j, err
		}
		res, err := r.db.Exec(ctx, `UPDATE jobs SET status = ?, updated = ? WHERE id = ? AND status = ?`,
			StatusRunning, time.Now().UTC().UnixMilli(), j.ID, j.Status)
		if err != nil {
			return nil, fmt.Errorf("claim job %d: %w", j.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			j.Status = StatusRunning
			return j, nil
		}
	}
	return nil, nil
}

// Get returns the job with id, or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, id int64) (*Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

// HasPending reports whether a queued or retrying job of typ exists.
func (r *Repository) HasPending(ctx context.Context, typ string) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM jobs WHERE type = ? AND status IN ('queued', 'retry')`, typ).Scan(&n)
	return n > 0, err
}

// ResetRunning requeues jobs left running by a previous process. It must be
// called before any worker of this process starts.
func (r *Repository) ResetRunning(ctx context.Context) (int64, error) {
	res, err := r.db.Exec(ctx, `UPDATE jobs SET status = ?, updated = ? WHERE status = ?`,
		StatusQueued, time.Now().UTC().UnixMilli(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("reset running jobs: %w", err)
	}
	return res.RowsAffected()
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.Unix()
	}
	q := `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, j.Status, j.Attempts, nextTry, j.LastError, time.Now().UTC().UnixMilli(), j.ID)
	return err
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		insert := `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
		if _, err := tx.ExecContext(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, time.Now().UTC().UnixMilli()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID)
		return err
	})
}

// DeadLetter is a job that exhausted its attempts.
type DeadLetter struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	Type      string    `json:"type"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	FailedAt  time.Time `json:"failed_at"`
}

func (r *Repository) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryRows(ctx, `SELECT id, job_id, type, attempts, COALESCE(last_error, ''), failed_at FROM dead_letter_jobs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeadLetter
	for rows.Next() {
		var d DeadLetter
		var failed int64
		if err := rows.Scan(&d.ID, &d.JobID, &d.Type, &d.Attempts, &d.LastError, &failed); err != nil {
			return nil, err
		}
		d.FailedAt = time.UnixMilli(failed)
		out = append(out, d)
	}
	return out, rows.Err()
}

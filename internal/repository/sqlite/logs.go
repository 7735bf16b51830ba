package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/garnizeh/trailblazers/pkg/models"
)

func (r *SQLiteRepo) CreateAuditLog(ctx context.Context, l *models.AuditLog) (int64, error) {
	if l == nil {
		return 0, fmt.Errorf("audit log is nil")
	}
	details := l.Details
	if details == "" {
		details = "{}"
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO audit_logs (user_id, action, object_type, object_id, details, created) VALUES (?, ?, ?, ?, ?, ?)`,
		l.UserID, l.Action, l.ObjectType, l.ObjectID, details, now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) ListAuditLogs(ctx context.Context, objectType string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, user_id, action, object_type, object_id, details, created
		FROM audit_logs WHERE (? = '' OR object_type = ?) ORDER BY id DESC LIMIT ?`, objectType, objectType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.ObjectType, &l.ObjectID, &l.Details, &l.Created); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) CreateErrorLog(ctx context.Context, l *models.ErrorLog) (int64, error) {
	if l == nil {
		return 0, fmt.Errorf("error log is nil")
	}
	logCtx := l.Context
	if logCtx == "" {
		logCtx = "{}"
	}
	created := l.Created
	if created == 0 {
		created = now()
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO error_logs (level, message, context, created) VALUES (?, ?, ?, ?)`,
		l.Level, l.Message, logCtx, created)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) CountErrorLogsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM error_logs WHERE created >= ?`, since.UTC().UnixMilli()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLiteRepo) ListErrorLogs(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, level, message, context, created FROM error_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ErrorLog
	for rows.Next() {
		var l models.ErrorLog
		if err := rows.Scan(&l.ID, &l.Level, &l.Message, &l.Context, &l.Created); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) SetTransient(ctx context.Context, name, value string, ttl time.Duration) error {
	expires := time.Now().Add(ttl).UTC().UnixMilli()
	_, err := r.conn.Exec(ctx, `INSERT INTO transients (name, value, expires) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, expires = excluded.expires`, name, value, expires)
	return err
}

func (r *SQLiteRepo) GetTransient(ctx context.Context, name string) (string, bool, error) {
	var value string
	var expires int64
	if err := r.conn.QueryRow(ctx, `SELECT value, expires FROM transients WHERE name = ?`, name).Scan(&value, &expires); err != nil {
		if notFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if expires <= now() {
		return "", false, nil
	}
	return value, true, nil
}

func (r *SQLiteRepo) DeleteTransient(ctx context.Context, name string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM transients WHERE name = ?`, name)
	return err
}

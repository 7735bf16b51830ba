package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/trailblazers/pkg/models"
)

const userColumns = `id, email, display_name, password_hash, role, created, updated`

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO users (email, display_name, password_hash, role, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(u.Email)), u.DisplayName, u.PasswordHash, u.Role, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*models.User, error) {
	var u models.User
	if err := s.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Created, &u.Updated); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *SQLiteRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE users SET email = ?, display_name = ?, password_hash = ?, role = ?, updated = ? WHERE id = ?`,
		strings.ToLower(strings.TrimSpace(u.Email)), u.DisplayName, u.PasswordHash, u.Role, now(), u.ID)
	return err
}

func (r *SQLiteRepo) DeleteUser(ctx context.Context, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE jury_members SET user_id = NULL WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("unlink jury member: %w", err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		return err
	})
}

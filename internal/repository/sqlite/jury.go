package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/trailblazers/pkg/models"
)

const juryColumns = `id, user_id, name, email, organization, position, expertise, biography, created, updated`

func scanJury(s rowScanner) (*models.JuryMember, error) {
	var j models.JuryMember
	var userID sql.NullInt64
	if err := s.Scan(&j.ID, &userID, &j.Name, &j.Email, &j.Organization, &j.Position, &j.Expertise, &j.Biography, &j.Created, &j.Updated); err != nil {
		return nil, err
	}
	if userID.Valid {
		v := userID.Int64
		j.UserID = &v
	}
	return &j, nil
}

func (r *SQLiteRepo) CreateJuryMember(ctx context.Context, j *models.JuryMember) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("jury member is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO jury_members (user_id, name, email, organization, position, expertise, biography, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.UserID, j.Name, j.Email, j.Organization, j.Position, j.Expertise, j.Biography, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetJuryMember(ctx context.Context, id int64) (*models.JuryMember, error) {
	j, err := scanJury(r.conn.QueryRow(ctx, `SELECT `+juryColumns+` FROM jury_members WHERE id = ?`, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

func (r *SQLiteRepo) GetJuryMemberByUserID(ctx context.Context, userID int64) (*models.JuryMember, error) {
	j, err := scanJury(r.conn.QueryRow(ctx, `SELECT `+juryColumns+` FROM jury_members WHERE user_id = ?`, userID))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

func (r *SQLiteRepo) ListJuryMembers(ctx context.Context) ([]models.JuryMember, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+juryColumns+` FROM jury_members ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JuryMember
	for rows.Next() {
		j, err := scanJury(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// ListJuryMemberIDs returns jury member ids in ascending order.
func (r *SQLiteRepo) ListJuryMemberIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `SELECT id FROM jury_members ORDER BY id`)
}

func (r *SQLiteRepo) UpdateJuryMember(ctx context.Context, j *models.JuryMember) error {
	if j == nil {
		return fmt.Errorf("jury member is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE jury_members SET name = ?, email = ?, organization = ?, position = ?, expertise = ?, biography = ?, updated = ? WHERE id = ?`,
		j.Name, j.Email, j.Organization, j.Position, j.Expertise, j.Biography, now(), j.ID)
	return err
}

// LinkJuryUser sets or clears (userID == nil) the linked user account.
func (r *SQLiteRepo) LinkJuryUser(ctx context.Context, juryID int64, userID *int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE jury_members SET user_id = ?, updated = ? WHERE id = ?`, userID, now(), juryID)
	if isUniqueViolation(err) {
		return fmt.Errorf("user already linked to another jury member: %w", err)
	}
	return err
}

func (r *SQLiteRepo) DeleteJuryMember(ctx context.Context, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM jury_assignments WHERE jury_member_id = ?`, id); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM jury_members WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete jury member: %w", err)
		}
		return nil
	})
}

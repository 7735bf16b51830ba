package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/trailblazers/pkg/models"
)

const assignmentColumns = `id, jury_member_id, candidate_id, assigned_by, assigned_at`

func scanAssignment(s rowScanner) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.Scan(&a.ID, &a.JuryMemberID, &a.CandidateID, &a.AssignedBy, &a.AssignedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *SQLiteRepo) CreateAssignment(ctx context.Context, a *models.Assignment) (int64, bool, error) {
	if a == nil {
		return 0, false, fmt.Errorf("assignment is nil")
	}

	ts := a.AssignedAt
	if ts == 0 {
		ts = now()
	}
	res, err := r.conn.Exec(ctx, `INSERT OR IGNORE INTO jury_assignments (jury_member_id, candidate_id, assigned_by, assigned_at) VALUES (?, ?, ?, ?)`,
		a.JuryMemberID, a.CandidateID, a.AssignedBy, ts)
	if err != nil {
		return 0, false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		var id int64
		if err := r.conn.QueryRow(ctx, `SELECT id FROM jury_assignments WHERE jury_member_id = ? AND candidate_id = ?`, a.JuryMemberID, a.CandidateID).Scan(&id); err != nil {
			return 0, false, err
		}
		return id, false, nil
	}

	id, err := res.LastInsertId()
	return id, true, err
}

func (r *SQLiteRepo) CreateAssignments(ctx context.Context, pairs []models.Assignment, clearExisting bool) ([]models.Assignment, error) {
	var inserted []models.Assignment
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		inserted = inserted[:0]
		if clearExisting {
			if _, err := tx.ExecContext(ctx, `DELETE FROM jury_assignments`); err != nil {
				return fmt.Errorf("clear assignments: %w", err)
			}
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO jury_assignments (jury_member_id, candidate_id, assigned_by, assigned_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		ts := now()
		for _, p := range pairs {
			res, err := stmt.ExecContext(ctx, p.JuryMemberID, p.CandidateID, p.AssignedBy, ts)
			if err != nil {
				return fmt.Errorf("insert assignment %d/%d: %w", p.JuryMemberID, p.CandidateID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("insert assignment %d/%d: %w", p.JuryMemberID, p.CandidateID, err)
			}
			p.ID, p.AssignedAt = id, ts
			inserted = append(inserted, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *SQLiteRepo) GetAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	a, err := scanAssignment(r.conn.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM jury_assignments WHERE id = ?`, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *SQLiteRepo) AssignmentExists(ctx context.Context, juryID, candidateID int64) (bool, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM jury_assignments WHERE jury_member_id = ? AND candidate_id = ?`, juryID, candidateID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteRepo) ListAssignments(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, error) {
	var conds []string
	var args []any
	if f.JuryMemberID > 0 {
		conds = append(conds, `jury_member_id = ?`)
		args = append(args, f.JuryMemberID)
	}
	if f.CandidateID > 0 {
		conds = append(conds, `candidate_id = ?`)
		args = append(args, f.CandidateID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(f.Offset, 0))

	rows, err := r.conn.QueryRows(ctx, `SELECT `+assignmentColumns+` FROM jury_assignments`+where+` ORDER BY jury_member_id, candidate_id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// CountAssignmentsByCandidate returns assignment counts keyed by candidate id.
// Candidates without assignments are absent from the map.
func (r *SQLiteRepo) CountAssignmentsByCandidate(ctx context.Context) (map[int64]int, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT candidate_id, COUNT(*) FROM jury_assignments GROUP BY candidate_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteAssignment(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM jury_assignments WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) DeleteAssignments(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.conn.Exec(ctx, `DELETE FROM jury_assignments WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepo) DeleteAssignmentsByJury(ctx context.Context, juryID int64) (int64, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM jury_assignments WHERE jury_member_id = ?`, juryID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepo) DeleteAllAssignments(ctx context.Context) (int64, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM jury_assignments`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

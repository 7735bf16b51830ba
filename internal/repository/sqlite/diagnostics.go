package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/trailblazers/pkg/models"
)

func (r *SQLiteRepo) TableExists(ctx context.Context, name string) (bool, error) {
	return r.schemaObjectExists(ctx, "table", name)
}

func (r *SQLiteRepo) IndexExists(ctx context.Context, name string) (bool, error) {
	return r.schemaObjectExists(ctx, "index", name)
}

func (r *SQLiteRepo) schemaObjectExists(ctx context.Context, kind, name string) (bool, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM sqlite_master WHERE type = ? AND name = ?`, kind, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindOrphanedEvaluations lists evaluations whose candidate or jury member row
// is gone, or that no longer have a matching assignment.
func (r *SQLiteRepo) FindOrphanedEvaluations(ctx context.Context) ([]models.OrphanedEvaluation, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT e.id, e.jury_member_id, e.candidate_id,
			CASE
				WHEN c.id IS NULL THEN 'missing_candidate'
				WHEN j.id IS NULL THEN 'missing_jury_member'
				ELSE 'missing_assignment'
			END
		FROM evaluations e
		LEFT JOIN candidates c ON c.id = e.candidate_id
		LEFT JOIN jury_members j ON j.id = e.jury_member_id
		LEFT JOIN jury_assignments a ON a.jury_member_id = e.jury_member_id AND a.candidate_id = e.candidate_id
		WHERE c.id IS NULL OR j.id IS NULL OR a.id IS NULL
		ORDER BY e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OrphanedEvaluation
	for rows.Next() {
		var o models.OrphanedEvaluation
		if err := rows.Scan(&o.EvaluationID, &o.JuryMemberID, &o.CandidateID, &o.Reason); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// FindDuplicateEvaluations reports pairs with more than one row. The unique
// index prevents new duplicates; databases restored from older dumps may still hold them.
func (r *SQLiteRepo) FindDuplicateEvaluations(ctx context.Context) ([]models.DuplicatePair, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT jury_member_id, candidate_id, COUNT(*)
		FROM evaluations GROUP BY jury_member_id, candidate_id HAVING COUNT(*) > 1
		ORDER BY jury_member_id, candidate_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DuplicatePair
	for rows.Next() {
		var d models.DuplicatePair
		if err := rows.Scan(&d.JuryMemberID, &d.CandidateID, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) CountJuryWithoutUser(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM jury_members j
		WHERE j.user_id IS NULL OR NOT EXISTS (SELECT 1 FROM users u WHERE u.id = j.user_id)`).Scan(&n)
	return n, err
}

func (r *SQLiteRepo) CountCandidatesWithoutAssignment(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM candidates c
		WHERE c.deleted_at IS NULL AND NOT EXISTS (SELECT 1 FROM jury_assignments a WHERE a.candidate_id = c.id)`).Scan(&n)
	return n, err
}

func (r *SQLiteRepo) DeleteEvaluations(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.conn.Exec(ctx, `DELETE FROM evaluations WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepo) DeleteDuplicateEvaluations(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM evaluations WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY jury_member_id, candidate_id ORDER BY updated DESC, id DESC) AS rn
				FROM evaluations
			) WHERE rn = 1
		)`)
		if err != nil {
			return fmt.Errorf("delete duplicates: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

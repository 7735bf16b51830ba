package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/trailblazers/pkg/models"
)

const evaluationColumns = `id, jury_member_id, candidate_id, courage_score, innovation_score, implementation_score,
	relevance_score, visibility_score, total_score, comments, status, created, updated`

func scanEvaluation(s rowScanner) (*models.Evaluation, error) {
	var e models.Evaluation
	var courage, innovation, implementation, relevance, visibility sql.NullInt64
	if err := s.Scan(&e.ID, &e.JuryMemberID, &e.CandidateID, &courage, &innovation, &implementation,
		&relevance, &visibility, &e.TotalScore, &e.Comments, &e.Status, &e.Created, &e.Updated); err != nil {
		return nil, err
	}
	e.Scores = models.Scores{
		Courage:        nullInt(courage),
		Innovation:     nullInt(innovation),
		Implementation: nullInt(implementation),
		Relevance:      nullInt(relevance),
		Visibility:     nullInt(visibility),
	}
	e.Scores.Clamp()
	return &e, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func (r *SQLiteRepo) UpsertEvaluation(ctx context.Context, e *models.Evaluation) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("evaluation is nil")
	}

	ts := now()
	_, err := r.conn.Exec(ctx, `INSERT INTO evaluations (jury_member_id, candidate_id, courage_score, innovation_score, implementation_score,
		relevance_score, visibility_score, total_score, comments, status, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (jury_member_id, candidate_id) DO UPDATE SET
			courage_score = excluded.courage_score,
			innovation_score = excluded.innovation_score,
			implementation_score = excluded.implementation_score,
			relevance_score = excluded.relevance_score,
			visibility_score = excluded.visibility_score,
			total_score = excluded.total_score,
			comments = excluded.comments,
			status = excluded.status,
			updated = excluded.updated`,
		e.JuryMemberID, e.CandidateID, e.Scores.Courage, e.Scores.Innovation, e.Scores.Implementation,
		e.Scores.Relevance, e.Scores.Visibility, e.TotalScore, e.Comments, e.Status, ts, ts)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := r.conn.QueryRow(ctx, `SELECT id FROM evaluations WHERE jury_member_id = ? AND candidate_id = ?`, e.JuryMemberID, e.CandidateID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepo) GetEvaluation(ctx context.Context, id int64) (*models.Evaluation, error) {
	e, err := scanEvaluation(r.conn.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = ?`, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *SQLiteRepo) GetEvaluationByPair(ctx context.Context, juryID, candidateID int64) (*models.Evaluation, error) {
	e, err := scanEvaluation(r.conn.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE jury_member_id = ? AND candidate_id = ? ORDER BY updated DESC LIMIT 1`, juryID, candidateID))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *SQLiteRepo) ListEvaluations(ctx context.Context, f models.EvaluationFilter) ([]models.Evaluation, error) {
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
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, f.Status)
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

	rows, err := r.conn.QueryRows(ctx, `SELECT `+evaluationColumns+` FROM evaluations`+where+` ORDER BY updated DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteEvaluation(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM evaluations WHERE id = ?`, id)
	return err
}

// Rankings orders live candidates by their mean completed-evaluation score.
// Candidates without a completed evaluation are left out.
func (r *SQLiteRepo) Rankings(ctx context.Context, category string, limit int) ([]models.Ranking, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT c.id, c.name, c.category, AVG(e.total_score), COUNT(e.id),
			(SELECT COUNT(*) FROM votes v WHERE v.candidate_id = c.id)
		FROM candidates c
		JOIN evaluations e ON e.candidate_id = c.id AND e.status = ?
		WHERE c.deleted_at IS NULL AND (? = '' OR c.category = ?)
		GROUP BY c.id
		ORDER BY AVG(e.total_score) DESC, COUNT(e.id) DESC, c.id
		LIMIT ?`, models.EvaluationCompleted, category, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ranking
	for rows.Next() {
		var rk models.Ranking
		if err := rows.Scan(&rk.CandidateID, &rk.Name, &rk.Category, &rk.AverageScore, &rk.EvaluationCount, &rk.VoteCount); err != nil {
			return nil, err
		}
		rk.Rank = len(out) + 1
		out = append(out, rk)
	}
	return out, rows.Err()
}

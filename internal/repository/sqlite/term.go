package sqlite

import (
	"context"

	"github.com/garnizeh/trailblazers/pkg/models"
)

func (r *SQLiteRepo) ListTerms(ctx context.Context, taxonomy string) ([]models.Term, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, taxonomy, slug, name, sort_order FROM taxonomy_terms WHERE taxonomy = ? ORDER BY sort_order, name`, taxonomy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Term
	for rows.Next() {
		var t models.Term
		if err := rows.Scan(&t.ID, &t.Taxonomy, &t.Slug, &t.Name, &t.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) TermExists(ctx context.Context, taxonomy, slug string) (bool, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM taxonomy_terms WHERE taxonomy = ? AND slug = ?`, taxonomy, slug).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAwardYears returns the distinct award years used by live candidates, newest first.
func (r *SQLiteRepo) ListAwardYears(ctx context.Context) ([]int, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT DISTINCT award_year FROM candidates WHERE award_year > 0 AND deleted_at IS NULL ORDER BY award_year DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

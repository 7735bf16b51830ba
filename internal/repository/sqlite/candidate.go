package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/trailblazers/pkg/models"
)

const candidateColumns = `id, name, slug, organization, position, country, website_url, linkedin_url, description,
	section_overview, section_courage, section_innovation, section_implementation, section_relevance, section_visibility,
	category, phase, status, award_year, photo_key, created, updated, deleted_at`

func scanCandidate(s rowScanner) (*models.Candidate, error) {
	var c models.Candidate
	var deleted sql.NullInt64
	if err := s.Scan(&c.ID, &c.Name, &c.Slug, &c.Organization, &c.Position, &c.Country, &c.WebsiteURL, &c.LinkedInURL, &c.Description,
		&c.Sections.Overview, &c.Sections.Courage, &c.Sections.Innovation, &c.Sections.Implementation, &c.Sections.Relevance, &c.Sections.Visibility,
		&c.Category, &c.Phase, &c.Status, &c.AwardYear, &c.PhotoKey, &c.Created, &c.Updated, &deleted); err != nil {
		return nil, err
	}
	if deleted.Valid {
		v := deleted.Int64
		c.DeletedAt = &v
	}
	return &c, nil
}

func (r *SQLiteRepo) CreateCandidate(ctx context.Context, c *models.Candidate) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("candidate is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO candidates (name, slug, organization, position, country, website_url, linkedin_url, description,
		section_overview, section_courage, section_innovation, section_implementation, section_relevance, section_visibility,
		category, phase, status, award_year, photo_key, created, updated) VALUES (`+placeholders(21)+`)`,
		c.Name, c.Slug, c.Organization, c.Position, c.Country, c.WebsiteURL, c.LinkedInURL, c.Description,
		c.Sections.Overview, c.Sections.Courage, c.Sections.Innovation, c.Sections.Implementation, c.Sections.Relevance, c.Sections.Visibility,
		c.Category, c.Phase, c.Status, c.AwardYear, c.PhotoKey, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetCandidate(ctx context.Context, id int64) (*models.Candidate, error) {
	c, err := scanCandidate(r.conn.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *SQLiteRepo) GetCandidateBySlug(ctx context.Context, slug string) (*models.Candidate, error) {
	c, err := scanCandidate(r.conn.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE slug = ?`, slug))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func candidateWhere(f models.CandidateFilter) (string, []any) {
	var conds []string
	var args []any
	if !f.IncludeDeleted {
		conds = append(conds, `deleted_at IS NULL`)
	}
	if f.Category != "" {
		conds = append(conds, `category = ?`)
		args = append(args, f.Category)
	}
	if f.Phase != "" {
		conds = append(conds, `phase = ?`)
		args = append(args, f.Phase)
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, f.Status)
	}
	if f.AwardYear > 0 {
		conds = append(conds, `award_year = ?`)
		args = append(args, f.AwardYear)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, `(name LIKE ? OR organization LIKE ?)`)
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *SQLiteRepo) ListCandidates(ctx context.Context, f models.CandidateFilter) ([]models.Candidate, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := candidateWhere(f)
	args = append(args, limit, offset)
	rows, err := r.conn.QueryRows(ctx, `SELECT `+candidateColumns+` FROM candidates`+where+` ORDER BY name COLLATE NOCASE, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) CountCandidates(ctx context.Context, f models.CandidateFilter) (int64, error) {
	where, args := candidateWhere(f)
	var n int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM candidates`+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListCandidateIDs returns live candidate ids in ascending order.
func (r *SQLiteRepo) ListCandidateIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `SELECT id FROM candidates WHERE deleted_at IS NULL ORDER BY id`)
}

func (r *SQLiteRepo) listIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateCandidate(ctx context.Context, c *models.Candidate) error {
	if c == nil {
		return fmt.Errorf("candidate is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE candidates SET name = ?, slug = ?, organization = ?, position = ?, country = ?, website_url = ?, linkedin_url = ?, description = ?,
		section_overview = ?, section_courage = ?, section_innovation = ?, section_implementation = ?, section_relevance = ?, section_visibility = ?,
		category = ?, phase = ?, status = ?, award_year = ?, photo_key = ?, updated = ? WHERE id = ?`,
		c.Name, c.Slug, c.Organization, c.Position, c.Country, c.WebsiteURL, c.LinkedInURL, c.Description,
		c.Sections.Overview, c.Sections.Courage, c.Sections.Innovation, c.Sections.Implementation, c.Sections.Relevance, c.Sections.Visibility,
		c.Category, c.Phase, c.Status, c.AwardYear, c.PhotoKey, now(), c.ID)
	return err
}

func (r *SQLiteRepo) SetCandidatePhoto(ctx context.Context, id int64, key string) error {
	_, err := r.conn.Exec(ctx, `UPDATE candidates SET photo_key = ?, updated = ? WHERE id = ?`, key, now(), id)
	return err
}

func (r *SQLiteRepo) SoftDeleteCandidate(ctx context.Context, id int64) error {
	ts := now()
	_, err := r.conn.Exec(ctx, `UPDATE candidates SET deleted_at = ?, updated = ? WHERE id = ? AND deleted_at IS NULL`, ts, ts, id)
	return err
}

func (r *SQLiteRepo) RestoreCandidate(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE candidates SET deleted_at = NULL, updated = ? WHERE id = ?`, now(), id)
	return err
}

func (r *SQLiteRepo) HardDeleteCandidate(ctx context.Context, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM jury_assignments WHERE candidate_id = ?`, id); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM evaluations WHERE candidate_id = ?`, id); err != nil {
			return fmt.Errorf("delete evaluations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE candidate_id = ?`, id); err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete candidate: %w", err)
		}
		return nil
	})
}

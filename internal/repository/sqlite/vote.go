package sqlite

import (
	"context"
	"fmt"

	"github.com/garnizeh/trailblazers/pkg/models"
)

func (r *SQLiteRepo) CreateVote(ctx context.Context, v *models.Vote) (int64, bool, error) {
	if v == nil {
		return 0, false, fmt.Errorf("vote is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO votes (candidate_id, voter_email, ip_address, user_agent, created) VALUES (?, ?, ?, ?, ?)`,
		v.CandidateID, v.VoterEmail, v.IPAddress, v.UserAgent, now())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, false, nil
		}
		return 0, false, err
	}

	id, err := res.LastInsertId()
	return id, true, err
}

// CountVotesByCandidate returns vote totals for live candidates, highest first.
func (r *SQLiteRepo) CountVotesByCandidate(ctx context.Context) ([]models.VoteCount, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT c.id, c.name, COUNT(v.id)
		FROM candidates c
		JOIN votes v ON v.candidate_id = c.id
		WHERE c.deleted_at IS NULL
		GROUP BY c.id
		ORDER BY COUNT(v.id) DESC, c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VoteCount
	for rows.Next() {
		var vc models.VoteCount
		if err := rows.Scan(&vc.CandidateID, &vc.Name, &vc.Votes); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

// ListVotes lists votes, optionally restricted to one candidate (candidateID > 0).
func (r *SQLiteRepo) ListVotes(ctx context.Context, candidateID int64) ([]models.Vote, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, candidate_id, voter_email, ip_address, user_agent, created
		FROM votes WHERE (? = 0 OR candidate_id = ?) ORDER BY id`, candidateID, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.CandidateID, &v.VoterEmail, &v.IPAddress, &v.UserAgent, &v.Created); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

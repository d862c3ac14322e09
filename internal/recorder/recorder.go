// Package recorder persists finalized attempt sessions to the
// submissions log. Sessions call it fire-and-forget; retry or alerting
// on top of a failed append is a deployment concern, not the session's.
package recorder

import (
	"context"
	"database/sql"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/session"
)

type SQLRecorder struct {
	db *sql.DB
}

func NewSQLRecorder(db *sql.DB) *SQLRecorder { return &SQLRecorder{db: db} }

func (r *SQLRecorder) Record(ctx context.Context, sub session.Submission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions
		   (id, exercise_id, user_id, answer_json, verdict, score, max_points, attempts, elapsed_sec, submitted_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO NOTHING`,
		sub.ID, sub.ExerciseID, sub.UserID, string(sub.Answer), sub.Verdict,
		sub.Score, sub.MaxPoints, sub.Attempts, sub.ElapsedSec, sub.SubmittedAt)
	if err != nil {
		return apperr.Recorder("append submission", err)
	}
	return nil
}

// ListByUser returns a user's recorded submissions, newest first.
func (r *SQLRecorder) ListByUser(ctx context.Context, userID string, limit int) ([]session.Submission, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, exercise_id, user_id, answer_json, verdict, score, max_points, attempts, elapsed_sec, submitted_at
		   FROM submissions WHERE user_id=$1 ORDER BY submitted_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []session.Submission
	for rows.Next() {
		var sub session.Submission
		var answer string
		if err := rows.Scan(&sub.ID, &sub.ExerciseID, &sub.UserID, &answer, &sub.Verdict,
			&sub.Score, &sub.MaxPoints, &sub.Attempts, &sub.ElapsedSec, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		sub.Answer = []byte(answer)
		out = append(out, sub)
	}
	return out, rows.Err()
}

var _ session.Recorder = (*SQLRecorder)(nil)

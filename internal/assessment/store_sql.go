package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/exercise"
)

// SQLStore works against postgres (pgx) and sqlite (modernc) through
// database/sql; both accept $N placeholders. Attempt uniqueness relies
// on the partial unique index over (user_id, assessment_id) where
// completed_at is null, created by internal/db.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutExercise(ctx context.Context, ex exercise.Exercise) error {
	if !ex.Type.Valid() {
		return apperr.Validationf("unknown exercise type %q", ex.Type)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exercises (id,type,title,instructions,content_json,solution_json,points,difficulty,media_key,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO UPDATE SET
		   type=EXCLUDED.type, title=EXCLUDED.title, instructions=EXCLUDED.instructions,
		   content_json=EXCLUDED.content_json, solution_json=EXCLUDED.solution_json,
		   points=EXCLUDED.points, difficulty=EXCLUDED.difficulty, media_key=EXCLUDED.media_key`,
		ex.ID, string(ex.Type), ex.Title, ex.Instructions,
		string(ex.Content), string(ex.Solution), ex.Points, ex.Difficulty, ex.MediaKey, ex.CreatedAt)
	return err
}

func (s *SQLStore) GetExercise(ctx context.Context, id string) (exercise.Exercise, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,type,title,instructions,content_json,solution_json,points,difficulty,media_key,created_at
		   FROM exercises WHERE id=$1`, id)
	var ex exercise.Exercise
	var typ, content, solution string
	if err := row.Scan(&ex.ID, &typ, &ex.Title, &ex.Instructions, &content, &solution,
		&ex.Points, &ex.Difficulty, &ex.MediaKey, &ex.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return exercise.Exercise{}, apperr.NotFoundf("exercise %s not found", id)
		}
		return exercise.Exercise{}, err
	}
	ex.Type = exercise.Type(typ)
	ex.Content = json.RawMessage(content)
	ex.Solution = json.RawMessage(solution)
	return ex, nil
}

func (s *SQLStore) PutAssessment(ctx context.Context, a Assessment) error {
	qids, err := json.Marshal(a.QuestionIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id,title,question_ids_json,time_limit_sec,created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET
		   title=EXCLUDED.title, question_ids_json=EXCLUDED.question_ids_json,
		   time_limit_sec=EXCLUDED.time_limit_sec`,
		a.ID, a.Title, string(qids), a.TimeLimitSec, a.CreatedAt)
	return err
}

func (s *SQLStore) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,question_ids_json,time_limit_sec,created_at FROM assessments WHERE id=$1`, id)
	var a Assessment
	var qids string
	if err := row.Scan(&a.ID, &a.Title, &qids, &a.TimeLimitSec, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, apperr.NotFoundf("assessment %s not found", id)
		}
		return Assessment{}, err
	}
	if err := json.Unmarshal([]byte(qids), &a.QuestionIDs); err != nil {
		return Assessment{}, fmt.Errorf("decode question ids: %w", err)
	}
	return a, nil
}

func (s *SQLStore) FindActiveAttempt(ctx context.Context, userID, assessmentID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, selectAttempt+
		` WHERE user_id=$1 AND assessment_id=$2 AND completed_at IS NULL`, userID, assessmentID)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, apperr.NotFoundf("no active attempt")
		}
		return Attempt{}, err
	}
	return a, nil
}

// CreateAttempt inserts unless an active attempt already exists; the
// partial unique index makes the insert a no-op on the race, and the
// follow-up read returns the surviving row either way.
func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	respJSON, err := json.Marshal(a.Responses)
	if err != nil {
		return Attempt{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO assessment_attempts
		   (id, assessment_id, user_id, started_at, completed_at, responses_json, total_score, earned_points, total_points, flagged)
		 VALUES ($1,$2,$3,$4,NULL,$5,0,0,0,FALSE)
		 ON CONFLICT DO NOTHING`,
		a.ID, a.AssessmentID, a.UserID, a.StartedAt, string(respJSON)); err != nil {
		return Attempt{}, err
	}
	return s.FindActiveAttempt(ctx, a.UserID, a.AssessmentID)
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, selectAttempt+` WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, apperr.NotFoundf("attempt %s not found", id)
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) UpsertResponse(ctx context.Context, attemptID, questionID string, r Response) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var respJSON string
	if err := tx.QueryRowContext(ctx,
		`SELECT responses_json FROM assessment_attempts WHERE id=$1`, attemptID).Scan(&respJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFoundf("attempt %s not found", attemptID)
		}
		return err
	}
	responses := map[string]Response{}
	if err := json.Unmarshal([]byte(respJSON), &responses); err != nil {
		return fmt.Errorf("decode responses: %w", err)
	}
	responses[questionID] = r
	buf, err := json.Marshal(responses)
	if err != nil {
		return err
	}
	// Conditional on the attempt still being active: a Complete that
	// lands between the read and this write makes the update a no-op
	// instead of attaching a response to a frozen attempt.
	res, err := tx.ExecContext(ctx,
		`UPDATE assessment_attempts SET responses_json=$1 WHERE id=$2 AND completed_at IS NULL`,
		string(buf), attemptID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Statef("attempt %s is already completed", attemptID)
	}
	return tx.Commit()
}

func (s *SQLStore) SaveAttempt(ctx context.Context, a Attempt) error {
	respJSON, err := json.Marshal(a.Responses)
	if err != nil {
		return err
	}
	var completed any
	if a.CompletedAt != 0 {
		completed = a.CompletedAt
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessment_attempts
		    SET completed_at=$1, responses_json=$2, total_score=$3, earned_points=$4, total_points=$5, flagged=$6
		  WHERE id=$7`,
		completed, string(respJSON), a.TotalScore, a.EarnedPoints, a.TotalPoints, a.Flagged, a.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFoundf("attempt %s not found", a.ID)
	}
	return nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := selectAttempt + ` WHERE 1=1`
	args := []any{}
	n := 0
	add := func(cond string, v any) {
		n++
		q += fmt.Sprintf(" AND %s=$%d", cond, n)
		args = append(args, v)
	}
	if opts.UserID != "" {
		add("user_id", opts.UserID)
	}
	if opts.AssessmentID != "" {
		add("assessment_id", opts.AssessmentID)
	}
	switch opts.Status {
	case "active":
		q += " AND completed_at IS NULL"
	case "completed":
		q += " AND completed_at IS NOT NULL"
	}
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const selectAttempt = `SELECT id, assessment_id, user_id, started_at, completed_at, responses_json, total_score, earned_points, total_points, flagged FROM assessment_attempts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var completed sql.NullInt64
	var respJSON string
	if err := row.Scan(&a.ID, &a.AssessmentID, &a.UserID, &a.StartedAt, &completed,
		&respJSON, &a.TotalScore, &a.EarnedPoints, &a.TotalPoints, &a.Flagged); err != nil {
		return Attempt{}, err
	}
	if completed.Valid {
		a.CompletedAt = completed.Int64
	}
	a.Responses = map[string]Response{}
	if strings.TrimSpace(respJSON) != "" {
		if err := json.Unmarshal([]byte(respJSON), &a.Responses); err != nil {
			return Attempt{}, fmt.Errorf("decode responses: %w", err)
		}
	}
	return a, nil
}

var _ Store = (*SQLStore)(nil)

package assessment

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/grading"
)

// Service drives the attempt lifecycle: idempotent start, answer
// upserts, completion, and post-completion manual review. The caller
// identity is always an explicit parameter taken from the verified
// token, never from the request body, and ownership failures read as
// not-found.
type Service struct {
	store Store
	now   func() time.Time
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start returns the caller's active attempt on the assessment, creating
// one only if none exists. Safe to call repeatedly and concurrently;
// the store's find-or-create guarantees a single active attempt.
func (s *Service) Start(ctx context.Context, userID, assessmentID string) (Attempt, error) {
	if userID == "" || assessmentID == "" {
		return Attempt{}, apperr.Validationf("user and assessment required")
	}
	if _, err := s.store.GetAssessment(ctx, assessmentID); err != nil {
		return Attempt{}, err
	}
	return s.store.CreateAttempt(ctx, Attempt{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		UserID:       userID,
		StartedAt:    s.now().Unix(),
		Responses:    map[string]Response{},
	})
}

// RecordAnswer checks an answer and upserts it under its question id.
// Last write wins; resubmitting a question replaces the prior response.
func (s *Service) RecordAnswer(ctx context.Context, userID, attemptID, questionID string, answer json.RawMessage, timeSpentSec int) (Response, error) {
	if questionID == "" {
		return Response{}, apperr.Validationf("question id required")
	}
	a, err := s.ownedAttempt(ctx, userID, attemptID)
	if err != nil {
		return Response{}, err
	}
	if !a.Active() {
		return Response{}, apperr.Statef("attempt %s is already completed", attemptID)
	}
	asmt, err := s.store.GetAssessment(ctx, a.AssessmentID)
	if err != nil {
		return Response{}, err
	}
	if !contains(asmt.QuestionIDs, questionID) {
		return Response{}, apperr.NotFoundf("question %s not in assessment", questionID)
	}
	ex, err := s.store.GetExercise(ctx, questionID)
	if err != nil {
		return Response{}, err
	}
	verdict, err := grading.Check(ex.Type, answer, ex.Solution)
	if err != nil {
		return Response{}, err
	}
	awarded := 0
	if verdict.Correct() {
		awarded = ex.Points
	}
	resp := Response{
		Answer:        answer,
		Correct:       verdict.Correct(),
		Pending:       verdict.Pending(),
		AwardedPoints: awarded,
		TimeSpentSec:  timeSpentSec,
		UpdatedAt:     s.now().Unix(),
	}
	if err := s.store.UpsertResponse(ctx, attemptID, questionID, resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Complete freezes the attempt: total score over every question in the
// assessment, completion timestamp, points breakdown. An assessment
// with no questions completes at score 0, flagged for review. A second
// Complete is a state error.
func (s *Service) Complete(ctx context.Context, userID, attemptID string) (Attempt, error) {
	a, err := s.ownedAttempt(ctx, userID, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if !a.Active() {
		return Attempt{}, apperr.Statef("no active attempt %s", attemptID)
	}
	asmt, err := s.store.GetAssessment(ctx, a.AssessmentID)
	if err != nil {
		return Attempt{}, err
	}
	if err := s.scoreAttempt(ctx, &a, asmt); err != nil {
		return Attempt{}, err
	}
	a.CompletedAt = s.now().Unix()
	if err := s.store.SaveAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// GetAttempt fetches one attempt for the caller. viewAll lets grading
// roles read attempts they do not own.
func (s *Service) GetAttempt(ctx context.Context, callerID, attemptID string, viewAll bool) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if !viewAll && a.UserID != callerID {
		return Attempt{}, apperr.NotFoundf("attempt %s not found", attemptID)
	}
	return a, nil
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

// ApplyManualGrades resolves pending (human-review) responses on a
// completed attempt and re-freezes its totals. Rubric-based awards are
// scored per criterion; direct awards are clamped to the question's
// point value.
func (s *Service) ApplyManualGrades(ctx context.Context, graderID, attemptID string, items map[string]ManualGradeInput) (Attempt, error) {
	if len(items) == 0 {
		return Attempt{}, apperr.Validationf("no grades supplied")
	}
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Active() {
		return Attempt{}, apperr.Statef("attempt %s is still in progress", attemptID)
	}
	for qid, input := range items {
		resp, ok := a.Responses[qid]
		if !ok {
			return Attempt{}, apperr.NotFoundf("no response for question %s", qid)
		}
		if !resp.Pending && resp.GradedBy == "" {
			return Attempt{}, apperr.Statef("question %s does not need review", qid)
		}
		ex, err := s.store.GetExercise(ctx, qid)
		if err != nil {
			return Attempt{}, err
		}
		pts := input.Points
		if len(input.Criteria) > 0 {
			rubric, err := grading.RubricFor(ex.Type, ex.Solution)
			if err != nil {
				return Attempt{}, err
			}
			if rubric == nil {
				return Attempt{}, apperr.Validationf("question %s declares no rubric", qid)
			}
			pts, _ = grading.ScoreRubric(*rubric, input.Criteria)
		}
		awarded := int(math.Round(pts))
		if awarded < 0 {
			awarded = 0
		}
		if awarded > ex.Points {
			awarded = ex.Points
		}
		resp.Pending = false
		resp.AwardedPoints = awarded
		resp.GradedBy = graderID
		resp.UpdatedAt = s.now().Unix()
		a.Responses[qid] = resp
	}
	asmt, err := s.store.GetAssessment(ctx, a.AssessmentID)
	if err != nil {
		return Attempt{}, err
	}
	if err := s.scoreAttempt(ctx, &a, asmt); err != nil {
		return Attempt{}, err
	}
	if err := s.store.SaveAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *Service) scoreAttempt(ctx context.Context, a *Attempt, asmt Assessment) error {
	earned, total := 0, 0
	for _, qid := range asmt.QuestionIDs {
		ex, err := s.store.GetExercise(ctx, qid)
		if err != nil {
			return err
		}
		total += ex.Points
		if resp, ok := a.Responses[qid]; ok {
			earned += resp.AwardedPoints
		}
	}
	a.EarnedPoints = earned
	a.TotalPoints = total
	if total == 0 {
		a.TotalScore = 0
		a.Flagged = true
		return nil
	}
	a.TotalScore = 100 * float64(earned) / float64(total)
	return nil
}

func (s *Service) ownedAttempt(ctx context.Context, userID, attemptID string) (Attempt, error) {
	if userID == "" {
		return Attempt{}, apperr.Validationf("user required")
	}
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != userID {
		return Attempt{}, apperr.NotFoundf("attempt %s not found", attemptID)
	}
	return a, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

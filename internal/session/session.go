// Package session owns the per-exercise grading interaction: a small
// state machine tracking elapsed time, attempt count, and submit/retry
// transitions. Sessions are ephemeral; only a finalized outcome is made
// durable, through the Recorder.
package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/exercise"
	"github.com/classlight/classlight-lms/internal/grading"
)

type State int

const (
	StateUnanswered State = iota
	StateSubmitted
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateFinalized:
		return "finalized"
	default:
		return "unanswered"
	}
}

type Mode int

const (
	// ModeGraded: the timer freezes at the first accepted submission and
	// a correct answer is terminal.
	ModeGraded Mode = iota
	// ModePractice: the timer keeps running across retries and a correct
	// answer may be retried.
	ModePractice
)

type Clock func() time.Time

// Submission is the terminal outcome handed to the Recorder.
type Submission struct {
	ID          string          `json:"id"`
	ExerciseID  string          `json:"exercise_id"`
	UserID      string          `json:"user_id"`
	Answer      json.RawMessage `json:"answer"`
	Verdict     string          `json:"verdict"`
	Score       int             `json:"score"`
	MaxPoints   int             `json:"max_points"`
	Attempts    int             `json:"attempts"`
	ElapsedSec  int             `json:"elapsed_sec"`
	SubmittedAt int64           `json:"submitted_at"`
}

// Recorder durably logs a finalized session. Its failure policy is its
// own; the session treats the call as fire-and-forget.
type Recorder interface {
	Record(ctx context.Context, sub Submission) error
}

// Result is what a submit reports back to the caller/UI.
type Result struct {
	Verdict  grading.Verdict `json:"verdict"`
	Score    int             `json:"score"`
	Attempts int             `json:"attempts"`
}

type Session struct {
	id     string
	userID string
	ex     exercise.Exercise
	mode   Mode
	now    Clock
	rec    Recorder

	// mu guards all mutable state below; one session is shared across
	// concurrent requests through the registry.
	mu           sync.Mutex
	state        State
	attempts     int
	startedAt    time.Time
	frozen       time.Duration
	timerOn      bool
	retryCorrect bool

	answer  json.RawMessage
	verdict grading.Verdict
	score   int

	recorded bool
}

type Option func(*Session)

func WithMode(m Mode) Option         { return func(s *Session) { s.mode = m } }
func WithClock(c Clock) Option       { return func(s *Session) { s.now = c } }
func WithRecorder(r Recorder) Option { return func(s *Session) { s.rec = r } }
func WithID(id string) Option        { return func(s *Session) { s.id = id } }

// WithRetryAfterCorrect toggles whether practice sessions may retry an
// already correct answer. On by default; graded mode ignores it.
func WithRetryAfterCorrect(v bool) Option { return func(s *Session) { s.retryCorrect = v } }

// New opens a session on an exercise: timer running, zero attempts.
func New(ex exercise.Exercise, userID string, opts ...Option) *Session {
	s := &Session{
		userID:       userID,
		ex:           ex,
		now:          time.Now,
		state:        StateUnanswered,
		timerOn:      true,
		retryCorrect: true,
	}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.startedAt = s.now()
	return s
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Exercise() exercise.Exercise { return s.ex }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Session) Verdict() grading.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verdict
}

func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Elapsed is cumulative wall time; once frozen it no longer grows.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.timerOn {
		return s.frozen
	}
	return s.now().Sub(s.startedAt)
}

func (s *Session) freezeTimer() {
	if s.timerOn {
		s.frozen = s.now().Sub(s.startedAt)
		s.timerOn = false
	}
}

// Submit grades an answer. Valid only while unanswered; a malformed or
// empty answer is rejected as a validation error without consuming an
// attempt or leaving the unanswered state.
func (s *Session) Submit(answer json.RawMessage) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitted:
		return Result{}, apperr.Statef("already submitted; retry first")
	case StateFinalized:
		return Result{}, apperr.Statef("session is finalized")
	}

	verdict, err := grading.Check(s.ex.Type, answer, s.ex.Solution)
	if err != nil {
		return Result{}, err
	}

	s.attempts++
	if s.mode == ModeGraded {
		s.freezeTimer()
	}
	s.answer = answer
	s.verdict = verdict
	s.score = grading.Score(s.ex.Points, verdict.Correct(), s.attempts)
	s.state = StateSubmitted

	return Result{Verdict: verdict, Score: s.score, Attempts: s.attempts}, nil
}

// Retry returns to unanswered after an incorrect submission. Attempts
// and elapsed time are cumulative, never reset. In graded mode a correct
// (or pending-review) answer is terminal.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitted {
		return apperr.Statef("nothing to retry in state %s", s.state)
	}
	if s.verdict != grading.VerdictIncorrect && (s.mode != ModePractice || !s.retryCorrect) {
		return apperr.Statef("a %s submission is terminal", s.verdict)
	}
	s.answer = nil
	s.state = StateUnanswered
	return nil
}

// Outcome is the frozen result of a finalized session.
type Outcome struct {
	SubmissionID string          `json:"submission_id"`
	Verdict      grading.Verdict `json:"verdict"`
	Score        int             `json:"score"`
	Attempts     int             `json:"attempts"`
	Elapsed      time.Duration   `json:"-"`
	ElapsedSec   int             `json:"elapsed_sec"`
}

// Finalize freezes the session and hands the outcome to the recorder,
// at most once. Recording runs in the background with its own deadline;
// a recording failure is logged and never rolls back the result the
// learner already saw.
func (s *Session) Finalize(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitted {
		return Outcome{}, apperr.Statef("cannot finalize in state %s", s.state)
	}
	s.freezeTimer()
	s.state = StateFinalized

	out := Outcome{
		SubmissionID: s.id,
		Verdict:      s.verdict,
		Score:        s.score,
		Attempts:     s.attempts,
		Elapsed:      s.frozen,
		ElapsedSec:   int(s.frozen / time.Second),
	}

	if s.rec != nil && !s.recorded {
		s.recorded = true
		sub := Submission{
			ID:          s.id,
			ExerciseID:  s.ex.ID,
			UserID:      s.userID,
			Answer:      s.answer,
			Verdict:     s.verdict.String(),
			Score:       s.score,
			MaxPoints:   s.ex.Points,
			Attempts:    s.attempts,
			ElapsedSec:  out.ElapsedSec,
			SubmittedAt: s.now().Unix(),
		}
		go func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := s.rec.Record(rctx, sub); err != nil {
				log.Printf("warn: submission %s not recorded: %v", sub.ID, err)
			}
		}()
	}
	return out, nil
}

// RenderState projects the session for a UI widget. The solution is
// only revealed on request and never before the first submission.
func (s *Session) RenderState(revealSolution bool) exercise.RenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := exercise.RenderState{
		Content:     s.ex.Content,
		UserAnswer:  s.answer,
		IsSubmitted: s.state != StateUnanswered,
		IsCorrect:   s.verdict.Correct(),
	}
	if revealSolution && s.state != StateUnanswered {
		rs.Solution = s.ex.Solution
	}
	return rs
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/assessment"
	"github.com/classlight/classlight-lms/internal/auth"
	"github.com/classlight/classlight-lms/internal/session"
)

// PracticeDeps wires the single-exercise session endpoints: an exercise
// source, the live-session registry, and the submission recorder that
// receives finalized outcomes.
type PracticeDeps struct {
	Store    assessment.Store
	Registry *session.Registry
	Recorder session.Recorder
	// RetryAfterCorrect mirrors PRACTICE_RETRY_AFTER_CORRECT.
	RetryAfterCorrect bool
}

type openSessionReq struct {
	ExerciseID string `json:"exercise_id"`
	Mode       string `json:"mode"` // "graded" (default) or "practice"
}

type sessionView struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Mode     string `json:"mode"`
	Attempts int    `json:"attempts"`
}

// OpenSessionHandler starts a live session on one exercise. The learner
// gets the exercise back without its solution.
func OpenSessionHandler(d PracticeDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		var req openSessionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, apperr.Validationf("bad session body: %v", err))
			return
		}
		mode := session.ModeGraded
		switch req.Mode {
		case "", "graded":
		case "practice":
			mode = session.ModePractice
		default:
			writeErr(w, apperr.Validationf("unknown mode %q", req.Mode))
			return
		}

		ex, err := d.Store.GetExercise(r.Context(), req.ExerciseID)
		if err != nil {
			writeErr(w, err)
			return
		}

		s := session.New(ex, sub,
			session.WithMode(mode),
			session.WithRecorder(d.Recorder),
			session.WithRetryAfterCorrect(d.RetryAfterCorrect),
		)
		d.Registry.Add(s, sub)

		writeJSON(w, http.StatusOK, map[string]any{
			"session":  viewOf(s, req.Mode),
			"exercise": ex.Stripped(),
		})
	}
}

type submitReq struct {
	Answer json.RawMessage `json:"answer"`
}

func SubmitSessionHandler(d PracticeDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := callerSession(r, d)
		if err != nil {
			writeErr(w, err)
			return
		}
		var req submitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, apperr.Validationf("bad submit body: %v", err))
			return
		}
		res, err := s.Submit(req.Answer)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func RetrySessionHandler(d PracticeDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := callerSession(r, d)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := s.Retry(); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"state":    s.State().String(),
			"attempts": s.Attempts(),
		})
	}
}

// FinalizeSessionHandler closes the session and drops it from the
// registry. The durable record is written in the background.
func FinalizeSessionHandler(d PracticeDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := callerSession(r, d)
		if err != nil {
			writeErr(w, err)
			return
		}
		out, err := s.Finalize(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		d.Registry.Remove(s.ID())
		writeJSON(w, http.StatusOK, out)
	}
}

// RenderSessionHandler projects the session for the exercise widget.
// ?reveal=1 asks for the solution; the session still refuses before the
// first submission.
func RenderSessionHandler(d PracticeDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := callerSession(r, d)
		if err != nil {
			writeErr(w, err)
			return
		}
		reveal := r.URL.Query().Get("reveal") == "1"
		writeJSON(w, http.StatusOK, s.RenderState(reveal))
	}
}

func callerSession(r *http.Request, d PracticeDeps) (*session.Session, error) {
	sub := auth.SubjectFromContext(r.Context())
	return d.Registry.Get(chi.URLParam(r, "sessionID"), sub)
}

func viewOf(s *session.Session, mode string) sessionView {
	if mode == "" {
		mode = "graded"
	}
	return sessionView{
		ID:       s.ID(),
		State:    s.State().String(),
		Mode:     mode,
		Attempts: s.Attempts(),
	}
}

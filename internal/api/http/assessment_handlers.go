package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/assessment"
	"github.com/classlight/classlight-lms/internal/auth"
	"github.com/classlight/classlight-lms/internal/rbac"
)

func PutAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var a assessment.Assessment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			writeErr(w, apperr.Validationf("bad assessment body: %v", err))
			return
		}
		if id := chi.URLParam(r, "assessmentID"); id != "" {
			a.ID = id
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.Title == "" {
			writeErr(w, apperr.Validationf("title required"))
			return
		}
		if a.CreatedAt == 0 {
			a.CreatedAt = time.Now().Unix()
		}
		if err := store.PutAssessment(r.Context(), a); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": a.ID})
	}
}

func GetAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAssessment(r.Context(), chi.URLParam(r, "assessmentID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// StartAttemptHandler opens (or resumes) the caller's attempt on an
// assessment. Starting twice returns the same active attempt.
func StartAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		att, err := svc.Start(r.Context(), sub, chi.URLParam(r, "assessmentID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, att)
	}
}

type answerReq struct {
	QuestionID   string          `json:"question_id"`
	Answer       json.RawMessage `json:"answer"`
	TimeSpentSec int             `json:"time_spent_sec"`
}

func RecordAnswerHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		var req answerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, apperr.Validationf("bad answer body: %v", err))
			return
		}
		resp, err := svc.RecordAnswer(r.Context(), sub, chi.URLParam(r, "attemptID"), req.QuestionID, req.Answer, req.TimeSpentSec)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func CompleteAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		att, err := svc.Complete(r.Context(), sub, chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, att)
	}
}

func GetAttemptHandler(svc *assessment.Service, checker *rbac.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		role := rbac.RoleFromContext(r.Context())
		viewAll := checker.Has(role, "attempt:view-all")
		att, err := svc.GetAttempt(r.Context(), sub, chi.URLParam(r, "attemptID"), viewAll)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, att)
	}
}

// ListAttemptsHandler.
// GET /attempts?assessment_id=...&user_id=...&status=active|completed&limit=50&offset=0
// Callers without attempt:view-all are scoped to their own attempts
// regardless of the user_id filter they send.
func ListAttemptsHandler(svc *assessment.Service, checker *rbac.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		role := rbac.RoleFromContext(r.Context())

		q := r.URL.Query()
		opts := assessment.AttemptListOpts{
			AssessmentID: q.Get("assessment_id"),
			UserID:       q.Get("user_id"),
			Status:       q.Get("status"),
			Limit:        parseIntDefault(q.Get("limit"), 50),
			Offset:       parseIntDefault(q.Get("offset"), 0),
		}
		if !checker.Has(role, "attempt:view-all") {
			opts.UserID = sub
		}

		list, err := svc.ListAttempts(r.Context(), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// ManualGradeHandler applies a teacher's review of pending responses on
// a completed attempt. Body: {"question_id": {"points": n} | {"criteria": {...}}}.
func ManualGradeHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grader := auth.SubjectFromContext(r.Context())
		var items map[string]assessment.ManualGradeInput
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			writeErr(w, apperr.Validationf("bad grade body: %v", err))
			return
		}
		att, err := svc.ApplyManualGrades(r.Context(), grader, chi.URLParam(r, "attemptID"), items)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, att)
	}
}

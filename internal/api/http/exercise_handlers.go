package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/assessment"
	"github.com/classlight/classlight-lms/internal/exercise"
	"github.com/classlight/classlight-lms/internal/rbac"
)

// PutExerciseHandler creates or replaces an exercise. Authoring routes
// sit behind exercise:create / exercise:update.
func PutExerciseHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ex exercise.Exercise
		if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
			writeErr(w, apperr.Validationf("bad exercise body: %v", err))
			return
		}
		if id := chi.URLParam(r, "exerciseID"); id != "" {
			ex.ID = id
		}
		if ex.ID == "" {
			ex.ID = uuid.NewString()
		}
		if !ex.Type.Valid() {
			writeErr(w, apperr.Validationf("unknown exercise type %q", ex.Type))
			return
		}
		if ex.Points <= 0 {
			writeErr(w, apperr.Validationf("points must be positive"))
			return
		}
		if ex.CreatedAt == 0 {
			ex.CreatedAt = time.Now().Unix()
		}
		if err := store.PutExercise(r.Context(), ex); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": ex.ID})
	}
}

// GetExerciseHandler serves one exercise. Callers without exercise
// authoring rights get the learner view: solution stripped.
func GetExerciseHandler(store assessment.Store, checker *rbac.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ex, err := store.GetExercise(r.Context(), chi.URLParam(r, "exerciseID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		role := rbac.RoleFromContext(r.Context())
		if !checker.Has(role, "exercise:author") {
			ex = ex.Stripped()
		}
		writeJSON(w, http.StatusOK, ex)
	}
}

// ListExerciseTypesHandler enumerates the supported exercise types so
// authoring UIs do not hardcode the catalog.
func ListExerciseTypesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, exercise.Types)
	}
}

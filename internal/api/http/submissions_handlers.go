package http

import (
	"net/http"

	"github.com/classlight/classlight-lms/internal/auth"
	"github.com/classlight/classlight-lms/internal/rbac"
	"github.com/classlight/classlight-lms/internal/recorder"
)

// ListSubmissionsHandler returns finalized single-exercise submissions,
// newest first. Callers without attempt:view-all only see their own.
func ListSubmissionsHandler(rec *recorder.SQLRecorder, checker *rbac.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		role := rbac.RoleFromContext(r.Context())

		userID := r.URL.Query().Get("user_id")
		if userID == "" || !checker.Has(role, "attempt:view-all") {
			userID = sub
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)

		list, err := rec.ListByUser(r.Context(), userID, limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

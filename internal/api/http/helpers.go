// Package http is the gateway's HTTP surface: thin handlers over the
// grading, session, and assessment services, with RBAC enforced per
// route.
package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/classlight/classlight-lms/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps service errors onto HTTP statuses. Anything without an
// app kind is a 500 with a generic body; the detail goes to the log,
// not the wire.
func writeErr(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

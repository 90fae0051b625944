package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// parseMonthRange reads the optional from/to query parameters ("2006-01").
// "from" selects the first instant of its month, "to" the last.
func parseMonthRange(r *http.Request) (from, to time.Time, err error) {
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		from, err = time.Parse("2006-01", v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from' month %q", v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		to, err = time.Parse("2006-01", v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to' month %q", v)
		}
		// Inclusive: cover the whole month
		to = to.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}
	return from, to, nil
}

// parseIntParam reads an optional integer query parameter.
func parseIntParam(r *http.Request, name string, defaultValue int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid '%s' parameter %q", name, v)
	}
	return n, nil
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/recreate"
	"github.com/mediatally/mediatally/internal/service"
	"github.com/mediatally/mediatally/internal/store"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]any) {
	var ctxMap map[string]any
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var cycle *recreate.CycleError
	switch {
	case errors.Is(err, service.ErrUnknownService), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRecreateNotAllowed):
		return http.StatusForbidden
	case errors.As(err, &cycle):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

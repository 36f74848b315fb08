package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/roach88/chefconnect/internal/api"
	"github.com/roach88/chefconnect/internal/catalog"
	"github.com/roach88/chefconnect/internal/recipe"
)

func setHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
}

// respondJSON writes payload as indented JSON with status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	setHeaders(w)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// errorBody is the error shape api.Client parses.
type errorBody struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// respondError writes a structured error. Domain errors choose the status
// and code; anything else is a 500.
func respondError(w http.ResponseWriter, err error) {
	status, code, message := classify(err)
	setHeaders(w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:     http.StatusText(status),
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func classify(err error) (status int, code, message string) {
	var qe *recipe.QueryError
	switch {
	case errors.As(err, &qe):
		return http.StatusBadRequest, api.CodeInvalidQuery, qe.Message
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, api.CodeNotFound, err.Error()
	case errors.Is(err, catalog.ErrInvalidRecipe):
		return http.StatusBadRequest, api.CodeInvalidRecipe, err.Error()
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "", err.Error()
	}
	return http.StatusInternalServerError, "", http.StatusText(http.StatusInternalServerError)
}

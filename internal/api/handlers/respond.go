package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/avelar/taskhive-be/internal/services"
)

// validate checks request payload shape before the services apply their own
// rules.
var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps the service error taxonomy to HTTP status codes.
// Validation problems and duplicate emails are caller-correctable (400),
// authentication failures are 401, and a task that is missing or owned by
// someone else is uniformly 404.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrDuplicateEmail):
		http.Error(w, "Email already registered", http.StatusBadRequest)
	case errors.Is(err, services.ErrAuthenticationFailed):
		http.Error(w, "Incorrect email or password", http.StatusUnauthorized)
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

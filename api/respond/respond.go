// Package respond writes JSON responses and maps domain errors to HTTP
// status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/dronedispatch/core/model"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg} with the status matching err.
func Error(w http.ResponseWriter, err error) {
	JSON(w, Status(err), map[string]string{"error": err.Error()})
}

// Status maps domain errors to HTTP codes.
func Status(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON body into v. Malformed bodies are reported as invalid
// input.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v); err != nil {
		return errors.Join(model.ErrInvalidInput, err)
	}
	return nil
}

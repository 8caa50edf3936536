package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, repository.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrStateConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.WithField("path", r.URL.Path).WithError(err).Error("request failed")
		writeMessage(w, code, "internal server error")
		return
	}
	writeMessage(w, code, err.Error())
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Message: "invalid json: " + err.Error()}
	}
	return nil
}

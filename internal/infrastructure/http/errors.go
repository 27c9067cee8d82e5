package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

// statusFor maps the engine's error taxonomy to an HTTP status and user-facing message.
func statusFor(err error) (int, string) {
	var perr *domain.ProviderError
	switch {
	case errors.Is(err, application.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "currency not supported"
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusServiceUnavailable, "offline data unavailable"
	case errors.Is(err, domain.ErrUnsupported):
		return http.StatusNotImplemented, err.Error()
	case errors.As(err, &perr):
		return http.StatusBadGateway, "conversion failed: " + perr.Error()
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

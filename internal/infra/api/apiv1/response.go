package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"

	"prospect-video-generator/internal/domain"
)

// Response is the envelope every /api/v1 route answers with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, Response{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, Response{Success: true, Message: msg})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), Response{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrParse),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrMappingIncomplete):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrJobTerminal), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpload):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrService):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
